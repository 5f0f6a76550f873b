package adapters

import "pkt.systems/pslog"

// ProtectedMediaIdentifier is the permission bit requested for DRM playback.
const ProtectedMediaIdentifier uint32 = 0x40000

// PermissionDecision is the adapter's answer to a permission prompt.
type PermissionDecision int

const (
	// PermissionNotHandled leaves the decision to the next layer.
	PermissionNotHandled PermissionDecision = iota
	// PermissionAccept grants the request.
	PermissionAccept
	// PermissionDeny refuses the request. The adapter never returns it.
	PermissionDeny
)

func (d PermissionDecision) String() string {
	switch d {
	case PermissionAccept:
		return "accept"
	case PermissionDeny:
		return "deny"
	default:
		return "not_handled"
	}
}

// PermissionAdapter decides engine permission prompts.
type PermissionAdapter struct {
	log pslog.Logger
}

// NewPermissionAdapter constructs a PermissionAdapter.
func NewPermissionAdapter(logger pslog.Logger) *PermissionAdapter {
	return &PermissionAdapter{log: orDefault(logger)}
}

// OnShowPermissionPrompt accepts a request for exactly the protected media
// identifier bit and leaves everything else unhandled.
func (a *PermissionAdapter) OnShowPermissionPrompt(promptID uint64, origin string, requested uint32) PermissionDecision {
	if requested == ProtectedMediaIdentifier {
		a.log.Info("permission granted", "origin", origin, "prompt_id", promptID, "permission", "protected_media_identifier")
		return PermissionAccept
	}
	a.log.Debug("permission prompt passed through", "origin", origin, "prompt_id", promptID, "requested", requested)
	return PermissionNotHandled
}

// OnRequestMediaAccess passes camera and microphone requests through.
func (a *PermissionAdapter) OnRequestMediaAccess(origin string, requested uint32) (granted uint32, handled bool) {
	a.log.Debug("media access passed through", "origin", origin, "requested", requested)
	return 0, false
}

// OnDismissPermissionPrompt is informational.
func (a *PermissionAdapter) OnDismissPermissionPrompt(promptID uint64, result PermissionDecision) {
	a.log.Debug("permission prompt dismissed", "prompt_id", promptID, "result", result.String())
}
