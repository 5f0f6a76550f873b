package adapters

import (
	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// MenuModel is the engine's native menu. The adapter never edits it.
type MenuModel interface {
	Count() int
}

// ContextMenuParams describes where and on what the menu was opened.
type ContextMenuParams struct {
	X             int
	Y             int
	LinkURL       string
	SelectionText string
	PageURL       string
	IsEditable    bool
	EditFlags     schema.EditStateFlags
}

// RunContextMenuCallback resolves the engine's native menu.
type RunContextMenuCallback interface {
	Cancel()
}

// ContextMenuAdapter delegates context menus to the host UI.
type ContextMenuAdapter struct {
	out *eventbridge.Producer
	log pslog.Logger
}

// NewContextMenuAdapter constructs a ContextMenuAdapter.
func NewContextMenuAdapter(out *eventbridge.Producer, logger pslog.Logger) *ContextMenuAdapter {
	return &ContextMenuAdapter{out: out, log: orDefault(logger)}
}

// OnBeforeContextMenu leaves the engine's menu population untouched.
func (a *ContextMenuAdapter) OnBeforeContextMenu(model MenuModel) {
	if model != nil {
		a.log.Trace("context menu model", "items", model.Count())
	}
}

// RunContextMenu cancels the native menu and emits ContextMenuRequested.
// It reports true so the engine does not show its own menu.
func (a *ContextMenuAdapter) RunContextMenu(params *ContextMenuParams, cb RunContextMenuCallback) bool {
	ctx := ExtractContextMenuContext(params)
	if cb != nil {
		cb.Cancel()
	}
	a.out.Send(schema.ContextMenuRequested(ctx))
	return true
}

// ExtractContextMenuContext converts engine params. Nil params give a zero context.
func ExtractContextMenuContext(params *ContextMenuParams) schema.ContextMenuContext {
	if params == nil {
		return schema.ContextMenuContext{}
	}
	ctx := schema.ContextMenuContext{
		LinkURL:       schema.OptionalString(params.LinkURL),
		SelectionText: schema.OptionalString(params.SelectionText),
		IsEditable:    params.IsEditable,
		PageURL:       params.PageURL,
	}
	ctx.ApplyEditFlags(params.EditFlags)
	return ctx
}
