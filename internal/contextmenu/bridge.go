package contextmenu

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// ActionKind tells the host what a selected entry does.
type ActionKind string

const (
	// ActionEdit runs Action.Edit on the focused frame.
	ActionEdit ActionKind = "edit"
	// ActionNavigate runs a history or reload command on the tab.
	ActionNavigate ActionKind = "navigate"
	// ActionOpenTab opens Action.URL in a new tab.
	ActionOpenTab ActionKind = "open_tab"
	// ActionClipboard places Action.Text on the clipboard.
	ActionClipboard ActionKind = "clipboard"
	// ActionInspect opens developer tools.
	ActionInspect ActionKind = "inspect"
)

// Action is the effect of selecting a menu entry.
type Action struct {
	Kind    ActionKind
	Tab     schema.TabID
	Command Command
	Edit    schema.EditCommand
	URL     string
	Text    string
}

var editCommands = map[Command]schema.EditCommand{
	CommandUndo:      schema.EditUndo,
	CommandRedo:      schema.EditRedo,
	CommandCut:       schema.EditCut,
	CommandCopy:      schema.EditCopy,
	CommandPaste:     schema.EditPaste,
	CommandDelete:    schema.EditDelete,
	CommandSelectAll: schema.EditSelectAll,
}

// Bridge keeps at most one open menu per tab.
type Bridge struct {
	mu      sync.Mutex
	pending map[schema.TabID]Menu
	log     pslog.Logger
}

// NewBridge constructs a Bridge.
func NewBridge(logger pslog.Logger) *Bridge {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bridge{pending: make(map[schema.TabID]Menu), log: logger}
}

// Open builds and records the menu for tab, replacing any open one.
func (b *Bridge) Open(tab schema.TabID, ctx schema.ContextMenuContext) Menu {
	menu := Build(ctx)
	b.mu.Lock()
	b.pending[tab] = menu
	b.mu.Unlock()
	b.log.Debug("context menu open", "tab", tab, "items", len(menu.Items), "editable", ctx.IsEditable)
	return menu
}

// Pending returns the open menu for tab.
func (b *Bridge) Pending(tab schema.TabID) (Menu, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	menu, ok := b.pending[tab]
	return menu, ok
}

// Dismiss closes the menu for tab. It reports whether one was open.
func (b *Bridge) Dismiss(tab schema.TabID) bool {
	b.mu.Lock()
	_, ok := b.pending[tab]
	delete(b.pending, tab)
	b.mu.Unlock()
	if ok {
		b.log.Debug("context menu dismissed", "tab", tab)
	}
	return ok
}

// Select resolves cmd against the open menu for tab and closes the menu.
// An unknown command leaves the menu open.
func (b *Bridge) Select(tab schema.TabID, cmd Command) (Action, error) {
	b.mu.Lock()
	menu, ok := b.pending[tab]
	if !ok {
		b.mu.Unlock()
		return Action{}, fmt.Errorf("tab %s: %w", tab, schema.ErrNoContextMenu)
	}
	if !menu.Has(cmd) {
		b.mu.Unlock()
		return Action{}, fmt.Errorf("context menu entry %q is not available", cmd)
	}
	delete(b.pending, tab)
	b.mu.Unlock()

	action := Action{Tab: tab, Command: cmd}
	ctx := menu.Context
	switch cmd {
	case CommandOpenLinkInNewTab:
		action.Kind = ActionOpenTab
		action.URL = *ctx.LinkURL
	case CommandCopyLinkAddress:
		action.Kind = ActionClipboard
		action.Text = *ctx.LinkURL
	case CommandBack, CommandForward, CommandReload:
		action.Kind = ActionNavigate
	case CommandInspect:
		action.Kind = ActionInspect
	default:
		action.Kind = ActionEdit
		action.Edit = editCommands[cmd]
	}
	b.log.Debug("context menu select", "tab", tab, "command", cmd, "action", action.Kind)
	return action, nil
}

// Forget drops state for a closed tab.
func (b *Bridge) Forget(tab schema.TabID) {
	b.mu.Lock()
	delete(b.pending, tab)
	b.mu.Unlock()
}
