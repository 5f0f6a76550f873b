// Package contextmenu builds the host side context menu from what the engine
// reported and maps a selected entry to the action the host has to perform.
package contextmenu

import "pkt.systems/glass/schema"

// Command identifies a menu entry.
type Command string

const (
	CommandOpenLinkInNewTab Command = "open_link_in_new_tab"
	CommandCopyLinkAddress  Command = "copy_link_address"
	CommandUndo             Command = "undo"
	CommandRedo             Command = "redo"
	CommandCut              Command = "cut"
	CommandCopy             Command = "copy"
	CommandPaste            Command = "paste"
	CommandDelete           Command = "delete"
	CommandSelectAll        Command = "select_all"
	CommandBack             Command = "back"
	CommandForward          Command = "forward"
	CommandReload           Command = "reload"
	CommandInspect          Command = "inspect"
)

// Item is one row of a menu. Separator rows carry no command.
type Item struct {
	Command   Command `json:"command,omitempty"`
	Label     string  `json:"label,omitempty"`
	Separator bool    `json:"separator,omitempty"`
}

// Menu is the menu for one context.
type Menu struct {
	Context schema.ContextMenuContext `json:"context"`
	Items   []Item                    `json:"items"`
}

// Has reports whether cmd is a selectable entry of the menu.
func (m Menu) Has(cmd Command) bool {
	for _, item := range m.Items {
		if !item.Separator && item.Command == cmd {
			return true
		}
	}
	return false
}

// Commands lists the selectable entries in order.
func (m Menu) Commands() []Command {
	var out []Command
	for _, item := range m.Items {
		if !item.Separator {
			out = append(out, item.Command)
		}
	}
	return out
}

type builder struct {
	items []Item
}

func (b *builder) entry(cmd Command, label string) {
	b.items = append(b.items, Item{Command: cmd, Label: label})
}

func (b *builder) separator() {
	if len(b.items) == 0 || b.items[len(b.items)-1].Separator {
		return
	}
	b.items = append(b.items, Item{Separator: true})
}

// Build lays out the menu for ctx. Link entries come first, then edit
// entries for editable fields (each gated by its capability) or copy for a
// plain selection. A plain page gets back, forward and reload. Inspect is
// always last.
func Build(ctx schema.ContextMenuContext) Menu {
	var b builder
	if ctx.HasLink() {
		b.entry(CommandOpenLinkInNewTab, "Open Link in New Tab")
		b.entry(CommandCopyLinkAddress, "Copy Link Address")
		b.separator()
	}
	switch {
	case ctx.IsEditable:
		if ctx.CanUndo {
			b.entry(CommandUndo, "Undo")
		}
		if ctx.CanRedo {
			b.entry(CommandRedo, "Redo")
		}
		b.separator()
		if ctx.CanCut {
			b.entry(CommandCut, "Cut")
		}
		if ctx.CanCopy {
			b.entry(CommandCopy, "Copy")
		}
		if ctx.CanPaste {
			b.entry(CommandPaste, "Paste")
		}
		if ctx.CanDelete {
			b.entry(CommandDelete, "Delete")
		}
		b.separator()
		if ctx.CanSelectAll {
			b.entry(CommandSelectAll, "Select All")
		}
	case ctx.HasSelection():
		b.entry(CommandCopy, "Copy")
		b.separator()
	}
	if !ctx.HasLink() && !ctx.HasSelection() && !ctx.IsEditable {
		b.entry(CommandBack, "Back")
		b.entry(CommandForward, "Forward")
		b.entry(CommandReload, "Reload")
		b.separator()
	}
	b.separator()
	b.entry(CommandInspect, "Inspect")
	return Menu{Context: ctx, Items: b.items}
}
