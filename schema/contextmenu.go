package schema

// EditStateFlags is the engine's edit capability bit word.
type EditStateFlags uint32

const (
	EditCanUndo EditStateFlags = 1 << iota
	EditCanRedo
	EditCanCut
	EditCanCopy
	EditCanPaste
	EditCanDelete
	EditCanSelectAll
)

// ContextMenuContext is what the host needs to render its own context menu.
type ContextMenuContext struct {
	LinkURL       *string `json:"link_url,omitempty"`
	SelectionText *string `json:"selection_text,omitempty"`
	IsEditable    bool    `json:"is_editable"`
	PageURL       string  `json:"page_url"`
	CanUndo       bool    `json:"can_undo"`
	CanRedo       bool    `json:"can_redo"`
	CanCut        bool    `json:"can_cut"`
	CanCopy       bool    `json:"can_copy"`
	CanPaste      bool    `json:"can_paste"`
	CanDelete     bool    `json:"can_delete"`
	CanSelectAll  bool    `json:"can_select_all"`
}

// ApplyEditFlags sets the capability booleans from a flag word.
func (c *ContextMenuContext) ApplyEditFlags(flags EditStateFlags) {
	c.CanUndo = flags&EditCanUndo != 0
	c.CanRedo = flags&EditCanRedo != 0
	c.CanCut = flags&EditCanCut != 0
	c.CanCopy = flags&EditCanCopy != 0
	c.CanPaste = flags&EditCanPaste != 0
	c.CanDelete = flags&EditCanDelete != 0
	c.CanSelectAll = flags&EditCanSelectAll != 0
}

// HasLink reports whether the menu was opened on a link.
func (c ContextMenuContext) HasLink() bool {
	return c.LinkURL != nil
}

// HasSelection reports whether text was selected.
func (c ContextMenuContext) HasSelection() bool {
	return c.SelectionText != nil
}

// OptionalString returns nil for an empty string.
func OptionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
