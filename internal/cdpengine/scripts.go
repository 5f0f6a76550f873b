package cdpengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pkt.systems/glass/internal/adapters"
	"pkt.systems/glass/schema"
)

// Page bindings installed on every tab.
const (
	bindingContextMenu = "__glassContextMenu"
	bindingOpenURL     = "__glassOpenURL"
)

// pageScript runs before any page script. It replaces the native context
// menu with a binding call and turns modifier and middle clicks on links into
// open-url requests.
const pageScript = `(() => {
  if (window.__glassInstalled) return;
  window.__glassInstalled = true;
  const can = (cmd) => { try { return document.queryCommandEnabled(cmd); } catch (e) { return false; } };
  const linkOf = (node) => {
    for (let n = node; n; n = n.parentElement) {
      if (n.tagName === 'A' && n.href) return n.href;
    }
    return '';
  };
  const editable = (node) => !!node && (node.isContentEditable ||
    ((node.tagName === 'INPUT' || node.tagName === 'TEXTAREA') && !node.readOnly && !node.disabled));
  document.addEventListener('contextmenu', (ev) => {
    ev.preventDefault();
    const sel = String(window.getSelection() || '');
    const isEditable = editable(ev.target);
    let flags = 64;
    if (can('undo')) flags |= 1;
    if (can('redo')) flags |= 2;
    if (sel && isEditable) flags |= 4 | 32;
    if (sel) flags |= 8;
    if (isEditable) flags |= 16;
    window.` + bindingContextMenu + `(JSON.stringify({
      x: Math.round(ev.clientX), y: Math.round(ev.clientY), linkURL: linkOf(ev.target),
      selectionText: sel, pageURL: location.href, isEditable: isEditable, editFlags: flags,
    }));
  }, true);
  const openLink = (ev, disposition) => {
    const href = linkOf(ev.target);
    if (!href) return;
    ev.preventDefault();
    ev.stopPropagation();
    window.` + bindingOpenURL + `(JSON.stringify({url: href, disposition: disposition}));
  };
  document.addEventListener('click', (ev) => {
    if (ev.ctrlKey || ev.metaKey) openLink(ev, ev.shiftKey ? 'foreground' : 'background');
  }, true);
  document.addEventListener('auxclick', (ev) => {
    if (ev.button === 1) openLink(ev, 'background');
  }, true);
})();`

type contextMenuPayload struct {
	X             int    `json:"x"`
	Y             int    `json:"y"`
	LinkURL       string `json:"linkURL"`
	SelectionText string `json:"selectionText"`
	PageURL       string `json:"pageURL"`
	IsEditable    bool   `json:"isEditable"`
	EditFlags     uint32 `json:"editFlags"`
}

// parseContextMenu decodes the context menu binding payload.
func parseContextMenu(payload string) (*adapters.ContextMenuParams, error) {
	var p contextMenuPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode context menu payload: %w", err)
	}
	return &adapters.ContextMenuParams{
		X:             p.X,
		Y:             p.Y,
		LinkURL:       p.LinkURL,
		SelectionText: p.SelectionText,
		PageURL:       p.PageURL,
		IsEditable:    p.IsEditable,
		EditFlags:     schema.EditStateFlags(p.EditFlags),
	}, nil
}

type openURLPayload struct {
	URL         string `json:"url"`
	Disposition string `json:"disposition"`
}

var errEmptyURL = errors.New("empty url")

// parseOpenURL decodes the open-url binding payload.
func parseOpenURL(payload string) (string, schema.WindowDisposition, error) {
	var p openURLPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", schema.DispositionCurrentTab, fmt.Errorf("decode open url payload: %w", err)
	}
	if strings.TrimSpace(p.URL) == "" {
		return "", schema.DispositionCurrentTab, errEmptyURL
	}
	switch p.Disposition {
	case "foreground":
		return p.URL, schema.DispositionNewForegroundTab, nil
	case "background":
		return p.URL, schema.DispositionNewBackgroundTab, nil
	case "window":
		return p.URL, schema.DispositionNewWindow, nil
	default:
		return p.URL, schema.DispositionCurrentTab, nil
	}
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

type findResult struct {
	Count int  `json:"count"`
	Found bool `json:"found"`
}

// findScript counts case-insensitive matches of text in the document and
// selects the next match. A fresh search starts from the top of the page.
func findScript(text string, forward, findNext bool) string {
	reset := ""
	if !findNext {
		reset = "window.getSelection().removeAllRanges();"
	}
	backwards := "false"
	if !forward {
		backwards = "true"
	}
	return `(() => {
  const needle = ` + jsString(strings.ToLower(text)) + `;
  if (!needle) return {count: 0, found: false};
  const hay = (document.body ? document.body.innerText : '').toLowerCase();
  let count = 0;
  for (let i = hay.indexOf(needle); i >= 0; i = hay.indexOf(needle, i + needle.length)) count++;
  ` + reset + `
  const found = count > 0 && window.find(` + jsString(text) + `, false, ` + backwards + `, true);
  return {count: count, found: !!found};
})()`
}

const clearSelectionScript = `window.getSelection().removeAllRanges()`

// editScript runs an editing command in the focused frame.
func editScript(cmd schema.EditCommand) (string, error) {
	switch cmd {
	case schema.EditUndo, schema.EditRedo, schema.EditCut, schema.EditCopy,
		schema.EditPaste, schema.EditDelete, schema.EditSelectAll:
		return `document.execCommand(` + jsString(string(cmd)) + `)`, nil
	default:
		return "", fmt.Errorf("unsupported edit command %q", cmd)
	}
}

// findState tracks the active match ordinal between find requests.
type findState struct {
	id      int
	text    string
	ordinal int
}

// advance updates the ordinal after a search and returns the report id.
func (f *findState) advance(text string, forward, findNext bool, res findResult) (id, ordinal int) {
	if !findNext || text != f.text {
		f.id++
		f.text = text
		f.ordinal = 0
	}
	switch {
	case res.Count == 0 || !res.Found:
		f.ordinal = 0
	case f.ordinal == 0:
		f.ordinal = 1
		if !forward {
			f.ordinal = res.Count
		}
	case forward:
		f.ordinal = f.ordinal%res.Count + 1
	default:
		f.ordinal--
		if f.ordinal < 1 {
			f.ordinal = res.Count
		}
	}
	return f.id, f.ordinal
}

func (f *findState) reset() {
	f.text = ""
	f.ordinal = 0
}
