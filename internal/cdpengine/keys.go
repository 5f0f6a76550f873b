package cdpengine

import (
	"strings"
	"unicode/utf8"

	"github.com/chromedp/cdproto/input"

	"pkt.systems/glass/schema"
)

type namedKey struct {
	key  string
	code string
	vk   int64
}

var namedKeys = map[string]namedKey{
	"enter":      {"Enter", "Enter", 13},
	"return":     {"Enter", "Enter", 13},
	"backspace":  {"Backspace", "Backspace", 8},
	"tab":        {"Tab", "Tab", 9},
	"escape":     {"Escape", "Escape", 27},
	"esc":        {"Escape", "Escape", 27},
	"space":      {" ", "Space", 32},
	"pageup":     {"PageUp", "PageUp", 33},
	"pagedown":   {"PageDown", "PageDown", 34},
	"end":        {"End", "End", 35},
	"home":       {"Home", "Home", 36},
	"left":       {"ArrowLeft", "ArrowLeft", 37},
	"arrowleft":  {"ArrowLeft", "ArrowLeft", 37},
	"up":         {"ArrowUp", "ArrowUp", 38},
	"arrowup":    {"ArrowUp", "ArrowUp", 38},
	"right":      {"ArrowRight", "ArrowRight", 39},
	"arrowright": {"ArrowRight", "ArrowRight", 39},
	"down":       {"ArrowDown", "ArrowDown", 40},
	"arrowdown":  {"ArrowDown", "ArrowDown", 40},
	"delete":     {"Delete", "Delete", 46},
	"f5":         {"F5", "F5", 116},
	"f11":        {"F11", "F11", 122},
	"f12":        {"F12", "F12", 123},
}

// cdpModifiers converts host modifier bits to the DevTools bit layout.
func cdpModifiers(mods schema.KeyModifiers) input.Modifier {
	var out input.Modifier
	if mods&schema.ModAlt != 0 {
		out |= input.ModifierAlt
	}
	if mods&schema.ModControl != 0 {
		out |= input.ModifierCtrl
	}
	if mods&schema.ModMeta != 0 {
		out |= input.ModifierMeta
	}
	if mods&schema.ModShift != 0 {
		out |= input.ModifierShift
	}
	return out
}

// keyEventParams builds the DevTools key events for one host key event.
// A printable key down without ctrl, alt or meta also carries its text so the
// page receives input.
func keyEventParams(event schema.KeyEvent) []*input.DispatchKeyEventParams {
	mods := cdpModifiers(event.Modifiers)
	key, code, vk := resolveKey(event)
	text := ""
	if utf8.RuneCountInString(key) == 1 && event.Modifiers&(schema.ModControl|schema.ModAlt|schema.ModMeta) == 0 {
		text = key
		if event.Modifiers&schema.ModShift != 0 {
			text = strings.ToUpper(text)
		}
	}
	if key == "Enter" && event.Modifiers&(schema.ModControl|schema.ModAlt|schema.ModMeta) == 0 {
		text = "\r"
	}

	var typ input.KeyType
	switch event.Type {
	case schema.KeyUp:
		typ = input.KeyUp
	case schema.KeyChar:
		return []*input.DispatchKeyEventParams{
			input.DispatchKeyEvent(input.KeyChar).WithText(event.Key).WithModifiers(mods),
		}
	default:
		typ = input.KeyDown
		if text == "" {
			typ = input.KeyRawDown
		}
	}
	params := input.DispatchKeyEvent(typ).WithKey(key).WithModifiers(mods)
	if code != "" {
		params = params.WithCode(code)
	}
	if vk != 0 {
		params = params.WithWindowsVirtualKeyCode(vk)
	}
	if typ == input.KeyDown && text != "" {
		params = params.WithText(text)
	}
	return []*input.DispatchKeyEventParams{params}
}

func resolveKey(event schema.KeyEvent) (key, code string, vk int64) {
	key = event.Key
	code = event.Code
	if named, ok := namedKeys[strings.ToLower(key)]; ok {
		key = named.key
		if code == "" {
			code = named.code
		}
		return key, code, named.vk
	}
	if r, size := utf8.DecodeRuneInString(key); size == len(key) && size > 0 {
		upper := strings.ToUpper(string(r))
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			if code == "" {
				code = "Key" + upper
			}
			vk = int64(upper[0])
		case r >= '0' && r <= '9':
			if code == "" {
				code = "Digit" + string(r)
			}
			vk = int64(r)
		}
	}
	return key, code, vk
}
