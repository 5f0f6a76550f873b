package adapters

import (
	"strings"

	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// KeyboardAdapter intercepts host shortcuts before the engine sees them.
type KeyboardAdapter struct {
	out       *eventbridge.Producer
	shortcuts map[string]string
	log       pslog.Logger
}

// NewKeyboardAdapter constructs a KeyboardAdapter. Chords are normalized on entry.
func NewKeyboardAdapter(out *eventbridge.Producer, shortcuts map[string]string, logger pslog.Logger) *KeyboardAdapter {
	normalized := make(map[string]string, len(shortcuts))
	for chord, command := range shortcuts {
		normalized[NormalizeChord(chord)] = command
	}
	return &KeyboardAdapter{out: out, shortcuts: normalized, log: orDefault(logger)}
}

// OnPreKeyEvent reports true when the key down matches a host shortcut.
func (a *KeyboardAdapter) OnPreKeyEvent(event schema.KeyEvent) bool {
	if event.Type != schema.KeyDown || len(a.shortcuts) == 0 {
		return false
	}
	command, ok := a.shortcuts[Chord(event)]
	if !ok {
		return false
	}
	a.log.Debug("shortcut intercepted", "command", command)
	a.out.Send(schema.ShortcutPressed(command))
	return true
}

// Chord renders a key event as "ctrl+alt+shift+meta+key".
func Chord(event schema.KeyEvent) string {
	var b strings.Builder
	if event.Modifiers&schema.ModControl != 0 {
		b.WriteString("ctrl+")
	}
	if event.Modifiers&schema.ModAlt != 0 {
		b.WriteString("alt+")
	}
	if event.Modifiers&schema.ModShift != 0 {
		b.WriteString("shift+")
	}
	if event.Modifiers&schema.ModMeta != 0 {
		b.WriteString("meta+")
	}
	key := event.Key
	if key == "" {
		key = event.Code
	}
	b.WriteString(normalizeKey(key))
	return b.String()
}

// NormalizeChord rewrites a configured chord into the canonical modifier order.
func NormalizeChord(chord string) string {
	return Chord(ParseChord(chord))
}

// ParseChord turns a chord such as "ctrl+shift+t" into a key down event.
func ParseChord(chord string) schema.KeyEvent {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	event := schema.KeyEvent{Type: schema.KeyDown}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == len(parts)-1 {
			event.Key = part
			break
		}
		switch part {
		case "ctrl", "control":
			event.Modifiers |= schema.ModControl
		case "alt", "option":
			event.Modifiers |= schema.ModAlt
		case "shift":
			event.Modifiers |= schema.ModShift
		case "meta", "cmd", "super":
			event.Modifiers |= schema.ModMeta
		}
	}
	return event
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	switch key {
	case "arrowleft":
		return "left"
	case "arrowright":
		return "right"
	case "arrowup":
		return "up"
	case "arrowdown":
		return "down"
	case " ":
		return "space"
	}
	return key
}
