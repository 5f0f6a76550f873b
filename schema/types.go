package schema

// TabID identifies a browser tab.
type TabID string

// ProducerName identifies the engine-side producer of an event.
type ProducerName string

// NewTabURL is the sentinel URL of an empty tab. It is never recorded in history.
const NewTabURL = "about:blank"

// DefaultTabTitle is the title of a tab before the engine reports one.
const DefaultTabTitle = "New Tab"

// PixelFormat describes the byte layout of a frame buffer.
type PixelFormat int

const (
	// PixelFormatUnknown is not accepted by the render bridge.
	PixelFormatUnknown PixelFormat = iota
	// PixelFormatBGRA8 is 4 bytes per pixel, blue first. The engine paints in this layout.
	PixelFormatBGRA8
	// PixelFormatRGBA8 is 4 bytes per pixel, red first.
	PixelFormatRGBA8
)

// BytesPerPixel returns the pixel size for supported formats, 0 otherwise.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatBGRA8, PixelFormatRGBA8:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRA8:
		return "bgra8"
	case PixelFormatRGBA8:
		return "rgba8"
	default:
		return "unknown"
	}
}

// EditCommand is an editing command issued to the focused frame.
type EditCommand string

const (
	EditUndo      EditCommand = "undo"
	EditRedo      EditCommand = "redo"
	EditCut       EditCommand = "cut"
	EditCopy      EditCommand = "copy"
	EditPaste     EditCommand = "paste"
	EditDelete    EditCommand = "delete"
	EditSelectAll EditCommand = "selectAll"
)

// KeyEventType distinguishes key transitions.
type KeyEventType string

const (
	KeyDown KeyEventType = "keyDown"
	KeyUp   KeyEventType = "keyUp"
	KeyChar KeyEventType = "char"
)

// KeyModifiers is a bit set of held modifier keys.
type KeyModifiers uint32

const (
	ModShift KeyModifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta
)

// KeyEvent is a host keyboard event forwarded to the engine.
type KeyEvent struct {
	Type      KeyEventType
	Key       string
	Code      string
	Modifiers KeyModifiers
}

// WindowDisposition describes where the engine wants a navigation to open.
type WindowDisposition int

const (
	DispositionCurrentTab WindowDisposition = iota
	DispositionSingletonTab
	DispositionNewForegroundTab
	DispositionNewBackgroundTab
	DispositionNewPopup
	DispositionNewWindow
)

// OpensNewTab reports whether the disposition targets anything but the current tab.
func (d WindowDisposition) OpensNewTab() bool {
	switch d {
	case DispositionNewForegroundTab, DispositionNewBackgroundTab, DispositionNewPopup, DispositionNewWindow:
		return true
	default:
		return false
	}
}
