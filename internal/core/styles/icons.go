package styles

// Decision glyphs shown in the status bar and toasts.
var (
	IconCommit = "✚"
	IconKeep   = "✓"
	IconReject = "✗"
	IconSkip   = "?"
	IconUndo   = "↶"
	IconDone   = "★"
)

// IconFor returns the glyph for an action kind name.
func IconFor(kind string) string {
	switch kind {
	case "commit":
		return IconCommit
	case "keep":
		return IconKeep
	case "reject":
		return IconReject
	case "skip":
		return IconSkip
	default:
		return "•"
	}
}
