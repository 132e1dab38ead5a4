package output

// Symbols are the status glyphs used across text-mode output.
var Symbols = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "✓",
	Error:   "✗",
	Warning: "!",
	Info:    "ℹ",
}
