package frame

import (
	"strings"
)

type (
	// Frame is one call frame as read from a raw stack sample.
	Frame struct {
		Symbol string `json:"symbol"`
		Module string `json:"module,omitempty"`
	}
)

// Removes the characters flame graph tooling chokes on. Semicolons separate
// frames in folded stacks, so they can't survive inside a label.
var labelReplacer = strings.NewReplacer(
	";", ":",
	"<", "",
	">", "",
	"'", "",
	"\"", "",
)

// IsProcessMarker reports whether the symbol is a synthetic process entry
// such as "(/usr/bin/app)" rather than a function.
func (f Frame) IsProcessMarker() bool {
	return strings.HasPrefix(f.Symbol, "(")
}

// Label returns the display name of the frame. It returns false when the
// frame must be left out of the call path.
func (f Frame) Label() (string, bool) {
	if f.IsProcessMarker() {
		return "", false
	}
	return Sanitize(f.Symbol), true
}

// Sanitize cleans up a symbol and drops its argument list.
func Sanitize(symbol string) string {
	s := labelReplacer.Replace(symbol)
	if i := strings.IndexByte(s, '('); i != -1 {
		s = s[:i]
	}
	return s
}
