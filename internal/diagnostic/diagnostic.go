package diagnostic

import (
	"github.com/rs/zerolog/log"
)

const (
	ReasonUnrecognized  = "Don't know what to do with this"
	ReasonFrameOutside  = "frame outside of a sample block"
	ReasonUnterminated  = "sample block was never terminated"
	ReasonMalformedLine = "malformed folded line"
	ReasonBadNumber     = "malformed number"
)

type (
	// Diagnostic describes an input line that was skipped. Line is 1-based.
	Diagnostic struct {
		Line   int    `json:"line"`
		Text   string `json:"text"`
		Reason string `json:"reason"`
	}

	List []Diagnostic
)

// Add records a skipped line and logs it.
func (l *List) Add(line int, text, reason string) {
	log.Warn().Int("line", line).Str("text", text).Msg(reason)
	*l = append(*l, Diagnostic{Line: line, Text: text, Reason: reason})
}

func (l List) Len() int {
	return len(l)
}
