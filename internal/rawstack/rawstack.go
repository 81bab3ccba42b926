// Package rawstack parses stack sample dumps as written by perf script and
// similar tools: a header line per sample, one line per frame from the
// innermost outwards, and a blank line ending the sample.
package rawstack

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/getsentry/stackvis/internal/diagnostic"
	"github.com/getsentry/stackvis/internal/errorutil"
	"github.com/getsentry/stackvis/internal/frame"
	"github.com/getsentry/stackvis/internal/profile"
)

type (
	State int

	lineKind int

	rule struct {
		kind  lineKind
		match func(line string) []string
	}

	Parser struct {
		live  bool
		state State

		current   *profile.Profile
		recording *profile.Recording

		line        int
		blockLine   int
		blockText   string
		diagnostics diagnostic.List
	}

	// Result holds a single profile, or a recording in live mode.
	Result struct {
		Profile     *profile.Profile
		Recording   *profile.Recording
		Diagnostics diagnostic.List
	}
)

const (
	AwaitingBlock State = iota
	InBlock
)

const (
	lineUnknown lineKind = iota
	lineHeader
	lineFrame
	lineBlank
	lineComment
)

var (
	// <label> <pid>/<tid> [<cpu>] <seconds>.<subseconds>
	headerRe = regexp.MustCompile(`^(\S+\s*?\S*?)\s+(\d+)/(\d+)\s+\[(\d+)\]\s+(\d+).(\d+)`)
	// <address> <symbol+args> (<module>), the address token may be missing.
	frameRe = regexp.MustCompile(`^\s*(?:(\w+)\s+)?([^#\s].*) \((\S*)\)`)

	// Tried in order, the first match wins.
	rules = []rule{
		{kind: lineHeader, match: headerRe.FindStringSubmatch},
		{kind: lineFrame, match: frameRe.FindStringSubmatch},
		{kind: lineBlank, match: matchBlank},
		{kind: lineComment, match: matchComment},
	}
)

func matchBlank(line string) []string {
	if strings.TrimSpace(line) == "" {
		return []string{line}
	}
	return nil
}

func matchComment(line string) []string {
	if strings.HasPrefix(line, "#") {
		return []string{line}
	}
	return nil
}

func (s State) String() string {
	switch s {
	case AwaitingBlock:
		return "awaiting_block"
	case InBlock:
		return "in_block"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func classify(line string) (lineKind, []string) {
	for _, r := range rules {
		if m := r.match(line); m != nil {
			return r.kind, m
		}
	}
	return lineUnknown, nil
}

// NewParser returns a parser merging every sample into one profile, or one
// profile per header timestamp when live is set.
func NewParser(live bool) *Parser {
	p := &Parser{live: live}
	if live {
		p.recording = profile.NewRecording()
	} else {
		p.current = profile.New()
	}
	return p
}

func (p *Parser) State() State {
	return p.state
}

func (p *Parser) Diagnostics() diagnostic.List {
	return p.diagnostics
}

// ParseLine feeds the next input line to the state machine.
func (p *Parser) ParseLine(line string) {
	p.line++
	line = strings.TrimSuffix(line, "\r")

	kind, m := classify(line)
	switch kind {
	case lineHeader:
		p.openBlock(line, m[1], m[5])
	case lineFrame:
		if p.state != InBlock {
			p.diagnostics.Add(p.line, line, diagnostic.ReasonFrameOutside)
			return
		}
		p.current.AddFrame(frame.Frame{Symbol: m[2], Module: m[3]})
	case lineBlank:
		if p.state != InBlock {
			return
		}
		p.current.CloseStack()
		p.state = AwaitingBlock
	case lineComment:
	default:
		p.diagnostics.Add(p.line, line, diagnostic.ReasonUnrecognized)
	}
}

func (p *Parser) openBlock(line, label, timestamp string) {
	if p.state == InBlock {
		p.current.Discard()
		p.diagnostics.Add(p.blockLine, p.blockText, diagnostic.ReasonUnterminated)
	}
	if p.live {
		p.current = p.recording.Profile(timestamp)
	}
	p.current.OpenStack(label)
	p.state = InBlock
	p.blockLine = p.line
	p.blockText = line
}

// Finish drops a block left open at the end of the input and returns what
// was parsed.
func (p *Parser) Finish() *Result {
	if p.state == InBlock {
		p.current.Discard()
		p.diagnostics.Add(p.blockLine, p.blockText, diagnostic.ReasonUnterminated)
		p.state = AwaitingBlock
	}
	r := &Result{Diagnostics: p.diagnostics}
	if p.live {
		r.Recording = p.recording
	} else {
		r.Profile = p.current
	}
	return r
}

// Parse reads the whole input and then runs it through a Parser.
func Parse(r io.Reader, live bool) (*Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorutil.ErrUnreadableInput, err)
	}
	p := NewParser(live)
	for _, line := range strings.Split(string(b), "\n") {
		p.ParseLine(line)
	}
	return p.Finish(), nil
}
