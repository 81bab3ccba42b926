// Package folded parses folded stacks carrying a value and a diff per line,
// as produced by differential flame graph tooling:
//
//	REALTIME: 2.0
//	main;run;work 10 3
package folded

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/getsentry/stackvis/internal/diagnostic"
	"github.com/getsentry/stackvis/internal/errorutil"
	"github.com/getsentry/stackvis/internal/nodetree"
)

const (
	realtimePrefix  = "REALTIME:"
	timedeltaPrefix = "TIMEDELTA:"

	frameSeparator = ";"
)

var lineRe = regexp.MustCompile(`^(.+)\s+(\S+)\s+(\S+)$`)

type (
	Parser struct {
		negate   bool
		delta    bool
		realtime float64

		root        *nodetree.Node
		line        int
		diagnostics diagnostic.List
	}

	Result struct {
		Root     *nodetree.Node
		Timestep    nodetree.Timestep
		Diagnostics diagnostic.List
	}
)

// NewParser returns a parser flipping the sign of every diff when negate is
// set.
func NewParser(negate bool) *Parser {
	return &Parser{
		negate:   negate,
		realtime: math.NaN(),
		root:     nodetree.NewRoot(),
	}
}

// ParseLine feeds the next input line to the parser.
func (p *Parser) ParseLine(line string) {
	p.line++
	line = strings.TrimRightFunc(line, unicode.IsSpace)

	switch {
	case strings.HasPrefix(line, realtimePrefix):
		p.setRealtime(line, line[len(realtimePrefix):])
		return
	case strings.HasPrefix(line, timedeltaPrefix):
		if p.setRealtime(line, line[len(timedeltaPrefix):]) {
			p.delta = true
		}
		return
	case strings.TrimSpace(line) == "":
		return
	}

	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		p.diagnostics.Add(p.line, line, diagnostic.ReasonMalformedLine)
		return
	}
	value, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		p.diagnostics.Add(p.line, line, diagnostic.ReasonBadNumber)
		return
	}
	diff, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		p.diagnostics.Add(p.line, line, diagnostic.ReasonBadNumber)
		return
	}
	if p.negate {
		diff = -diff
	}
	p.root.Insert(strings.Split(m[1], frameSeparator), value, diff, p.delta)
}

func (p *Parser) setRealtime(line, rest string) bool {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		p.diagnostics.Add(p.line, line, diagnostic.ReasonBadNumber)
		return false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		p.diagnostics.Add(p.line, line, diagnostic.ReasonBadNumber)
		return false
	}
	p.realtime = v
	return true
}

// Finish computes the timestep from the total timeshare of the tree.
func (p *Parser) Finish() *Result {
	return &Result{
		Root:        p.root,
		Timestep:    nodetree.NewTimestep(p.realtime, p.root.Timeshare),
		Diagnostics: p.diagnostics,
	}
}

// Parse reads the whole input and then runs it through a Parser.
func Parse(r io.Reader, negate bool) (*Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorutil.ErrUnreadableInput, err)
	}
	p := NewParser(negate)
	for _, line := range strings.Split(string(b), "\n") {
		p.ParseLine(line)
	}
	return p.Finish(), nil
}
