package profile

import (
	"github.com/getsentry/stackvis/internal/frame"
	"github.com/getsentry/stackvis/internal/nodetree"
)

type (
	// Profile is one call tree plus the sample block being assembled.
	Profile struct {
		root *nodetree.Node

		open   bool
		label  string
		frames []string
	}
)

func New() *Profile {
	return &Profile{root: nodetree.NewRoot()}
}

func (p *Profile) Root() *nodetree.Node {
	return p.root
}

// OpenStack starts a new sample block labelled with the process name,
// replacing any unfinished one.
func (p *Profile) OpenStack(label string) {
	p.open = true
	p.label = label
	p.frames = p.frames[:0]
}

// AddFrame adds a frame one level below the frames already read. Frames
// arrive innermost first. Process markers are skipped, and so is anything
// added while no block is open.
func (p *Profile) AddFrame(f frame.Frame) {
	if !p.open {
		return
	}
	label, ok := f.Label()
	if !ok {
		return
	}
	p.frames = append(p.frames, label)
}

// CloseStack inserts the assembled block as one sample rooted at its label.
// It does nothing when no block is open.
func (p *Profile) CloseStack() {
	if !p.open {
		return
	}
	p.root.Insert(p.Path(), 1, 1, false)
	p.Discard()
}

// Path returns the call path of the open block, outermost first.
func (p *Profile) Path() []string {
	if !p.open {
		return nil
	}
	path := make([]string, 0, len(p.frames)+1)
	path = append(path, p.label)
	for i := len(p.frames) - 1; i >= 0; i-- {
		path = append(path, p.frames[i])
	}
	return path
}

// Discard drops the open block without inserting it.
func (p *Profile) Discard() {
	p.open = false
	p.label = ""
	p.frames = p.frames[:0]
}
