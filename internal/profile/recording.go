package profile

import (
	"github.com/getsentry/stackvis/internal/nodetree"
)

type (
	// Recording holds one Profile per sample timestamp for live flame
	// graphs.
	Recording struct {
		profiles map[string]*Profile
		keys     []string
	}
)

func NewRecording() *Recording {
	return &Recording{profiles: make(map[string]*Profile)}
}

// Profile returns the profile for timestamp, creating it on first use.
func (r *Recording) Profile(timestamp string) *Profile {
	if p, exists := r.profiles[timestamp]; exists {
		return p
	}
	p := New()
	r.profiles[timestamp] = p
	r.keys = append(r.keys, timestamp)
	return p
}

// Keys returns the timestamps in the order they were first seen.
func (r *Recording) Keys() []string {
	return r.keys
}

// Serialize converts every tree of the recording. Live recordings carry
// no real time, so no timestep is applied.
func (r *Recording) Serialize() map[string]*nodetree.Serialized {
	out := make(map[string]*nodetree.Serialized, len(r.profiles))
	for k, p := range r.profiles {
		out[k] = p.root.Serialize(nodetree.NoTimestep)
	}
	return out
}
