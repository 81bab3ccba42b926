package nodetree

import (
	"math"
	"strconv"
)

type (
	// Serialized is the output form of a Node. Leaves carry no children
	// field at all.
	Serialized struct {
		Name      string        `json:"name"`
		Value     int64         `json:"value"`
		Diff      int64         `json:"diff"`
		Timeshare int64         `json:"timeshare"`
		Tottime   *Float        `json:"tottime,omitempty"`
		Children  []*Serialized `json:"children,omitempty"`
	}

	// Float encodes NaN and infinities as null.
	Float float64

	// Timestep converts accumulated timeshare into seconds.
	Timestep struct {
		value float64
		valid bool
	}
)

// NoTimestep is used when the input carries no real time, tottime is then
// left out of the output.
var NoTimestep = Timestep{}

// NewTimestep spreads realtime over the total timeshare of a tree. A zero
// total gives a non-finite timestep.
func NewTimestep(realtime float64, total int64) Timestep {
	return Timestep{value: realtime / float64(total), valid: true}
}

func (t Timestep) Value() (float64, bool) {
	return t.value, t.valid
}

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// Serialize converts the tree under n, root first.
func (n *Node) Serialize(timestep Timestep) *Serialized {
	s := &Serialized{
		Name:      n.Name,
		Value:     n.Value,
		Diff:      n.Diff,
		Timeshare: n.Timeshare,
	}
	if step, ok := timestep.Value(); ok {
		tottime := Float(float64(n.Timeshare) * step)
		s.Tottime = &tottime
	}
	if len(n.Children) > 0 {
		s.Children = make([]*Serialized, 0, len(n.Children))
		for _, c := range n.Children {
			s.Children = append(s.Children, c.Serialize(timestep))
		}
	}
	return s
}
