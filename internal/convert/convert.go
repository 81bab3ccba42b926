package convert

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/getsentry/stackvis/internal/diagnostic"
	"github.com/getsentry/stackvis/internal/folded"
	"github.com/getsentry/stackvis/internal/metrics"
	"github.com/getsentry/stackvis/internal/nodetree"
	"github.com/getsentry/stackvis/internal/rawstack"
)

const (
	ModeRaw    Mode = "raw"
	ModeLive   Mode = "live"
	ModeFolded Mode = "folded"
)

// SingleTreeKey is the key of the tree when a conversion isn't live.
const SingleTreeKey = nodetree.RootName

type (
	Mode string

	Options struct {
		// Folded selects the folded parser. Live and Negate only apply to
		// raw and folded input respectively.
		Folded bool
		Live   bool
		Negate bool
	}

	// Output is either one tree, or one tree per timestamp for live input.
	Output struct {
		Mode        Mode
		Tree        *nodetree.Serialized
		Recording   map[string]*nodetree.Serialized
		Keys        []string
		Diagnostics diagnostic.List
	}

	// KeyedTree is a serialized tree along with its timestamp in live mode.
	KeyedTree struct {
		Key  string
		Tree *nodetree.Serialized
	}
)

func (o Options) Mode() Mode {
	switch {
	case o.Folded:
		return ModeFolded
	case o.Live:
		return ModeLive
	}
	return ModeRaw
}

// Convert reads the whole profile from r and builds the serialized tree.
// Only a read failure is returned as an error, skipped lines end up in
// Output.Diagnostics.
func Convert(r io.Reader, opts Options) (*Output, error) {
	mode := opts.Mode()
	out := &Output{Mode: mode}
	switch mode {
	case ModeFolded:
		res, err := folded.Parse(r, opts.Negate)
		if err != nil {
			return nil, err
		}
		out.Tree = res.Root.Serialize(res.Timestep)
		out.Keys = []string{SingleTreeKey}
		out.Diagnostics = res.Diagnostics
	default:
		res, err := rawstack.Parse(r, mode == ModeLive)
		if err != nil {
			return nil, err
		}
		if res.Recording != nil {
			out.Recording = res.Recording.Serialize()
			out.Keys = append([]string(nil), res.Recording.Keys()...)
		} else {
			out.Tree = res.Profile.Root().Serialize(nodetree.NoTimestep)
			out.Keys = []string{SingleTreeKey}
		}
		out.Diagnostics = res.Diagnostics
	}
	metrics.ObserveConversion(string(mode), out.Diagnostics.Len())
	return out, nil
}

// ConvertBytes is Convert over an in-memory profile.
func ConvertBytes(b []byte, opts Options) (*Output, error) {
	return Convert(bytes.NewReader(b), opts)
}

// MarshalJSON encodes the tree, or for live output an object with one tree
// per timestamp in the order the timestamps were first seen.
func (o *Output) MarshalJSON() ([]byte, error) {
	return o.marshal(false)
}

// Encode writes the output as JSON, indented with two spaces if pretty is
// set.
func (o *Output) Encode(w io.Writer, pretty bool) error {
	b, err := o.marshal(pretty)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func (o *Output) marshal(pretty bool) ([]byte, error) {
	if o.Mode != ModeLive {
		if pretty {
			return gojson.MarshalIndent(o.Tree, "", "  ")
		}
		return gojson.Marshal(o.Tree)
	}

	// Timestamps in Keys order.
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if pretty {
			buf.WriteString("\n  ")
		}
		key, err := gojson.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var tree []byte
		if pretty {
			buf.WriteByte(' ')
			tree, err = gojson.MarshalIndent(o.Recording[k], "  ", "  ")
		} else {
			tree, err = gojson.Marshal(o.Recording[k])
		}
		if err != nil {
			return nil, err
		}
		buf.Write(tree)
	}
	if pretty && len(o.Keys) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Trees lists every tree of the output, in the order their keys were
// first seen.
func (o *Output) Trees() []KeyedTree {
	if o.Mode != ModeLive {
		return []KeyedTree{{Key: SingleTreeKey, Tree: o.Tree}}
	}
	trees := make([]KeyedTree, 0, len(o.Keys))
	for _, k := range o.Keys {
		trees = append(trees, KeyedTree{Key: k, Tree: o.Recording[k]})
	}
	return trees
}
