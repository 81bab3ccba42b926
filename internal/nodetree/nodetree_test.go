package nodetree

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	jsoniter "github.com/json-iterator/go"

	"github.com/getsentry/stackvis/internal/testutil"
)

type insert struct {
	path  []string
	value int64
	diff  int64
	delta bool
}

func build(inserts ...insert) *Node {
	root := NewRoot()
	for _, i := range inserts {
		root.Insert(i.path, i.value, i.diff, i.delta)
	}
	return root
}

func TestNodeInsert(t *testing.T) {
	tests := []struct {
		name    string
		inserts []insert
		want    *Node
	}{
		{
			name:    "empty path only touches the root",
			inserts: []insert{{path: nil, value: 3, diff: 1}},
			want:    &Node{Name: "root", Value: 3, Diff: 1, Timeshare: 3},
		},
		{
			name: "shared prefix is one node per segment",
			inserts: []insert{
				{path: []string{"a", "b", "c"}, value: 10},
				{path: []string{"a", "b", "d"}, value: 5},
			},
			want: &Node{
				Name: "root", Value: 15, Timeshare: 15,
				Children: []*Node{
					{
						Name: "a", Value: 15, Timeshare: 15,
						Children: []*Node{
							{
								Name: "b", Value: 15, Timeshare: 15,
								Children: []*Node{
									{Name: "c", Value: 10, Timeshare: 10},
									{Name: "d", Value: 5, Timeshare: 5},
								},
							},
						},
					},
				},
			},
		},
		{
			name: "paths diverge at the first different segment",
			inserts: []insert{
				{path: []string{"a", "x", "c"}, value: 1},
				{path: []string{"a", "y", "c"}, value: 1},
			},
			want: &Node{
				Name: "root", Value: 2, Timeshare: 2,
				Children: []*Node{
					{
						Name: "a", Value: 2, Timeshare: 2,
						Children: []*Node{
							{Name: "x", Value: 1, Timeshare: 1, Children: []*Node{{Name: "c", Value: 1, Timeshare: 1}}},
							{Name: "y", Value: 1, Timeshare: 1, Children: []*Node{{Name: "c", Value: 1, Timeshare: 1}}},
						},
					},
				},
			},
		},
		{
			name: "diff is overwritten along the shared prefix",
			inserts: []insert{
				{path: []string{"a", "b", "c"}, value: 1, diff: 5},
				{path: []string{"a", "b"}, value: 1, diff: 9},
			},
			want: &Node{
				Name: "root", Value: 2, Diff: 9, Timeshare: 2,
				Children: []*Node{
					{
						Name: "a", Value: 2, Diff: 9, Timeshare: 2,
						Children: []*Node{
							{
								Name: "b", Value: 2, Diff: 9, Timeshare: 2,
								Children: []*Node{
									{Name: "c", Value: 1, Diff: 5, Timeshare: 1},
								},
							},
						},
					},
				},
			},
		},
		{
			name: "delta mode weights timeshare by diff",
			inserts: []insert{
				{path: []string{"x", "y"}, value: 4, diff: -3, delta: true},
				{path: []string{"x"}, value: 2, diff: 2, delta: true},
			},
			want: &Node{
				Name: "root", Value: 6, Diff: 2, Timeshare: -8,
				Children: []*Node{
					{
						Name: "x", Value: 6, Diff: 2, Timeshare: -8,
						Children: []*Node{
							{Name: "y", Value: 4, Diff: -3, Timeshare: -12},
						},
					},
				},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := build(test.inserts...)
			if diff := testutil.Diff(got, test.want, cmpopts.IgnoreUnexported(Node{})); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestRootValueIsSumOfInserts(t *testing.T) {
	paths := [][]string{
		{"main", "run", "work"},
		{"main", "run"},
		{"main", "idle"},
		{"other"},
		nil,
	}
	root := NewRoot()
	var sum int64
	for i, p := range paths {
		value := int64(i*7 + 1)
		sum += value
		root.Insert(p, value, 0, false)
	}
	if root.Value != sum {
		t.Fatalf("expected root value %d, got %d", sum, root.Value)
	}
	if root.Timeshare != sum {
		t.Fatalf("expected root timeshare %d, got %d", sum, root.Timeshare)
	}
}

func TestNodeFind(t *testing.T) {
	root := build(insert{path: []string{"a", "b"}, value: 1})
	if n := root.Find("a", "b"); n == nil || n.Name != "b" {
		t.Fatalf("expected to find a;b, got %v", n)
	}
	if n := root.Find("a", "c"); n != nil {
		t.Fatalf("expected nil for a;c, got %v", n)
	}
	if n := root.Find(); n != root {
		t.Fatal("empty path should return the node itself")
	}
}

func TestSerialize(t *testing.T) {
	root := build(
		insert{path: []string{"a", "b", "c"}, value: 10},
		insert{path: []string{"a", "b", "d"}, value: 5},
	)
	got := root.Serialize(NewTimestep(30.0, root.Timeshare))

	f := func(v float64) *Float {
		x := Float(v)
		return &x
	}
	want := &Serialized{
		Name: "root", Value: 15, Timeshare: 15, Tottime: f(30.0),
		Children: []*Serialized{
			{
				Name: "a", Value: 15, Timeshare: 15, Tottime: f(30.0),
				Children: []*Serialized{
					{
						Name: "b", Value: 15, Timeshare: 15, Tottime: f(30.0),
						Children: []*Serialized{
							{Name: "c", Value: 10, Timeshare: 10, Tottime: f(20.0)},
							{Name: "d", Value: 5, Timeshare: 5, Tottime: f(10.0)},
						},
					},
				},
			},
		},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestSerializeWithoutTimestep(t *testing.T) {
	root := build(insert{path: []string{"a"}, value: 1, diff: 1})
	got := root.Serialize(NoTimestep)
	if got.Tottime != nil || got.Children[0].Tottime != nil {
		t.Fatal("expected no tottime without a timestep")
	}
}

func TestSerializedJSON(t *testing.T) {
	root := build(
		insert{path: []string{"a", "b"}, value: 1},
		insert{path: []string{"c"}, value: 1},
	)
	b, err := jsoniter.Marshal(root.Serialize(NewTimestep(1, 0)))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := jsoniter.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}

	var walk func(n map[string]interface{}, path string)
	walk = func(n map[string]interface{}, path string) {
		path += "/" + n["name"].(string)
		if n["tottime"] != nil {
			t.Errorf("%s: expected null tottime for a zero total, got %v", path, n["tottime"])
		}
		raw, exists := n["children"]
		switch path {
		case "/root/a/b", "/root/c":
			if exists {
				t.Errorf("%s: leaf must not have a children field", path)
			}
			return
		}
		if !exists {
			t.Fatalf("%s: expected a children field", path)
		}
		for _, c := range raw.([]interface{}) {
			walk(c.(map[string]interface{}), path)
		}
	}
	walk(decoded, "")
}

func TestFloatMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{name: "finite", in: 0.5, want: "0.5"},
		{name: "integral", in: 2, want: "2"},
		{name: "nan", in: math.NaN(), want: "null"},
		{name: "positive infinity", in: math.Inf(1), want: "null"},
		{name: "negative infinity", in: math.Inf(-1), want: "null"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := Float(test.in).MarshalJSON()
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != test.want {
				t.Fatalf("expected %s, got %s", test.want, b)
			}
		})
	}
}
