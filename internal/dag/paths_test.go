package dag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// confounded returns the classic confounding triangle z -> x, z -> y, x -> y.
func confounded(t *testing.T) *Graph {
	return mustGraph(t,
		[2]string{"z", "x"},
		[2]string{"z", "y"},
		[2]string{"x", "y"},
	)
}

func pathStrings(paths []Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

func TestAllPaths(t *testing.T) {
	g := confounded(t)
	paths, err := g.AllPaths("x", "y")
	if err != nil {
		t.Fatalf("AllPaths: %v", err)
	}
	want := []string{
		"x -> y",
		"x <- z -> y",
	}
	if diff := cmp.Diff(want, pathStrings(paths)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestAllPathsUnknownNode(t *testing.T) {
	g := confounded(t)
	if _, err := g.AllPaths("x", "nope"); err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestDirectedPaths(t *testing.T) {
	// x -> m -> y plus x -> y direct, z confounds.
	g := mustGraph(t,
		[2]string{"x", "m"},
		[2]string{"m", "y"},
		[2]string{"x", "y"},
		[2]string{"z", "x"},
		[2]string{"z", "y"},
	)
	paths, err := g.DirectedPaths("x", "y")
	if err != nil {
		t.Fatalf("DirectedPaths: %v", err)
	}
	want := []string{
		"x -> m -> y",
		"x -> y",
	}
	if diff := cmp.Diff(want, pathStrings(paths)); diff != "" {
		t.Errorf("directed paths mismatch (-want +got):\n%s", diff)
	}
}

func TestBackdoorPaths(t *testing.T) {
	g := confounded(t)
	paths, err := g.BackdoorPaths("x", "y")
	if err != nil {
		t.Fatalf("BackdoorPaths: %v", err)
	}
	want := []string{"x <- z -> y"}
	if diff := cmp.Diff(want, pathStrings(paths)); diff != "" {
		t.Errorf("backdoor paths mismatch (-want +got):\n%s", diff)
	}
}

func TestColliders(t *testing.T) {
	// x -> c <- y: c is a collider on the only x..y path.
	g := mustGraph(t,
		[2]string{"x", "c"},
		[2]string{"y", "c"},
	)
	paths, err := g.AllPaths("x", "y")
	if err != nil {
		t.Fatalf("AllPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(paths))
	}
	if diff := cmp.Diff([]string{"c"}, paths[0].Colliders()); diff != "" {
		t.Errorf("colliders mismatch (-want +got):\n%s", diff)
	}
}

func TestPathBlocked(t *testing.T) {
	// Chain, fork and collider structures plus a collider descendant.
	g := mustGraph(t,
		[2]string{"x", "m"}, [2]string{"m", "y"}, // chain x -> m -> y
		[2]string{"z", "x"}, [2]string{"z", "y"}, // fork  x <- z -> y
		[2]string{"x", "c"}, [2]string{"y", "c"}, // collider x -> c <- y
		[2]string{"c", "d"}, // collider descendant
	)

	find := func(s string) Path {
		t.Helper()
		paths, err := g.AllPaths("x", "y")
		if err != nil {
			t.Fatalf("AllPaths: %v", err)
		}
		for _, p := range paths {
			if p.String() == s {
				return p
			}
		}
		t.Fatalf("path %q not found in %v", s, pathStrings(paths))
		return Path{}
	}

	tests := []struct {
		name    string
		path    string
		given   []string
		blocked bool
	}{
		{"chain open", "x -> m -> y", nil, false},
		{"chain blocked by mediator", "x -> m -> y", []string{"m"}, true},
		{"fork open", "x <- z -> y", nil, false},
		{"fork blocked by common cause", "x <- z -> y", []string{"z"}, true},
		{"collider blocks by default", "x -> c <- y", nil, true},
		{"collider opened by conditioning", "x -> c <- y", []string{"c"}, false},
		{"collider opened by descendant", "x -> c <- y", []string{"d"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := find(tt.path)
			if got := p.Blocked(g, toSet(tt.given)); got != tt.blocked {
				t.Errorf("Blocked(%v) = %v, want %v", tt.given, got, tt.blocked)
			}
		})
	}
}

func TestDSeparated(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *Graph
		x, y  string
		given []string
		want  bool
	}{
		{
			name:  "confounder opens x and y",
			build: confounded, x: "x", y: "y",
			want: false,
		},
		{
			name: "chain separated by mediator",
			build: func(t *testing.T) *Graph {
				return mustGraph(t, [2]string{"x", "m"}, [2]string{"m", "y"})
			},
			x: "x", y: "y", given: []string{"m"}, want: true,
		},
		{
			name: "marginally independent via collider",
			build: func(t *testing.T) *Graph {
				return mustGraph(t, [2]string{"x", "c"}, [2]string{"y", "c"})
			},
			x: "x", y: "y", want: true,
		},
		{
			name: "conditioning on collider connects",
			build: func(t *testing.T) *Graph {
				return mustGraph(t, [2]string{"x", "c"}, [2]string{"y", "c"})
			},
			x: "x", y: "y", given: []string{"c"}, want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build(t)
			got, err := g.DSeparated(tt.x, tt.y, tt.given)
			if err != nil {
				t.Fatalf("DSeparated: %v", err)
			}
			if got != tt.want {
				t.Errorf("DSeparated(%s, %s | %v) = %v, want %v", tt.x, tt.y, tt.given, got, tt.want)
			}
		})
	}
}
