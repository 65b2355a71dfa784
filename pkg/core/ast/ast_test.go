package ast

import (
	"reflect"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func TestStringRendering(t *testing.T) {
	attr := &Attribute{Name: "attr"}

	tests := []struct {
		name string
		node Node
		want string
	}{
		{
			name: "comparison",
			node: &Comparison{LHS: attr, RHS: int64(10), Op: ComparisonLt},
			want: "ATTRIBUTE attr < 10",
		},
		{
			name: "not wraps sub-condition",
			node: &Not{Sub: &Comparison{LHS: attr, RHS: "x", Op: ComparisonEq}},
			want: "NOT (ATTRIBUTE attr = 'x')",
		},
		{
			name: "combination wraps both sides",
			node: &Combination{
				LHS: &Comparison{LHS: attr, RHS: int64(1), Op: ComparisonEq},
				RHS: &IsNull{LHS: &Attribute{Name: "other"}},
				Op:  CombinationAnd,
			},
			want: "(ATTRIBUTE attr = 1) AND (ATTRIBUTE other IS NULL)",
		},
		{
			name: "between",
			node: &Between{LHS: attr, Low: int64(2), High: int64(5), Not: true},
			want: "ATTRIBUTE attr NOT BETWEEN 2 AND 5",
		},
		{
			name: "like case-insensitive",
			node: &Like{LHS: attr, Pattern: "a%", NoCase: true, Wildcard: "%", SingleChar: ".", EscapeChar: "\\"},
			want: "ATTRIBUTE attr ILIKE 'a%'",
		},
		{
			name: "in list",
			node: &In{LHS: attr, Options: []any{int64(1), int64(2)}, Not: false},
			want: "ATTRIBUTE attr IN (1, 2)",
		},
		{
			name: "exists",
			node: &Exists{LHS: attr, Not: true},
			want: "ATTRIBUTE attr DOES-NOT-EXIST",
		},
		{
			name: "temporal with interval",
			node: &Temporal{
				LHS: attr,
				RHS: &Interval{
					Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
				},
				Op: TemporalDuring,
			},
			want: "ATTRIBUTE attr DURING (2000-01-01T00:00:00Z / 2001-01-01T00:00:00Z)",
		},
		{
			name: "spatial function form",
			node: &SpatialComparison{
				LHS: attr,
				RHS: &Geometry{Geometry: orb.Point{1, 1}},
				Op:  SpatialIntersects,
			},
			want: "INTERSECTS(ATTRIBUTE attr, POINT(1 1))",
		},
		{
			name: "include and exclude",
			node: &Combination{LHS: &Include{}, RHS: &Include{Not: true}, Op: CombinationOr},
			want: "(INCLUDE) OR (EXCLUDE)",
		},
		{
			name: "arithmetic nested",
			node: &Arithmetic{
				LHS: &Arithmetic{LHS: attr, RHS: int64(2), Op: ArithmeticMul},
				RHS: int64(3),
				Op:  ArithmeticAdd,
			},
			want: "(ATTRIBUTE attr * 2) + 3",
		},
		{
			name: "function call",
			node: &Function{Name: "lower", Arguments: []any{attr}},
			want: "lower(ATTRIBUTE attr)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChildrenOrder(t *testing.T) {
	attr := &Attribute{Name: "a"}

	between := &Between{LHS: attr, Low: int64(1), High: int64(2)}
	got := between.Children()
	if len(got) != 3 || got[0] != Node(attr) || got[1] != any(int64(1)) || got[2] != any(int64(2)) {
		t.Errorf("Between.Children() = %v, want [attr 1 2]", got)
	}

	in := &In{LHS: attr, Options: []any{int64(1), int64(2)}}
	got = in.Children()
	if len(got) != 3 {
		t.Fatalf("In.Children() len = %d, want 3", len(got))
	}
	if got[0] != Node(attr) {
		t.Errorf("In.Children()[0] = %v, want the left operand", got[0])
	}
}

func TestCombinationFolding(t *testing.T) {
	a := &Include{}
	b := &Include{Not: true}
	c := &Include{}

	root := NewAnd(a, b, c)
	// ((a AND b) AND c)
	if root.RHS != Node(c) {
		t.Errorf("outer RHS = %v, want last operand", root.RHS)
	}
	inner, ok := root.LHS.(*Combination)
	if !ok {
		t.Fatalf("outer LHS = %T, want *Combination", root.LHS)
	}
	if inner.LHS != Node(a) || inner.RHS != Node(b) {
		t.Errorf("inner combination = %v, want (a AND b)", inner)
	}
	if inner.Op != CombinationAnd || root.Op != CombinationAnd {
		t.Errorf("ops = %s/%s, want AND/AND", inner.Op, root.Op)
	}

	or := NewOr(a, b)
	if or.Op != CombinationOr {
		t.Errorf("NewOr op = %s, want OR", or.Op)
	}

	defer func() {
		if recover() == nil {
			t.Error("NewAnd with one operand: expected panic")
		}
	}()
	NewAnd(a)
}

func TestEquals(t *testing.T) {
	attr := func() *Attribute { return &Attribute{Name: "attr"} }

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{
			name: "identical comparisons",
			a:    &Comparison{LHS: attr(), RHS: int64(1), Op: ComparisonEq},
			b:    &Comparison{LHS: attr(), RHS: int64(1), Op: ComparisonEq},
			want: true,
		},
		{
			name: "different operator",
			a:    &Comparison{LHS: attr(), RHS: int64(1), Op: ComparisonEq},
			b:    &Comparison{LHS: attr(), RHS: int64(1), Op: ComparisonNe},
			want: false,
		},
		{
			name: "different concrete type",
			a:    &Comparison{LHS: attr(), RHS: int64(1), Op: ComparisonEq},
			b:    &IsNull{LHS: attr()},
			want: false,
		},
		{
			name: "geometry equal by decomposition",
			a:    &Geometry{Geometry: orb.Point{1, 2}},
			b:    &Geometry{Geometry: orb.Point{1, 2}},
			want: true,
		},
		{
			name: "geometry differing coordinates",
			a:    &Geometry{Geometry: orb.Point{1, 2}},
			b:    &Geometry{Geometry: orb.Point{1, 3}},
			want: false,
		},
		{
			name: "envelope equals its own polygon",
			a:    &Envelope{X1: 0, X2: 2, Y1: 0, Y2: 2},
			b:    &Geometry{Geometry: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}}.ToPolygon()},
			want: true,
		},
		{
			name: "geometry against plain value",
			a:    &Geometry{Geometry: orb.Point{1, 2}},
			b:    int64(1),
			want: false,
		},
		{
			name: "nested trees",
			a:    NewAnd(&IsNull{LHS: attr()}, &Exists{LHS: attr()}),
			b:    NewAnd(&IsNull{LHS: attr()}, &Exists{LHS: attr()}),
			want: true,
		},
		{
			name: "nested trees differing deep",
			a:    NewAnd(&IsNull{LHS: attr()}, &Exists{LHS: attr()}),
			b:    NewAnd(&IsNull{LHS: attr()}, &Exists{LHS: attr(), Not: true}),
			want: false,
		},
		{
			name: "plain scalars",
			a:    "abc",
			b:    "abc",
			want: true,
		},
		{
			name: "nils",
			a:    nil,
			b:    nil,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equals(tt.a, tt.b); got != tt.want {
				t.Errorf("Equals() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvelopeBound(t *testing.T) {
	// углы заданы в обратном порядке
	e := &Envelope{X1: 5, X2: 1, Y1: 4, Y2: 2}
	b := e.Bound()
	if b.Min != (orb.Point{1, 2}) || b.Max != (orb.Point{5, 4}) {
		t.Errorf("Bound() = %v, want normalized corners", b)
	}
}

func TestDateBounds(t *testing.T) {
	d := Date{Year: 2020, Month: time.March, Day: 15}
	if got := d.Start(); !got.Equal(time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start() = %v", got)
	}
	if got := d.End(); !got.Equal(time.Date(2020, 3, 15, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("End() = %v", got)
	}
	if got := d.String(); got != "2020-03-15" {
		t.Errorf("String() = %q", got)
	}
}

func TestFamilyMembers(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range FamilyCondition.Members() {
		name := reflect.TypeOf(m).String()
		if seen[name] {
			t.Errorf("duplicate member %s", name)
		}
		seen[name] = true
	}
	for _, want := range []string{"*ast.Not", "*ast.Combination", "*ast.Comparison", "*ast.Temporal", "*ast.BBox"} {
		if !seen[want] {
			t.Errorf("FamilyCondition missing %s", want)
		}
	}
	if seen["*ast.Attribute"] {
		t.Error("FamilyCondition must not contain expressions")
	}
}
