package eval

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

// renderer собирает диспетчер, печатающий дерево в лисп-подобную форму
func renderer() *Evaluator {
	e := New()
	e.Handle(func(node any, children ...any) (any, error) {
		c := node.(*ast.Comparison)
		return fmt.Sprintf("(%s %v %v)", c.Op, children[0], children[1]), nil
	}, &ast.Comparison{})
	e.Handle(func(node any, children ...any) (any, error) {
		c := node.(*ast.Combination)
		return fmt.Sprintf("(%s %v %v)", c.Op, children[0], children[1]), nil
	}, &ast.Combination{})
	e.Handle(func(node any, children ...any) (any, error) {
		return node.(*ast.Attribute).Name, nil
	}, &ast.Attribute{})
	e.Adopt = func(node any, children ...any) (any, error) {
		return fmt.Sprintf("%v", node), nil
	}
	return e
}

func TestEvaluatePostOrder(t *testing.T) {
	root := ast.NewAnd(
		&ast.Comparison{LHS: &ast.Attribute{Name: "a"}, RHS: int64(1), Op: ast.ComparisonEq},
		&ast.Comparison{LHS: &ast.Attribute{Name: "b"}, RHS: int64(2), Op: ast.ComparisonLt},
	)

	got, err := renderer().Evaluate(root)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := "(AND (= a 1) (< b 2))"
	if got != want {
		t.Errorf("Evaluate = %q, want %q", got, want)
	}
}

func TestUnhandledNode(t *testing.T) {
	e := New()
	_, err := e.Evaluate(&ast.Include{})
	var unhandled *UnhandledNodeError
	if !errors.As(err, &unhandled) {
		t.Fatalf("err = %v, want *UnhandledNodeError", err)
	}
	if !strings.Contains(unhandled.Error(), "ast.Include") {
		t.Errorf("error %q does not name the concrete type", unhandled.Error())
	}

	// у узла с детьми первым не находит обработчика лист
	_, err = e.Evaluate(&ast.IsNull{LHS: int64(1)})
	if !errors.As(err, &unhandled) {
		t.Fatalf("err = %v, want *UnhandledNodeError", err)
	}
	if !strings.Contains(unhandled.Error(), "int64") {
		t.Errorf("error %q does not name the unhandled leaf", unhandled.Error())
	}
}

func TestUnhandledChildFailsBeforeParent(t *testing.T) {
	e := New()
	e.Handle(func(node any, children ...any) (any, error) {
		t.Fatal("parent handler must not run when a child is unhandled")
		return nil, nil
	}, &ast.Not{})

	_, err := e.Evaluate(&ast.Not{Sub: &ast.Include{}})
	var unhandled *UnhandledNodeError
	if !errors.As(err, &unhandled) {
		t.Fatalf("err = %v, want *UnhandledNodeError", err)
	}
}

func TestHandleFamilyCoversAllMembers(t *testing.T) {
	e := New()
	e.HandleFamily(func(node any, children ...any) (any, error) {
		return "ok", nil
	}, ast.FamilyCondition)
	e.Adopt = func(node any, children ...any) (any, error) { return node, nil }

	nodes := []ast.Node{
		&ast.Not{Sub: &ast.Include{}},
		&ast.Combination{LHS: &ast.Include{}, RHS: &ast.Include{}, Op: ast.CombinationAnd},
		&ast.Comparison{LHS: int64(1), RHS: int64(2), Op: ast.ComparisonEq},
		&ast.Between{LHS: int64(1), Low: int64(0), High: int64(2)},
		&ast.Like{LHS: "a", Pattern: "a%"},
		&ast.In{LHS: int64(1), Options: []any{int64(1)}},
		&ast.IsNull{LHS: int64(1)},
		&ast.Exists{LHS: int64(1)},
		&ast.Temporal{LHS: int64(1), RHS: int64(2), Op: ast.TemporalBefore},
		&ast.ArrayPredicate{LHS: []any{}, RHS: []any{}, Op: ast.ArrayEquals},
		&ast.SpatialComparison{LHS: int64(1), RHS: int64(2), Op: ast.SpatialIntersects},
		&ast.Relate{LHS: int64(1), RHS: int64(2), Pattern: "T*T***T**"},
		&ast.SpatialDistance{LHS: int64(1), RHS: int64(2), Distance: 1, Units: "meters", Op: ast.DistanceWithin},
		&ast.BBox{LHS: int64(1), MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
		&ast.Include{},
	}
	for _, n := range nodes {
		got, err := e.Evaluate(n)
		if err != nil {
			t.Errorf("%T: %v", n, err)
			continue
		}
		if got != "ok" {
			t.Errorf("%T: handled by adopt fallback, want family handler", n)
		}
	}
}

func TestHandleOverridesFamily(t *testing.T) {
	e := New()
	e.HandleFamily(func(node any, children ...any) (any, error) {
		return "family", nil
	}, ast.FamilyCondition)
	e.Handle(func(node any, children ...any) (any, error) {
		return "exact", nil
	}, &ast.Include{})

	got, err := e.Evaluate(&ast.Include{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != "exact" {
		t.Errorf("Evaluate = %v, want exact-type handler to win", got)
	}
}

func TestMaxDepth(t *testing.T) {
	root := ast.Node(&ast.Include{})
	for i := 0; i < 100; i++ {
		root = &ast.Not{Sub: root}
	}

	e := New()
	e.Handle(func(node any, children ...any) (any, error) {
		return children[0], nil
	}, &ast.Not{})
	e.Handle(func(node any, children ...any) (any, error) {
		return "leaf", nil
	}, &ast.Include{})

	if _, err := e.Evaluate(root); err != nil {
		t.Fatalf("unbounded: %v", err)
	}

	e.MaxDepth = 50
	_, err := e.Evaluate(root)
	var depthErr *DepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("err = %v, want *DepthError", err)
	}
}
