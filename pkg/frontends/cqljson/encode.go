package cqljson

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/eval"
)

// обратные отображения op → имя CQL2
var (
	spatialNames  = invert(spatialOps)
	temporalNames = invert(temporalOps)
	arrayNames    = invert(arrayOps)
)

func invert[K ~string, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func init() {
	// t_intersects — синоним; каноническое имя для кодирования — t_overlaps
	temporalNames[ast.TemporalOverlaps] = "t_overlaps"
}

// Encode кодирует AST обратно в документ CQL2-JSON. Узлы без
// представления в CQL2 (EXISTS, RELATE, DWITHIN/BEYOND, составные
// темпоральные операторы) дают ошибку с именем узла.
func Encode(root ast.Node) ([]byte, error) {
	doc, err := newEncoder().Evaluate(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func op(name string, args ...any) map[string]any {
	return map[string]any{"op": name, "args": args}
}

func wrapNot(not bool, doc map[string]any) map[string]any {
	if not {
		return op("not", doc)
	}
	return doc
}

func newEncoder() *eval.Evaluator {
	e := eval.New()

	e.Handle(func(node any, children ...any) (any, error) {
		return op("not", children[0]), nil
	}, &ast.Not{})

	e.Handle(func(node any, children ...any) (any, error) {
		name := "and"
		if node.(*ast.Combination).Op == ast.CombinationOr {
			name = "or"
		}
		return op(name, children...), nil
	}, &ast.Combination{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Comparison)
		return op(string(n.Op), children...), nil
	}, &ast.Comparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Between)
		return wrapNot(n.Not, op("between", children...)), nil
	}, &ast.Between{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Like)
		if n.NoCase {
			return nil, fmt.Errorf("cqljson: ILIKE has no CQL2 representation")
		}
		return wrapNot(n.Not, op("like", children[0], n.Pattern)), nil
	}, &ast.Like{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.In)
		return wrapNot(n.Not, op("in", children[0], children[1:])), nil
	}, &ast.In{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.IsNull)
		return wrapNot(n.Not, op("isNull", children[0])), nil
	}, &ast.IsNull{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Temporal)
		name, ok := temporalNames[n.Op]
		if !ok {
			return nil, fmt.Errorf("cqljson: temporal operator %s has no CQL2 representation", n.Op)
		}
		return op(name, children...), nil
	}, &ast.Temporal{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.SpatialComparison)
		return op(spatialNames[n.Op], children...), nil
	}, &ast.SpatialComparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.ArrayPredicate)
		return op(arrayNames[n.Op], children...), nil
	}, &ast.ArrayPredicate{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.BBox)
		box := ast.Envelope{X1: n.MinX, X2: n.MaxX, Y1: n.MinY, Y2: n.MaxY}
		bound := box.Bound()
		return op("s_intersects", children[0], map[string]any{
			"bbox": []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		}), nil
	}, &ast.BBox{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Arithmetic)
		return op(string(n.Op), children...), nil
	}, &ast.Arithmetic{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Function)
		return map[string]any{"function": map[string]any{
			"name":      n.Name,
			"arguments": children,
		}}, nil
	}, &ast.Function{})

	e.Handle(func(node any, children ...any) (any, error) {
		return map[string]any{"property": node.(*ast.Attribute).Name}, nil
	}, &ast.Attribute{})

	e.Handle(func(node any, children ...any) (any, error) {
		return nil, fmt.Errorf("cqljson: node %T has no CQL2 representation", node)
	}, &ast.Exists{}, &ast.Relate{}, &ast.SpatialDistance{}, &ast.Include{})

	e.Handle(func(node any, children ...any) (any, error) {
		bounds := make([]any, 2)
		for i, c := range children {
			switch b := c.(type) {
			case nil:
				bounds[i] = ".."
			case map[string]any:
				// границы интервала кодируются голыми строками
				if s, ok := b["timestamp"]; ok {
					bounds[i] = s
				} else if s, ok := b["date"]; ok {
					bounds[i] = s
				} else {
					return nil, fmt.Errorf("cqljson: invalid interval bound %v", c)
				}
			case string:
				bounds[i] = b
			default:
				return nil, fmt.Errorf("cqljson: invalid interval bound %v", c)
			}
		}
		return map[string]any{"interval": bounds}, nil
	}, &ast.Interval{})

	e.Handle(func(node any, children ...any) (any, error) {
		return map[string]any{"timestamp": node.(time.Time).UTC().Format(time.RFC3339)}, nil
	}, time.Time{})

	e.Handle(func(node any, children ...any) (any, error) {
		return map[string]any{"date": node.(ast.Date).String()}, nil
	}, ast.Date{})

	e.Handle(func(node any, children ...any) (any, error) {
		return node.(ast.Duration).ISO, nil
	}, ast.Duration{})

	e.Handle(func(node any, children ...any) (any, error) {
		return geojson.NewGeometry(node.(*ast.Geometry).Geometry), nil
	}, &ast.Geometry{})

	e.Handle(func(node any, children ...any) (any, error) {
		bound := node.(*ast.Envelope).Bound()
		return map[string]any{
			"bbox": []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		}, nil
	}, &ast.Envelope{})

	e.Handle(passthrough, "", int(0), int64(0), float64(0), false, []any{})
	return e
}

func passthrough(node any, children ...any) (any, error) {
	return node, nil
}
