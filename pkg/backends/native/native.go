// Package native компилирует дерево фильтра в предикат над записями
// в памяти. Запись — map[string]any; вложенные атрибуты адресуются
// точечным путём ("properties.name"). Компиляция выполняется один раз,
// полученный предикат безопасен для конкурентного вызова.
package native

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/eval"
	"github.com/ruslano69/geofilter/pkg/core/like"
	"github.com/ruslano69/geofilter/pkg/core/temporal"
)

// Predicate скомпилированный фильтр
type Predicate func(item map[string]any) (bool, error)

// thunk отложенное вычисление операнда над записью
type thunk func(item map[string]any) (any, error)

// Options настройки компиляции
type Options struct {
	// Attributes отображение имён атрибутов фильтра на пути в записи;
	// отсутствующее имя трактуется как путь без изменений
	Attributes map[string]string
	// Functions реализации функций, доступных фильтру
	Functions map[string]func(args ...any) (any, error)
}

// Compile компилирует дерево фильтра в предикат
func Compile(root ast.Node, opts Options) (Predicate, error) {
	result, err := newCompiler(opts).Evaluate(root)
	if err != nil {
		return nil, err
	}
	run, ok := result.(thunk)
	if !ok {
		return nil, fmt.Errorf("native: filter compiled to %T, not a condition", result)
	}
	return func(item map[string]any) (bool, error) {
		v, err := run(item)
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("native: filter evaluated to %v (%T), not a boolean", v, v)
		}
		return b, nil
	}, nil
}

func constant(v any) thunk {
	return func(map[string]any) (any, error) { return v, nil }
}

func asThunks(children []any) []thunk {
	out := make([]thunk, len(children))
	for i, c := range children {
		if t, ok := c.(thunk); ok {
			out[i] = t
		} else {
			out[i] = constant(c)
		}
	}
	return out
}

func newCompiler(opts Options) *eval.Evaluator {
	e := eval.New()

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)[0]
		return thunk(func(item map[string]any) (any, error) {
			v, err := sub(item)
			if err != nil {
				return nil, err
			}
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("native: NOT applied to %v (%T)", v, v)
			}
			return !b, nil
		}), nil
	}, &ast.Not{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		and := node.(*ast.Combination).Op == ast.CombinationAnd
		return thunk(func(item map[string]any) (any, error) {
			result := and
			for _, t := range sub {
				v, err := t(item)
				if err != nil {
					return nil, err
				}
				b, ok := v.(bool)
				if !ok {
					return nil, fmt.Errorf("native: combination operand %v (%T) is not a boolean", v, v)
				}
				if and {
					result = result && b
				} else {
					result = result || b
				}
			}
			return result, nil
		}), nil
	}, &ast.Combination{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		op := node.(*ast.Comparison).Op
		return thunk(func(item map[string]any) (any, error) {
			lhs, err := sub[0](item)
			if err != nil {
				return nil, err
			}
			rhs, err := sub[1](item)
			if err != nil {
				return nil, err
			}
			return applyComparison(op, lhs, rhs)
		}), nil
	}, &ast.Comparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		not := node.(*ast.Between).Not
		return thunk(func(item map[string]any) (any, error) {
			v, err := sub[0](item)
			if err != nil {
				return nil, err
			}
			low, err := sub[1](item)
			if err != nil {
				return nil, err
			}
			high, err := sub[2](item)
			if err != nil {
				return nil, err
			}
			cl, err := compare(v, low)
			if err != nil {
				return nil, err
			}
			ch, err := compare(v, high)
			if err != nil {
				return nil, err
			}
			return (cl >= 0 && ch <= 0) != not, nil
		}), nil
	}, &ast.Between{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)[0]
		n := node.(*ast.Like)
		re, err := like.Pattern{
			Source:     n.Pattern,
			Wildcard:   n.Wildcard,
			SingleChar: n.SingleChar,
			Escape:     n.EscapeChar,
			NoCase:     n.NoCase,
		}.Regexp()
		if err != nil {
			return nil, err
		}
		not := n.Not
		return thunk(func(item map[string]any) (any, error) {
			v, err := sub(item)
			if err != nil {
				return nil, err
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("native: LIKE operand %v (%T) is not a string", v, v)
			}
			return re.MatchString(s) != not, nil
		}), nil
	}, &ast.Like{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		not := node.(*ast.In).Not
		return thunk(func(item map[string]any) (any, error) {
			v, err := sub[0](item)
			if err != nil {
				return nil, err
			}
			for _, opt := range sub[1:] {
				o, err := opt(item)
				if err != nil {
					return nil, err
				}
				if c, err := compare(v, o); err == nil && c == 0 {
					return !not, nil
				}
			}
			return not, nil
		}), nil
	}, &ast.In{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)[0]
		not := node.(*ast.IsNull).Not
		return thunk(func(item map[string]any) (any, error) {
			v, err := sub(item)
			if err != nil {
				return nil, err
			}
			return (v == nil) != not, nil
		}), nil
	}, &ast.IsNull{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Exists)
		a, ok := n.LHS.(*ast.Attribute)
		if !ok {
			return nil, fmt.Errorf("native: EXISTS requires an attribute operand, got %T", n.LHS)
		}
		path := resolvePath(opts, a.Name)
		not := n.Not
		return thunk(func(item map[string]any) (any, error) {
			_, found := lookupPath(item, path)
			return found != not, nil
		}), nil
	}, &ast.Exists{})

	e.Handle(func(node any, children ...any) (any, error) {
		return constant(!node.(*ast.Include).Not), nil
	}, &ast.Include{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		op := node.(*ast.Temporal).Op
		return thunk(func(item map[string]any) (any, error) {
			lhs, err := sub[0](item)
			if err != nil {
				return nil, err
			}
			rhs, err := sub[1](item)
			if err != nil {
				return nil, err
			}
			rel, err := temporal.Relate(coerceTemporal(lhs), coerceTemporal(rhs))
			if err != nil {
				return nil, err
			}
			return temporal.Matches(op, rel), nil
		}), nil
	}, &ast.Temporal{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		op := node.(*ast.ArrayPredicate).Op
		return thunk(func(item map[string]any) (any, error) {
			lhs, err := sub[0](item)
			if err != nil {
				return nil, err
			}
			rhs, err := sub[1](item)
			if err != nil {
				return nil, err
			}
			return applyArray(op, lhs, rhs)
		}), nil
	}, &ast.ArrayPredicate{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		op := node.(*ast.SpatialComparison).Op
		return thunk(func(item map[string]any) (any, error) {
			lhs, err := boundOf(sub[0], item)
			if err != nil {
				return nil, err
			}
			rhs, err := boundOf(sub[1], item)
			if err != nil {
				return nil, err
			}
			return applySpatial(op, lhs, rhs)
		}), nil
	}, &ast.SpatialComparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		return nil, fmt.Errorf("native: node %T has no in-memory evaluation", node)
	}, &ast.Relate{}, &ast.SpatialDistance{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)[0]
		n := node.(*ast.BBox)
		env := ast.Envelope{X1: n.MinX, X2: n.MaxX, Y1: n.MinY, Y2: n.MaxY}
		box := env.Bound()
		return thunk(func(item map[string]any) (any, error) {
			lhs, err := boundOf(sub, item)
			if err != nil {
				return nil, err
			}
			return lhs.Intersects(box), nil
		}), nil
	}, &ast.BBox{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		op := node.(*ast.Arithmetic).Op
		return thunk(func(item map[string]any) (any, error) {
			lhs, err := sub[0](item)
			if err != nil {
				return nil, err
			}
			rhs, err := sub[1](item)
			if err != nil {
				return nil, err
			}
			return applyArithmetic(op, lhs, rhs)
		}), nil
	}, &ast.Arithmetic{})

	e.Handle(func(node any, children ...any) (any, error) {
		sub := asThunks(children)
		name := node.(*ast.Function).Name
		fn, ok := opts.Functions[name]
		if !ok {
			return nil, fmt.Errorf("native: unknown function %q", name)
		}
		return thunk(func(item map[string]any) (any, error) {
			args := make([]any, len(sub))
			for i, t := range sub {
				v, err := t(item)
				if err != nil {
					return nil, err
				}
				args[i] = v
			}
			return fn(args...)
		}), nil
	}, &ast.Function{})

	e.Handle(func(node any, children ...any) (any, error) {
		path := resolvePath(opts, node.(*ast.Attribute).Name)
		return thunk(func(item map[string]any) (any, error) {
			v, _ := lookupPath(item, path)
			return v, nil
		}), nil
	}, &ast.Attribute{})

	e.Handle(func(node any, children ...any) (any, error) {
		return constant(node), nil
	}, &ast.Interval{})

	e.HandleFamily(func(node any, children ...any) (any, error) {
		return constant(node), nil
	}, ast.FamilyGeometry, ast.FamilyLiteral)

	return e
}

// resolvePath переводит имя атрибута в путь по записи
func resolvePath(opts Options, name string) []string {
	if mapped, ok := opts.Attributes[name]; ok {
		name = mapped
	}
	return strings.Split(name, ".")
}

// lookupPath извлекает значение по пути из вложенных map
func lookupPath(item map[string]any, path []string) (any, bool) {
	var current any = item
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// coerceTemporal дотягивает строковые значения записи до моментов времени
func coerceTemporal(v any) any {
	if s, ok := v.(string); ok {
		if t, err := temporal.ParseInstant(s); err == nil {
			return t
		}
	}
	return v
}

// boundOf вычисляет ограничивающий прямоугольник операнда
func boundOf(t thunk, item map[string]any) (orb.Bound, error) {
	v, err := t(item)
	if err != nil {
		return orb.Bound{}, err
	}
	switch g := v.(type) {
	case ast.GeoValue:
		return g.GeoInterface().Bound(), nil
	case orb.Geometry:
		return g.Bound(), nil
	}
	return orb.Bound{}, fmt.Errorf("native: spatial operand %v (%T) is not a geometry", v, v)
}

// applySpatial проверяет пространственный предикат на уровне
// ограничивающих прямоугольников; операторы, не выразимые на нём
// точно, дают ошибку
func applySpatial(op ast.SpatialOp, lhs, rhs orb.Bound) (bool, error) {
	switch op {
	case ast.SpatialIntersects:
		return lhs.Intersects(rhs), nil
	case ast.SpatialDisjoint:
		return !lhs.Intersects(rhs), nil
	case ast.SpatialContains:
		return boundContains(lhs, rhs), nil
	case ast.SpatialWithin:
		return boundContains(rhs, lhs), nil
	case ast.SpatialEquals:
		return lhs.Min.Equal(rhs.Min) && lhs.Max.Equal(rhs.Max), nil
	}
	return false, fmt.Errorf("native: spatial operator %s has no in-memory evaluation", op)
}

func boundContains(outer, inner orb.Bound) bool {
	return outer.Min[0] <= inner.Min[0] && outer.Min[1] <= inner.Min[1] &&
		outer.Max[0] >= inner.Max[0] && outer.Max[1] >= inner.Max[1]
}

// applyArray трактует операнды как множества
func applyArray(op ast.ArrayOp, lhs, rhs any) (bool, error) {
	l, err := toSet(lhs)
	if err != nil {
		return false, err
	}
	r, err := toSet(rhs)
	if err != nil {
		return false, err
	}
	switch op {
	case ast.ArrayEquals:
		return subset(l, r) && subset(r, l), nil
	case ast.ArrayContains:
		return subset(r, l), nil
	case ast.ArrayContainedBy:
		return subset(l, r), nil
	case ast.ArrayOverlaps:
		for k := range l {
			if _, ok := r[k]; ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("native: unsupported array operator %s", op)
}

func toSet(v any) (map[any]struct{}, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("native: array operand %v (%T) is not a list", v, v)
	}
	set := make(map[any]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set, nil
}

func subset(a, b map[any]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
