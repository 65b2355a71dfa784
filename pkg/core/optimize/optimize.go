// Package optimize реализует свёртку констант над деревом фильтра.
// Проход постфиксный: каждый операнд свёрнут до рассмотрения родителя.
// Результат обработчика — тризначное объединение: bool (исход известен),
// литерал (значение вычислено) либо перестроенный узел (исход неизвестен
// до подстановки данных).
package optimize

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/eval"
	"github.com/ruslano69/geofilter/pkg/core/like"
	"github.com/ruslano69/geofilter/pkg/core/temporal"
)

// FunctionMap нативные реализации функций фильтра. Функция без
// реализации не ошибка: она лишь блокирует свёртку своего поддерева.
type FunctionMap map[string]func(args ...any) (any, error)

// Optimize сворачивает константные поддеревья. Полностью свёрнутое
// в bool дерево нормализуется до маркера Include/Exclude, чтобы
// потребители всегда получали узел.
func Optimize(root ast.Node, functions FunctionMap) (ast.Node, error) {
	result, err := newEvaluator(functions).Evaluate(root)
	if err != nil {
		return nil, err
	}
	switch r := result.(type) {
	case bool:
		return &ast.Include{Not: !r}, nil
	case ast.Node:
		return r, nil
	default:
		return nil, fmt.Errorf("optimize: root folded to non-condition value %v (%T)", result, result)
	}
}

func newEvaluator(functions FunctionMap) *eval.Evaluator {
	e := eval.New()

	e.Handle(func(node any, children ...any) (any, error) {
		if b, ok := children[0].(bool); ok {
			return !b, nil
		}
		sub, ok := children[0].(ast.Node)
		if !ok {
			return nil, fmt.Errorf("optimize: NOT over non-condition operand %v", children[0])
		}
		return &ast.Not{Sub: sub}, nil
	}, &ast.Not{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Combination)
		lhs, rhs := children[0], children[1]
		lb, lok := lhs.(bool)
		rb, rok := rhs.(bool)
		switch {
		case lok && rok:
			if n.Op == ast.CombinationAnd {
				return lb && rb, nil
			}
			return lb || rb, nil
		case lok || rok:
			certain, uncertain := lb, rhs
			if rok {
				certain, uncertain = rb, lhs
			}
			if n.Op == ast.CombinationOr {
				if certain {
					return true, nil
				}
				return uncertain, nil
			}
			if certain {
				return uncertain, nil
			}
			return false, nil
		default:
			return &ast.Combination{LHS: lhs, RHS: rhs, Op: n.Op}, nil
		}
	}, &ast.Combination{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Comparison)
		lhs, rhs := children[0], children[1]
		if isLiteral(lhs) && isLiteral(rhs) {
			if cmp, ok := compareLiterals(lhs, rhs); ok {
				return applyComparison(n.Op, cmp), nil
			}
		}
		return &ast.Comparison{LHS: lhs, RHS: rhs, Op: n.Op}, nil
	}, &ast.Comparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Between)
		lhs, low, high := children[0], children[1], children[2]
		if isLiteral(lhs) && isLiteral(low) && isLiteral(high) {
			cmpLow, okLow := compareLiterals(lhs, low)
			cmpHigh, okHigh := compareLiterals(lhs, high)
			if okLow && okHigh {
				return (cmpLow >= 0 && cmpHigh <= 0) != n.Not, nil
			}
		}
		return &ast.Between{LHS: lhs, Low: low, High: high, Not: n.Not}, nil
	}, &ast.Between{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Like)
		if s, ok := children[0].(string); ok {
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
			return re.MatchString(s) != n.Not, nil
		}
		return &ast.Like{
			LHS: children[0], Pattern: n.Pattern, NoCase: n.NoCase,
			Wildcard: n.Wildcard, SingleChar: n.SingleChar,
			EscapeChar: n.EscapeChar, Not: n.Not,
		}, nil
	}, &ast.Like{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.In)
		lhs, options := children[0], children[1:]
		foldable := isLiteral(lhs)
		for _, o := range options {
			foldable = foldable && isLiteral(o)
		}
		if foldable {
			found := false
			for _, o := range options {
				if cmp, ok := compareLiterals(lhs, o); ok && cmp == 0 {
					found = true
					break
				}
			}
			return found != n.Not, nil
		}
		return &ast.In{LHS: lhs, Options: append([]any(nil), options...), Not: n.Not}, nil
	}, &ast.In{})

	// проверки на null и наличие атрибута зависят от данных и не сворачиваются
	e.Handle(func(node any, children ...any) (any, error) {
		return &ast.IsNull{LHS: children[0], Not: node.(*ast.IsNull).Not}, nil
	}, &ast.IsNull{})
	e.Handle(func(node any, children ...any) (any, error) {
		return &ast.Exists{LHS: children[0], Not: node.(*ast.Exists).Not}, nil
	}, &ast.Exists{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Temporal)
		lhs, rhs := children[0], children[1]
		if isTemporalLiteral(lhs) && isTemporalLiteral(rhs) {
			rel, err := temporal.Relate(lhs, rhs)
			if err != nil {
				return nil, err
			}
			return temporal.Matches(n.Op, rel), nil
		}
		return &ast.Temporal{LHS: lhs, RHS: rhs, Op: n.Op}, nil
	}, &ast.Temporal{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.ArrayPredicate)
		lhs, lok := children[0].([]any)
		rhs, rok := children[1].([]any)
		if lok && rok {
			return foldArrays(n.Op, lhs, rhs)
		}
		return &ast.ArrayPredicate{LHS: children[0], RHS: children[1], Op: n.Op}, nil
	}, &ast.ArrayPredicate{})

	// топология по ограничивающим прямоугольникам точна только для пары
	// конверт×конверт; литералы-геометрии требуют топологического движка
	// и не сворачиваются
	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.SpatialComparison)
		le, lok := children[0].(*ast.Envelope)
		re, rok := children[1].(*ast.Envelope)
		if lok && rok {
			if result, ok := foldBounds(n.Op, le, re); ok {
				return result, nil
			}
		}
		return &ast.SpatialComparison{LHS: children[0], RHS: children[1], Op: n.Op}, nil
	}, &ast.SpatialComparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Relate)
		return &ast.Relate{LHS: children[0], RHS: children[1], Pattern: n.Pattern}, nil
	}, &ast.Relate{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.SpatialDistance)
		return &ast.SpatialDistance{
			LHS: children[0], RHS: children[1],
			Distance: n.Distance, Units: n.Units, Op: n.Op,
		}, nil
	}, &ast.SpatialDistance{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.BBox)
		if env, ok := children[0].(*ast.Envelope); ok {
			box := ast.Envelope{X1: n.MinX, X2: n.MaxX, Y1: n.MinY, Y2: n.MaxY}
			return env.Bound().Intersects(box.Bound()), nil
		}
		return &ast.BBox{
			LHS: children[0],
			MinX: n.MinX, MinY: n.MinY, MaxX: n.MaxX, MaxY: n.MaxY, CRS: n.CRS,
		}, nil
	}, &ast.BBox{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Arithmetic)
		lhs, rhs := children[0], children[1]
		if isLiteral(lhs) && isLiteral(rhs) {
			if result, ok := foldArithmetic(n.Op, lhs, rhs); ok {
				return result, nil
			}
		}
		return &ast.Arithmetic{LHS: lhs, RHS: rhs, Op: n.Op}, nil
	}, &ast.Arithmetic{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Function)
		fn, known := functions[n.Name]
		foldable := known
		for _, a := range children {
			foldable = foldable && isAnyLiteral(a)
		}
		if foldable {
			return fn(children...)
		}
		return &ast.Function{Name: n.Name, Arguments: append([]any(nil), children...)}, nil
	}, &ast.Function{})

	// неопределённые листья: атрибуты и литералы проходят без изменений
	e.Handle(passthrough, &ast.Attribute{})
	e.HandleFamily(passthrough, ast.FamilyGeometry, ast.FamilyLiteral)
	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Include)
		return !n.Not, nil
	}, &ast.Include{})

	return e
}

func passthrough(node any, children ...any) (any, error) {
	return node, nil
}

func isLiteral(v any) bool {
	switch v.(type) {
	case string, bool, int64, float64, int, time.Time, ast.Date:
		return true
	}
	return false
}

func isTemporalLiteral(v any) bool {
	switch v.(type) {
	case time.Time, ast.Date, ast.Duration, *ast.Interval:
		return true
	}
	return false
}

func isGeometryLiteral(v any) bool {
	switch v.(type) {
	case *ast.Geometry, *ast.Envelope:
		return true
	}
	return false
}

func isAnyLiteral(v any) bool {
	return isLiteral(v) || isTemporalLiteral(v) || isGeometryLiteral(v)
}

// compareLiterals возвращает (-1|0|1, true) для сопоставимых литералов.
// Несопоставимая пара не ошибка: она блокирует свёртку.
func compareLiterals(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 1, false
	case time.Time:
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bt):
			return -1, true
		case av.After(bt):
			return 1, true
		}
		return 0, true
	case ast.Date:
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		at := av.Start()
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case ast.Date:
		return t.Start(), true
	}
	return time.Time{}, false
}

func applyComparison(op ast.ComparisonOp, cmp int) bool {
	switch op {
	case ast.ComparisonEq:
		return cmp == 0
	case ast.ComparisonNe:
		return cmp != 0
	case ast.ComparisonLt:
		return cmp < 0
	case ast.ComparisonLe:
		return cmp <= 0
	case ast.ComparisonGt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

func foldArithmetic(op ast.ArithmeticOp, lhs, rhs any) (any, bool) {
	li, lok := lhs.(int64)
	ri, rok := rhs.(int64)
	if lok && rok && op != ast.ArithmeticDiv {
		switch op {
		case ast.ArithmeticAdd:
			return li + ri, true
		case ast.ArithmeticSub:
			return li - ri, true
		case ast.ArithmeticMul:
			return li * ri, true
		}
	}
	lf, lok := toFloat(lhs)
	rf, rok := toFloat(rhs)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case ast.ArithmeticAdd:
		return lf + rf, true
	case ast.ArithmeticSub:
		return lf - rf, true
	case ast.ArithmeticMul:
		return lf * rf, true
	default:
		if rf == 0 {
			return nil, false
		}
		return lf / rf, true
	}
}

func foldArrays(op ast.ArrayOp, lhs, rhs []any) (any, error) {
	left := toSet(lhs)
	right := toSet(rhs)
	subset := func(a, b map[any]struct{}) bool {
		for k := range a {
			if _, ok := b[k]; !ok {
				return false
			}
		}
		return true
	}
	switch op {
	case ast.ArrayEquals:
		return len(left) == len(right) && subset(left, right), nil
	case ast.ArrayContains:
		return subset(right, left), nil
	case ast.ArrayContainedBy:
		return subset(left, right), nil
	case ast.ArrayOverlaps:
		for k := range left {
			if _, ok := right[k]; ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, fmt.Errorf("optimize: unknown array operator %s", op)
	}
}

func toSet(items []any) map[any]struct{} {
	set := make(map[any]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// foldBounds точная топология для пары прямоугольников
func foldBounds(op ast.SpatialOp, lhs, rhs *ast.Envelope) (bool, bool) {
	l, r := lhs.Bound(), rhs.Bound()
	switch op {
	case ast.SpatialIntersects:
		return l.Intersects(r), true
	case ast.SpatialDisjoint:
		return !l.Intersects(r), true
	case ast.SpatialContains:
		return boundContains(l, r), true
	case ast.SpatialWithin:
		return boundContains(r, l), true
	case ast.SpatialEquals:
		return l == r, true
	default:
		// TOUCHES/CROSSES/OVERLAPS не выражаются точно через прямоугольники
		return false, false
	}
}

func boundContains(outer, inner orb.Bound) bool {
	return outer.Min[0] <= inner.Min[0] && outer.Min[1] <= inner.Min[1] &&
		outer.Max[0] >= inner.Max[0] && outer.Max[1] >= inner.Max[1]
}
