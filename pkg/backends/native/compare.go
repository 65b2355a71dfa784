package native

import (
	"fmt"
	"strings"
	"time"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

// compare упорядочивает пару значений: числа сравниваются как числа,
// строки лексикографически, моменты и даты по временной оси. Булевы
// значения сравнимы только на равенство; несравнимая пара даёт ошибку.
func compare(lhs, rhs any) (int, error) {
	if lf, lok := toFloat(lhs); lok {
		if rf, rok := toFloat(rhs); rok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if ls, ok := lhs.(string); ok {
		if rs, ok := rhs.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	if lb, ok := lhs.(bool); ok {
		if rb, ok := rhs.(bool); ok {
			if lb == rb {
				return 0, nil
			}
			return -1, fmt.Errorf("native: booleans have no ordering")
		}
	}
	if lt, lok := toTime(lhs); lok {
		if rt, rok := toTime(rhs); rok {
			switch {
			case lt.Before(rt):
				return -1, nil
			case lt.After(rt):
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("native: values %v (%T) and %v (%T) are not comparable", lhs, rhs, lhs, rhs)
}

// applyComparison применяет оператор сравнения; равенство булевых
// значений допустимо, их упорядочивание — нет
func applyComparison(op ast.ComparisonOp, lhs, rhs any) (bool, error) {
	if lb, ok := lhs.(bool); ok {
		if rb, ok := rhs.(bool); ok {
			switch op {
			case ast.ComparisonEq:
				return lb == rb, nil
			case ast.ComparisonNe:
				return lb != rb, nil
			}
			return false, fmt.Errorf("native: booleans have no ordering")
		}
	}
	c, err := compare(lhs, rhs)
	if err != nil {
		return false, err
	}
	switch op {
	case ast.ComparisonEq:
		return c == 0, nil
	case ast.ComparisonNe:
		return c != 0, nil
	case ast.ComparisonLt:
		return c < 0, nil
	case ast.ComparisonLe:
		return c <= 0, nil
	case ast.ComparisonGt:
		return c > 0, nil
	case ast.ComparisonGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("native: unsupported comparison operator %s", op)
}

// applyArithmetic вычисляет арифметику над числами; пара целых даёт
// целое, кроме деления
func applyArithmetic(op ast.ArithmeticOp, lhs, rhs any) (any, error) {
	li, lInt := toInt(lhs)
	ri, rInt := toInt(rhs)
	if lInt && rInt && op != ast.ArithmeticDiv {
		switch op {
		case ast.ArithmeticAdd:
			return li + ri, nil
		case ast.ArithmeticSub:
			return li - ri, nil
		case ast.ArithmeticMul:
			return li * ri, nil
		}
	}

	lf, lok := toFloat(lhs)
	rf, rok := toFloat(rhs)
	if !lok || !rok {
		return nil, fmt.Errorf("native: arithmetic over %v (%T) and %v (%T)", lhs, lhs, rhs, rhs)
	}
	switch op {
	case ast.ArithmeticAdd:
		return lf + rf, nil
	case ast.ArithmeticSub:
		return lf - rf, nil
	case ast.ArithmeticMul:
		return lf * rf, nil
	case ast.ArithmeticDiv:
		if rf == 0 {
			return nil, fmt.Errorf("native: division by zero")
		}
		return lf / rf, nil
	}
	return nil, fmt.Errorf("native: unsupported arithmetic operator %s", op)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case ast.Date:
		return t.Start(), true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
