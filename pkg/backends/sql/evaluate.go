package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/eval"
	"github.com/ruslano69/geofilter/pkg/core/like"
	"github.com/ruslano69/geofilter/pkg/core/temporal"
)

// Options настройки генерации WHERE-условия
type Options struct {
	// AttributeMap отображение имён атрибутов на колонки или
	// SQL-выражения; значения подставляются как есть. При nil имя
	// атрибута квотируется диалектом напрямую.
	AttributeMap map[string]string
	// FunctionMap отображение имён функций фильтра на SQL-функции;
	// отсутствующее имя проходит без изменений
	FunctionMap map[string]string
}

// ToWhere рендерит дерево фильтра в текст условия WHERE (без самого
// ключевого слова). Узлы без представления в SQL (EXISTS, операторы
// массивов, часть темпоральных операторов) дают ошибку с именем узла.
func ToWhere(root ast.Node, dialect Dialect, opts Options) (string, error) {
	result, err := newEvaluator(dialect, opts).Evaluate(root)
	if err != nil {
		return "", err
	}
	clause, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("sql: filter evaluated to %T, not a condition", result)
	}
	return clause, nil
}

// operand достаёт уже отрендеренный операнд; нестроковый операнд
// означает значение без SQL-представления (например, длительность)
func operand(children []any, i int) (string, error) {
	s, ok := children[i].(string)
	if !ok {
		return "", fmt.Errorf("sql: operand %v (%T) has no SQL representation", children[i], children[i])
	}
	return s, nil
}

func operands(children []any) ([]string, error) {
	out := make([]string, len(children))
	for i := range children {
		s, err := operand(children, i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func notPrefix(not bool) string {
	if not {
		return "NOT "
	}
	return ""
}

func newEvaluator(d Dialect, opts Options) *eval.Evaluator {
	e := eval.New()

	e.Handle(func(node any, children ...any) (any, error) {
		sub, err := operand(children, 0)
		if err != nil {
			return nil, err
		}
		return "NOT " + sub, nil
	}, &ast.Not{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		op := string(node.(*ast.Combination).Op)
		return "(" + strings.Join(parts, " "+op+" ") + ")", nil
	}, &ast.Combination{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		op := string(node.(*ast.Comparison).Op)
		return fmt.Sprintf("(%s %s %s)", parts[0], op, parts[1]), nil
	}, &ast.Comparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		n := node.(*ast.Between)
		return fmt.Sprintf("(%s %sBETWEEN %s AND %s)",
			parts[0], notPrefix(n.Not), parts[1], parts[2]), nil
	}, &ast.Between{})

	e.Handle(func(node any, children ...any) (any, error) {
		lhs, err := operand(children, 0)
		if err != nil {
			return nil, err
		}
		n := node.(*ast.Like)
		pattern := like.Pattern{
			Source:     n.Pattern,
			Wildcard:   tokenOrDefault(n.Wildcard, "%"),
			SingleChar: tokenOrDefault(n.SingleChar, "."),
			Escape:     tokenOrDefault(n.EscapeChar, `\`),
		}.Rewrite("%", "_", `\`)
		if n.NoCase && !d.SupportsILike() {
			return fmt.Sprintf("(LOWER(%s) %sLIKE LOWER(%s) ESCAPE %s)",
				lhs, notPrefix(n.Not), quoteString(pattern), d.EscapeLiteral()), nil
		}
		verb := "LIKE"
		if n.NoCase {
			verb = "ILIKE"
		}
		return fmt.Sprintf("(%s %s%s %s ESCAPE %s)",
			lhs, notPrefix(n.Not), verb, quoteString(pattern), d.EscapeLiteral()), nil
	}, &ast.Like{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		n := node.(*ast.In)
		return fmt.Sprintf("(%s %sIN (%s))",
			parts[0], notPrefix(n.Not), strings.Join(parts[1:], ", ")), nil
	}, &ast.In{})

	e.Handle(func(node any, children ...any) (any, error) {
		lhs, err := operand(children, 0)
		if err != nil {
			return nil, err
		}
		n := node.(*ast.IsNull)
		if n.Not {
			return fmt.Sprintf("(%s IS NOT NULL)", lhs), nil
		}
		return fmt.Sprintf("(%s IS NULL)", lhs), nil
	}, &ast.IsNull{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Include)
		if n.Not {
			return "(1 = 0)", nil
		}
		return "(1 = 1)", nil
	}, &ast.Include{})

	e.Handle(func(node any, children ...any) (any, error) {
		lhs, err := operand(children, 0)
		if err != nil {
			return nil, err
		}
		return renderTemporal(d, node.(*ast.Temporal), lhs)
	}, &ast.Temporal{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		return d.SpatialPredicate(node.(*ast.SpatialComparison).Op, parts[0], parts[1])
	}, &ast.SpatialComparison{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		return d.RelatePredicate(parts[0], parts[1], node.(*ast.Relate).Pattern), nil
	}, &ast.Relate{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		n := node.(*ast.SpatialDistance)
		distance := strconv.FormatFloat(n.Distance, 'g', -1, 64)
		return d.DistancePredicate(n.Op, parts[0], parts[1], distance)
	}, &ast.SpatialDistance{})

	e.Handle(func(node any, children ...any) (any, error) {
		lhs, err := operand(children, 0)
		if err != nil {
			return nil, err
		}
		n := node.(*ast.BBox)
		box := ast.Envelope{X1: n.MinX, X2: n.MaxX, Y1: n.MinY, Y2: n.MaxY}
		rhs := d.GeometryLiteral(box.Bound().ToPolygon(), sridFromCRS(n.CRS))
		return d.SpatialPredicate(ast.SpatialIntersects, lhs, rhs)
	}, &ast.BBox{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		op := string(node.(*ast.Arithmetic).Op)
		return fmt.Sprintf("(%s %s %s)", parts[0], op, parts[1]), nil
	}, &ast.Arithmetic{})

	e.Handle(func(node any, children ...any) (any, error) {
		parts, err := operands(children)
		if err != nil {
			return nil, err
		}
		name := node.(*ast.Function).Name
		if mapped, ok := opts.FunctionMap[name]; ok {
			name = mapped
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", ")), nil
	}, &ast.Function{})

	e.Handle(func(node any, children ...any) (any, error) {
		name := node.(*ast.Attribute).Name
		if opts.AttributeMap != nil {
			column, ok := opts.AttributeMap[name]
			if !ok {
				return nil, fmt.Errorf("sql: attribute %q is not mapped", name)
			}
			return column, nil
		}
		return d.QuoteName(name), nil
	}, &ast.Attribute{})

	e.Handle(func(node any, children ...any) (any, error) {
		return nil, fmt.Errorf("sql: node %T has no SQL representation", node)
	}, &ast.Exists{}, &ast.ArrayPredicate{})

	e.Handle(func(node any, children ...any) (any, error) {
		n := node.(*ast.Geometry)
		return d.GeometryLiteral(n.Geometry, n.SRID), nil
	}, &ast.Geometry{})

	e.Handle(func(node any, children ...any) (any, error) {
		return d.GeometryLiteral(node.(*ast.Envelope).Bound().ToPolygon(), 0), nil
	}, &ast.Envelope{})

	e.Handle(func(node any, children ...any) (any, error) {
		return d.TimestampLiteral(node.(time.Time)), nil
	}, time.Time{})

	e.Handle(func(node any, children ...any) (any, error) {
		return quoteString(node.(ast.Date).String()), nil
	}, ast.Date{})

	e.Handle(func(node any, children ...any) (any, error) {
		return quoteString(node.(string)), nil
	}, "")

	e.Handle(func(node any, children ...any) (any, error) {
		return d.BoolLiteral(node.(bool)), nil
	}, false)

	e.Handle(func(node any, children ...any) (any, error) {
		return fmt.Sprintf("%d", node), nil
	}, int(0), int64(0))

	e.Handle(func(node any, children ...any) (any, error) {
		return strconv.FormatFloat(node.(float64), 'g', -1, 64), nil
	}, float64(0))

	// длительности, интервалы и списки не рендерятся сами по себе:
	// обработчики предикатов читают их из узла, минуя детей
	e.Handle(func(node any, children ...any) (any, error) {
		return node, nil
	}, ast.Duration{}, &ast.Interval{}, []any{})

	return e
}

// renderTemporal рендерит темпоральный предикат сравнениями по границам.
// Выразимы только операторы, сводимые к сравнению столбца-момента с
// константными границами интервала.
func renderTemporal(d Dialect, n *ast.Temporal, lhs string) (string, error) {
	iv, err := temporal.ToInterval(n.RHS)
	if err != nil {
		return "", err
	}
	if iv.Open {
		return "", fmt.Errorf("sql: open interval cannot be expressed in SQL")
	}
	low := d.TimestampLiteral(iv.Low)
	high := d.TimestampLiteral(iv.High)

	switch n.Op {
	case ast.TemporalBefore:
		return fmt.Sprintf("(%s < %s)", lhs, low), nil
	case ast.TemporalAfter:
		return fmt.Sprintf("(%s > %s)", lhs, high), nil
	case ast.TemporalEquals:
		if !iv.Low.Equal(iv.High) {
			return "", fmt.Errorf("sql: TEQUALS against an interval cannot be expressed in SQL")
		}
		return fmt.Sprintf("(%s = %s)", lhs, low), nil
	case ast.TemporalDuring:
		return fmt.Sprintf("(%s BETWEEN %s AND %s)", lhs, low, high), nil
	case ast.TemporalBeforeOrDuring:
		return fmt.Sprintf("(%s <= %s)", lhs, high), nil
	case ast.TemporalDuringOrAfter:
		return fmt.Sprintf("(%s >= %s)", lhs, low), nil
	}
	return "", fmt.Errorf("sql: temporal operator %s cannot be expressed in SQL", n.Op)
}

func tokenOrDefault(token, def string) string {
	if token == "" {
		return def
	}
	return token
}

// sridFromCRS извлекает числовой код из идентификатора вида EPSG:4326
func sridFromCRS(crs string) int {
	if crs == "" {
		return 0
	}
	idx := strings.LastIndexAny(crs, ":/")
	srid, err := strconv.Atoi(crs[idx+1:])
	if err != nil {
		return 0
	}
	return srid
}
