// Package cqljson реализует разбор и кодирование фильтров CQL2-JSON.
package cqljson

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/temporal"
)

var comparisonOps = map[string]ast.ComparisonOp{
	"=": ast.ComparisonEq, "eq": ast.ComparisonEq,
	"<>": ast.ComparisonNe, "!=": ast.ComparisonNe, "ne": ast.ComparisonNe,
	"<": ast.ComparisonLt, "lt": ast.ComparisonLt,
	"<=": ast.ComparisonLe, "lte": ast.ComparisonLe,
	">": ast.ComparisonGt, "gt": ast.ComparisonGt,
	">=": ast.ComparisonGe, "gte": ast.ComparisonGe,
}

var spatialOps = map[string]ast.SpatialOp{
	"s_intersects": ast.SpatialIntersects,
	"s_equals":     ast.SpatialEquals,
	"s_disjoint":   ast.SpatialDisjoint,
	"s_touches":    ast.SpatialTouches,
	"s_within":     ast.SpatialWithin,
	"s_overlaps":   ast.SpatialOverlaps,
	"s_crosses":    ast.SpatialCrosses,
	"s_contains":   ast.SpatialContains,
}

var temporalOps = map[string]ast.TemporalOp{
	"t_before":       ast.TemporalBefore,
	"t_after":        ast.TemporalAfter,
	"t_meets":        ast.TemporalMeets,
	"t_metby":        ast.TemporalMetBy,
	"t_overlaps":     ast.TemporalOverlaps,
	"t_overlappedby": ast.TemporalOverlappedBy,
	"t_begins":       ast.TemporalBegins,
	"t_begunby":      ast.TemporalBegunBy,
	"t_during":       ast.TemporalDuring,
	"t_contains":     ast.TemporalContains,
	"t_ends":         ast.TemporalEnds,
	"t_endedby":      ast.TemporalEndedBy,
	"t_equals":       ast.TemporalEquals,
	"t_disjoint":     ast.TemporalDisjoint,
	// t_intersects не различим от TOVERLAPS в этой модели
	"t_intersects": ast.TemporalOverlaps,
}

var arrayOps = map[string]ast.ArrayOp{
	"a_equals":      ast.ArrayEquals,
	"a_contains":    ast.ArrayContains,
	"a_containedby": ast.ArrayContainedBy,
	"a_overlaps":    ast.ArrayOverlaps,
}

var arithmeticOps = map[string]ast.ArithmeticOp{
	"+": ast.ArithmeticAdd,
	"-": ast.ArithmeticSub,
	"*": ast.ArithmeticMul,
	"/": ast.ArithmeticDiv,
}

// Parse разбирает документ CQL2-JSON в AST
func Parse(data []byte) (ast.Node, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("cqljson: %w", err)
	}
	result, err := walk(root)
	if err != nil {
		return nil, err
	}
	node, ok := result.(ast.Node)
	if !ok {
		return nil, fmt.Errorf("cqljson: document is not a filter condition (%T)", result)
	}
	return node, nil
}

func walk(node any) (any, error) {
	switch v := node.(type) {
	case string, bool:
		return v, nil
	case float64:
		// json.Unmarshal даёт float64 для всех чисел; целые сужаются
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return v, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			sub, err := walk(item)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	case map[string]any:
		return walkObject(v)
	}
	return nil, fmt.Errorf("cqljson: invalid node %v (%T)", node, node)
}

func walkObject(obj map[string]any) (any, error) {
	if lang, ok := obj["filter-lang"]; ok && lang != "cql2-json" {
		return nil, fmt.Errorf("cqljson: cannot parse filter-lang %v", lang)
	}
	if filter, ok := obj["filter"]; ok {
		return walk(filter)
	}

	if _, ok := obj["type"]; ok {
		if _, ok := obj["coordinates"]; ok {
			return parseGeometry(obj)
		}
	}
	if bbox, ok := obj["bbox"]; ok {
		return parseBBox(bbox)
	}
	if date, ok := obj["date"]; ok {
		s, ok := date.(string)
		if !ok {
			return nil, fmt.Errorf("cqljson: date must be a string")
		}
		t, err := temporal.ParseInstant(s)
		if err != nil {
			return nil, err
		}
		return ast.DateOf(t), nil
	}
	if ts, ok := obj["timestamp"]; ok {
		s, ok := ts.(string)
		if !ok {
			return nil, fmt.Errorf("cqljson: timestamp must be a string")
		}
		return temporal.ParseInstant(s)
	}
	if iv, ok := obj["interval"]; ok {
		return parseInterval(iv)
	}
	if prop, ok := obj["property"]; ok {
		name, ok := prop.(string)
		if !ok {
			return nil, fmt.Errorf("cqljson: property must be a string")
		}
		return &ast.Attribute{Name: name}, nil
	}
	if fn, ok := obj["function"]; ok {
		return parseFunction(fn)
	}
	if op, ok := obj["op"]; ok {
		name, ok := op.(string)
		if !ok {
			return nil, fmt.Errorf("cqljson: op must be a string")
		}
		return parseOp(name, obj["args"])
	}
	return nil, fmt.Errorf("cqljson: unable to parse expression node %v", obj)
}

func parseGeometry(obj map[string]any) (any, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("cqljson: %w", err)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("cqljson: invalid geometry: %w", err)
	}
	return &ast.Geometry{Geometry: g.Geometry()}, nil
}

func parseBBox(bbox any) (any, error) {
	list, ok := bbox.([]any)
	if !ok || len(list) != 4 {
		return nil, fmt.Errorf("cqljson: bbox must be an array of four numbers")
	}
	corners := make([]float64, 4)
	for i, item := range list {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("cqljson: bbox must be an array of four numbers")
		}
		corners[i] = f
	}
	// порядок GeoJSON: minx, miny, maxx, maxy
	return &ast.Envelope{X1: corners[0], Y1: corners[1], X2: corners[2], Y2: corners[3]}, nil
}

func parseInterval(iv any) (any, error) {
	list, ok := iv.([]any)
	if !ok || len(list) != 2 {
		return nil, fmt.Errorf("cqljson: interval must be an array of two bounds")
	}
	bounds := make([]any, 2)
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("cqljson: interval bound must be a string")
		}
		if s == ".." {
			continue
		}
		if t, err := temporal.ParseInstant(s); err == nil {
			if len(s) == len("2006-01-02") {
				bounds[i] = ast.DateOf(t)
			} else {
				bounds[i] = t
			}
			continue
		}
		d, err := temporal.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("cqljson: invalid interval bound %q", s)
		}
		bounds[i] = d
	}
	return &ast.Interval{Start: bounds[0], End: bounds[1]}, nil
}

func parseFunction(fn any) (any, error) {
	obj, ok := fn.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cqljson: function must be an object")
	}
	name, ok := obj["name"].(string)
	if !ok {
		return nil, fmt.Errorf("cqljson: function name must be a string")
	}
	var args []any
	if rawArgs, ok := obj["arguments"].([]any); ok {
		walked, err := walk(rawArgs)
		if err != nil {
			return nil, err
		}
		args = walked.([]any)
	}
	return &ast.Function{Name: name, Arguments: args}, nil
}

func parseOp(op string, rawArgs any) (any, error) {
	switch op {
	case "and", "or":
		args, err := walkList(rawArgs)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("cqljson: %s requires at least two operands", op)
		}
		if op == "and" {
			return ast.NewAnd(args...), nil
		}
		return ast.NewOr(args...), nil

	case "not":
		// стандарт неоднозначен: допускаем и массив, и объект
		arg := rawArgs
		if list, ok := rawArgs.([]any); ok && len(list) > 0 {
			arg = list[0]
		}
		sub, err := walk(arg)
		if err != nil {
			return nil, err
		}
		cond, ok := sub.(ast.Node)
		if !ok {
			return nil, fmt.Errorf("cqljson: not requires a condition operand")
		}
		return &ast.Not{Sub: cond}, nil

	case "isNull":
		arg := rawArgs
		if list, ok := rawArgs.([]any); ok && len(list) > 0 {
			arg = list[0]
		}
		lhs, err := walk(arg)
		if err != nil {
			return nil, err
		}
		return &ast.IsNull{LHS: lhs}, nil

	case "between":
		args, err := walkList(rawArgs)
		if err != nil {
			return nil, err
		}
		if len(args) != 3 {
			return nil, fmt.Errorf("cqljson: between requires [value, low, high]")
		}
		return &ast.Between{LHS: args[0], Low: args[1], High: args[2]}, nil

	case "like":
		args, err := walkList(rawArgs)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("cqljson: like requires [value, pattern]")
		}
		pattern, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("cqljson: like pattern must be a string")
		}
		return &ast.Like{
			LHS: args[0], Pattern: pattern,
			Wildcard: "%", SingleChar: ".", EscapeChar: "\\",
		}, nil

	case "in":
		args, err := walkList(rawArgs)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("cqljson: in requires [value, options]")
		}
		options, ok := args[1].([]any)
		if !ok {
			return nil, fmt.Errorf("cqljson: in options must be an array")
		}
		return &ast.In{LHS: args[0], Options: options}, nil
	}

	if cmpOp, ok := comparisonOps[op]; ok {
		lhs, rhs, err := walkPair(op, rawArgs)
		if err != nil {
			return nil, err
		}
		return &ast.Comparison{LHS: lhs, RHS: rhs, Op: cmpOp}, nil
	}
	if spOp, ok := spatialOps[op]; ok {
		lhs, rhs, err := walkPair(op, rawArgs)
		if err != nil {
			return nil, err
		}
		return &ast.SpatialComparison{LHS: lhs, RHS: rhs, Op: spOp}, nil
	}
	if tOp, ok := temporalOps[op]; ok {
		lhs, rhs, err := walkPair(op, rawArgs)
		if err != nil {
			return nil, err
		}
		return &ast.Temporal{LHS: lhs, RHS: rhs, Op: tOp}, nil
	}
	if aOp, ok := arrayOps[op]; ok {
		lhs, rhs, err := walkPair(op, rawArgs)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayPredicate{LHS: lhs, RHS: rhs, Op: aOp}, nil
	}
	if arOp, ok := arithmeticOps[op]; ok {
		lhs, rhs, err := walkPair(op, rawArgs)
		if err != nil {
			return nil, err
		}
		return &ast.Arithmetic{LHS: lhs, RHS: rhs, Op: arOp}, nil
	}
	return nil, fmt.Errorf("cqljson: unknown operator %q", op)
}

func walkList(rawArgs any) ([]any, error) {
	list, ok := rawArgs.([]any)
	if !ok {
		return nil, fmt.Errorf("cqljson: args must be an array")
	}
	walked, err := walk(list)
	if err != nil {
		return nil, err
	}
	return walked.([]any), nil
}

func walkPair(op string, rawArgs any) (any, any, error) {
	args, err := walkList(rawArgs)
	if err != nil {
		return nil, nil, err
	}
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("cqljson: %s requires exactly two operands", op)
	}
	return args[0], args[1], nil
}
