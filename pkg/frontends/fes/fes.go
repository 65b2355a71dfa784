// Package fes реализует разбор фильтров OGC Filter Encoding 2.0 (XML).
// Разбор ведётся по локальным именам элементов, без валидации схемы;
// пространства имён fes/ogc/gml не различаются.
package fes

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/ruslano69/geofilter/pkg/core/ast"
	"github.com/ruslano69/geofilter/pkg/core/temporal"
)

// element узел дерева XML с локальным именем, атрибутами и текстом
type element struct {
	name     string
	attrs    map[string]string
	text     string
	children []*element
}

// Parse разбирает XML-документ фильтра в AST
func Parse(data []byte) (ast.Node, error) {
	root, err := decode(data)
	if err != nil {
		return nil, err
	}
	if root.name == "Filter" {
		if len(root.children) != 1 {
			return nil, fmt.Errorf("fes: Filter must contain exactly one condition")
		}
		root = root.children[0]
	}
	result, err := parseElement(root)
	if err != nil {
		return nil, err
	}
	node, ok := result.(ast.Node)
	if !ok {
		return nil, fmt.Errorf("fes: document is not a filter condition (%T)", result)
	}
	return node, nil
}

// decode строит дерево элементов токенизатором encoding/xml
func decode(data []byte) (*element, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	var stack []*element
	var root *element

	for {
		tok, err := decoder.Token()
		if err != nil {
			if root != nil && len(stack) == 0 {
				return root, nil
			}
			return nil, fmt.Errorf("fes: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: map[string]string{}}
			for _, a := range t.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("fes: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("fes: unbalanced element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
}

var comparisonNames = map[string]ast.ComparisonOp{
	"PropertyIsEqualTo":              ast.ComparisonEq,
	"PropertyIsNotEqualTo":           ast.ComparisonNe,
	"PropertyIsLessThan":             ast.ComparisonLt,
	"PropertyIsGreaterThan":          ast.ComparisonGt,
	"PropertyIsLessThanOrEqualTo":    ast.ComparisonLe,
	"PropertyIsGreaterThanOrEqualTo": ast.ComparisonGe,
}

var spatialNames = map[string]ast.SpatialOp{
	"Equals":     ast.SpatialEquals,
	"Disjoint":   ast.SpatialDisjoint,
	"Touches":    ast.SpatialTouches,
	"Within":     ast.SpatialWithin,
	"Overlaps":   ast.SpatialOverlaps,
	"Crosses":    ast.SpatialCrosses,
	"Intersects": ast.SpatialIntersects,
	"Contains":   ast.SpatialContains,
}

func parseElement(el *element) (any, error) {
	if op, ok := comparisonNames[el.name]; ok {
		lhs, rhs, err := parsePair(el)
		if err != nil {
			return nil, err
		}
		return &ast.Comparison{LHS: lhs, RHS: rhs, Op: op}, nil
	}
	if op, ok := spatialNames[el.name]; ok {
		lhs, rhs, err := parsePair(el)
		if err != nil {
			return nil, err
		}
		return &ast.SpatialComparison{LHS: lhs, RHS: rhs, Op: op}, nil
	}

	switch el.name {
	case "And", "Or":
		if len(el.children) < 2 {
			return nil, fmt.Errorf("fes: %s requires at least two operands", el.name)
		}
		items := make([]any, len(el.children))
		for i, c := range el.children {
			sub, err := parseElement(c)
			if err != nil {
				return nil, err
			}
			items[i] = sub
		}
		if el.name == "And" {
			return ast.NewAnd(items...), nil
		}
		return ast.NewOr(items...), nil

	case "Not":
		if len(el.children) != 1 {
			return nil, fmt.Errorf("fes: Not requires exactly one operand")
		}
		sub, err := parseElement(el.children[0])
		if err != nil {
			return nil, err
		}
		cond, ok := sub.(ast.Node)
		if !ok {
			return nil, fmt.Errorf("fes: Not requires a condition operand")
		}
		return &ast.Not{Sub: cond}, nil

	case "PropertyIsLike":
		lhs, rhs, err := parsePair(el)
		if err != nil {
			return nil, err
		}
		pattern, ok := rhs.(string)
		if !ok {
			pattern = fmt.Sprintf("%v", rhs)
		}
		return &ast.Like{
			LHS:        lhs,
			Pattern:    pattern,
			NoCase:     el.attrs["matchCase"] == "false",
			Wildcard:   el.attrs["wildCard"],
			SingleChar: el.attrs["singleChar"],
			EscapeChar: el.attrs["escapeChar"],
		}, nil

	case "PropertyIsNull":
		if len(el.children) != 1 {
			return nil, fmt.Errorf("fes: PropertyIsNull requires one operand")
		}
		lhs, err := parseElement(el.children[0])
		if err != nil {
			return nil, err
		}
		return &ast.IsNull{LHS: lhs}, nil

	case "PropertyIsBetween":
		if len(el.children) != 3 {
			return nil, fmt.Errorf("fes: PropertyIsBetween requires expression and two boundaries")
		}
		lhs, err := parseElement(el.children[0])
		if err != nil {
			return nil, err
		}
		low, err := parseBoundary(el.children[1], "LowerBoundary")
		if err != nil {
			return nil, err
		}
		high, err := parseBoundary(el.children[2], "UpperBoundary")
		if err != nil {
			return nil, err
		}
		return &ast.Between{LHS: lhs, Low: low, High: high}, nil

	case "BBOX":
		lhs, rhs, err := parsePair(el)
		if err != nil {
			return nil, err
		}
		env, ok := rhs.(*ast.Envelope)
		if !ok {
			return nil, fmt.Errorf("fes: BBOX requires a gml:Envelope operand")
		}
		bound := env.Bound()
		return &ast.BBox{
			LHS:  lhs,
			MinX: bound.Min[0], MinY: bound.Min[1],
			MaxX: bound.Max[0], MaxY: bound.Max[1],
			CRS: el.children[1].attrs["srsName"],
		}, nil

	case "DWithin", "Beyond":
		if len(el.children) != 3 {
			return nil, fmt.Errorf("fes: %s requires two operands and a Distance", el.name)
		}
		lhs, err := parseElement(el.children[0])
		if err != nil {
			return nil, err
		}
		rhs, err := parseElement(el.children[1])
		if err != nil {
			return nil, err
		}
		dist := el.children[2]
		if dist.name != "Distance" {
			return nil, fmt.Errorf("fes: expected Distance, got %s", dist.name)
		}
		distance, err := strconv.ParseFloat(strings.TrimSpace(dist.text), 64)
		if err != nil {
			return nil, fmt.Errorf("fes: invalid distance %q", dist.text)
		}
		op := ast.DistanceWithin
		if el.name == "Beyond" {
			op = ast.DistanceBeyond
		}
		return &ast.SpatialDistance{
			LHS: lhs, RHS: rhs,
			Distance: distance, Units: dist.attrs["uom"], Op: op,
		}, nil

	case "ValueReference", "PropertyName":
		return &ast.Attribute{Name: strings.TrimSpace(el.text)}, nil

	case "Literal":
		return parseLiteral(el)

	case "Envelope":
		return parseEnvelope(el)

	case "Point":
		return parsePoint(el)
	}
	return nil, fmt.Errorf("fes: unsupported element %s", el.name)
}

func parsePair(el *element) (any, any, error) {
	if len(el.children) != 2 {
		return nil, nil, fmt.Errorf("fes: %s requires exactly two operands", el.name)
	}
	lhs, err := parseElement(el.children[0])
	if err != nil {
		return nil, nil, err
	}
	rhs, err := parseElement(el.children[1])
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func parseBoundary(el *element, want string) (any, error) {
	if el.name != want {
		return nil, fmt.Errorf("fes: expected %s, got %s", want, el.name)
	}
	if len(el.children) != 1 {
		return nil, fmt.Errorf("fes: %s requires one expression", want)
	}
	return parseElement(el.children[0])
}

// parseLiteral приводит текст литерала к типу из атрибута type,
// при его отсутствии тип угадывается: число, момент времени, булево, строка
func parseLiteral(el *element) (any, error) {
	text := strings.TrimSpace(el.text)
	switch el.attrs["type"] {
	case "xsd:int", "xsd:integer", "xsd:long":
		return strconv.ParseInt(text, 10, 64)
	case "xsd:double", "xsd:float", "xsd:decimal":
		return strconv.ParseFloat(text, 64)
	case "xsd:boolean":
		return strconv.ParseBool(text)
	case "xsd:string":
		return text, nil
	case "xsd:dateTime":
		return temporal.ParseInstant(text)
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	if t, err := temporal.ParseInstant(text); err == nil {
		return t, nil
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return b, nil
	}
	return text, nil
}

// parseEnvelope разбирает gml:Envelope с угловыми точками
func parseEnvelope(el *element) (any, error) {
	var lower, upper []float64
	for _, c := range el.children {
		coords, err := parseCoords(c.text)
		if err != nil {
			return nil, err
		}
		switch c.name {
		case "lowerCorner":
			lower = coords
		case "upperCorner":
			upper = coords
		}
	}
	if len(lower) < 2 || len(upper) < 2 {
		return nil, fmt.Errorf("fes: Envelope requires lowerCorner and upperCorner")
	}
	return &ast.Envelope{X1: lower[0], X2: upper[0], Y1: lower[1], Y2: upper[1]}, nil
}

// parsePoint разбирает gml:Point с координатами pos
func parsePoint(el *element) (any, error) {
	for _, c := range el.children {
		if c.name != "pos" && c.name != "coordinates" {
			continue
		}
		coords, err := parseCoords(strings.ReplaceAll(c.text, ",", " "))
		if err != nil {
			return nil, err
		}
		if len(coords) < 2 {
			return nil, fmt.Errorf("fes: Point requires two coordinates")
		}
		return &ast.Geometry{Geometry: orb.Point{coords[0], coords[1]}}, nil
	}
	return nil, fmt.Errorf("fes: Point has no coordinates")
}

func parseCoords(text string) ([]float64, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	coords := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("fes: invalid coordinate %q", f)
		}
		coords[i] = v
	}
	return coords, nil
}
