package ast

import "fmt"

// Node базовый интерфейс для всех узлов AST фильтра
type Node interface {
	node()
	// Children возвращает операнды узла в порядке их следования в тексте.
	// Операндом может быть другой Node, литеральное значение или срез значений.
	Children() []any
	String() string
}

// CombinationOp логическая связка AND/OR
type CombinationOp string

const (
	CombinationAnd CombinationOp = "AND"
	CombinationOr  CombinationOp = "OR"
)

// Not представляет отрицание условия
type Not struct {
	Sub Node
}

func (n *Not) node()           {}
func (n *Not) Children() []any { return []any{n.Sub} }
func (n *Not) String() string {
	return "NOT " + renderOperand(n.Sub)
}

// Combination представляет комбинацию двух условий через AND или OR.
// Вариадические цепочки строятся конструкторами NewAnd/NewOr как
// лево-ассоциативная бинарная цепочка.
type Combination struct {
	LHS any
	RHS any
	Op  CombinationOp
}

func (c *Combination) node()           {}
func (c *Combination) Children() []any { return []any{c.LHS, c.RHS} }
func (c *Combination) String() string {
	return fmt.Sprintf("%s %s %s", renderOperand(c.LHS), c.Op, renderOperand(c.RHS))
}

// NewAnd сворачивает список условий в лево-ассоциативную цепочку AND
func NewAnd(items ...any) *Combination {
	return foldCombination(CombinationAnd, items)
}

// NewOr сворачивает список условий в лево-ассоциативную цепочку OR
func NewOr(items ...any) *Combination {
	return foldCombination(CombinationOr, items)
}

func foldCombination(op CombinationOp, items []any) *Combination {
	if len(items) < 2 {
		panic("ast: combination requires at least two operands")
	}
	acc := &Combination{LHS: items[0], RHS: items[1], Op: op}
	for _, item := range items[2:] {
		acc = &Combination{LHS: acc, RHS: item, Op: op}
	}
	return acc
}

// Include тривиальный маркер "всегда истина" (INCLUDE) либо
// "всегда ложь" (EXCLUDE при Not=true)
type Include struct {
	Not bool
}

func (i *Include) node()           {}
func (i *Include) Children() []any { return nil }
func (i *Include) String() string {
	if i.Not {
		return "EXCLUDE"
	}
	return "INCLUDE"
}

// renderOperand возвращает отладочное представление операнда.
// Узлы-атрибуты рендерятся inline, остальные узлы оборачиваются в скобки.
func renderOperand(v any) string {
	switch t := v.(type) {
	case *Attribute:
		return t.String()
	case Node:
		return "(" + t.String() + ")"
	default:
		return formatValue(v)
	}
}

func maybeNot(not bool) string {
	if not {
		return "NOT "
	}
	return ""
}
