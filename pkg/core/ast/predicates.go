package ast

import (
	"fmt"
	"strings"
)

// ComparisonOp оператор сравнения
type ComparisonOp string

const (
	ComparisonEq ComparisonOp = "="
	ComparisonNe ComparisonOp = "<>"
	ComparisonLt ComparisonOp = "<"
	ComparisonLe ComparisonOp = "<="
	ComparisonGt ComparisonOp = ">"
	ComparisonGe ComparisonOp = ">="
)

// Comparison представляет сравнение двух выражений
type Comparison struct {
	LHS any
	RHS any
	Op  ComparisonOp
}

func (c *Comparison) node()           {}
func (c *Comparison) Children() []any { return []any{c.LHS, c.RHS} }
func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", renderOperand(c.LHS), c.Op, renderOperand(c.RHS))
}

// Between представляет проверку попадания значения в диапазон
type Between struct {
	LHS  any
	Low  any
	High any
	Not  bool
}

func (b *Between) node()           {}
func (b *Between) Children() []any { return []any{b.LHS, b.Low, b.High} }
func (b *Between) String() string {
	return fmt.Sprintf("%s %sBETWEEN %s AND %s",
		renderOperand(b.LHS), maybeNot(b.Not), renderOperand(b.Low), renderOperand(b.High))
}

// Like представляет сопоставление строки с шаблоном подстановки.
// Символы подстановки настраиваются per-узел: Wildcard (произвольная
// последовательность), SingleChar (один символ), EscapeChar (экранирование).
type Like struct {
	LHS        any
	Pattern    string
	NoCase     bool
	Wildcard   string
	SingleChar string
	EscapeChar string
	Not        bool
}

func (l *Like) node()           {}
func (l *Like) Children() []any { return []any{l.LHS} }
func (l *Like) String() string {
	op := "LIKE"
	if l.NoCase {
		op = "ILIKE"
	}
	return fmt.Sprintf("%s %s%s '%s'", renderOperand(l.LHS), maybeNot(l.Not), op, l.Pattern)
}

// In представляет проверку вхождения значения в список
type In struct {
	LHS     any
	Options []any
	Not     bool
}

func (i *In) node() {}

// Children возвращает левый операнд и все опции единым плоским списком
func (i *In) Children() []any {
	children := make([]any, 0, len(i.Options)+1)
	children = append(children, i.LHS)
	children = append(children, i.Options...)
	return children
}

func (i *In) String() string {
	opts := make([]string, len(i.Options))
	for j, o := range i.Options {
		opts[j] = renderOperand(o)
	}
	return fmt.Sprintf("%s %sIN (%s)", renderOperand(i.LHS), maybeNot(i.Not), strings.Join(opts, ", "))
}

// IsNull представляет проверку IS NULL / IS NOT NULL
type IsNull struct {
	LHS any
	Not bool
}

func (n *IsNull) node()           {}
func (n *IsNull) Children() []any { return []any{n.LHS} }
func (n *IsNull) String() string {
	return fmt.Sprintf("%s IS %sNULL", renderOperand(n.LHS), maybeNot(n.Not))
}

// Exists представляет проверку наличия атрибута у объекта
type Exists struct {
	LHS any
	Not bool
}

func (e *Exists) node()           {}
func (e *Exists) Children() []any { return []any{e.LHS} }
func (e *Exists) String() string {
	if e.Not {
		return renderOperand(e.LHS) + " DOES-NOT-EXIST"
	}
	return renderOperand(e.LHS) + " EXISTS"
}

// TemporalOp темпоральный оператор. Помимо 13 атомарных отношений Аллена
// и DISJOINT поддерживаются два составных оператора из классического CQL.
type TemporalOp string

const (
	TemporalBefore         TemporalOp = "BEFORE"
	TemporalAfter          TemporalOp = "AFTER"
	TemporalMeets          TemporalOp = "MEETS"
	TemporalMetBy          TemporalOp = "METBY"
	TemporalOverlaps       TemporalOp = "TOVERLAPS"
	TemporalOverlappedBy   TemporalOp = "OVERLAPPEDBY"
	TemporalBegins         TemporalOp = "BEGINS"
	TemporalBegunBy        TemporalOp = "BEGUNBY"
	TemporalDuring         TemporalOp = "DURING"
	TemporalContains       TemporalOp = "TCONTAINS"
	TemporalEnds           TemporalOp = "ENDS"
	TemporalEndedBy        TemporalOp = "ENDEDBY"
	TemporalEquals         TemporalOp = "TEQUALS"
	TemporalDisjoint       TemporalOp = "DISJOINT"
	TemporalBeforeOrDuring TemporalOp = "BEFORE OR DURING"
	TemporalDuringOrAfter  TemporalOp = "DURING OR AFTER"
)

// Temporal представляет темпоральный предикат над инстантами и интервалами
type Temporal struct {
	LHS any
	RHS any
	Op  TemporalOp
}

func (t *Temporal) node()           {}
func (t *Temporal) Children() []any { return []any{t.LHS, t.RHS} }
func (t *Temporal) String() string {
	return fmt.Sprintf("%s %s %s", renderOperand(t.LHS), t.Op, renderOperand(t.RHS))
}

// ArrayOp оператор сравнения массивов
type ArrayOp string

const (
	ArrayEquals      ArrayOp = "AEQUALS"
	ArrayContains    ArrayOp = "ACONTAINS"
	ArrayContainedBy ArrayOp = "ACONTAINEDBY"
	ArrayOverlaps    ArrayOp = "AOVERLAPS"
)

// ArrayPredicate представляет сравнение двух массивов как множеств
type ArrayPredicate struct {
	LHS any
	RHS any
	Op  ArrayOp
}

func (a *ArrayPredicate) node()           {}
func (a *ArrayPredicate) Children() []any { return []any{a.LHS, a.RHS} }
func (a *ArrayPredicate) String() string {
	return fmt.Sprintf("%s(%s, %s)", a.Op, renderOperand(a.LHS), renderOperand(a.RHS))
}
