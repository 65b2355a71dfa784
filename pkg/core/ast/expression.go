package ast

import (
	"fmt"
	"strings"
)

// Attribute представляет ссылку на поле фильтруемого объекта.
// Единственный узел, рендерящийся inline при отладочной печати.
type Attribute struct {
	Name string
}

func (a *Attribute) node()           {}
func (a *Attribute) Children() []any { return nil }
func (a *Attribute) String() string  { return "ATTRIBUTE " + a.Name }

// ArithmeticOp арифметический оператор
type ArithmeticOp string

const (
	ArithmeticAdd ArithmeticOp = "+"
	ArithmeticSub ArithmeticOp = "-"
	ArithmeticMul ArithmeticOp = "*"
	ArithmeticDiv ArithmeticOp = "/"
)

// Arithmetic представляет арифметическое выражение над двумя операндами
type Arithmetic struct {
	LHS any
	RHS any
	Op  ArithmeticOp
}

func (a *Arithmetic) node()           {}
func (a *Arithmetic) Children() []any { return []any{a.LHS, a.RHS} }
func (a *Arithmetic) String() string {
	return fmt.Sprintf("%s %s %s", renderOperand(a.LHS), a.Op, renderOperand(a.RHS))
}

// Function представляет вызов функции с произвольными аргументами
type Function struct {
	Name      string
	Arguments []any
}

func (f *Function) node()           {}
func (f *Function) Children() []any { return f.Arguments }
func (f *Function) String() string {
	args := make([]string, len(f.Arguments))
	for i, a := range f.Arguments {
		args[i] = renderOperand(a)
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}
