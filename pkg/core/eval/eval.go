// Package eval реализует постфиксный диспетчер по дереву фильтра.
// Обработчики регистрируются по конкретным типам узлов; поиск обработчика
// выполняется за O(1) по точному типу, без перебора иерархий.
package eval

import (
	"fmt"
	"reflect"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

// HandlerFunc обработчик одного узла. node — исходный узел,
// children — уже вычисленные результаты его операндов в текстовом порядке.
type HandlerFunc func(node any, children ...any) (any, error)

// AdoptFunc запасной обработчик для значений без зарегистрированного типа
type AdoptFunc func(node any, children ...any) (any, error)

// UnhandledNodeError значение, для типа которого не нашлось ни
// обработчика, ни запасного Adopt
type UnhandledNodeError struct {
	Type reflect.Type
}

func (e *UnhandledNodeError) Error() string {
	return fmt.Sprintf("eval: no handler for node type %s", e.Type)
}

// DepthError превышена максимальная глубина дерева
type DepthError struct {
	MaxDepth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("eval: tree depth exceeds limit %d", e.MaxDepth)
}

// Evaluator диспетчер обработчиков по типам узлов. Таблица собирается
// один раз вызовами Handle/HandleFamily и далее только читается.
type Evaluator struct {
	handlers map[reflect.Type]HandlerFunc

	// Adopt вызывается для значений без обработчика; nil означает отказ
	Adopt AdoptFunc

	// MaxDepth ограничивает глубину рекурсии; 0 — без ограничения
	MaxDepth int
}

// New создаёт пустой диспетчер
func New() *Evaluator {
	return &Evaluator{handlers: make(map[reflect.Type]HandlerFunc)}
}

// Handle регистрирует fn для конкретных типов переданных прототипов.
// Повторная регистрация типа замещает предыдущий обработчик.
func (e *Evaluator) Handle(fn HandlerFunc, prototypes ...any) {
	for _, p := range prototypes {
		e.handlers[reflect.TypeOf(p)] = fn
	}
}

// HandleFamily регистрирует fn для всех членов перечисленных семейств.
// Разворачивание выполняется здесь, при сборке; диспетчеризация остаётся
// точной по типу.
func (e *Evaluator) HandleFamily(fn HandlerFunc, families ...ast.Family) {
	for _, f := range families {
		e.Handle(fn, f.Members()...)
	}
}

// Evaluate выполняет постфиксный обход: сначала вычисляются операнды,
// затем их результаты передаются обработчику узла
func (e *Evaluator) Evaluate(node any) (any, error) {
	return e.evaluate(node, 0)
}

func (e *Evaluator) evaluate(node any, depth int) (any, error) {
	if e.MaxDepth > 0 && depth > e.MaxDepth {
		return nil, &DepthError{MaxDepth: e.MaxDepth}
	}
	// nil-операнд (открытая граница интервала) проходит как есть
	if node == nil {
		return nil, nil
	}

	var children []any
	if n, ok := node.(ast.Node); ok {
		sub := n.Children()
		children = make([]any, len(sub))
		for i, c := range sub {
			res, err := e.evaluate(c, depth+1)
			if err != nil {
				return nil, err
			}
			children[i] = res
		}
	}

	fn, ok := e.handlers[reflect.TypeOf(node)]
	if !ok {
		if e.Adopt != nil {
			return e.Adopt(node, children...)
		}
		return nil, &UnhandledNodeError{Type: reflect.TypeOf(node)}
	}
	return fn(node, children...)
}
