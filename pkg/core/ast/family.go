package ast

import "time"

// Family именованная группа конкретных типов узлов. Набор типов закрыт,
// поэтому семейства заданы перечислением прототипов и разворачиваются
// в точечные регистрации при сборке диспетчера.
type Family int

const (
	// FamilyCondition все условия-предикаты, включая логические связки
	FamilyCondition Family = iota
	// FamilyPredicate предикаты без логических связок
	FamilyPredicate
	// FamilySpatial пространственные предикаты
	FamilySpatial
	// FamilyTemporal темпоральные предикаты
	FamilyTemporal
	// FamilyExpression выражения-операнды: атрибуты, арифметика, функции
	FamilyExpression
	// FamilyGeometry геометрические литералы
	FamilyGeometry
	// FamilyLiteral скалярные и временные литералы
	FamilyLiteral
)

// Members возвращает по одному прототипу каждого конкретного типа семейства
func (f Family) Members() []any {
	switch f {
	case FamilyCondition:
		return append([]any{
			&Not{}, &Combination{}, &Include{},
		}, FamilyPredicate.Members()...)
	case FamilyPredicate:
		return append(append([]any{
			&Comparison{}, &Between{}, &Like{}, &In{}, &IsNull{}, &Exists{},
			&ArrayPredicate{},
		}, FamilySpatial.Members()...), FamilyTemporal.Members()...)
	case FamilySpatial:
		return []any{&SpatialComparison{}, &Relate{}, &SpatialDistance{}, &BBox{}}
	case FamilyTemporal:
		return []any{&Temporal{}}
	case FamilyExpression:
		return []any{&Attribute{}, &Arithmetic{}, &Function{}}
	case FamilyGeometry:
		return []any{&Geometry{}, &Envelope{}}
	case FamilyLiteral:
		return []any{
			"", int(0), int64(0), float64(0), false, []any{},
			time.Time{}, Date{}, Duration{}, &Interval{},
		}
	default:
		return nil
	}
}
