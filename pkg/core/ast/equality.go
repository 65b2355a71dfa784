package ast

import (
	"reflect"

	"github.com/paulmach/orb"
)

// Equals структурное равенство двух значений AST. Значения равны, если
// совпадает конкретный тип и равны все поля; геометрические значения
// сравниваются по каноническому разложению, а не по идентичности.
func Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ga, aok := a.(GeoValue)
	gb, bok := b.(GeoValue)
	if aok || bok {
		if !aok || !bok {
			return false
		}
		return geometryEqual(ga.GeoInterface(), gb.GeoInterface())
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	na, aok := a.(Node)
	nb, bok := b.(Node)
	if aok && bok {
		ca, cb := na.Children(), nb.Children()
		if len(ca) != len(cb) {
			return false
		}
		for i := range ca {
			if !Equals(ca[i], cb[i]) {
				return false
			}
		}
		return shallowFieldsEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

func geometryEqual(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return orb.Equal(a, b)
}

// shallowFieldsEqual сравнивает скалярные поля узлов одного типа,
// пропуская операнды (их уже сравнил обход Children)
func shallowFieldsEqual(a, b any) bool {
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Kind() == reflect.Pointer {
		va = va.Elem()
		vb = vb.Elem()
	}
	if va.Kind() != reflect.Struct {
		return reflect.DeepEqual(a, b)
	}
	for i := 0; i < va.NumField(); i++ {
		f := va.Type().Field(i)
		switch f.Type.Kind() {
		case reflect.Interface, reflect.Slice:
			continue
		}
		if !va.Field(i).Equal(vb.Field(i)) {
			return false
		}
	}
	return true
}
