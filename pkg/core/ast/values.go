package ast

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeoValue интерфейс геометрических значений: любое значение,
// раскладывающееся до канонической геометрии orb
type GeoValue interface {
	GeoInterface() orb.Geometry
}

// Geometry геометрический литерал: каноническая геометрия orb
// плюс необязательный SRID
type Geometry struct {
	Geometry orb.Geometry
	SRID     int
}

// GeoInterface возвращает каноническое геометрическое представление
func (g *Geometry) GeoInterface() orb.Geometry { return g.Geometry }

func (g *Geometry) String() string {
	if g.Geometry == nil {
		return "GEOMETRY EMPTY"
	}
	return wkt.MarshalString(g.Geometry)
}

// Envelope ограничивающий прямоугольник в порядке следования CQL:
// X1, X2, Y1, Y2. Углы хранятся как заданы; упорядочивание выполняет Bound().
type Envelope struct {
	X1 float64
	X2 float64
	Y1 float64
	Y2 float64
}

// Bound возвращает нормализованный orb.Bound с упорядоченными углами
func (e *Envelope) Bound() orb.Bound {
	minX, maxX := e.X1, e.X2
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := e.Y1, e.Y2
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

// GeoInterface возвращает полигон нормализованного прямоугольника
func (e *Envelope) GeoInterface() orb.Geometry { return e.Bound().ToPolygon() }

func (e *Envelope) String() string {
	return fmt.Sprintf("ENVELOPE (%v %v %v %v)", e.X1, e.X2, e.Y1, e.Y2)
}

// Date значение только-дата без времени суток
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf усекает момент времени до даты
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Start возвращает начало суток в UTC
func (d Date) Start() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// End возвращает последнюю секунду суток в UTC
func (d Date) End() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Duration длительность ISO-8601. ISO хранит исходную запись,
// Value — вычисленную длительность (месяц = 30 суток, год = 365 суток).
type Duration struct {
	ISO   string
	Value time.Duration
}

func (d Duration) String() string { return d.ISO }

// Interval временной интервал. Каждая из границ независимо может быть
// time.Time, Date, Duration или nil (открытая граница).
type Interval struct {
	Start any
	End   any
}

func (i *Interval) node()           {}
func (i *Interval) Children() []any { return []any{i.Start, i.End} }
func (i *Interval) String() string {
	return fmt.Sprintf("%s / %s", formatValue(i.Start), formatValue(i.End))
}

// formatValue отладочное представление литерального значения
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ".."
	case string:
		return "'" + t + "'"
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case Date:
		return t.String()
	case Duration:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%v", t)
	}
}
