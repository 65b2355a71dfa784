// Package temporal реализует классификацию двух временных интервалов
// по алгебре Аллена: 13 взаимоисключающих атомарных отношений плюс
// DISJOINT для интервалов с открытой границей.
package temporal

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

// Relation результат классификации пары интервалов
type Relation string

const (
	Before       Relation = "BEFORE"
	After        Relation = "AFTER"
	Meets        Relation = "MEETS"
	MetBy        Relation = "METBY"
	Overlaps     Relation = "TOVERLAPS"
	OverlappedBy Relation = "OVERLAPPEDBY"
	Begins       Relation = "BEGINS"
	BegunBy      Relation = "BEGUNBY"
	During       Relation = "DURING"
	Contains     Relation = "TCONTAINS"
	Ends         Relation = "ENDS"
	EndedBy      Relation = "ENDEDBY"
	Equals       Relation = "TEQUALS"
	Disjoint     Relation = "DISJOINT"
)

// ExhaustivenessError ни одно из 13 условий классификации не сработало.
// Возможен только при нарушении полного порядка на границах.
type ExhaustivenessError struct {
	LHS Interval
	RHS Interval
}

func (e *ExhaustivenessError) Error() string {
	return fmt.Sprintf("temporal: no relation classifies intervals %v and %v", e.LHS, e.RHS)
}

// Interval закрытый интервал. Open=true означает открытую границу
// с любой из сторон: такой интервал не классифицируется.
type Interval struct {
	Low  time.Time
	High time.Time
	Open bool
}

func (i Interval) String() string {
	if i.Open {
		return "(open)"
	}
	return fmt.Sprintf("(%s, %s)", i.Low.Format(time.RFC3339), i.High.Format(time.RFC3339))
}

// Relate классифицирует пару значений. Значения нормализуются через
// ToInterval; интервал с открытой границей даёт DISJOINT.
//
// Порядок проверок значим: равенства границ проверяются раньше строгих
// включений, поэтому список ниже не подлежит переупорядочиванию.
func Relate(lhs, rhs any) (Relation, error) {
	l, err := ToInterval(lhs)
	if err != nil {
		return "", err
	}
	r, err := ToInterval(rhs)
	if err != nil {
		return "", err
	}
	if l.Open || r.Open {
		return Disjoint, nil
	}

	ll, lh := l.Low, l.High
	rl, rh := r.Low, r.High
	switch {
	case lh.Before(rl):
		return Before, nil
	case ll.After(rh):
		return After, nil
	case lh.Equal(rl):
		return Meets, nil
	case ll.Equal(rh):
		return MetBy, nil
	case ll.Before(rl) && rl.Before(lh) && lh.Before(rh):
		return Overlaps, nil
	case rl.Before(ll) && ll.Before(rh) && lh.After(rh):
		return OverlappedBy, nil
	case ll.Equal(rl) && lh.Before(rh):
		return Begins, nil
	case ll.Equal(rl) && lh.After(rh):
		return BegunBy, nil
	case ll.After(rl) && lh.Before(rh):
		return During, nil
	case ll.Before(rl) && lh.After(rh):
		return Contains, nil
	case ll.After(rl) && lh.Equal(rh):
		return Ends, nil
	case ll.Before(rl) && lh.Equal(rh):
		return EndedBy, nil
	case ll.Equal(rl) && lh.Equal(rh):
		return Equals, nil
	}
	return "", &ExhaustivenessError{LHS: l, RHS: r}
}

// Matches проверяет, удовлетворяет ли вычисленное отношение темпоральному
// оператору. Атомарные операторы сравниваются напрямую; составные операторы
// и DISJOINT трактуются как объединения атомарных отношений.
func Matches(op ast.TemporalOp, rel Relation) bool {
	switch op {
	case ast.TemporalDisjoint:
		return rel == Before || rel == After || rel == Disjoint
	case ast.TemporalBeforeOrDuring:
		return rel == Before || rel == During
	case ast.TemporalDuringOrAfter:
		return rel == During || rel == After
	default:
		return string(op) == string(rel)
	}
}

// ToInterval нормализует значение до закрытого интервала:
//   - момент времени — вырожденный интервал (t, t);
//   - дата — сутки (00:00:00, 23:59:59) в UTC;
//   - граница-длительность разрешается относительно противоположной
//     конкретной границы: начало вычитанием из конца, конец прибавлением
//     к началу;
//   - отсутствующая граница помечает интервал открытым.
func ToInterval(value any) (Interval, error) {
	switch v := value.(type) {
	case time.Time:
		return Interval{Low: v, High: v}, nil
	case ast.Date:
		return Interval{Low: v.Start(), High: v.End()}, nil
	case *ast.Interval:
		return boundsToInterval(v.Start, v.End)
	case ast.Interval:
		return boundsToInterval(v.Start, v.End)
	case Interval:
		return v, nil
	default:
		return Interval{}, fmt.Errorf("temporal: value %v (%T) is not a temporal operand", value, value)
	}
}

func boundsToInterval(start, end any) (Interval, error) {
	low, lowDur, err := resolveBound(start)
	if err != nil {
		return Interval{}, err
	}
	high, highDur, err := resolveBound(end)
	if err != nil {
		return Interval{}, err
	}
	// дата в позиции конца интервала покрывает сутки целиком
	if d, ok := end.(ast.Date); ok {
		t := d.End()
		high = &t
	}

	switch {
	case lowDur != nil && highDur != nil:
		return Interval{}, fmt.Errorf("temporal: interval with two duration bounds cannot be resolved")
	case lowDur != nil:
		if high == nil {
			return Interval{Open: true}, nil
		}
		t := high.Add(-lowDur.Value)
		low = &t
	case highDur != nil:
		if low == nil {
			return Interval{Open: true}, nil
		}
		t := low.Add(highDur.Value)
		high = &t
	}

	if low == nil || high == nil {
		return Interval{Open: true}, nil
	}
	return Interval{Low: *low, High: *high}, nil
}

// resolveBound возвращает либо конкретный момент, либо длительность,
// либо (nil, nil) для открытой границы
func resolveBound(bound any) (*time.Time, *ast.Duration, error) {
	switch v := bound.(type) {
	case nil:
		return nil, nil, nil
	case time.Time:
		return &v, nil, nil
	case ast.Date:
		t := v.Start()
		return &t, nil, nil
	case ast.Duration:
		return nil, &v, nil
	case string:
		if v == "" || v == ".." {
			return nil, nil, nil
		}
		t, err := ParseInstant(v)
		if err != nil {
			return nil, nil, err
		}
		return &t, nil, nil
	default:
		return nil, nil, fmt.Errorf("temporal: unsupported interval bound %v (%T)", bound, bound)
	}
}

// ParseDuration разбирает длительность ISO-8601. Календарные компоненты
// сводятся к фиксированным величинам: месяц — 30 суток, год — 365 суток.
func ParseDuration(iso string) (ast.Duration, error) {
	d, err := duration.Parse(iso)
	if err != nil {
		return ast.Duration{}, fmt.Errorf("temporal: parse duration %q: %w", iso, err)
	}
	const day = 24 * time.Hour
	total := time.Duration(d.Years*365*float64(day)) +
		time.Duration(d.Months*30*float64(day)) +
		time.Duration(d.Weeks*7*float64(day)) +
		time.Duration(d.Days*float64(day)) +
		time.Duration(d.Hours*float64(time.Hour)) +
		time.Duration(d.Minutes*float64(time.Minute)) +
		time.Duration(d.Seconds*float64(time.Second))
	if d.Negative {
		total = -total
	}
	return ast.Duration{ISO: iso, Value: total}, nil
}

// ParseInstant разбирает момент времени: RFC3339 либо дата без времени суток
func ParseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("temporal: parse instant %q: not RFC3339 or a date", s)
}
