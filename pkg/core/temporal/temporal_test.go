package temporal

import (
	"errors"
	"testing"
	"time"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func interval(low, high int) *ast.Interval {
	return &ast.Interval{Start: day(low), End: day(high)}
}

func TestRelate(t *testing.T) {
	tests := []struct {
		name     string
		lhs, rhs any
		want     Relation
	}{
		{"before", interval(1, 2), interval(3, 4), Before},
		{"after", interval(3, 4), interval(1, 2), After},
		{"meets", interval(1, 2), interval(2, 4), Meets},
		{"metby", interval(2, 4), interval(1, 2), MetBy},
		{"overlaps", interval(1, 3), interval(2, 4), Overlaps},
		{"overlappedby", interval(2, 4), interval(1, 3), OverlappedBy},
		{"begins", interval(1, 2), interval(1, 4), Begins},
		{"begunby", interval(1, 4), interval(1, 2), BegunBy},
		{"during", interval(2, 4), interval(1, 5), During},
		{"tcontains", interval(1, 5), interval(2, 4), Contains},
		{"ends", interval(3, 4), interval(1, 4), Ends},
		{"endedby", interval(1, 4), interval(3, 4), EndedBy},
		{"tequals", interval(1, 4), interval(1, 4), Equals},
		{"instant inside interval", day(2), interval(1, 4), During},
		// вырожденные равные интервалы: lh == rl срабатывает раньше
		// проверки полного равенства границ
		{"equal instants", day(2), day(2), Meets},
		{"instant before instant", day(1), day(2), Before},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Relate(tt.lhs, tt.rhs)
			if err != nil {
				t.Fatalf("Relate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Relate = %s, want %s", got, tt.want)
			}
		})
	}
}

// инверсия операндов даёт симметричное отношение
func TestRelateSymmetry(t *testing.T) {
	symmetric := map[Relation]Relation{
		Before: After, After: Before,
		Meets: MetBy, MetBy: Meets,
		Overlaps: OverlappedBy, OverlappedBy: Overlaps,
		Begins: BegunBy, BegunBy: Begins,
		During: Contains, Contains: During,
		Ends: EndedBy, EndedBy: Ends,
		Equals: Equals,
	}

	pairs := [][2]*ast.Interval{
		{interval(1, 2), interval(3, 4)},
		{interval(1, 2), interval(2, 4)},
		{interval(1, 3), interval(2, 4)},
		{interval(1, 2), interval(1, 4)},
		{interval(2, 4), interval(1, 5)},
		{interval(3, 4), interval(1, 4)},
		{interval(1, 4), interval(1, 4)},
	}
	for _, p := range pairs {
		forward, err := Relate(p[0], p[1])
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		backward, err := Relate(p[1], p[0])
		if err != nil {
			t.Fatalf("backward: %v", err)
		}
		if symmetric[forward] != backward {
			t.Errorf("%v vs %v: %s reversed to %s, want %s", p[0], p[1], forward, backward, symmetric[forward])
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		op   ast.TemporalOp
		rel  Relation
		want bool
	}{
		{ast.TemporalBefore, Before, true},
		{ast.TemporalBefore, After, false},
		{ast.TemporalEquals, Equals, true},
		{ast.TemporalDisjoint, Before, true},
		{ast.TemporalDisjoint, After, true},
		{ast.TemporalDisjoint, Disjoint, true},
		{ast.TemporalDisjoint, Meets, false},
		{ast.TemporalBeforeOrDuring, Before, true},
		{ast.TemporalBeforeOrDuring, During, true},
		{ast.TemporalBeforeOrDuring, After, false},
		{ast.TemporalDuringOrAfter, During, true},
		{ast.TemporalDuringOrAfter, After, true},
		{ast.TemporalDuringOrAfter, Before, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.op, tt.rel); got != tt.want {
			t.Errorf("Matches(%s, %s) = %v, want %v", tt.op, tt.rel, got, tt.want)
		}
	}
}

func TestToInterval(t *testing.T) {
	t.Run("date normalizes to full day", func(t *testing.T) {
		got, err := ToInterval(ast.Date{Year: 2020, Month: time.March, Day: 15})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Low.Equal(time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)) ||
			!got.High.Equal(time.Date(2020, 3, 15, 23, 59, 59, 0, time.UTC)) {
			t.Errorf("ToInterval = %v", got)
		}
	})

	t.Run("duration start resolves against end", func(t *testing.T) {
		dur, err := ParseDuration("P2D")
		if err != nil {
			t.Fatal(err)
		}
		got, err := ToInterval(&ast.Interval{Start: dur, End: day(5)})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Low.Equal(day(3)) || !got.High.Equal(day(5)) {
			t.Errorf("ToInterval = %v, want (day 3, day 5)", got)
		}
	})

	t.Run("duration end resolves against start", func(t *testing.T) {
		dur, err := ParseDuration("PT12H")
		if err != nil {
			t.Fatal(err)
		}
		got, err := ToInterval(&ast.Interval{Start: day(1), End: dur})
		if err != nil {
			t.Fatal(err)
		}
		if !got.High.Equal(day(1).Add(12 * time.Hour)) {
			t.Errorf("ToInterval = %v", got)
		}
	})

	t.Run("open bound marks interval open", func(t *testing.T) {
		got, err := ToInterval(&ast.Interval{Start: nil, End: day(5)})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Open {
			t.Errorf("ToInterval = %v, want open", got)
		}
	})

	t.Run("two duration bounds rejected", func(t *testing.T) {
		dur, _ := ParseDuration("P1D")
		if _, err := ToInterval(&ast.Interval{Start: dur, End: dur}); err == nil {
			t.Error("expected error for two duration bounds")
		}
	})

	t.Run("non-temporal operand rejected", func(t *testing.T) {
		if _, err := ToInterval(int64(42)); err == nil {
			t.Error("expected error for non-temporal value")
		}
	})
}

func TestOpenIntervalIsDisjoint(t *testing.T) {
	got, err := Relate(&ast.Interval{Start: nil, End: day(5)}, interval(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if got != Disjoint {
		t.Errorf("Relate = %s, want DISJOINT", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		iso  string
		want time.Duration
	}{
		{"P1D", 24 * time.Hour},
		{"PT1H30M", 90 * time.Minute},
		{"P1M", 30 * 24 * time.Hour},
		{"P1Y", 365 * 24 * time.Hour},
		{"P1W", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.iso)
		if err != nil {
			t.Errorf("%s: %v", tt.iso, err)
			continue
		}
		if got.Value != tt.want {
			t.Errorf("%s: Value = %v, want %v", tt.iso, got.Value, tt.want)
		}
		if got.ISO != tt.iso {
			t.Errorf("%s: ISO = %q", tt.iso, got.ISO)
		}
	}

	if _, err := ParseDuration("not-a-duration"); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseInstant(t *testing.T) {
	got, err := ParseInstant("2020-01-01T12:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseInstant = %v", got)
	}

	got, err = ParseInstant("2020-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(day(1)) {
		t.Errorf("ParseInstant = %v", got)
	}

	_, err = ParseInstant("tomorrow")
	if err == nil {
		t.Error("expected parse error")
	}
	var exhaustive *ExhaustivenessError
	if errors.As(err, &exhaustive) {
		t.Error("parse failure must not be an exhaustiveness error")
	}
}
