package ast

import "fmt"

// SpatialOp пространственный оператор сравнения геометрий
type SpatialOp string

const (
	SpatialIntersects SpatialOp = "INTERSECTS"
	SpatialDisjoint   SpatialOp = "DISJOINT"
	SpatialContains   SpatialOp = "CONTAINS"
	SpatialWithin     SpatialOp = "WITHIN"
	SpatialTouches    SpatialOp = "TOUCHES"
	SpatialCrosses    SpatialOp = "CROSSES"
	SpatialOverlaps   SpatialOp = "OVERLAPS"
	SpatialEquals     SpatialOp = "EQUALS"
)

// SpatialComparison представляет бинарный пространственный предикат
type SpatialComparison struct {
	LHS any
	RHS any
	Op  SpatialOp
}

func (s *SpatialComparison) node()           {}
func (s *SpatialComparison) Children() []any { return []any{s.LHS, s.RHS} }
func (s *SpatialComparison) String() string {
	return fmt.Sprintf("%s(%s, %s)", s.Op, renderOperand(s.LHS), renderOperand(s.RHS))
}

// Relate представляет пространственный предикат по шаблону DE-9IM
type Relate struct {
	LHS     any
	RHS     any
	Pattern string
}

func (r *Relate) node()           {}
func (r *Relate) Children() []any { return []any{r.LHS, r.RHS} }
func (r *Relate) String() string {
	return fmt.Sprintf("RELATE(%s, %s, '%s')", renderOperand(r.LHS), renderOperand(r.RHS), r.Pattern)
}

// DistanceOp оператор дистанционного предиката
type DistanceOp string

const (
	DistanceWithin DistanceOp = "DWITHIN"
	DistanceBeyond DistanceOp = "BEYOND"
)

// SpatialDistance представляет предикат по расстоянию до геометрии
type SpatialDistance struct {
	LHS      any
	RHS      any
	Distance float64
	Units    string
	Op       DistanceOp
}

func (s *SpatialDistance) node()           {}
func (s *SpatialDistance) Children() []any { return []any{s.LHS, s.RHS} }
func (s *SpatialDistance) String() string {
	return fmt.Sprintf("%s(%s, %s, %v, %s)",
		s.Op, renderOperand(s.LHS), renderOperand(s.RHS), s.Distance, s.Units)
}

// BBox представляет предикат пересечения с ограничивающим прямоугольником.
// Углы хранятся как заданы; упорядочивание min/max выполняется в точке
// геометрического использования.
type BBox struct {
	LHS  any
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
	CRS  string
}

func (b *BBox) node()           {}
func (b *BBox) Children() []any { return []any{b.LHS} }
func (b *BBox) String() string {
	if b.CRS != "" {
		return fmt.Sprintf("BBOX(%s, %v, %v, %v, %v, '%s')",
			renderOperand(b.LHS), b.MinX, b.MinY, b.MaxX, b.MaxY, b.CRS)
	}
	return fmt.Sprintf("BBOX(%s, %v, %v, %v, %v)",
		renderOperand(b.LHS), b.MinX, b.MinY, b.MaxX, b.MaxY)
}
