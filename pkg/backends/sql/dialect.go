// Package sql рендерит дерево фильтра в SQL-условие WHERE.
// Различия диалектов (квотирование, имена пространственных функций,
// литералы геометрий и дат) вынесены в интерфейс Dialect.
package sql

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/ruslano69/geofilter/pkg/core/ast"
)

// Dialect параметры конкретной СУБД
type Dialect interface {
	// Name имя диалекта
	Name() string
	// QuoteName квотирует идентификатор
	QuoteName(name string) string
	// GeometryLiteral рендерит литерал геометрии
	GeometryLiteral(g orb.Geometry, srid int) string
	// TimestampLiteral рендерит литерал момента времени
	TimestampLiteral(t time.Time) string
	// SpatialPredicate рендерит пространственный предикат над парой операндов
	SpatialPredicate(op ast.SpatialOp, lhs, rhs string) (string, error)
	// RelatePredicate рендерит проверку по матрице DE-9IM
	RelatePredicate(lhs, rhs, pattern string) string
	// DistancePredicate рендерит предикат расстояния
	DistancePredicate(op ast.DistanceOp, lhs, rhs, distance string) (string, error)
	// SupportsILike поддерживается ли ILIKE
	SupportsILike() bool
	// EscapeLiteral строковый литерал обратной косой для клаузы ESCAPE
	EscapeLiteral() string
	// BoolLiteral рендерит булев литерал
	BoolLiteral(v bool) string
}

// quoteString строковый литерал SQL с удвоением кавычек
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var spatialFunctions = map[ast.SpatialOp]string{
	ast.SpatialIntersects: "ST_Intersects",
	ast.SpatialDisjoint:   "ST_Disjoint",
	ast.SpatialContains:   "ST_Contains",
	ast.SpatialWithin:     "ST_Within",
	ast.SpatialTouches:    "ST_Touches",
	ast.SpatialCrosses:    "ST_Crosses",
	ast.SpatialOverlaps:   "ST_Overlaps",
	ast.SpatialEquals:     "ST_Equals",
}

// Postgres диалект PostgreSQL с PostGIS
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Postgres) GeometryLiteral(g orb.Geometry, srid int) string {
	text := quoteString(wkt.MarshalString(g))
	if srid != 0 {
		return fmt.Sprintf("ST_GeomFromText(%s, %d)", text, srid)
	}
	return fmt.Sprintf("ST_GeomFromText(%s)", text)
}

func (Postgres) TimestampLiteral(t time.Time) string {
	return "timestamp " + quoteString(t.UTC().Format("2006-01-02 15:04:05"))
}

func (Postgres) SpatialPredicate(op ast.SpatialOp, lhs, rhs string) (string, error) {
	fn, ok := spatialFunctions[op]
	if !ok {
		return "", fmt.Errorf("sql: unsupported spatial operator %s", op)
	}
	return fmt.Sprintf("%s(%s, %s)", fn, lhs, rhs), nil
}

func (Postgres) RelatePredicate(lhs, rhs, pattern string) string {
	return fmt.Sprintf("ST_Relate(%s, %s, %s)", lhs, rhs, quoteString(pattern))
}

func (Postgres) DistancePredicate(op ast.DistanceOp, lhs, rhs, distance string) (string, error) {
	if op == ast.DistanceBeyond {
		return fmt.Sprintf("NOT ST_DWithin(%s, %s, %s)", lhs, rhs, distance), nil
	}
	return fmt.Sprintf("ST_DWithin(%s, %s, %s)", lhs, rhs, distance), nil
}

func (Postgres) SupportsILike() bool { return true }

func (Postgres) EscapeLiteral() string { return `'\'` }

func (Postgres) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// SQLite диалект SQLite со SpatiaLite
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) GeometryLiteral(g orb.Geometry, srid int) string {
	text := quoteString(wkt.MarshalString(g))
	if srid != 0 {
		return fmt.Sprintf("GeomFromText(%s, %d)", text, srid)
	}
	return fmt.Sprintf("GeomFromText(%s)", text)
}

func (SQLite) TimestampLiteral(t time.Time) string {
	return quoteString(t.UTC().Format("2006-01-02 15:04:05"))
}

func (SQLite) SpatialPredicate(op ast.SpatialOp, lhs, rhs string) (string, error) {
	fn, ok := spatialFunctions[op]
	if !ok {
		return "", fmt.Errorf("sql: unsupported spatial operator %s", op)
	}
	// SpatiaLite использует имена без префикса ST_
	return fmt.Sprintf("%s(%s, %s)", strings.TrimPrefix(fn, "ST_"), lhs, rhs), nil
}

func (SQLite) RelatePredicate(lhs, rhs, pattern string) string {
	return fmt.Sprintf("Relate(%s, %s, %s)", lhs, rhs, quoteString(pattern))
}

func (SQLite) DistancePredicate(op ast.DistanceOp, lhs, rhs, distance string) (string, error) {
	if op == ast.DistanceBeyond {
		return fmt.Sprintf("NOT PtDistWithin(%s, %s, %s)", lhs, rhs, distance), nil
	}
	return fmt.Sprintf("PtDistWithin(%s, %s, %s)", lhs, rhs, distance), nil
}

func (SQLite) SupportsILike() bool { return false }

func (SQLite) EscapeLiteral() string { return `'\'` }

func (SQLite) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// MySQL диалект MySQL
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) GeometryLiteral(g orb.Geometry, srid int) string {
	text := quoteString(wkt.MarshalString(g))
	if srid != 0 {
		return fmt.Sprintf("ST_GeomFromText(%s, %d)", text, srid)
	}
	return fmt.Sprintf("ST_GeomFromText(%s)", text)
}

func (MySQL) TimestampLiteral(t time.Time) string {
	return quoteString(t.UTC().Format("2006-01-02 15:04:05"))
}

func (MySQL) SpatialPredicate(op ast.SpatialOp, lhs, rhs string) (string, error) {
	fn, ok := spatialFunctions[op]
	if !ok {
		return "", fmt.Errorf("sql: unsupported spatial operator %s", op)
	}
	return fmt.Sprintf("%s(%s, %s)", fn, lhs, rhs), nil
}

func (MySQL) RelatePredicate(lhs, rhs, pattern string) string {
	return fmt.Sprintf("ST_Relate(%s, %s, %s)", lhs, rhs, quoteString(pattern))
}

func (MySQL) DistancePredicate(op ast.DistanceOp, lhs, rhs, distance string) (string, error) {
	cmp := "<="
	if op == ast.DistanceBeyond {
		cmp = ">"
	}
	return fmt.Sprintf("ST_Distance(%s, %s) %s %s", lhs, rhs, cmp, distance), nil
}

func (MySQL) SupportsILike() bool { return false }

// в литералах MySQL обратная косая сама является экранирующим символом
func (MySQL) EscapeLiteral() string { return `'\\'` }

func (MySQL) BoolLiteral(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// MSSQL диалект Microsoft SQL Server
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) QuoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (MSSQL) GeometryLiteral(g orb.Geometry, srid int) string {
	if srid == 0 {
		srid = 4326
	}
	return fmt.Sprintf("geometry::STGeomFromText(%s, %d)", quoteString(wkt.MarshalString(g)), srid)
}

func (MSSQL) TimestampLiteral(t time.Time) string {
	return quoteString(t.UTC().Format("2006-01-02T15:04:05"))
}

// SQL Server рендерит пространственные предикаты вызовами методов
var mssqlSpatialMethods = map[ast.SpatialOp]string{
	ast.SpatialIntersects: "STIntersects",
	ast.SpatialDisjoint:   "STDisjoint",
	ast.SpatialContains:   "STContains",
	ast.SpatialWithin:     "STWithin",
	ast.SpatialTouches:    "STTouches",
	ast.SpatialCrosses:    "STCrosses",
	ast.SpatialOverlaps:   "STOverlaps",
	ast.SpatialEquals:     "STEquals",
}

func (MSSQL) SpatialPredicate(op ast.SpatialOp, lhs, rhs string) (string, error) {
	fn, ok := mssqlSpatialMethods[op]
	if !ok {
		return "", fmt.Errorf("sql: unsupported spatial operator %s", op)
	}
	return fmt.Sprintf("%s.%s(%s) = 1", lhs, fn, rhs), nil
}

func (MSSQL) RelatePredicate(lhs, rhs, pattern string) string {
	return fmt.Sprintf("%s.STRelate(%s, %s) = 1", lhs, rhs, quoteString(pattern))
}

func (MSSQL) DistancePredicate(op ast.DistanceOp, lhs, rhs, distance string) (string, error) {
	cmp := "<="
	if op == ast.DistanceBeyond {
		cmp = ">"
	}
	return fmt.Sprintf("%s.STDistance(%s) %s %s", lhs, rhs, cmp, distance), nil
}

func (MSSQL) SupportsILike() bool { return false }

func (MSSQL) EscapeLiteral() string { return `'\'` }

func (MSSQL) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// DialectByName возвращает диалект по имени
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "spatialite":
		return SQLite{}, nil
	case "mysql":
		return MySQL{}, nil
	case "mssql", "sqlserver":
		return MSSQL{}, nil
	}
	return nil, fmt.Errorf("sql: unknown dialect %q", name)
}
