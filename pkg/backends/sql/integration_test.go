package sql

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/geofilter/pkg/frontends/cql"
)

// sqliteQueries фильтры и ожидаемые id строк тестовой таблицы
var sqliteQueries = []struct {
	filter string
	want   []int64
}{
	{`number < 2`, []int64{1}},
	{`number BETWEEN 2 AND 3`, []int64{2, 3}},
	{`name LIKE 'r.cord %'`, []int64{1, 2, 3}},
	{`name ILIKE 'RECORD B'`, []int64{2}},
	{`name IN ('record a', 'record c')`, []int64{1, 3}},
	{`comment IS NULL`, []int64{3}},
	{`number < 2 OR name = 'record c'`, []int64{1, 3}},
	{`NOT (number < 3)`, []int64{3}},
	{`created BEFORE 2020-06-01T00:00:00Z`, []int64{1}},
	{`created DURING 2020-05-01T00:00:00Z / 2020-07-01T00:00:00Z`, []int64{2}},
	{`number + 1 = 3`, []int64{2}},
}

func TestSQLiteIntegration(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	ddl := `
		CREATE TABLE records (id INTEGER PRIMARY KEY, name TEXT, number INTEGER, created TEXT, comment TEXT);
		INSERT INTO records VALUES
			(1, 'record a', 1, '2020-01-01 00:00:00', 'first'),
			(2, 'record b', 2, '2020-06-15 00:00:00', 'second'),
			(3, 'record c', 3, '2020-12-01 00:00:00', NULL);`
	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("create table: %v", err)
	}

	for _, q := range sqliteQueries {
		t.Run(q.filter, func(t *testing.T) {
			root, err := cql.Parse(q.filter)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			where, err := ToWhere(root, SQLite{}, Options{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			rows, err := db.Query("SELECT id FROM records WHERE " + where + " ORDER BY id")
			if err != nil {
				t.Fatalf("query %q: %v", where, err)
			}
			defer rows.Close()

			var got []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					t.Fatalf("scan: %v", err)
				}
				got = append(got, id)
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows: %v", err)
			}
			if !equalIDs(got, q.want) {
				t.Errorf("WHERE %s: got %v, want %v", where, got, q.want)
			}
		})
	}
}

// TestPostgresIntegration гоняет те же фильтры против живого PostgreSQL.
// Пропускается без переменной окружения GEOFILTER_POSTGRES_DSN.
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("GEOFILTER_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GEOFILTER_POSTGRES_DSN is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("connect postgres: %v", err)
	}
	defer conn.Close(ctx)

	ddl := `
		CREATE TEMPORARY TABLE records (id BIGINT PRIMARY KEY, name TEXT, number BIGINT, created TIMESTAMP, comment TEXT);
		INSERT INTO records VALUES
			(1, 'record a', 1, '2020-01-01 00:00:00', 'first'),
			(2, 'record b', 2, '2020-06-15 00:00:00', 'second'),
			(3, 'record c', 3, '2020-12-01 00:00:00', NULL);`
	if _, err := conn.Exec(ctx, ddl); err != nil {
		t.Fatalf("create table: %v", err)
	}

	for _, q := range sqliteQueries {
		t.Run(q.filter, func(t *testing.T) {
			root, err := cql.Parse(q.filter)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			where, err := ToWhere(root, Postgres{}, Options{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			rows, err := conn.Query(ctx, "SELECT id FROM records WHERE "+where+" ORDER BY id")
			if err != nil {
				t.Fatalf("query %q: %v", where, err)
			}
			defer rows.Close()

			var got []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					t.Fatalf("scan: %v", err)
				}
				got = append(got, id)
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows: %v", err)
			}
			if !equalIDs(got, q.want) {
				t.Errorf("WHERE %s: got %v, want %v", where, got, q.want)
			}
		})
	}
}

// TestMySQLIntegration гоняет те же фильтры против живого MySQL.
// Пропускается без переменной окружения GEOFILTER_MYSQL_DSN.
func TestMySQLIntegration(t *testing.T) {
	dsn := os.Getenv("GEOFILTER_MYSQL_DSN")
	if dsn == "" {
		t.Skip("GEOFILTER_MYSQL_DSN is not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("open mysql: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("ping mysql: %v", err)
	}

	if _, err := db.Exec(`CREATE TEMPORARY TABLE records (id BIGINT PRIMARY KEY, name TEXT, number BIGINT, created DATETIME, comment TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO records VALUES
		(1, 'record a', 1, '2020-01-01 00:00:00', 'first'),
		(2, 'record b', 2, '2020-06-15 00:00:00', 'second'),
		(3, 'record c', 3, '2020-12-01 00:00:00', NULL)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	for _, q := range sqliteQueries {
		t.Run(q.filter, func(t *testing.T) {
			root, err := cql.Parse(q.filter)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			where, err := ToWhere(root, MySQL{}, Options{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			rows, err := db.Query("SELECT id FROM records WHERE " + where + " ORDER BY id")
			if err != nil {
				t.Fatalf("query %q: %v", where, err)
			}
			defer rows.Close()

			var got []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					t.Fatalf("scan: %v", err)
				}
				got = append(got, id)
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows: %v", err)
			}
			if !equalIDs(got, q.want) {
				t.Errorf("WHERE %s: got %v, want %v", where, got, q.want)
			}
		})
	}
}

// TestMSSQLIntegration гоняет те же фильтры против живого SQL Server.
// Пропускается без переменной окружения GEOFILTER_MSSQL_DSN.
func TestMSSQLIntegration(t *testing.T) {
	dsn := os.Getenv("GEOFILTER_MSSQL_DSN")
	if dsn == "" {
		t.Skip("GEOFILTER_MSSQL_DSN is not set")
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		t.Skipf("open mssql: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("ping mssql: %v", err)
	}

	if _, err := db.Exec(`CREATE TABLE #records (id BIGINT PRIMARY KEY, name NVARCHAR(100), number BIGINT, created DATETIME2, comment NVARCHAR(100))`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO #records VALUES
		(1, 'record a', 1, '2020-01-01T00:00:00', 'first'),
		(2, 'record b', 2, '2020-06-15T00:00:00', 'second'),
		(3, 'record c', 3, '2020-12-01T00:00:00', NULL)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	for _, q := range sqliteQueries {
		t.Run(q.filter, func(t *testing.T) {
			root, err := cql.Parse(q.filter)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			where, err := ToWhere(root, MSSQL{}, Options{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			rows, err := db.Query("SELECT id FROM #records WHERE " + where + " ORDER BY id")
			if err != nil {
				t.Fatalf("query %q: %v", where, err)
			}
			defer rows.Close()

			var got []int64
			for rows.Next() {
				var id int64
				if err := rows.Scan(&id); err != nil {
					t.Fatalf("scan: %v", err)
				}
				got = append(got, id)
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows: %v", err)
			}
			if !equalIDs(got, q.want) {
				t.Errorf("WHERE %s: got %v, want %v", where, got, q.want)
			}
		})
	}
}

func equalIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
