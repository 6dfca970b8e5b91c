package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brensch/broadside/api"
)

// SQLiteSource reads the game_results table the game server writes.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the server database read-only.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Stats(ctx context.Context) (*api.StatsResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_mode, winner, duration
		FROM game_results
		ORDER BY timestamp, id`)
	if err != nil {
		return nil, fmt.Errorf("query game_results: %w", err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	resp := Group(recs)
	return &resp, nil
}

func (s *SQLiteSource) Close() error { return s.db.Close() }

// ParquetSource reads archives written by WriteParquet through DuckDB, so a
// glob can cover several files.
type ParquetSource struct {
	db   *sql.DB
	glob string
}

// OpenParquet opens an in-memory DuckDB over the files matching glob.
func OpenParquet(glob string) (*ParquetSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	_, _ = db.Exec("PRAGMA threads=2")
	return &ParquetSource{db: db, glob: glob}, nil
}

func (s *ParquetSource) Stats(ctx context.Context) (*api.StatsResponse, error) {
	q := fmt.Sprintf(`
		SELECT mode, winner, duration
		FROM read_parquet(%s, union_by_name=true)`, sqlQuote(s.glob))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query parquet: %w", err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	resp := Group(recs)
	return &resp, nil
}

func (s *ParquetSource) Close() error { return s.db.Close() }

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Mode, &r.Winner, &r.Duration); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
