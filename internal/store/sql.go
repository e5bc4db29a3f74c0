package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"market-reconcile/internal/model"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore keeps series in two tables: price_series (one row per year) and
// price_points (one row per hour). Save replaces a year inside one transaction.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLite opens (or creates) the SQLite database at path and runs migrations.
func NewSQLite(path string) (*SQLStore, error) {
	if path == "" {
		path = "market.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; readers proceed under WAL.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialectSQLite}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[Store] sqlite store opened: %s", path)
	return s, nil
}

// NewPostgres connects through the pgx stdlib driver and runs migrations.
func NewPostgres(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialectPostgres}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[Store] postgres store opened")
	return s, nil
}

func (s *SQLStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_series (
			year       INTEGER PRIMARY KEY,
			location   TEXT NOT NULL,
			points     INTEGER NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_points (
			year  INTEGER NOT NULL,
			ts    BIGINT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (year, ts)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Save(ctx context.Context, series model.PriceSeries) (err error) {
	if err := validateSeries(series); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM price_points WHERE year = ?`), series.Year); err != nil {
		return fmt.Errorf("clear points: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM price_series WHERE year = ?`), series.Year); err != nil {
		return fmt.Errorf("clear series: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO price_series (year, location, points, updated_at) VALUES (?, ?, ?, ?)`),
		series.Year, series.Loc().String(), len(series.Points), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert series: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO price_points (year, ts, value) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare points: %w", err)
	}
	defer stmt.Close()
	for _, p := range series.Points {
		if _, err = stmt.ExecContext(ctx, series.Year, p.Timestamp.Unix(), p.Value); err != nil {
			return fmt.Errorf("insert point %s: %w", p.Timestamp.UTC().Format(time.RFC3339), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[Store] Saved %d points for %d", len(series.Points), series.Year)
	return nil
}

func (s *SQLStore) Load(ctx context.Context, year int) (model.PriceSeries, error) {
	var locName string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT location FROM price_series WHERE year = ?`), year).Scan(&locName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PriceSeries{}, notFound(year)
		}
		return model.PriceSeries{}, fmt.Errorf("query series: %w", err)
	}
	loc, err := loadLocation(locName)
	if err != nil {
		return model.PriceSeries{}, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT ts, value FROM price_points WHERE year = ? ORDER BY ts`), year)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	series := model.PriceSeries{Year: year, Location: loc}
	for rows.Next() {
		var ts int64
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return model.PriceSeries{}, fmt.Errorf("scan point: %w", err)
		}
		series.Points = append(series.Points, model.PricePoint{Timestamp: time.Unix(ts, 0).UTC(), Value: value})
	}
	if err := rows.Err(); err != nil {
		return model.PriceSeries{}, fmt.Errorf("iterate points: %w", err)
	}
	return series, nil
}

func (s *SQLStore) Years(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT year FROM price_series ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("query years: %w", err)
	}
	defer rows.Close()
	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
