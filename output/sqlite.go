package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/use-agent/prayertimes/models"
)

// schema stores one row per cell. cities keeps the city order, including
// cities without any record; rowid order in prayer_times keeps date and
// header order.
const schema = `
CREATE TABLE cities (
	position INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE prayer_times (
	city TEXT NOT NULL REFERENCES cities(name),
	date TEXT NOT NULL,
	position INTEGER NOT NULL,
	header TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (city, date, position)
);

CREATE INDEX idx_prayer_times_date ON prayer_times(date);
`

// WriteSQLite replaces the database at path with one holding agg.
func WriteSQLite(ctx context.Context, path string, agg *models.Aggregate) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old database: %w", err)
	}

	db, err := openSQLite(path, "rwc")
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cityStmt, err := tx.PrepareContext(ctx, `INSERT INTO cities (position, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer cityStmt.Close()

	cellStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO prayer_times (city, date, position, header, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer cellStmt.Close()

	var insertErr error
	position := 0
	agg.Each(func(city string, times *models.CityTimes) {
		if insertErr != nil {
			return
		}
		if _, insertErr = cityStmt.ExecContext(ctx, position, city); insertErr != nil {
			return
		}
		position++
		times.Each(func(date string, rec *models.Record) {
			if insertErr != nil {
				return
			}
			values := rec.Values()
			for i, header := range rec.Headers() {
				if _, insertErr = cellStmt.ExecContext(ctx, city, date, i, header, values[i]); insertErr != nil {
					return
				}
			}
		})
	})
	if insertErr != nil {
		return fmt.Errorf("insert: %w", insertErr)
	}

	return tx.Commit()
}

// LoadSQLite reads a database written by WriteSQLite.
func LoadSQLite(ctx context.Context, path string) (*models.Aggregate, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openSQLite(path, "ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	agg := models.NewAggregate()
	cities := map[string]*models.CityTimes{}

	rows, err := db.QueryContext(ctx, `SELECT name FROM cities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query cities: %w", err)
	}
	var order []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan city: %w", err)
		}
		order = append(order, name)
		cities[name] = models.NewCityTimes()
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT city, date, header, value FROM prayer_times ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query prayer_times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var city, date, header, value string
		if err := rows.Scan(&city, &date, &header, &value); err != nil {
			return nil, fmt.Errorf("scan prayer_times: %w", err)
		}
		times, ok := cities[city]
		if !ok {
			return nil, fmt.Errorf("prayer_times references unknown city %q", city)
		}
		rec, ok := times.Get(date)
		if !ok {
			rec = models.NewRecord()
			times.Put(date, rec)
		}
		rec.Set(header, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, name := range order {
		agg.Merge(name, cities[name])
	}
	return agg, nil
}

func openSQLite(path, mode string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	return db, nil
}
