package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"rfcharts/internal/forecast"
	ports "rfcharts/internal/sheets"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.ForecastReader = (*SQLiteRepository)(nil)
	_ ports.ForecastWriter = (*SQLiteRepository)(nil)
	_ ports.PlanLister     = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveForecast implements sheets.ForecastWriter. The previous months of the
// plan are replaced atomically and the plan version is bumped.
func (r *SQLiteRepository) SaveForecast(ctx context.Context, f forecast.Forecast) error {
	if err := forecast.ValidatePlanID(f.PlanID); err != nil {
		return err
	}
	if len(f.Months) == 0 {
		return forecast.ErrEmptyForecast
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plans (id, version, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET version = version + 1, updated_at = excluded.updated_at`,
		f.PlanID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM forecast_months WHERE plan_id = ?`, f.PlanID); err != nil {
		return fmt.Errorf("clear forecast: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast_months
			(plan_id, period, month, bank_balance, terms, contributions, expenditures, closing_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range f.Months {
		terms := m.Terms
		if terms == nil {
			terms = []float64{}
		}
		termsJSON, err := json.Marshal(terms)
		if err != nil {
			return fmt.Errorf("encode terms: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			f.PlanID, i, m.Month.Format(forecast.DateLayout),
			m.BankBalance, string(termsJSON), m.Contributions, m.Expenditures, m.ClosingBalance,
		); err != nil {
			return fmt.Errorf("insert month %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit forecast: %w", err)
	}

	slog.InfoContext(ctx, "Forecast saved to SQLite", "plan", f.PlanID, "months", len(f.Months))
	return nil
}

// ReadForecast implements sheets.ForecastReader.
func (r *SQLiteRepository) ReadForecast(ctx context.Context, planID string) (forecast.Forecast, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM plans WHERE id = ?`, planID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return forecast.Forecast{}, fmt.Errorf("%w: %s", forecast.ErrPlanNotFound, planID)
	}
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("lookup plan: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT month, bank_balance, terms, contributions, expenditures, closing_balance
		FROM forecast_months
		WHERE plan_id = ?
		ORDER BY period`, planID)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("query forecast: %w", err)
	}
	defer rows.Close()

	f := forecast.Forecast{PlanID: planID}
	for rows.Next() {
		var (
			month     string
			termsJSON string
			m         forecast.Month
		)
		if err := rows.Scan(&month, &m.BankBalance, &termsJSON, &m.Contributions, &m.Expenditures, &m.ClosingBalance); err != nil {
			return forecast.Forecast{}, fmt.Errorf("scan month: %w", err)
		}
		m.Month, err = time.Parse(forecast.DateLayout, month)
		if err != nil {
			return forecast.Forecast{}, fmt.Errorf("parse month %q: %w", month, err)
		}
		if err := json.Unmarshal([]byte(termsJSON), &m.Terms); err != nil {
			return forecast.Forecast{}, fmt.Errorf("decode terms: %w", err)
		}
		f.Months = append(f.Months, m)
	}
	if err := rows.Err(); err != nil {
		return forecast.Forecast{}, fmt.Errorf("iterate forecast: %w", err)
	}
	return f, nil
}

// ListPlans implements sheets.PlanLister.
func (r *SQLiteRepository) ListPlans(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM plans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PlanVersion returns how many times the plan's forecast has been saved.
func (r *SQLiteRepository) PlanVersion(ctx context.Context, planID string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM plans WHERE id = ?`, planID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", forecast.ErrPlanNotFound, planID)
	}
	if err != nil {
		return 0, fmt.Errorf("plan version: %w", err)
	}
	return v, nil
}

// DeletePlan removes a plan and its forecast.
func (r *SQLiteRepository) DeletePlan(ctx context.Context, planID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM forecast_months WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("delete forecast: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, planID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", forecast.ErrPlanNotFound, planID)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	slog.InfoContext(ctx, "Plan deleted", "plan", planID)
	return nil
}
