package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// RecordAttempt stores the final state of one orchestrator run.
func (r *Repository) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `INSERT INTO checkout_attempts (id, session_id, status, order_id, amount, payment_method, failure_reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		a.ID,
		a.SessionID,
		string(a.Status),
		nullString(a.OrderID),
		a.Amount,
		string(a.PaymentMethod),
		nullString(a.FailureReason),
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checkout attempt: %w", err)
	}
	return nil
}

// MarkReturned stamps the gateway outcome on the attempt that created orderID.
func (r *Repository) MarkReturned(ctx context.Context, orderID string, outcome Outcome) error {
	query := `UPDATE checkout_attempts SET outcome = $2, returned_at = NOW()
	          WHERE order_id = $1 AND returned_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, orderID, string(outcome))
	if err != nil {
		return fmt.Errorf("update checkout attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*Attempt, error) {
	query := `SELECT id, session_id, status, order_id, amount, payment_method, failure_reason, outcome, created_at, returned_at
	          FROM checkout_attempts WHERE order_id = $1
	          ORDER BY created_at DESC LIMIT 1`

	var (
		a                      Attempt
		status, method         string
		order, reason, outcome sql.NullString
		returnedAt             sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&a.ID,
		&a.SessionID,
		&status,
		&order,
		&a.Amount,
		&method,
		&reason,
		&outcome,
		&a.CreatedAt,
		&returnedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout attempt: %w", err)
	}

	a.Status = domain.CheckoutStatus(status)
	a.PaymentMethod = domain.PaymentMethod(method)
	a.OrderID = order.String
	a.FailureReason = reason.String
	a.Outcome = Outcome(outcome.String)
	if returnedAt.Valid {
		a.ReturnedAt = &returnedAt.Time
	}
	return &a, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
