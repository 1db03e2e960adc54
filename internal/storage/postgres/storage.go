package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/domain/repository"
)

// DB is the subset of pgxpool.Pool the storage needs; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   DB
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type callbackRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Orders returns the order repository view of the storage.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

// Callbacks returns the callback event repository view of the storage.
func (s *Storage) Callbacks() repository.CallbackEventRepository {
	return &callbackRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY,
            idempotency_key TEXT UNIQUE NOT NULL,
            provider TEXT NOT NULL,
            amount BIGINT NOT NULL,
            currency TEXT NOT NULL,
            customer_ref TEXT,
            provider_ref TEXT,
            redirect_url TEXT,
            state TEXT NOT NULL,
            attempts INT NOT NULL DEFAULT 0,
            last_error_code TEXT,
            last_error_message TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS callback_events (
            id UUID PRIMARY KEY,
            provider TEXT NOT NULL,
            provider_ref TEXT NOT NULL,
            event_type TEXT NOT NULL,
            raw_payload BYTEA,
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            processed BOOLEAN NOT NULL DEFAULT FALSE,
            received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_provider_ref ON orders(provider, provider_ref) WHERE provider_ref IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_state ON orders(state, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_callback_events_ref ON callback_events(provider, provider_ref, event_type)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, idempotency_key, provider, amount, currency, customer_ref, provider_ref,
                      redirect_url, state, attempts, last_error_code, last_error_message, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.IdempotencyKey, &o.Provider, &o.Amount, &o.Currency, &o.CustomerRef,
		&o.ProviderRef, &o.RedirectURL, &o.State, &o.Attempts, &o.LastErrorCode,
		&o.LastErrorMessage, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, bool, error) {
	const query = `INSERT INTO orders (id, idempotency_key, provider, amount, currency, state)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   ON CONFLICT (idempotency_key) DO NOTHING
                   RETURNING created_at, updated_at`
	var createdAt, updatedAt time.Time
	err := r.storage.pool.QueryRow(ctx, query,
		order.ID, order.IdempotencyKey, order.Provider, order.Amount, order.Currency, order.State,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := r.getByIdempotencyKey(ctx, order.IdempotencyKey)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	created := *order
	created.CreatedAt = createdAt
	created.UpdatedAt = updatedAt
	return &created, true, nil
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) getByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByProviderRef(ctx context.Context, provider model.Provider, ref string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE provider=$1 AND provider_ref=$2`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, provider, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// Transition applies the compare-and-swap: the update only hits a row that
// still holds the expected state, so the first caller to observe that state
// wins and every racing caller gets ErrConflict. provider_ref is coalesced
// the write-once way: once set it is never reassigned.
func (r *orderRepository) Transition(ctx context.Context, id uuid.UUID, expected, next model.OrderState, patch repository.TransitionPatch) (*model.Order, error) {
	const query = `UPDATE orders SET
                       state=$1,
                       customer_ref=COALESCE($2, customer_ref),
                       provider_ref=COALESCE(provider_ref, $3),
                       redirect_url=COALESCE($4, redirect_url),
                       last_error_code=COALESCE($5, last_error_code),
                       last_error_message=COALESCE($6, last_error_message),
                       updated_at=NOW()
                   WHERE id=$7 AND state=$8
                   RETURNING ` + orderColumns
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query,
		next, patch.CustomerRef, patch.ProviderRef, patch.RedirectURL,
		patch.LastErrorCode, patch.LastErrorMessage, id, expected,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domainErrors.ErrConflict
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) RecordAttempt(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE orders SET attempts=attempts+1, updated_at=NOW() WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// SelectStuckPending picks orders that have sat in PAYMENT_PENDING or
// AWAITING_CONFIRMATION past the cutoff. SKIP LOCKED keeps concurrent
// sweepers off the same batch.
func (r *orderRepository) SelectStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + `
                   FROM orders
                   WHERE state IN ($1, $2) AND updated_at < $3
                   ORDER BY updated_at
                   LIMIT $4
                   FOR UPDATE SKIP LOCKED`
	rows, err := r.storage.pool.Query(ctx, query,
		model.OrderStatePaymentPending, model.OrderStateAwaitingConfirmation,
		time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(
			&o.ID, &o.IdempotencyKey, &o.Provider, &o.Amount, &o.Currency, &o.CustomerRef,
			&o.ProviderRef, &o.RedirectURL, &o.State, &o.Attempts, &o.LastErrorCode,
			&o.LastErrorMessage, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- CallbackEventRepository implementation ---

func (r *callbackRepository) Record(ctx context.Context, event *model.CallbackEvent) (*model.CallbackEvent, error) {
	const query = `INSERT INTO callback_events (id, provider, provider_ref, event_type, raw_payload, verified, processed)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING received_at`
	stored := *event
	err := r.storage.pool.QueryRow(ctx, query,
		event.ID, event.Provider, event.ProviderRef, event.EventType,
		event.RawPayload, event.Verified, event.Processed,
	).Scan(&stored.ReceivedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *callbackRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE callback_events SET processed=TRUE WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *callbackRepository) HasProcessed(ctx context.Context, provider model.Provider, providerRef string, eventType model.CallbackEventType) (bool, error) {
	const query = `SELECT EXISTS(
                       SELECT 1 FROM callback_events
                       WHERE provider=$1 AND provider_ref=$2 AND event_type=$3 AND processed=TRUE
                   )`
	var exists bool
	if err := r.storage.pool.QueryRow(ctx, query, provider, providerRef, eventType).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
