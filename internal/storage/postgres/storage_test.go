package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
	"github.com/vendano/payflow/internal/domain/model"
	"github.com/vendano/payflow/internal/domain/repository"
)

func newMockStorage(t *testing.T) (*Storage, pgxmockv3.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmockv3.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	storage := &Storage{pool: mock, logger: logger}
	return storage, mock
}

var orderCols = []string{
	"id", "idempotency_key", "provider", "amount", "currency", "customer_ref", "provider_ref",
	"redirect_url", "state", "attempts", "last_error_code", "last_error_message", "created_at", "updated_at",
}

func orderRow(id uuid.UUID, state model.OrderState) *pgxmockv3.Rows {
	now := time.Now()
	return pgxmockv3.NewRows(orderCols).AddRow(
		id, "key-1", model.ProviderMobileMoney, int64(5000), "XOF", (*string)(nil), (*string)(nil),
		(*string)(nil), state, 0, (*string)(nil), (*string)(nil), now, now,
	)
}

func TestNewRejectsBadDSN(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if _, err := New(context.Background(), ":://bad", logger); err == nil {
		t.Fatal("expected error for malformed dsn")
	}
}

func TestOrderCreateInsertsNewOrder(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(id, "key-1", model.ProviderMobileMoney, int64(5000), "XOF", model.OrderStateCreated).
		WillReturnRows(pgxmockv3.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	order, created, err := storage.Orders().Create(context.Background(), &model.Order{
		ID:             id,
		IdempotencyKey: "key-1",
		Provider:       model.ProviderMobileMoney,
		Amount:         5000,
		Currency:       "XOF",
		State:          model.OrderStateCreated,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected created=true")
	}
	if order.CreatedAt != now {
		t.Fatalf("expected returned timestamps to be stored")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOrderCreateReturnsExistingOnKeyConflict(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	existingID := uuid.New()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(pgxmockv3.AnyArg(), "key-1", model.ProviderMobileMoney, int64(5000), "XOF", model.OrderStateCreated).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE idempotency_key").
		WithArgs("key-1").
		WillReturnRows(orderRow(existingID, model.OrderStatePaymentPending))

	order, created, err := storage.Orders().Create(context.Background(), &model.Order{
		ID:             uuid.New(),
		IdempotencyKey: "key-1",
		Provider:       model.ProviderMobileMoney,
		Amount:         5000,
		Currency:       "XOF",
		State:          model.OrderStateCreated,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected created=false for duplicate idempotency key")
	}
	if order.ID != existingID {
		t.Fatalf("expected existing order to be returned")
	}
}

func TestOrderGetNotFound(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	if _, err := storage.Orders().Get(context.Background(), id); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderGetByProviderRef(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE provider=").
		WithArgs(model.ProviderCard, "pi_9").
		WillReturnRows(orderRow(id, model.OrderStatePaymentPending))

	order, err := storage.Orders().GetByProviderRef(context.Background(), model.ProviderCard, "pi_9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != id {
		t.Fatalf("unexpected order %v", order.ID)
	}
}

func TestOrderTransitionAppliesCAS(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	ref := "mm_77"
	mock.ExpectQuery("UPDATE orders SET").
		WithArgs(model.OrderStatePaymentPending, (*string)(nil), &ref, (*string)(nil), (*string)(nil), (*string)(nil), id, model.OrderStateCustomerReady).
		WillReturnRows(orderRow(id, model.OrderStatePaymentPending))

	order, err := storage.Orders().Transition(context.Background(), id,
		model.OrderStateCustomerReady, model.OrderStatePaymentPending,
		repository.TransitionPatch{ProviderRef: &ref},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.State != model.OrderStatePaymentPending {
		t.Fatalf("expected pending state, got %s", order.State)
	}
}

func TestOrderTransitionConflictWhenStateMoved(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE orders SET").
		WithArgs(model.OrderStateFailed, (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), id, model.OrderStatePaymentPending).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(id).
		WillReturnRows(orderRow(id, model.OrderStateCaptured))

	_, err := storage.Orders().Transition(context.Background(), id,
		model.OrderStatePaymentPending, model.OrderStateFailed, repository.TransitionPatch{})
	if !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestOrderTransitionNotFound(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("UPDATE orders SET").
		WithArgs(model.OrderStateFailed, (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), id, model.OrderStatePaymentPending).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := storage.Orders().Transition(context.Background(), id,
		model.OrderStatePaymentPending, model.OrderStateFailed, repository.TransitionPatch{})
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAttempt(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE orders SET attempts").
		WithArgs(id).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))

	if err := storage.Orders().RecordAttempt(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSelectStuckPending(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	pendingID := uuid.New()
	awaitingID := uuid.New()
	now := time.Now()
	rows := pgxmockv3.NewRows(orderCols).
		AddRow(
			pendingID, "key-1", model.ProviderMobileMoney, int64(5000), "XOF", (*string)(nil), (*string)(nil),
			(*string)(nil), model.OrderStatePaymentPending, 0, (*string)(nil), (*string)(nil), now, now,
		).
		AddRow(
			awaitingID, "key-2", model.ProviderCard, int64(7000), "XOF", (*string)(nil), (*string)(nil),
			(*string)(nil), model.OrderStateAwaitingConfirmation, 1, (*string)(nil), (*string)(nil), now, now,
		)
	mock.ExpectQuery(`(?s)SELECT (.+) FROM orders.+FOR UPDATE SKIP LOCKED`).
		WithArgs(model.OrderStatePaymentPending, model.OrderStateAwaitingConfirmation, pgxmockv3.AnyArg(), 10).
		WillReturnRows(rows)

	orders, err := storage.Orders().SelectStuckPending(context.Background(), 30*time.Minute, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != pendingID || orders[1].ID != awaitingID {
		t.Fatalf("unexpected result %+v", orders)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCallbackRecordAndMarkProcessed(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	event := &model.CallbackEvent{
		ID:          uuid.New(),
		Provider:    model.ProviderMobileMoney,
		ProviderRef: "mm_77",
		EventType:   model.CallbackPaymentSucceeded,
		RawPayload:  []byte(`{}`),
		Verified:    true,
	}
	now := time.Now()
	mock.ExpectQuery("INSERT INTO callback_events").
		WithArgs(event.ID, event.Provider, event.ProviderRef, event.EventType, event.RawPayload, true, false).
		WillReturnRows(pgxmockv3.NewRows([]string{"received_at"}).AddRow(now))

	stored, err := storage.Callbacks().Record(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ReceivedAt != now {
		t.Fatal("expected received_at from database")
	}

	mock.ExpectExec("UPDATE callback_events SET processed").
		WithArgs(event.ID).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if err := storage.Callbacks().MarkProcessed(context.Background(), event.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCallbackHasProcessed(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(model.ProviderCard, "pi_9", model.CallbackPaymentSucceeded).
		WillReturnRows(pgxmockv3.NewRows([]string{"exists"}).AddRow(true))

	ok, err := storage.Callbacks().HasProcessed(context.Background(), model.ProviderCard, "pi_9", model.CallbackPaymentSucceeded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected processed=true")
	}
}
