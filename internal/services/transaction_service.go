package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tally/internal/amqp"
	"tally/internal/core"
)

// TransactionStore is the storage surface the service needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}

// EventPublisher pushes transaction change notifications to the queue.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, transactionID, categoryID, action string) error
}

// TransactionService stores transactions and notifies the worker.
// Publishing is best effort: a queue outage never fails a write.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
}

func NewTransactionService(store TransactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// Create validates and stores a transaction, assigning an id when the
// caller did not provide one, then publishes a change event.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, t.ID, t.CategoryID, amqp.ActionCreated)
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, t.ID, t.CategoryID, amqp.ActionUpdated)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	// Fetch first so the delete event still carries the category.
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, id, t.CategoryID, amqp.ActionDeleted)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, transactionID, categoryID, action string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping transaction event")
		return
	}

	if err := s.publisher.PublishTransactionEvent(ctx, transactionID, categoryID, action); err != nil {
		// Don't fail the request - transaction is saved locally
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", transactionID,
			"action", action,
			"error", err)
	}
}
