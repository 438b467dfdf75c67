package services

import (
	"context"
	"errors"
	"testing"

	"tally/internal/amqp"
	"tally/internal/core"
)

type fakeStore struct {
	transactions map[string]core.Transaction
	createErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{transactions: make(map[string]core.Transaction)}
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if _, ok := f.transactions[t.ID]; !ok {
		return errors.New("not found")
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := f.transactions[id]; !ok {
		return errors.New("not found")
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, errors.New("not found")
	}
	return t, nil
}

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, transactionID, categoryID, action string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, action+":"+transactionID+":"+categoryID)
	return nil
}

func validTransaction() core.Transaction {
	return core.Transaction{
		Type:       core.Expense,
		AccountID:  "acc-1",
		CategoryID: "cat-1",
		Amount:     core.Money{Cents: 1500},
		Date:       core.NewDate(2025, 3, 10),
	}
}

func TestCreateAssignsIDAndPublishes(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	created, err := svc.Create(context.Background(), validTransaction())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, ok := store.transactions[created.ID]; !ok {
		t.Fatal("transaction not stored")
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.ActionCreated+":"+created.ID+":cat-1" {
		t.Fatalf("unexpected events: %v", pub.events)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, &fakePublisher{})

	bad := validTransaction()
	bad.Amount.Cents = 0
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(store.transactions) != 0 {
		t.Fatal("invalid transaction reached storage")
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(store, pub)

	created, err := svc.Create(context.Background(), validTransaction())
	if err != nil {
		t.Fatalf("create must not fail on publish error: %v", err)
	}
	if _, ok := store.transactions[created.ID]; !ok {
		t.Fatal("transaction not stored")
	}
}

func TestCreateWithoutPublisher(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)
	if _, err := svc.Create(context.Background(), validTransaction()); err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
}

func TestDeletePublishesCategory(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	created, err := svc.Create(context.Background(), validTransaction())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.transactions) != 0 {
		t.Fatal("transaction not deleted")
	}
	// The delete event keeps the category so the worker can re-check
	// the affected budget.
	want := amqp.ActionDeleted + ":" + created.ID + ":cat-1"
	if pub.events[len(pub.events)-1] != want {
		t.Fatalf("expected %q, got %v", want, pub.events)
	}
}
