package market

import (
	"context"
	"errors"
	"testing"

	"findmyservice.org/internal/payment"
)

// fakeGateway counts calls so tests can assert the gateway is never
// reached on short-circuited paths.
type fakeGateway struct {
	createCalls   int
	retrieveCalls int
	intent        payment.Intent
	retrieved     payment.Intent
	createErr     error
	retrieveErr   error
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amountMinor int64, orderID string) (payment.Intent, error) {
	f.createCalls++
	if f.createErr != nil {
		return payment.Intent{}, f.createErr
	}
	f.intent.Status = "requires_payment_method"
	return f.intent, nil
}

func (f *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (payment.Intent, error) {
	f.retrieveCalls++
	if f.retrieveErr != nil {
		return payment.Intent{}, f.retrieveErr
	}
	return f.retrieved, nil
}

func seedOrder(t *testing.T, store Store, status OrderStatus, cost float64) *Order {
	t.Helper()
	o := &Order{
		UserID:     "u1",
		ProviderID: "p1",
		ServiceID:  "s1",
		Status:     status,
		Quantity:   1,
		TotalCost:  cost,
	}
	if err := store.Orders().Create(context.Background(), o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func TestInitiateComputesPaiseAndStoresIntent(t *testing.T) {
	store := NewInMemory()
	gw := &fakeGateway{intent: payment.Intent{ID: "pi_1", ClientSecret: "cs_1"}}
	flow := NewPayments(store, gw)

	o := seedOrder(t, store, StatusRequested, 99.99)

	init, err := flow.Initiate(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if init.AmountInPaise != 9999 {
		t.Fatalf("expected 9999 paise, got %d", init.AmountInPaise)
	}
	if init.Amount != 99.99 {
		t.Fatalf("expected amount 99.99, got %v", init.Amount)
	}
	if init.PaymentIntentID != "pi_1" || init.ClientSecret != "cs_1" {
		t.Fatalf("unexpected initiation: %+v", init)
	}

	stored, err := store.Orders().Find(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if stored.TransactionID != "pi_1" {
		t.Fatalf("intent id not persisted: %q", stored.TransactionID)
	}
	if gw.createCalls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", gw.createCalls)
	}
}

func TestInitiateRejectsClosedOrdersWithoutGatewayCall(t *testing.T) {
	for _, status := range []OrderStatus{StatusPaid, StatusCompleted, StatusCancelled} {
		store := NewInMemory()
		gw := &fakeGateway{}
		flow := NewPayments(store, gw)

		o := seedOrder(t, store, status, 50)
		_, err := flow.Initiate(context.Background(), o.ID)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("status %s: expected ErrInvalidArgument, got %v", status, err)
		}
		if gw.createCalls != 0 {
			t.Fatalf("status %s: gateway must not be called, got %d calls", status, gw.createCalls)
		}
	}
}

func TestInitiateMissingOrder(t *testing.T) {
	flow := NewPayments(NewInMemory(), &fakeGateway{})
	if _, err := flow.Initiate(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInitiateGatewayFailure(t *testing.T) {
	store := NewInMemory()
	gw := &fakeGateway{createErr: errors.New("stripe down")}
	flow := NewPayments(store, gw)

	o := seedOrder(t, store, StatusRequested, 10)
	_, err := flow.Initiate(context.Background(), o.ID)
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	stored, _ := store.Orders().Find(context.Background(), o.ID)
	if stored.TransactionID != "" {
		t.Fatalf("failed initiation must not persist an intent id: %q", stored.TransactionID)
	}
}

func TestConfirmSucceededMarksPaid(t *testing.T) {
	store := NewInMemory()
	gw := &fakeGateway{retrieved: payment.Intent{ID: "pi_1", Status: payment.StatusSucceeded}}
	flow := NewPayments(store, gw)

	o := seedOrder(t, store, StatusRequested, 99.99)

	updated, err := flow.Confirm(context.Background(), o.ID, "pi_1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if updated.Status != StatusPaid {
		t.Fatalf("expected PAID, got %s", updated.Status)
	}
	if updated.PaymentDate == nil {
		t.Fatal("expected paymentDate to be stamped")
	}
	if updated.TransactionID != "pi_1" {
		t.Fatalf("unexpected transaction id: %q", updated.TransactionID)
	}

	stored, _ := store.Orders().Find(context.Background(), o.ID)
	if stored.Status != StatusPaid || stored.PaymentDate == nil {
		t.Fatalf("PAID transition not persisted: %+v", stored)
	}
}

func TestConfirmNonSucceededStatus(t *testing.T) {
	store := NewInMemory()
	gw := &fakeGateway{retrieved: payment.Intent{ID: "pi_1", Status: "processing"}}
	flow := NewPayments(store, gw)

	o := seedOrder(t, store, StatusRequested, 10)
	_, err := flow.Confirm(context.Background(), o.ID, "pi_1")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	stored, _ := store.Orders().Find(context.Background(), o.ID)
	if stored.Status != StatusRequested || stored.PaymentDate != nil {
		t.Fatalf("order must stay untouched on failed confirm: %+v", stored)
	}
}

func TestConfirmGatewayError(t *testing.T) {
	store := NewInMemory()
	gw := &fakeGateway{retrieveErr: errors.New("timeout")}
	flow := NewPayments(store, gw)

	o := seedOrder(t, store, StatusRequested, 10)
	if _, err := flow.Confirm(context.Background(), o.ID, "pi_1"); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestConfirmMissingOrder(t *testing.T) {
	flow := NewPayments(NewInMemory(), &fakeGateway{})
	if _, err := flow.Confirm(context.Background(), "nope", "pi_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
