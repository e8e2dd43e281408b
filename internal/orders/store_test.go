package orders

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testOrder(id, ownerID, status string, createdAt time.Time) Order {
	return Order{
		OrderID: id,
		OwnerID: ownerID,
		Items: []LineItem{
			{ProductID: "p1", Name: "Cube", PriceCents: 1000, Qty: 2},
		},
		TotalCents:    2000,
		Currency:      "usd",
		PaymentStatus: PaymentPending,
		OrderStatus:   status,
		CreatedAt:     createdAt,
	}
}

func TestCreateGet(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	if err := s.Create(ctx, testOrder("o1", "user-1", StatusPending, time.Now())); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil || got.OwnerID != "user-1" || got.TotalCents != 2000 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].PriceCents != 1000 {
		t.Fatalf("line snapshot lost: %+v", got.Items)
	}

	missing, err := s.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing order")
	}
}

func TestCreate_GuestOrderOmitsOwnerKey(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	if err := s.Create(ctx, testOrder("o1", "", StatusPending, time.Now())); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// an empty owner_id would be rejected as a GSI key; it must be absent
	if _, present := mock.table["o1"]["owner_id"]; present {
		t.Fatal("guest order must not carry an owner_id attribute")
	}

	// the order stays reachable by id and in the admin view
	got, err := s.Get(ctx, "o1")
	if err != nil || got == nil {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	all, err := s.ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll = %d orders, %v", len(all), err)
	}

	// and out of every owner listing
	mine, err := s.ListByOwner(ctx, "")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("guest order leaked into an owner listing: %+v", mine)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	if err := s.Create(ctx, testOrder("o1", "user-1", StatusPending, time.Now())); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, testOrder("o1", "user-2", StatusPending, time.Now())); err == nil {
		t.Fatal("expected error for duplicate order id")
	}
}

func TestUpdateOrderStatus_Conditional(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	if err := s.Create(ctx, testOrder("o1", "user-1", StatusPending, time.Now())); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := s.UpdateOrderStatus(ctx, "o1", StatusPending, StatusProcessing); err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}

	// stale expectation must fail
	err := s.UpdateOrderStatus(ctx, "o1", StatusPending, StatusCancelled)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}

	got, err := s.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.OrderStatus != StatusProcessing {
		t.Fatalf("expected processing, got %s", got.OrderStatus)
	}
}

func TestUpdatePaymentStatus_IndependentAxis(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	if err := s.Create(ctx, testOrder("o1", "user-1", StatusPending, time.Now())); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.UpdatePaymentStatus(ctx, "o1", PaymentPending, PaymentCompleted); err != nil {
		t.Fatalf("UpdatePaymentStatus error: %v", err)
	}

	got, err := s.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.PaymentStatus != PaymentCompleted {
		t.Fatalf("expected completed, got %s", got.PaymentStatus)
	}
	if got.OrderStatus != StatusPending {
		t.Fatalf("order axis must be untouched, got %s", got.OrderStatus)
	}
}

func TestListByOwner_NewestFirst(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"o1", "o2", "o3"} {
		if err := s.Create(ctx, testOrder(id, "user-1", StatusPending, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if err := s.Create(ctx, testOrder("other", "user-2", StatusPending, base)); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(got))
	}
	for _, o := range got {
		if o.OwnerID != "user-1" {
			t.Fatalf("leaked foreign order: %+v", o)
		}
	}
	if got[0].OrderID != "o3" || got[2].OrderID != "o1" {
		t.Fatalf("expected newest first, got %s..%s", got[0].OrderID, got[2].OrderID)
	}
}

func TestListAll_NewestFirst(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "orders-table")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Create(ctx, testOrder("o1", "user-1", StatusPending, base)); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, testOrder("o2", "user-2", StatusPending, base.Add(time.Hour))); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(got) != 2 || got[0].OrderID != "o2" {
		t.Fatalf("expected [o2 o1], got %+v", got)
	}
}
