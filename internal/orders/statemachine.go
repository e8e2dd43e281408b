package orders

import (
	"context"
	"errors"

	"github.com/cubecart/core/internal/access"
	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/token"
)

// orderTransitions is the adjacency table for the fulfilment axis:
// forward-only pending -> processing -> shipped -> delivered, with
// cancellation reachable from pending or processing.
var orderTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// paymentTransitions is the adjacency table for the payment axis.
var paymentTransitions = map[string][]string{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
	PaymentFailed:    {},
	PaymentRefunded:  {},
}

// Storage is the persistence collaborator the state machine drives. The
// machine itself holds no state: every operation is authorization plus an
// adjacency check over what the store returns.
type Storage interface {
	Get(ctx context.Context, orderID string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, expected, next string) error
	UpdatePaymentStatus(ctx context.Context, orderID, expected, next string) error
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}

// StateMachine validates and applies status transitions on persisted orders.
type StateMachine struct {
	store Storage
	guard *access.Guard
}

func NewStateMachine(store Storage, guard *access.Guard) *StateMachine {
	return &StateMachine{store: store, guard: guard}
}

// Transition moves an order's fulfilment status along one adjacency edge.
// Only admins may mutate order status; the role check runs before the
// order is even fetched.
func (m *StateMachine) Transition(ctx context.Context, orderID, target string, actor token.Claims) (*Order, error) {
	if err := m.guard.RequireRole(actor, token.RoleAdmin); err != nil {
		return nil, err
	}
	if _, known := orderTransitions[target]; !known {
		return nil, apperr.New(apperr.KindValidation, "unknown order status %q", target)
	}

	order, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load order %s", orderID)
	}
	if order == nil {
		return nil, apperr.New(apperr.KindNotFound, "order not found: %s", orderID)
	}

	if !adjacent(orderTransitions, order.OrderStatus, target) {
		return nil, apperr.New(apperr.KindInvalidTransition, "cannot move order from %s to %s", order.OrderStatus, target)
	}

	if err := m.store.UpdateOrderStatus(ctx, orderID, order.OrderStatus, target); err != nil {
		if errors.Is(err, ErrStatusMismatch) {
			return nil, apperr.New(apperr.KindConflict, "order status changed concurrently")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "update order %s", orderID)
	}

	order.OrderStatus = target
	return order, nil
}

// TransitionPayment moves an order's payment status along one adjacency
// edge, same rules as Transition. It is the entry point for the payment
// confirmation flow; no HTTP route mutates the payment axis directly.
func (m *StateMachine) TransitionPayment(ctx context.Context, orderID, target string, actor token.Claims) (*Order, error) {
	if err := m.guard.RequireRole(actor, token.RoleAdmin); err != nil {
		return nil, err
	}
	if _, known := paymentTransitions[target]; !known {
		return nil, apperr.New(apperr.KindValidation, "unknown payment status %q", target)
	}

	order, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load order %s", orderID)
	}
	if order == nil {
		return nil, apperr.New(apperr.KindNotFound, "order not found: %s", orderID)
	}

	if !adjacent(paymentTransitions, order.PaymentStatus, target) {
		return nil, apperr.New(apperr.KindInvalidTransition, "cannot move payment from %s to %s", order.PaymentStatus, target)
	}

	if err := m.store.UpdatePaymentStatus(ctx, orderID, order.PaymentStatus, target); err != nil {
		if errors.Is(err, ErrStatusMismatch) {
			return nil, apperr.New(apperr.KindConflict, "payment status changed concurrently")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "update order %s", orderID)
	}

	order.PaymentStatus = target
	return order, nil
}

// GetFor returns an order visible to the actor: its owner or any admin.
func (m *StateMachine) GetFor(ctx context.Context, orderID string, actor token.Claims) (*Order, error) {
	order, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load order %s", orderID)
	}
	if order == nil {
		return nil, apperr.New(apperr.KindNotFound, "order not found: %s", orderID)
	}
	if err := m.guard.RequireOwnerOrAdmin(actor, order.OwnerID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListFor returns orders scoped by role: admins see everything, everyone
// else sees only their own. Both views are newest first.
func (m *StateMachine) ListFor(ctx context.Context, actor token.Claims) ([]Order, error) {
	if actor.IsAdmin() {
		orders, err := m.store.ListAll(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "list orders")
		}
		return orders, nil
	}
	orders, err := m.store.ListByOwner(ctx, actor.SubjectID())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list orders for %s", actor.SubjectID())
	}
	return orders, nil
}

func adjacent(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
