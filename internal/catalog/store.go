package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/cubecart/core/internal/aws"
)

// ErrInsufficientStock indicates the atomic check-and-decrement found less
// stock than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrStatusMismatch indicates a reservation was not in the expected status.
var ErrStatusMismatch = errors.New("reservation status mismatch/conditional failed")

// Store reads catalog items and holds stock reservations. Stock movement
// is always conditional, never read-then-write: reserving a line is a
// single guarded UpdateItem, and settling a reservation is one write
// transaction, so two concurrent checkouts can never both take the last
// unit and a settle can never half-apply.
type Store struct {
	client           aws.DynamoDBAPI
	catalogTable     string
	reservationTable string
	nowFunc          func() time.Time
}

// NewStore creates a catalog Store over the catalog and reservations tables.
func NewStore(client aws.DynamoDBAPI, catalogTable, reservationTable string) *Store {
	return &Store{
		client:           client,
		catalogTable:     catalogTable,
		reservationTable: reservationTable,
		nowFunc:          time.Now,
	}
}

// Get fetches a catalog item by product id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, productID string) (*Item, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.catalogTable,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &it, nil
}

// Reserve atomically moves qty units from stock to reserved for every line
// and persists a RESERVED record with the given TTL. If any line fails the
// conditional check, lines reserved so far are returned to stock and
// ErrInsufficientStock is surfaced for the failing product.
func (s *Store) Reserve(ctx context.Context, lines []Line, ttl time.Duration) (*Reservation, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no lines to reserve")
	}

	reserved := make([]Line, 0, len(lines))
	for _, ln := range lines {
		if err := s.reserveLine(ctx, ln); err != nil {
			for _, prev := range reserved {
				if relErr := s.releaseLine(ctx, prev); relErr != nil {
					return nil, fmt.Errorf("release %s after failed reserve: %w", prev.ProductID, relErr)
				}
			}
			return nil, fmt.Errorf("reserve %s: %w", ln.ProductID, err)
		}
		reserved = append(reserved, ln)
	}

	now := s.nowFunc()
	rec := Reservation{
		ReservationID: uuid.NewString(),
		Lines:         lines,
		Status:        StatusReserved,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(ttl).Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, s.failReserve(ctx, lines, fmt.Errorf("marshal reservation: %w", err))
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.reservationTable,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(reservation_id)"),
	})
	if err != nil {
		return nil, s.failReserve(ctx, lines, fmt.Errorf("put reservation: %w", err))
	}
	return &rec, nil
}

// failReserve compensates a Reserve whose record write failed: without a
// record there is nothing the expiry sweep could ever release, so the
// line decrements must be undone here.
func (s *Store) failReserve(ctx context.Context, lines []Line, cause error) error {
	if err := s.returnStock(ctx, lines); err != nil {
		return fmt.Errorf("%w (and compensation failed: %v)", cause, err)
	}
	return cause
}

// Commit finalizes a reservation: the reserved counters are cleared and
// the stock deduction taken at Reserve time becomes permanent. Called by
// the payment-confirmation flow; the checkout path itself never commits.
func (s *Store) Commit(ctx context.Context, reservationID string) error {
	_, err := s.settleReservation(ctx, reservationID, StatusCommitted, false)
	return err
}

// Release cancels a RESERVED reservation and returns its stock.
func (s *Store) Release(ctx context.Context, reservationID string) error {
	_, err := s.settleReservation(ctx, reservationID, StatusReleased, true)
	return err
}

// Expire releases a reservation past its TTL. A reservation that has
// already been committed or released is not an error: the sweep message
// simply arrived after the reservation settled.
func (s *Store) Expire(ctx context.Context, reservationID string) (bool, error) {
	_, err := s.settleReservation(ctx, reservationID, StatusExpired, true)
	if errors.Is(err, ErrStatusMismatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetReservation fetches a reservation record. Returns (nil, nil) if absent.
func (s *Store) GetReservation(ctx context.Context, reservationID string) (*Reservation, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.reservationTable,
		Key: map[string]types.AttributeValue{
			"reservation_id": &types.AttributeValueMemberS{Value: reservationID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Reservation
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal reservation: %w", err)
	}
	return &rec, nil
}

// reserveLine is the single atomic compare-and-decrement: it only succeeds
// when stock >= qty at write time.
func (s *Store) reserveLine(ctx context.Context, ln Line) error {
	input := &dyn.UpdateItemInput{
		TableName: &s.catalogTable,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: ln.ProductID},
		},
		UpdateExpression:    awsString("SET stock = stock - :qty, reserved = if_not_exists(reserved, :zero) + :qty"),
		ConditionExpression: awsString("stock >= :qty"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ln.Qty)},
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrInsufficientStock
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *Store) releaseLine(ctx context.Context, ln Line) error {
	input := &dyn.UpdateItemInput{
		TableName: &s.catalogTable,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: ln.ProductID},
		},
		UpdateExpression:    awsString("SET stock = stock + :qty, reserved = reserved - :qty"),
		ConditionExpression: awsString("reserved >= :qty"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ln.Qty)},
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *Store) returnStock(ctx context.Context, lines []Line) error {
	for _, ln := range lines {
		if err := s.releaseLine(ctx, ln); err != nil {
			return fmt.Errorf("release %s: %w", ln.ProductID, err)
		}
	}
	return nil
}

// settleReservation moves a RESERVED reservation to a terminal status and
// applies the matching stock movement in one TransactWriteItems call. The
// status flip and the per-line counters change together or not at all, so
// a failed settle leaves the record RESERVED and safe to retry, and a lost
// race surfaces as ErrStatusMismatch with no stock touched.
func (s *Store) settleReservation(ctx context.Context, reservationID, next string, returnToStock bool) (*Reservation, error) {
	rec, err := s.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status != StatusReserved {
		return nil, ErrStatusMismatch
	}

	now := s.nowFunc()
	items := make([]types.TransactWriteItem, 0, len(rec.Lines)+1)
	items = append(items, types.TransactWriteItem{
		Update: &types.Update{
			TableName: &s.reservationTable,
			Key: map[string]types.AttributeValue{
				"reservation_id": &types.AttributeValueMemberS{Value: reservationID},
			},
			UpdateExpression:         awsString("SET #s = :next, updated_at = :ua"),
			ConditionExpression:      awsString("#s = :expected"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next":     &types.AttributeValueMemberS{Value: next},
				":expected": &types.AttributeValueMemberS{Value: StatusReserved},
				":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			},
		},
	})

	lineUpdate := "SET reserved = reserved - :qty"
	if returnToStock {
		lineUpdate = "SET stock = stock + :qty, reserved = reserved - :qty"
	}
	for _, ln := range rec.Lines {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName: &s.catalogTable,
				Key: map[string]types.AttributeValue{
					"product_id": &types.AttributeValueMemberS{Value: ln.ProductID},
				},
				UpdateExpression:    awsString(lineUpdate),
				ConditionExpression: awsString("reserved >= :qty"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":qty": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ln.Qty)},
				},
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && len(canceled.CancellationReasons) > 0 &&
			conditionFailed(canceled.CancellationReasons[0]) {
			// the status guard lost a race with a concurrent settle
			return nil, ErrStatusMismatch
		}
		return nil, fmt.Errorf("settle reservation: %w", err)
	}

	rec.Status = next
	rec.UpdatedAt = now
	return rec, nil
}

func conditionFailed(r types.CancellationReason) bool {
	return r.Code != nil && *r.Code == "ConditionalCheckFailed"
}

func awsString(s string) *string { return &s }
