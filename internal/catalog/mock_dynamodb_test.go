package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// stockMock is a small in-memory stand-in for the DynamoDB operations the
// catalog store issues. It interprets exactly the expressions the store
// builds, nothing more.
type stockMock struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	updateCalls int

	// failure hooks
	failPutTable string // PutItem against this table fails
	failTransact bool   // next TransactWriteItems fails wholesale
}

func newStockMock() *stockMock {
	return &stockMock{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *stockMock) table(name string) map[string]map[string]types.AttributeValue {
	t, ok := m.tables[name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		m.tables[name] = t
	}
	return t
}

func singleKey(key map[string]types.AttributeValue) (string, string, error) {
	for attr, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", "", errors.New("non-string key")
		}
		return attr, s.Value, nil
	}
	return "", "", errors.New("empty key")
}

func numAttr(item map[string]types.AttributeValue, attr string) int64 {
	v, ok := item[attr].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(v.Value, 10, 64)
	return n
}

func setNumAttr(item map[string]types.AttributeValue, attr string, n int64) {
	item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func exprNum(vals map[string]types.AttributeValue, name string) int64 {
	v, ok := vals[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(v.Value, 10, 64)
	return n
}

func (m *stockMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPutTable != "" && *params.TableName == m.failPutTable {
		return nil, errors.New("injected put failure")
	}
	t := m.table(*params.TableName)
	attr, k, err := singleKeyFromItem(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists("+attr+")" {
		if _, exists := t[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	t[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func singleKeyFromItem(item map[string]types.AttributeValue) (string, string, error) {
	for _, attr := range []string{"product_id", "reservation_id"} {
		if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
			return attr, v.Value, nil
		}
	}
	return "", "", errors.New("no recognized key attribute")
}

func (m *stockMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, k, err := singleKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table(*params.TableName)[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

// checkCondition evaluates the condition expressions the store uses
// against an item (nil means the item does not exist).
func checkCondition(item map[string]types.AttributeValue, cond string, vals map[string]types.AttributeValue) bool {
	if item == nil {
		return false
	}
	switch cond {
	case "":
		return true
	case "stock >= :qty":
		return numAttr(item, "stock") >= exprNum(vals, ":qty")
	case "reserved >= :qty":
		return numAttr(item, "reserved") >= exprNum(vals, ":qty")
	case "#s = :expected":
		expected := vals[":expected"].(*types.AttributeValueMemberS).Value
		cur, ok := item["status"].(*types.AttributeValueMemberS)
		return ok && cur.Value == expected
	}
	return false
}

// applyUpdate mutates an item per the update expressions the store uses.
func applyUpdate(item map[string]types.AttributeValue, update string, vals map[string]types.AttributeValue) error {
	qty := exprNum(vals, ":qty")
	switch {
	case strings.Contains(update, "stock = stock - :qty"):
		setNumAttr(item, "stock", numAttr(item, "stock")-qty)
		setNumAttr(item, "reserved", numAttr(item, "reserved")+qty)
	case strings.Contains(update, "stock = stock + :qty"):
		setNumAttr(item, "stock", numAttr(item, "stock")+qty)
		setNumAttr(item, "reserved", numAttr(item, "reserved")-qty)
	case strings.Contains(update, "reserved = reserved - :qty"):
		setNumAttr(item, "reserved", numAttr(item, "reserved")-qty)
	case strings.Contains(update, "#s = :next"):
		item["status"] = vals[":next"]
		if ua, ok := vals[":ua"]; ok {
			item["updated_at"] = ua
		}
	default:
		return errors.New("unsupported update expression: " + update)
	}
	return nil
}

func (m *stockMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	_, k, err := singleKey(params.Key)
	if err != nil {
		return nil, err
	}
	item := m.table(*params.TableName)[k]

	cond := ""
	if params.ConditionExpression != nil {
		cond = *params.ConditionExpression
	}
	if !checkCondition(item, cond, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if err := applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

// TransactWriteItems checks every item's condition before applying any
// update, mirroring the all-or-nothing contract of the real API.
func (m *stockMock) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTransact {
		return nil, errors.New("injected transact failure")
	}

	items := make([]map[string]types.AttributeValue, len(params.TransactItems))
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, ti := range params.TransactItems {
		u := ti.Update
		if u == nil {
			return nil, errors.New("mock only supports Update transact items")
		}
		_, k, err := singleKey(u.Key)
		if err != nil {
			return nil, err
		}
		item := m.table(*u.TableName)[k]
		cond := ""
		if u.ConditionExpression != nil {
			cond = *u.ConditionExpression
		}
		if !checkCondition(item, cond, u.ExpressionAttributeValues) {
			code := "ConditionalCheckFailed"
			reasons[i] = types.CancellationReason{Code: &code}
			failed = true
			continue
		}
		none := "None"
		reasons[i] = types.CancellationReason{Code: &none}
		items[i] = item
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	for i, ti := range params.TransactItems {
		if err := applyUpdate(items[i], *ti.Update.UpdateExpression, ti.Update.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (m *stockMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return &dyn.QueryOutput{}, nil
}

func (m *stockMock) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	return &dyn.ScanOutput{}, nil
}
