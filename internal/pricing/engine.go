package pricing

import (
	"context"

	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/catalog"
	"github.com/cubecart/core/internal/money"
)

// CatalogReader is the read-only catalog collaborator the engine prices
// against. (nil, nil) means the product does not exist.
type CatalogReader interface {
	Get(ctx context.Context, productID string) (*catalog.Item, error)
}

// CartLine is untrusted client input. Only the product id and quantity are
// ever read; any price or name a client attaches travels nowhere.
type CartLine struct {
	ProductID string
	Qty       int64
}

// ValidatedLine is a cart line after catalog lookup, frozen with the unit
// price and display fields that were authoritative at pricing time.
type ValidatedLine struct {
	ProductID string
	Name      string
	Image     string
	UnitPrice money.Money
	Qty       int64
}

// AuthoritativeTotal is the server-computed order total. It is derived per
// request and never cached.
type AuthoritativeTotal struct {
	Total money.Money
	Lines []ValidatedLine
}

// Engine recomputes order totals from the catalog. It holds no state
// beyond its collaborator and currency.
type Engine struct {
	catalog  CatalogReader
	currency string
}

func NewEngine(cat CatalogReader, currency string) *Engine {
	return &Engine{catalog: cat, currency: currency}
}

// ComputeAuthoritativeTotal looks up every line in the catalog, validates
// requested quantity against available stock, and accumulates the total in
// integer minor units. It fails fast on the first bad line, before any
// payment call can happen.
func (e *Engine) ComputeAuthoritativeTotal(ctx context.Context, lines []CartLine) (*AuthoritativeTotal, error) {
	if len(lines) == 0 {
		return nil, apperr.New(apperr.KindValidation, "cart is empty")
	}

	total := money.Money{Amount: 0, Currency: e.currency}
	validated := make([]ValidatedLine, 0, len(lines))

	for _, ln := range lines {
		if ln.ProductID == "" {
			return nil, apperr.New(apperr.KindValidation, "cart line missing product id")
		}
		if ln.Qty < 1 {
			return nil, apperr.New(apperr.KindValidation, "quantity must be at least 1 for product %s", ln.ProductID)
		}

		item, err := e.catalog.Get(ctx, ln.ProductID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "catalog lookup failed for product %s", ln.ProductID)
		}
		if item == nil {
			return nil, apperr.New(apperr.KindNotFound, "product not found: %s", ln.ProductID)
		}
		if ln.Qty > item.Stock {
			return nil, apperr.New(apperr.KindInsufficientStock, "insufficient stock for product %s", ln.ProductID)
		}

		unit, err := money.New(item.PriceCents, e.currency)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "bad catalog price for product %s", ln.ProductID)
		}
		lineTotal, err := unit.Mul(ln.Qty)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, err, "bad quantity for product %s", ln.ProductID)
		}
		total, err = total.Add(lineTotal)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "accumulate total")
		}

		validated = append(validated, ValidatedLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: unit,
			Qty:       ln.Qty,
		})
	}

	return &AuthoritativeTotal{Total: total, Lines: validated}, nil
}
