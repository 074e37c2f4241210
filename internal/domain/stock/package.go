// Package stock groups line items into delivery packages per stock location.
package stock

import (
	"github.com/shopspring/decimal"
)

// Status says whether a package item ships from stock or waits for it.
type Status string

const (
	StatusOnHand      Status = "on_hand"
	StatusBackordered Status = "backordered"
)

// ContentItem is a quantity of one variant inside a package.
type ContentItem struct {
	VariantID string          `json:"variant_id"`
	Weight    decimal.Decimal `json:"weight"` // per unit
	Quantity  int             `json:"quantity"`
	Status    Status          `json:"status"`
}

// Package is everything leaving one stock location in one box.
type Package struct {
	StockLocationID string        `json:"stock_location_id"`
	Contents        []ContentItem `json:"contents"`
}

// NewPackage returns an empty package for a location.
func NewPackage(stockLocationID string) *Package {
	return &Package{StockLocationID: stockLocationID}
}

// Add puts quantity units into the package, merging with an existing item of
// the same variant and status.
func (p *Package) Add(variantID string, weight decimal.Decimal, quantity int, status Status) {
	if quantity <= 0 {
		return
	}
	for i := range p.Contents {
		c := &p.Contents[i]
		if c.VariantID == variantID && c.Status == status {
			c.Quantity += quantity
			return
		}
	}
	p.Contents = append(p.Contents, ContentItem{
		VariantID: variantID,
		Weight:    weight,
		Quantity:  quantity,
		Status:    status,
	})
}

// OnHand returns the items that ship from stock.
func (p *Package) OnHand() []ContentItem { return p.filter(StatusOnHand) }

// Backordered returns the items waiting for stock.
func (p *Package) Backordered() []ContentItem { return p.filter(StatusBackordered) }

func (p *Package) filter(status Status) []ContentItem {
	var out []ContentItem
	for _, c := range p.Contents {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// Weight is the sum of unit weight times quantity.
func (p *Package) Weight() decimal.Decimal {
	total := decimal.Zero
	for _, c := range p.Contents {
		total = total.Add(c.Weight.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	return total
}

// Quantity is the number of units in the package.
func (p *Package) Quantity() int {
	n := 0
	for _, c := range p.Contents {
		n += c.Quantity
	}
	return n
}

// Empty reports whether nothing was added.
func (p *Package) Empty() bool { return len(p.Contents) == 0 }
