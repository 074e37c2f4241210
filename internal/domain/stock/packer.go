package stock

import "github.com/shopspring/decimal"

// Location is a stock location's on-hand counts keyed by variant.
type Location struct {
	ID     string
	OnHand map[string]int
}

// Line is a variant quantity to pack.
type Line struct {
	VariantID string
	Quantity  int
	Weight    decimal.Decimal
}

// Pack splits lines into packages. locations must be in priority order; each
// line takes on-hand stock from the first location that has it and the
// remainder is backordered at the first location. With no locations a single
// unassigned package holds everything as backordered.
func Pack(locations []Location, lines []Line) []*Package {
	if len(locations) == 0 {
		pkg := NewPackage("")
		for _, l := range lines {
			pkg.Add(l.VariantID, l.Weight, l.Quantity, StatusBackordered)
		}
		if pkg.Empty() {
			return nil
		}
		return []*Package{pkg}
	}

	available := make([]map[string]int, len(locations))
	packages := make([]*Package, len(locations))
	for i, loc := range locations {
		available[i] = make(map[string]int, len(loc.OnHand))
		for variantID, n := range loc.OnHand {
			available[i][variantID] = n
		}
		packages[i] = NewPackage(loc.ID)
	}

	for _, l := range lines {
		remaining := l.Quantity
		for i := range locations {
			if remaining == 0 {
				break
			}
			take := min(available[i][l.VariantID], remaining)
			if take <= 0 {
				continue
			}
			available[i][l.VariantID] -= take
			packages[i].Add(l.VariantID, l.Weight, take, StatusOnHand)
			remaining -= take
		}
		packages[0].Add(l.VariantID, l.Weight, remaining, StatusBackordered)
	}

	var out []*Package
	for _, p := range packages {
		if !p.Empty() {
			out = append(out, p)
		}
	}
	return out
}
