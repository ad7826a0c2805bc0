package sim

import (
	"fmt"
	"strings"
)

// Inventory holds unit counts indexed by product type.
// Counts never go negative: withdrawals that would do so are rejected with an
// *InventoryError and leave the inventory untouched.
type Inventory struct {
	name  string
	units []int
}

// NewInventory creates an empty inventory for productTypes product types.
// name is used in error messages.
func NewInventory(name string, productTypes int) *Inventory {
	if productTypes <= 0 {
		panic(fmt.Sprintf("NewInventory: productTypes must be > 0, got %d", productTypes))
	}
	return &Inventory{name: name, units: make([]int, productTypes)}
}

// Len returns the number of product types tracked.
func (inv *Inventory) Len() int {
	return len(inv.units)
}

// Get returns the units held for productType.
func (inv *Inventory) Get(productType int) int {
	return inv.units[productType]
}

// Add deposits n units of productType. Panics if n < 0.
func (inv *Inventory) Add(productType, n int) {
	if n < 0 {
		panic(fmt.Sprintf("Inventory.Add: n must be >= 0, got %d", n))
	}
	inv.units[productType] += n
}

// AddAll deposits a whole per-product vector.
// Negative entries are rejected before anything is added.
func (inv *Inventory) AddAll(units []int) error {
	if len(units) != len(inv.units) {
		return fmt.Errorf("%s: got %d product types, want %d", inv.name, len(units), len(inv.units))
	}
	for p, n := range units {
		if n < 0 {
			return fmt.Errorf("%w: %s: incoming product %d has %d units", ErrNegativeInventory, inv.name, p, n)
		}
	}
	for p, n := range units {
		inv.units[p] += n
	}
	return nil
}

// Take withdraws n units of productType.
func (inv *Inventory) Take(productType, n int) error {
	if inv.units[productType] < n {
		return &InventoryError{Where: inv.name, ProductType: productType, Have: inv.units[productType], Want: n}
	}
	inv.units[productType] -= n
	return nil
}

// Covers reports whether every demand[i] can be withdrawn at once.
func (inv *Inventory) Covers(demand []int) bool {
	for p, n := range demand {
		if inv.units[p] < n {
			return false
		}
	}
	return true
}

// TakeAll withdraws a whole demand vector atomically.
func (inv *Inventory) TakeAll(demand []int) error {
	for p, n := range demand {
		if inv.units[p] < n {
			return &InventoryError{Where: inv.name, ProductType: p, Have: inv.units[p], Want: n}
		}
	}
	for p, n := range demand {
		inv.units[p] -= n
	}
	return nil
}

// Total returns the sum over all product types.
func (inv *Inventory) Total() int {
	total := 0
	for _, n := range inv.units {
		total += n
	}
	return total
}

// Snapshot returns a copy of the per-product counts.
func (inv *Inventory) Snapshot() []int {
	out := make([]int, len(inv.units))
	copy(out, inv.units)
	return out
}

func (inv *Inventory) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, n := range inv.units {
		sb.WriteString(fmt.Sprint(n))
		if i < len(inv.units)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
