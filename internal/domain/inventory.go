package domain

import "time"

// InventoryEntry is the unit count a blood bank holds for one blood group.
type InventoryEntry struct {
	BloodGroup  BloodGroup `json:"bloodGroup"`
	Quantity    int        `json:"quantity"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// InventoryUpdate is one row of a bulk set.
type InventoryUpdate struct {
	BloodGroup BloodGroup `json:"bloodGroup"`
	Quantity   int        `json:"quantity"`
}

// InventoryOp names a direct inventory adjustment.
type InventoryOp string

const (
	InventoryAdd    InventoryOp = "add"
	InventoryRemove InventoryOp = "remove"
	InventorySet    InventoryOp = "set"
)

func ParseInventoryOp(s string) (InventoryOp, error) {
	switch op := InventoryOp(s); op {
	case InventoryAdd, InventoryRemove, InventorySet:
		return op, nil
	}
	return "", Validationf("invalid operation %q: must be 'add', 'remove', or 'set'", s)
}

// Inventory is the per-group ledger embedded in a blood bank. Entries are
// created lazily; quantities never go negative.
type Inventory []InventoryEntry

// NewInventory returns one zero entry per blood group.
func NewInventory(now time.Time) Inventory {
	inv := make(Inventory, 0, len(BloodGroups))
	for _, g := range BloodGroups {
		inv = append(inv, InventoryEntry{BloodGroup: g, LastUpdated: now})
	}
	return inv
}

func (inv Inventory) index(g BloodGroup) int {
	for i := range inv {
		if inv[i].BloodGroup == g {
			return i
		}
	}
	return -1
}

func (inv Inventory) Find(g BloodGroup) (InventoryEntry, bool) {
	if i := inv.index(g); i >= 0 {
		return inv[i], true
	}
	return InventoryEntry{}, false
}

// Quantity is 0 for absent entries.
func (inv Inventory) Quantity(g BloodGroup) int {
	e, _ := inv.Find(g)
	return e.Quantity
}

// entry returns a pointer to the entry for g, appending it when absent.
func (inv *Inventory) entry(g BloodGroup, now time.Time) *InventoryEntry {
	if i := inv.index(g); i >= 0 {
		return &(*inv)[i]
	}
	*inv = append(*inv, InventoryEntry{BloodGroup: g, LastUpdated: now})
	return &(*inv)[len(*inv)-1]
}

// Set replaces the quantity with max(0, qty).
func (inv *Inventory) Set(g BloodGroup, qty int, now time.Time) (InventoryEntry, error) {
	if !g.Valid() {
		return InventoryEntry{}, Validationf("invalid blood group: %q", g)
	}
	e := inv.entry(g, now)
	e.Quantity = max(0, qty)
	e.LastUpdated = now
	return *e, nil
}

// Add increases the quantity, creating the entry when absent.
func (inv *Inventory) Add(g BloodGroup, qty int, now time.Time) (InventoryEntry, error) {
	if !g.Valid() {
		return InventoryEntry{}, Validationf("invalid blood group: %q", g)
	}
	if qty < 0 {
		return InventoryEntry{}, Validationf("quantity must not be negative")
	}
	e := inv.entry(g, now)
	e.Quantity += qty
	e.LastUpdated = now
	return *e, nil
}

// Remove decreases the quantity, clamping at 0. Removal requires an existing entry.
func (inv *Inventory) Remove(g BloodGroup, qty int, now time.Time) (InventoryEntry, error) {
	if !g.Valid() {
		return InventoryEntry{}, Validationf("invalid blood group: %q", g)
	}
	if qty < 0 {
		return InventoryEntry{}, Validationf("quantity must not be negative")
	}
	i := inv.index(g)
	if i < 0 {
		return InventoryEntry{}, NotFoundf("no existing inventory for blood group %s", g)
	}
	e := &(*inv)[i]
	e.Quantity = max(0, e.Quantity-qty)
	e.LastUpdated = now
	return *e, nil
}

// Deduct takes exactly units out of stock or fails with ErrInsufficientInventory
// leaving the ledger untouched.
func (inv *Inventory) Deduct(g BloodGroup, units int, now time.Time) (InventoryEntry, error) {
	i := inv.index(g)
	if i < 0 || (*inv)[i].Quantity < units {
		return InventoryEntry{}, ErrInsufficientInventory
	}
	e := &(*inv)[i]
	e.Quantity -= units
	e.LastUpdated = now
	return *e, nil
}

// Apply dispatches a direct adjustment.
func (inv *Inventory) Apply(op InventoryOp, g BloodGroup, qty int, now time.Time) (InventoryEntry, error) {
	switch op {
	case InventoryAdd:
		return inv.Add(g, qty, now)
	case InventoryRemove:
		return inv.Remove(g, qty, now)
	case InventorySet:
		return inv.Set(g, qty, now)
	}
	return InventoryEntry{}, Validationf("invalid operation %q", op)
}

// SetAll applies set semantics to every update. All groups are validated
// before any entry changes, so one bad group leaves the ledger untouched.
func (inv *Inventory) SetAll(updates []InventoryUpdate, now time.Time) ([]InventoryEntry, error) {
	for _, u := range updates {
		if !u.BloodGroup.Valid() {
			return nil, Validationf("invalid blood group: %q", u.BloodGroup)
		}
	}
	changed := make([]InventoryEntry, 0, len(updates))
	for _, u := range updates {
		e, _ := inv.Set(u.BloodGroup, u.Quantity, now)
		changed = append(changed, e)
	}
	return changed, nil
}
