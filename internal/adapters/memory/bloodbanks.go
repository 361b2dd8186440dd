package memory

import (
	"context"
	"slices"
	"strings"

	"bloodlink/internal/domain"
)

func (s *Store) CreateBloodBank(_ context.Context, bank *domain.BloodBank) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, existing := range st.banks {
		if existing.RegistrationNumber == bank.RegistrationNumber {
			return domain.Conflictf("blood bank with this registration number already exists")
		}
	}
	if bank.ID != "" {
		if _, taken := st.banks[bank.ID]; taken {
			return domain.Conflictf("blood bank already exists")
		}
	}
	s.track(&bank.ID)
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = s.now()
	}
	keep(s, st.banks, bank.ID)
	st.banks[bank.ID] = cloneBank(*bank)
	return nil
}

func (s *Store) GetBloodBank(_ context.Context, id string) (domain.BloodBank, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	b, ok := s.st.banks[id]
	if !ok {
		return domain.BloodBank{}, domain.NotFoundf("blood bank not found")
	}
	return cloneBank(b), nil
}

// LockBloodBank relies on InTx serialising transactions.
func (s *Store) LockBloodBank(ctx context.Context, id string) (domain.BloodBank, error) {
	return s.GetBloodBank(ctx, id)
}

func (s *Store) ListBloodBanks(_ context.Context) ([]domain.BloodBank, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	out := make([]domain.BloodBank, 0, len(s.st.banks))
	for _, b := range s.st.banks {
		out = append(out, cloneBank(b))
	}
	slices.SortFunc(out, func(a, b domain.BloodBank) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) ListBloodBanksWithStock(ctx context.Context, group domain.BloodGroup) ([]domain.BloodBank, error) {
	all, err := s.ListBloodBanks(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if b.Inventory.Quantity(group) > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// UpdateBloodBank replaces profile fields; the stored inventory is kept.
func (s *Store) UpdateBloodBank(_ context.Context, bank domain.BloodBank) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cur, ok := s.st.banks[bank.ID]
	if !ok {
		return domain.NotFoundf("blood bank not found")
	}
	for id, existing := range s.st.banks {
		if id != bank.ID && existing.RegistrationNumber == bank.RegistrationNumber {
			return domain.Conflictf("blood bank with this registration number already exists")
		}
	}
	bank.Inventory = cur.Inventory
	bank.CreatedAt = cur.CreatedAt
	keep(s, s.st.banks, bank.ID)
	s.st.banks[bank.ID] = bank
	return nil
}

func (s *Store) SaveInventory(_ context.Context, bankID string, entries ...domain.InventoryEntry) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	b, ok := s.st.banks[bankID]
	if !ok {
		return domain.NotFoundf("blood bank not found")
	}
	b = cloneBank(b)
	for _, e := range entries {
		if e.Quantity < 0 {
			return domain.Validationf("inventory quantity must not be negative")
		}
		if i := slices.IndexFunc(b.Inventory, func(x domain.InventoryEntry) bool { return x.BloodGroup == e.BloodGroup }); i >= 0 {
			b.Inventory[i] = e
		} else {
			b.Inventory = append(b.Inventory, e)
		}
	}
	keep(s, s.st.banks, bankID)
	s.st.banks[bankID] = b
	return nil
}
