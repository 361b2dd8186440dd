package postgres

import (
	"context"

	"bloodlink/internal/domain"
)

const bankColumns = `id, name, registration_number, phone, email, street, city, state, pincode,
	open_time, close_time, is_verified, created_at`

func scanBank(row scanner) (domain.BloodBank, error) {
	var b domain.BloodBank
	err := row.Scan(&b.ID, &b.Name, &b.RegistrationNumber, &b.Phone, &b.Email,
		&b.Address.Street, &b.Address.City, &b.Address.State, &b.Address.Pincode,
		&b.OperatingHours.Open, &b.OperatingHours.Close, &b.Verified, &b.CreatedAt)
	return b, err
}

// inventoryOrder keeps ledger entries in the canonical blood group order.
const inventoryOrder = `array_position(ARRAY['A+','A-','B+','B-','AB+','AB-','O+','O-'], blood_group)`

func (db *DB) CreateBloodBank(ctx context.Context, bank *domain.BloodBank) error {
	newID(&bank.ID)
	return db.withTx(ctx, func(tx *DB) error {
		err := tx.q.QueryRow(ctx, `
			INSERT INTO blood_banks (id, name, registration_number, phone, email, street, city, state, pincode,
				open_time, close_time, is_verified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at
		`, bank.ID, bank.Name, bank.RegistrationNumber, bank.Phone, bank.Email,
			bank.Address.Street, bank.Address.City, bank.Address.State, bank.Address.Pincode,
			bank.OperatingHours.Open, bank.OperatingHours.Close, bank.Verified).Scan(&bank.CreatedAt)
		if err != nil {
			return mapErr(err, "blood bank not found")
		}
		return tx.SaveInventory(ctx, bank.ID, bank.Inventory...)
	})
}

func (db *DB) getBank(ctx context.Context, id, suffix string) (domain.BloodBank, error) {
	if !validID(id) {
		return domain.BloodBank{}, domain.NotFoundf("blood bank not found")
	}
	b, err := scanBank(db.q.QueryRow(ctx, `SELECT `+bankColumns+` FROM blood_banks WHERE id = $1`+suffix, id))
	if err != nil {
		return b, mapErr(err, "blood bank not found")
	}
	inv, err := db.loadInventories(ctx, []string{b.ID})
	if err != nil {
		return b, err
	}
	b.Inventory = inv[b.ID]
	return b, nil
}

func (db *DB) GetBloodBank(ctx context.Context, id string) (domain.BloodBank, error) {
	return db.getBank(ctx, id, "")
}

// LockBloodBank takes a row lock held until the enclosing transaction ends.
func (db *DB) LockBloodBank(ctx context.Context, id string) (domain.BloodBank, error) {
	return db.getBank(ctx, id, " FOR UPDATE")
}

func (db *DB) listBanks(ctx context.Context, sql string, args ...any) ([]domain.BloodBank, error) {
	rows, err := db.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var (
		out []domain.BloodBank
		ids []string
	)
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	inv, err := db.loadInventories(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Inventory = inv[out[i].ID]
	}
	return out, nil
}

func (db *DB) ListBloodBanks(ctx context.Context) ([]domain.BloodBank, error) {
	return db.listBanks(ctx, `SELECT `+bankColumns+` FROM blood_banks ORDER BY name`)
}

func (db *DB) ListBloodBanksWithStock(ctx context.Context, group domain.BloodGroup) ([]domain.BloodBank, error) {
	return db.listBanks(ctx, `
		SELECT `+bankColumns+` FROM blood_banks b
		WHERE EXISTS (
			SELECT 1 FROM inventory_entries e
			WHERE e.bank_id = b.id AND e.blood_group = $1 AND e.quantity > 0
		)
		ORDER BY name
	`, group)
}

func (db *DB) UpdateBloodBank(ctx context.Context, bank domain.BloodBank) error {
	if !validID(bank.ID) {
		return domain.NotFoundf("blood bank not found")
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE blood_banks SET name = $2, registration_number = $3, phone = $4, email = $5,
			street = $6, city = $7, state = $8, pincode = $9, open_time = $10, close_time = $11, is_verified = $12
		WHERE id = $1
	`, bank.ID, bank.Name, bank.RegistrationNumber, bank.Phone, bank.Email,
		bank.Address.Street, bank.Address.City, bank.Address.State, bank.Address.Pincode,
		bank.OperatingHours.Open, bank.OperatingHours.Close, bank.Verified)
	if err != nil {
		return mapErr(err, "blood bank not found")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("blood bank not found")
	}
	return nil
}

// SaveInventory upserts the given ledger entries.
func (db *DB) SaveInventory(ctx context.Context, bankID string, entries ...domain.InventoryEntry) error {
	if !validID(bankID) {
		return domain.NotFoundf("blood bank not found")
	}
	for _, e := range entries {
		if e.Quantity < 0 {
			return domain.Validationf("quantity must not be negative")
		}
		_, err := db.q.Exec(ctx, `
			INSERT INTO inventory_entries (bank_id, blood_group, quantity, last_updated)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (bank_id, blood_group)
			DO UPDATE SET quantity = EXCLUDED.quantity, last_updated = EXCLUDED.last_updated
		`, bankID, e.BloodGroup, e.Quantity, e.LastUpdated)
		if err != nil {
			return mapErr(err, "blood bank not found")
		}
	}
	return nil
}

func (db *DB) loadInventories(ctx context.Context, bankIDs []string) (map[string]domain.Inventory, error) {
	rows, err := db.q.Query(ctx, `
		SELECT bank_id, blood_group, quantity, last_updated
		FROM inventory_entries
		WHERE bank_id = ANY($1::uuid[])
		ORDER BY bank_id, `+inventoryOrder, bankIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]domain.Inventory, len(bankIDs))
	for rows.Next() {
		var (
			bankID string
			e      domain.InventoryEntry
		)
		if err := rows.Scan(&bankID, &e.BloodGroup, &e.Quantity, &e.LastUpdated); err != nil {
			return nil, err
		}
		out[bankID] = append(out[bankID], e)
	}
	return out, rows.Err()
}
