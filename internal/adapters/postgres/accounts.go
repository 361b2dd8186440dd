package postgres

import (
	"context"
	"strings"

	"bloodlink/internal/domain"
)

const identityColumns = `id, email, password_hash, role, is_active, created_at`

func scanIdentity(row scanner) (domain.Identity, error) {
	var i domain.Identity
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Role, &i.Active, &i.CreatedAt)
	return i, err
}

func (db *DB) CreateIdentity(ctx context.Context, ident *domain.Identity) error {
	newID(&ident.ID)
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))
	err := db.q.QueryRow(ctx, `
		INSERT INTO identities (id, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, ident.ID, ident.Email, ident.PasswordHash, ident.Role, ident.Active).Scan(&ident.CreatedAt)
	return mapErr(err, "user not found")
}

func (db *DB) GetIdentity(ctx context.Context, id string) (domain.Identity, error) {
	if !validID(id) {
		return domain.Identity{}, domain.NotFoundf("user not found")
	}
	i, err := scanIdentity(db.q.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
	return i, mapErr(err, "user not found")
}

func (db *DB) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	i, err := scanIdentity(db.q.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email))
	return i, mapErr(err, "user not found")
}

func (db *DB) ListIdentities(ctx context.Context) ([]domain.Identity, error) {
	rows, err := db.q.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (db *DB) SetIdentityActive(ctx context.Context, id string, active bool) error {
	if !validID(id) {
		return domain.NotFoundf("user not found")
	}
	tag, err := db.q.Exec(ctx, `UPDATE identities SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("user not found")
	}
	return nil
}

const hospitalColumns = `id, email, name, registration_number, phone, street, city, state, pincode,
	emergency_contact, is_verified, is_active, created_at`

func scanHospital(row scanner) (domain.Hospital, error) {
	var h domain.Hospital
	err := row.Scan(&h.ID, &h.Email, &h.Name, &h.RegistrationNumber, &h.Phone,
		&h.Address.Street, &h.Address.City, &h.Address.State, &h.Address.Pincode,
		&h.EmergencyContact, &h.Verified, &h.Active, &h.CreatedAt)
	return h, err
}

func (db *DB) CreateHospital(ctx context.Context, h *domain.Hospital) error {
	newID(&h.ID)
	h.Email = strings.ToLower(strings.TrimSpace(h.Email))
	err := db.q.QueryRow(ctx, `
		INSERT INTO hospitals (id, email, name, registration_number, phone, street, city, state, pincode,
			emergency_contact, is_verified, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`, h.ID, h.Email, h.Name, h.RegistrationNumber, h.Phone,
		h.Address.Street, h.Address.City, h.Address.State, h.Address.Pincode,
		h.EmergencyContact, h.Verified, h.Active).Scan(&h.CreatedAt)
	return mapErr(err, "hospital not found")
}

func (db *DB) GetHospital(ctx context.Context, id string) (domain.Hospital, error) {
	if !validID(id) {
		return domain.Hospital{}, domain.NotFoundf("hospital not found")
	}
	h, err := scanHospital(db.q.QueryRow(ctx, `SELECT `+hospitalColumns+` FROM hospitals WHERE id = $1`, id))
	return h, mapErr(err, "hospital not found")
}

func (db *DB) UpdateHospital(ctx context.Context, h domain.Hospital) error {
	if !validID(h.ID) {
		return domain.NotFoundf("hospital not found")
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE hospitals SET name = $2, phone = $3, street = $4, city = $5, state = $6, pincode = $7,
			emergency_contact = $8, is_verified = $9, is_active = $10
		WHERE id = $1
	`, h.ID, h.Name, h.Phone, h.Address.Street, h.Address.City, h.Address.State, h.Address.Pincode,
		h.EmergencyContact, h.Verified, h.Active)
	if err != nil {
		return mapErr(err, "hospital not found")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("hospital not found")
	}
	return nil
}
