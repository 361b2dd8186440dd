package postgres

import (
	"context"
	"strings"
	"time"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

const donorColumns = `id, full_name, phone, COALESCE(email, ''), date_of_birth, gender, blood_group,
	street, city, state, pincode, diseases, medications, allergies,
	last_donation_date, is_available, donation_count, created_at`

func scanDonor(row scanner) (domain.Donor, error) {
	var (
		d   domain.Donor
		dob *time.Time
	)
	err := row.Scan(&d.ID, &d.FullName, &d.Phone, &d.Email, &dob, &d.Gender, &d.BloodGroup,
		&d.Address.Street, &d.Address.City, &d.Address.State, &d.Address.Pincode,
		&d.MedicalHistory.Diseases, &d.MedicalHistory.Medications, &d.MedicalHistory.Allergies,
		&d.LastDonationDate, &d.Available, &d.DonationCount, &d.CreatedAt)
	if dob != nil {
		d.DateOfBirth = *dob
	}
	return d, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (db *DB) CreateDonor(ctx context.Context, d *domain.Donor) error {
	newID(&d.ID)
	err := db.q.QueryRow(ctx, `
		INSERT INTO donors (id, full_name, phone, email, date_of_birth, gender, blood_group,
			street, city, state, pincode, diseases, medications, allergies,
			last_donation_date, is_available, donation_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at
	`, d.ID, d.FullName, d.Phone, nullString(d.Email), nullTime(d.DateOfBirth), d.Gender, d.BloodGroup,
		d.Address.Street, d.Address.City, d.Address.State, d.Address.Pincode,
		orEmpty(d.MedicalHistory.Diseases), orEmpty(d.MedicalHistory.Medications), orEmpty(d.MedicalHistory.Allergies),
		d.LastDonationDate, d.Available, d.DonationCount).Scan(&d.CreatedAt)
	return mapErr(err, "donor not found")
}

func (db *DB) GetDonor(ctx context.Context, id string) (domain.Donor, error) {
	if !validID(id) {
		return domain.Donor{}, domain.NotFoundf("donor not found")
	}
	d, err := scanDonor(db.q.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1`, id))
	return d, mapErr(err, "donor not found")
}

func (db *DB) GetDonorByPhone(ctx context.Context, phone string) (domain.Donor, error) {
	d, err := scanDonor(db.q.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE phone = $1`, phone))
	return d, mapErr(err, "donor not found")
}

func (db *DB) UpdateDonor(ctx context.Context, d domain.Donor) error {
	if !validID(d.ID) {
		return domain.NotFoundf("donor not found")
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE donors SET full_name = $2, phone = $3, email = $4, date_of_birth = $5, gender = $6,
			blood_group = $7, street = $8, city = $9, state = $10, pincode = $11,
			diseases = $12, medications = $13, allergies = $14,
			last_donation_date = $15, is_available = $16, donation_count = $17
		WHERE id = $1
	`, d.ID, d.FullName, d.Phone, nullString(d.Email), nullTime(d.DateOfBirth), d.Gender,
		d.BloodGroup, d.Address.Street, d.Address.City, d.Address.State, d.Address.Pincode,
		orEmpty(d.MedicalHistory.Diseases), orEmpty(d.MedicalHistory.Medications), orEmpty(d.MedicalHistory.Allergies),
		d.LastDonationDate, d.Available, d.DonationCount)
	if err != nil {
		return mapErr(err, "donor not found")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("donor not found")
	}
	return nil
}

func (db *DB) listDonors(ctx context.Context, sql string, args ...any) ([]domain.Donor, error) {
	rows, err := db.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (db *DB) ListDonors(ctx context.Context) ([]domain.Donor, error) {
	return db.listDonors(ctx, `SELECT `+donorColumns+` FROM donors ORDER BY created_at DESC`)
}

func (db *DB) CountDonors(ctx context.Context) (int, error) {
	var n int
	err := db.q.QueryRow(ctx, `SELECT count(*) FROM donors`).Scan(&n)
	return n, err
}

func (db *DB) RecordDonation(ctx context.Context, donorID string, at time.Time) error {
	if !validID(donorID) {
		return domain.NotFoundf("donor not found")
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE donors SET donation_count = donation_count + 1, last_donation_date = $2 WHERE id = $1
	`, donorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("donor not found")
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (db *DB) FindRecommended(ctx context.Context, q ports.DonorQuery) ([]domain.Donor, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 3
	}
	return db.listDonors(ctx, `
		SELECT `+donorColumns+` FROM donors
		WHERE blood_group = $1 AND is_available
			AND (city ILIKE $2 OR state ILIKE $3)
		ORDER BY donation_count DESC, last_donation_date ASC NULLS FIRST, created_at
		LIMIT $4
	`, q.BloodGroup, containsPattern(q.City), containsPattern(q.State), limit)
}
