package postgres

import (
	"context"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

const donationColumns = `id, donor_id, blood_bank_id, blood_group, quantity, donation_date, status,
	completed_date, hiv_status, hepatitis_status, other_tests, tests_approved, notes, created_at`

func scanDonation(row scanner) (domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(&d.ID, &d.DonorID, &d.BloodBankID, &d.BloodGroup, &d.Quantity, &d.DonationDate, &d.Status,
		&d.CompletedDate, &d.TestResults.HIVStatus, &d.TestResults.HepatitisStatus, &d.TestResults.OtherTests,
		&d.TestResults.Approved, &d.Notes, &d.CreatedAt)
	return d, err
}

func (db *DB) CreateDonation(ctx context.Context, d *domain.Donation) error {
	newID(&d.ID)
	if !validID(d.DonorID) {
		return domain.NotFoundf("donor not found")
	}
	if !validID(d.BloodBankID) {
		return domain.NotFoundf("blood bank not found")
	}
	err := db.q.QueryRow(ctx, `
		INSERT INTO donations (id, donor_id, blood_bank_id, blood_group, quantity, donation_date, status,
			completed_date, hiv_status, hepatitis_status, other_tests, tests_approved, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`, d.ID, d.DonorID, d.BloodBankID, d.BloodGroup, d.Quantity, d.DonationDate, d.Status,
		d.CompletedDate, d.TestResults.HIVStatus, d.TestResults.HepatitisStatus, d.TestResults.OtherTests,
		d.TestResults.Approved, d.Notes).Scan(&d.CreatedAt)
	return mapErr(err, "donation not found")
}

func (db *DB) getDonation(ctx context.Context, id, suffix string) (domain.Donation, error) {
	if !validID(id) {
		return domain.Donation{}, domain.NotFoundf("donation not found")
	}
	d, err := scanDonation(db.q.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`+suffix, id))
	return d, mapErr(err, "donation not found")
}

func (db *DB) GetDonation(ctx context.Context, id string) (domain.Donation, error) {
	return db.getDonation(ctx, id, "")
}

func (db *DB) LockDonation(ctx context.Context, id string) (domain.Donation, error) {
	return db.getDonation(ctx, id, " FOR UPDATE")
}

func (db *DB) UpdateDonation(ctx context.Context, d domain.Donation) error {
	if !validID(d.ID) {
		return domain.NotFoundf("donation not found")
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE donations SET status = $2, completed_date = $3, hiv_status = $4, hepatitis_status = $5,
			other_tests = $6, tests_approved = $7, notes = $8, quantity = $9, donation_date = $10
		WHERE id = $1
	`, d.ID, d.Status, d.CompletedDate, d.TestResults.HIVStatus, d.TestResults.HepatitisStatus,
		d.TestResults.OtherTests, d.TestResults.Approved, d.Notes, d.Quantity, d.DonationDate)
	if err != nil {
		return mapErr(err, "donation not found")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("donation not found")
	}
	return nil
}

func (db *DB) ListDonations(ctx context.Context, f ports.DonationFilter) ([]domain.Donation, error) {
	if (f.DonorID != "" && !validID(f.DonorID)) || (f.BloodBankID != "" && !validID(f.BloodBankID)) {
		return nil, nil
	}
	rows, err := db.q.Query(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE ($1 = '' OR donor_id::text = $1) AND ($2 = '' OR blood_bank_id::text = $2)
		ORDER BY created_at DESC
	`, f.DonorID, f.BloodBankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const requestColumns = `id, requested_by, patient_name, blood_group, units_required, urgency, required_by,
	reason, status, COALESCE(fulfilled_by::text, ''), fulfilled_at, notes, city, state,
	months_since_last_donation, recommended_donors, ml_prediction, created_at`

func scanRequest(row scanner) (domain.BloodRequest, error) {
	var r domain.BloodRequest
	err := row.Scan(&r.ID, &r.RequestedBy, &r.PatientName, &r.BloodGroup, &r.UnitsRequired, &r.Urgency,
		&r.RequiredBy, &r.Reason, &r.Status, &r.FulfilledBy, &r.FulfilledAt, &r.Notes, &r.City, &r.State,
		&r.MonthsSinceLastDonation, &r.RecommendedDonors, &r.MLPrediction, &r.CreatedAt)
	return r, err
}

func (db *DB) CreateRequest(ctx context.Context, r *domain.BloodRequest) error {
	newID(&r.ID)
	if !validID(r.RequestedBy) {
		return domain.NotFoundf("hospital not found")
	}
	err := db.q.QueryRow(ctx, `
		INSERT INTO blood_requests (id, requested_by, patient_name, blood_group, units_required, urgency,
			required_by, reason, status, notes, city, state, months_since_last_donation,
			recommended_donors, ml_prediction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`, r.ID, r.RequestedBy, r.PatientName, r.BloodGroup, r.UnitsRequired, r.Urgency,
		r.RequiredBy, r.Reason, r.Status, r.Notes, r.City, r.State, r.MonthsSinceLastDonation,
		orEmpty(r.RecommendedDonors), r.MLPrediction).Scan(&r.CreatedAt)
	return mapErr(err, "request not found")
}

func (db *DB) getRequest(ctx context.Context, id, suffix string) (domain.BloodRequest, error) {
	if !validID(id) {
		return domain.BloodRequest{}, domain.NotFoundf("request not found")
	}
	r, err := scanRequest(db.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM blood_requests WHERE id = $1`+suffix, id))
	return r, mapErr(err, "request not found")
}

func (db *DB) GetRequest(ctx context.Context, id string) (domain.BloodRequest, error) {
	return db.getRequest(ctx, id, "")
}

func (db *DB) LockRequest(ctx context.Context, id string) (domain.BloodRequest, error) {
	return db.getRequest(ctx, id, " FOR UPDATE")
}

func (db *DB) UpdateRequest(ctx context.Context, r domain.BloodRequest) error {
	if !validID(r.ID) {
		return domain.NotFoundf("request not found")
	}
	var fulfilledBy *string
	if r.FulfilledBy != "" {
		fulfilledBy = &r.FulfilledBy
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE blood_requests SET status = $2, fulfilled_by = $3, fulfilled_at = $4, notes = $5
		WHERE id = $1
	`, r.ID, r.Status, fulfilledBy, r.FulfilledAt, r.Notes)
	if err != nil {
		return mapErr(err, "request not found")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("request not found")
	}
	return nil
}

func (db *DB) DeleteRequest(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NotFoundf("request not found")
	}
	tag, err := db.q.Exec(ctx, `DELETE FROM blood_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("request not found")
	}
	return nil
}

func (db *DB) ListRequests(ctx context.Context, f ports.RequestFilter) ([]domain.BloodRequest, error) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	rows, err := db.q.Query(ctx, `
		SELECT `+requestColumns+` FROM blood_requests
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
			AND ($2 = '' OR urgency = $2)
			AND ($3 = '' OR requested_by::text = $3)
		ORDER BY created_at DESC
	`, statuses, string(f.Urgency), f.RequestedBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.BloodRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) SetRecommendation(ctx context.Context, id string, prediction string, donorIDs []string) error {
	if !validID(id) {
		return domain.NotFoundf("request not found")
	}
	tag, err := db.q.Exec(ctx, `
		UPDATE blood_requests SET ml_prediction = $2, recommended_donors = $3 WHERE id = $1
	`, id, prediction, orEmpty(donorIDs))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("request not found")
	}
	return nil
}
