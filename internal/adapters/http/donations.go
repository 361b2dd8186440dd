package httpadapter

import (
	"net/http"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type schedulePayload struct {
	donorPayload
	BloodBankID  string    `json:"bloodBankId"`
	BloodBank    string    `json:"bloodBank"`
	Quantity     flexInt   `json:"quantity"`
	DonationDate *flexDate `json:"donationDate"`
	Notes        string    `json:"notes"`
}

func (s *Server) scheduleDonation(w http.ResponseWriter, r *http.Request) {
	var in schedulePayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/")
		return
	}
	bankID := in.BloodBankID
	if bankID == "" {
		bankID = in.BloodBank
	}
	donation, err := s.donations.Schedule(r.Context(), ports.ScheduleDonation{
		Donor:        in.info(),
		BloodBankID:  bankID,
		BloodGroup:   in.BloodGroup,
		Quantity:     int(in.Quantity),
		DonationDate: in.DonationDate.ptr(),
		Notes:        in.Notes,
	})
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.ok(w, r, http.StatusCreated, "donation scheduled", donation, "/")
}

func (s *Server) listDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := s.donations.List(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", donations, "")
}

func (s *Server) getDonation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	details, err := s.donations.Get(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", details, "")
}

type donationStatusPayload struct {
	Status      string              `json:"status"`
	TestResults *domain.TestResults `json:"testResults"`
}

func (s *Server) updateDonationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	var in donationStatusPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	donation, err := s.donations.UpdateStatus(r.Context(), principal(r), id, ports.DonationStatusUpdate{
		Status:      in.Status,
		TestResults: in.TestResults,
	})
	if err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	s.ok(w, r, http.StatusOK, "donation status updated", donation, "/bloodbank-dashboard")
}
