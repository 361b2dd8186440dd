package httpadapter

import (
	"net/http"

	"bloodlink/internal/ports"
)

// donorPayload is shared by the donor profile endpoints and donation
// scheduling. Medical history may be nested or flat.
type donorPayload struct {
	FullName         string    `json:"fullName"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	DateOfBirth      *flexDate `json:"dateOfBirth"`
	Gender           string    `json:"gender"`
	BloodGroup       string    `json:"bloodGroup"`
	LastDonationDate *flexDate `json:"lastDonationDate"`
	Available        *flexBool `json:"isAvailable"`
	MedicalHistory   *struct {
		Diseases    flexList `json:"diseases"`
		Medications flexList `json:"medications"`
		Allergies   flexList `json:"allergies"`
	} `json:"medicalHistory"`
	Diseases    flexList `json:"diseases"`
	Medications flexList `json:"medications"`
	Allergies   flexList `json:"allergies"`
	addressFields
}

func (p donorPayload) info() ports.DonorInfo {
	info := ports.DonorInfo{
		FullName:         p.FullName,
		Phone:            p.Phone,
		Email:            p.Email,
		DateOfBirth:      p.DateOfBirth.ptr(),
		Gender:           p.Gender,
		BloodGroup:       p.BloodGroup,
		Address:          p.address(),
		Diseases:         p.Diseases,
		Medications:      p.Medications,
		Allergies:        p.Allergies,
		LastDonationDate: p.LastDonationDate.ptr(),
		Available:        p.Available.ptr(),
	}
	if mh := p.MedicalHistory; mh != nil {
		if mh.Diseases != nil {
			info.Diseases = mh.Diseases
		}
		if mh.Medications != nil {
			info.Medications = mh.Medications
		}
		if mh.Allergies != nil {
			info.Allergies = mh.Allergies
		}
	}
	return info
}

func (s *Server) createDonor(w http.ResponseWriter, r *http.Request) {
	var in donorPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	donor, err := s.donors.Create(r.Context(), in.info())
	if err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	s.ok(w, r, http.StatusCreated, "donor profile created", donor, "/profile")
}

func (s *Server) updateDonor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	var in donorPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	donor, err := s.donors.Update(r.Context(), principal(r), id, in.info())
	if err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	s.ok(w, r, http.StatusOK, "donor profile updated", donor, "/profile")
}

func (s *Server) listDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := s.donors.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", donors, "")
}
