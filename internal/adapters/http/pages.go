package httpadapter

import (
	"net/http"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

// home lists the banks offered by the donation form.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	var user *domain.Principal
	if p, ok := PrincipalFrom(r.Context()); ok {
		user = &p
	}
	out, err := s.dashboards.Home(r.Context(), user)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", out, "")
}

func (s *Server) hospitalDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.dashboards.Hospital(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", out, "")
}

func (s *Server) bloodBankDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.dashboards.BloodBank(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", out, "")
}

func (s *Server) hospitalProfile(w http.ResponseWriter, r *http.Request) {
	h, err := s.hospitals.Profile(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", h, "")
}

type hospitalPayload struct {
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	EmergencyContact *string `json:"emergencyContact"`
	addressFields
}

func (s *Server) updateHospitalProfile(w http.ResponseWriter, r *http.Request) {
	const page = "/hospital-dashboard"
	var in hospitalPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, page)
		return
	}
	patch := ports.HospitalPatch{
		Name:             in.Name,
		Phone:            in.Phone,
		EmergencyContact: in.EmergencyContact,
	}
	if in.supplied() {
		addr := in.address()
		patch.Address = &addr
	}
	h, err := s.hospitals.UpdateProfile(r.Context(), principal(r), patch)
	if err != nil {
		s.fail(w, r, err, page)
		return
	}
	s.ok(w, r, http.StatusOK, "profile updated", h, page)
}
