package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type requestPayload struct {
	PatientName             string    `json:"patientName"`
	BloodGroup              string    `json:"bloodGroup"`
	UnitsRequired           flexInt   `json:"unitsRequired"`
	Urgency                 string    `json:"urgency"`
	RequiredBy              *flexDate `json:"requiredBy"`
	Reason                  string    `json:"reason"`
	Notes                   string    `json:"notes"`
	City                    string    `json:"city"`
	State                   string    `json:"state"`
	MonthsSinceLastDonation flexInt   `json:"monthsSinceLastDonation"`
}

// createRequest queues the recommendation. With ?wait=true it is computed
// before responding and the enriched request is returned; ?timeout=N caps
// the wait in seconds.
func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var in requestPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/hospital-dashboard")
		return
	}
	wait, err := queryBool(r, "wait")
	if err != nil {
		s.fail(w, r, err, "/hospital-dashboard")
		return
	}
	timeout := s.opts.InlineTimeout
	if secs, err := queryInt(r, "timeout"); err != nil {
		s.fail(w, r, err, "/hospital-dashboard")
		return
	} else if secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	req, err := s.requests.Create(r.Context(), principal(r), ports.NewBloodRequest{
		PatientName:             in.PatientName,
		BloodGroup:              in.BloodGroup,
		UnitsRequired:           int(in.UnitsRequired),
		Urgency:                 in.Urgency,
		RequiredBy:              in.RequiredBy.ptr(),
		Reason:                  in.Reason,
		Notes:                   in.Notes,
		City:                    in.City,
		State:                   in.State,
		MonthsSinceLastDonation: int(in.MonthsSinceLastDonation),
	})
	if err != nil {
		s.fail(w, r, err, "/hospital-dashboard")
		return
	}
	if wait {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		enriched, err := s.requests.ProcessRecommendation(ctx, req.ID)
		if err != nil {
			// The request is already stored; its donor list is computed on demand.
			s.log.Warn("inline recommendation failed", zap.String("request_id", req.ID), zap.Error(err))
		} else {
			req = enriched
		}
	}
	s.ok(w, r, http.StatusCreated, "blood request created", req, "/hospital-dashboard")
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	status, err := queryString(r, "status")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	urgency, err := queryString(r, "urgency")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	reqs, err := s.requests.List(r.Context(), status, urgency)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", reqs, "")
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	req, err := s.requests.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", req, "")
}

type requestStatusPayload struct {
	ID          string  `json:"id"`
	RequestID   string  `json:"requestId"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
	BloodBankID string  `json:"bloodBankId"`
}

// updateRequestStatus serves both /request/{id}/status and the form
// endpoint that carries the id in the body.
func (s *Server) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	const page = "/bloodbank-dashboard"
	var in requestStatusPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, page)
		return
	}
	id := in.ID
	if id == "" {
		id = in.RequestID
	}
	if chi.URLParam(r, "id") != "" {
		pid, err := pathID(r, "id")
		if err != nil {
			s.fail(w, r, err, page)
			return
		}
		id = pid
	}
	if id == "" {
		s.fail(w, r, domain.Validationf("request id is required"), page)
		return
	}
	req, err := s.requests.UpdateStatus(r.Context(), principal(r), id, ports.RequestStatusUpdate{
		Status:      in.Status,
		Notes:       in.Notes,
		BloodBankID: in.BloodBankID,
	})
	if err != nil {
		s.fail(w, r, err, page)
		return
	}
	s.ok(w, r, http.StatusOK, "request status updated", req, page)
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	const page = "/hospital-dashboard"
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, page)
		return
	}
	if err := s.requests.Delete(r.Context(), principal(r), id); err != nil {
		s.fail(w, r, err, page)
		return
	}
	s.ok(w, r, http.StatusOK, "request deleted", nil, page)
}

func (s *Server) requestDonors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	out, err := s.requests.Recommendations(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", out, "")
}
