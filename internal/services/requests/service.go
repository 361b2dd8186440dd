// Package requests drives hospital blood requests from creation to fulfillment.
package requests

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
	"bloodlink/internal/recommend"
	"bloodlink/internal/workers/recommendrunner"
)

const unknownCity = "Unknown"

type Options struct {
	StrictTransitions bool
	DefaultState      string
	DefaultMonths     int
}

type Service struct {
	store ports.Store
	rec   *recommend.Service
	proc  recommendrunner.Processor
	log   *zap.Logger
	opts  Options
	now   func() time.Time
}

var _ ports.Requests = (*Service)(nil)

func New(store ports.Store, rec *recommend.Service, proc recommendrunner.Processor, log *zap.Logger, opts Options) *Service {
	return &Service{store: store, rec: rec, proc: proc, log: log, opts: opts, now: time.Now}
}

// Create stores a pending request and queues its donor recommendation.
// The recommendation never affects whether creation succeeds.
func (s *Service) Create(ctx context.Context, actor domain.Principal, in ports.NewBloodRequest) (domain.BloodRequest, error) {
	if actor.Role != domain.RoleHospital {
		return domain.BloodRequest{}, domain.Forbiddenf("only hospitals can create blood requests")
	}
	req, err := s.build(in)
	if err != nil {
		return domain.BloodRequest{}, err
	}
	req.RequestedBy = actor.ID

	err = s.store.InTx(ctx, func(tx ports.Store) error {
		if req.City == "" {
			req.City = unknownCity
			h, err := tx.GetHospital(ctx, actor.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if h.Address.City != "" {
				req.City = h.Address.City
			}
		}
		if err := tx.CreateRequest(ctx, &req); err != nil {
			return err
		}
		_, err := tx.EnqueueRecommendation(ctx, req.ID)
		return err
	})
	if err != nil {
		return domain.BloodRequest{}, err
	}
	s.log.Info("blood request created",
		zap.String("request_id", req.ID), zap.String("hospital_id", actor.ID),
		zap.String("blood_group", string(req.BloodGroup)), zap.Int("units", req.UnitsRequired))
	return req, nil
}

func (s *Service) build(in ports.NewBloodRequest) (domain.BloodRequest, error) {
	var missing []string
	if strings.TrimSpace(in.PatientName) == "" {
		missing = append(missing, "patientName")
	}
	if in.BloodGroup == "" {
		missing = append(missing, "bloodGroup")
	}
	if in.RequiredBy == nil {
		missing = append(missing, "requiredBy")
	}
	if len(missing) > 0 {
		return domain.BloodRequest{}, domain.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	group, err := domain.ParseBloodGroup(in.BloodGroup)
	if err != nil {
		return domain.BloodRequest{}, err
	}
	if in.UnitsRequired < 1 {
		return domain.BloodRequest{}, domain.Validationf("unitsRequired must be at least 1")
	}
	urgency, err := domain.ParseUrgency(strings.ToLower(in.Urgency))
	if err != nil {
		return domain.BloodRequest{}, err
	}
	if in.MonthsSinceLastDonation < 0 {
		return domain.BloodRequest{}, domain.Validationf("monthsSinceLastDonation must not be negative")
	}
	state := strings.TrimSpace(in.State)
	if state == "" {
		state = s.opts.DefaultState
	}
	months := in.MonthsSinceLastDonation
	if months == 0 {
		months = s.opts.DefaultMonths
	}
	return domain.BloodRequest{
		PatientName:             strings.TrimSpace(in.PatientName),
		BloodGroup:              group,
		UnitsRequired:           in.UnitsRequired,
		Urgency:                 urgency,
		RequiredBy:              *in.RequiredBy,
		Reason:                  in.Reason,
		Status:                  domain.RequestPending,
		Notes:                   in.Notes,
		City:                    strings.TrimSpace(in.City),
		State:                   state,
		MonthsSinceLastDonation: months,
		RecommendedDonors:       []string{},
		CreatedAt:               s.now(),
	}, nil
}

// ProcessRecommendation runs the queued recommendation of one request now
// and returns the enriched request. If a worker already claimed the job the
// recommendation is recomputed here; storing it twice is harmless. A ctx
// that expires mid-way degrades the recommendation but the result is still
// stored.
func (s *Service) ProcessRecommendation(ctx context.Context, id string) (domain.BloodRequest, error) {
	err := recommendrunner.ProcessInline(ctx, s.store, s.proc, id)
	if errors.Is(err, domain.ErrNotFound) {
		err = s.proc.Process(ctx, id)
	}
	if err != nil {
		return domain.BloodRequest{}, err
	}
	return s.store.GetRequest(context.WithoutCancel(ctx), id)
}

func (s *Service) Get(ctx context.Context, id string) (domain.BloodRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// List filters by a comma-separated status list and an urgency; empty
// values match everything.
func (s *Service) List(ctx context.Context, status, urgency string) ([]domain.BloodRequest, error) {
	var f ports.RequestFilter
	for _, raw := range strings.Split(status, ",") {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" || raw == "all" {
			continue
		}
		st, err := domain.ParseRequestStatus(raw)
		if err != nil {
			return nil, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	if u := strings.ToLower(strings.TrimSpace(urgency)); u != "" && u != "all" {
		parsed, err := domain.ParseUrgency(u)
		if err != nil {
			return nil, err
		}
		f.Urgency = parsed
	}
	return s.store.ListRequests(ctx, f)
}

// UpdateStatus changes a request's status. Fulfillment deducts the units
// from the fulfilling bank first; if stock is short nothing changes.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Principal, id string, upd ports.RequestStatusUpdate) (domain.BloodRequest, error) {
	bankID, err := fulfillingBank(actor, upd.BloodBankID)
	if err != nil {
		return domain.BloodRequest{}, err
	}
	next, err := domain.ParseRequestStatus(strings.ToLower(strings.TrimSpace(upd.Status)))
	if err != nil {
		return domain.BloodRequest{}, err
	}
	var out domain.BloodRequest
	err = s.store.InTx(ctx, func(tx ports.Store) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		prev := req.Status
		if s.opts.StrictTransitions && !prev.CanTransition(next) {
			return domain.Conflictf("cannot change request status from %s to %s", prev, next)
		}
		if next == domain.RequestFulfilled {
			if bankID == "" {
				return domain.Validationf("bloodBankId is required to fulfill a request")
			}
			bank, err := tx.LockBloodBank(ctx, bankID)
			if err != nil {
				return err
			}
			now := s.now()
			entry, err := bank.Inventory.Deduct(req.BloodGroup, req.UnitsRequired, now)
			if err != nil {
				return err
			}
			if err := tx.SaveInventory(ctx, bank.ID, entry); err != nil {
				return err
			}
			req.FulfilledBy = bank.ID
			req.FulfilledAt = &now
		}
		req.Status = next
		if upd.Notes != nil {
			req.Notes = *upd.Notes
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out, err = tx.GetRequest(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientInventory) {
			s.log.Info("fulfillment rejected", zap.String("request_id", id), zap.String("bank_id", bankID))
		}
		return domain.BloodRequest{}, err
	}
	s.log.Info("blood request status updated", zap.String("request_id", id), zap.String("status", string(next)))
	return out, nil
}

// fulfillingBank resolves which bank acts: a blood bank always acts as
// itself, an admin names one explicitly.
func fulfillingBank(actor domain.Principal, requested string) (string, error) {
	switch actor.Role {
	case domain.RoleBloodBank:
		if requested != "" && requested != actor.ID {
			return "", domain.Forbiddenf("a blood bank can only fulfill from its own inventory")
		}
		return actor.ID, nil
	case domain.RoleAdmin:
		return requested, nil
	}
	return "", domain.Forbiddenf("only blood banks and admins can update request status")
}

// Delete removes a request owned by the calling hospital while it has no
// inventory effects.
func (s *Service) Delete(ctx context.Context, actor domain.Principal, id string) error {
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		req, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.RequestedBy != actor.ID {
			return domain.Forbiddenf("not allowed to delete this request")
		}
		if !req.Status.Deletable() {
			return domain.Conflictf("cannot delete a request that is %s", req.Status)
		}
		return tx.DeleteRequest(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("blood request deleted", zap.String("request_id", id), zap.String("hospital_id", actor.ID))
	return nil
}

// Recommendations returns the stored shortlist, or computes one on the fly
// when the request has none yet.
func (s *Service) Recommendations(ctx context.Context, actor domain.Principal, id string) (domain.RequestRecommendations, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return domain.RequestRecommendations{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleBloodBank:
	case domain.RoleHospital:
		if req.RequestedBy != actor.ID {
			return domain.RequestRecommendations{}, domain.Forbiddenf("not allowed to view this request")
		}
	default:
		return domain.RequestRecommendations{}, domain.Forbiddenf("not allowed to view this request")
	}

	out := domain.RequestRecommendations{Request: req, Prediction: req.MLPrediction, Donors: []domain.Donor{}}
	if out.Prediction == "" {
		out.Prediction = recommend.NoPrediction
	}
	if len(req.RecommendedDonors) == 0 {
		donors, err := s.rec.Shortlist(ctx, recommend.InputFor(req))
		if err != nil {
			return domain.RequestRecommendations{}, err
		}
		out.Donors = donors
		return out, nil
	}
	for _, donorID := range req.RecommendedDonors {
		d, err := s.store.GetDonor(ctx, donorID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.RequestRecommendations{}, err
		}
		out.Donors = append(out.Donors, d)
	}
	return out, nil
}
