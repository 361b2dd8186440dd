// Package recommend attaches a best-effort donor shortlist to blood requests.
// The prediction itself comes from an external procedure whose output is
// opaque text; failures degrade to a placeholder instead of an error.
package recommend

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

const (
	// DegradedPrediction replaces the prediction when the procedure fails.
	DegradedPrediction = "ML model failed to predict"
	// NoPrediction is shown for requests that have not been processed yet.
	NoPrediction = "No prediction available"

	DefaultLimit = 3
)

// Input is what the procedure is asked about.
type Input struct {
	BloodGroup              domain.BloodGroup
	City                    string
	State                   string
	MonthsSinceLastDonation int
}

// Args renders the comma-joined argument string handed to the procedure.
func (in Input) Args() string {
	return strings.Join([]string{
		string(in.BloodGroup),
		in.City,
		strconv.Itoa(in.MonthsSinceLastDonation),
		in.State,
	}, ",")
}

func InputFor(r domain.BloodRequest) Input {
	return Input{
		BloodGroup:              r.BloodGroup,
		City:                    r.City,
		State:                   r.State,
		MonthsSinceLastDonation: r.MonthsSinceLastDonation,
	}
}

// Procedure produces a free-form prediction.
type Procedure interface {
	Predict(ctx context.Context, in Input) (string, error)
}

type Outcome int

const (
	OK Outcome = iota
	Degraded
)

func (o Outcome) String() string {
	if o == Degraded {
		return "degraded"
	}
	return "ok"
}

// Result is either OK with a prediction and donors, or Degraded with the
// placeholder prediction and no donors.
type Result struct {
	Outcome    Outcome
	Prediction string
	Donors     []domain.Donor
	Err        error
}

func degraded(err error) Result {
	return Result{Outcome: Degraded, Prediction: DegradedPrediction, Donors: []domain.Donor{}, Err: err}
}

// DonorIDs returns the shortlist as ids in rank order.
func (r Result) DonorIDs() []string {
	ids := make([]string, 0, len(r.Donors))
	for _, d := range r.Donors {
		ids = append(ids, d.ID)
	}
	return ids
}

type DonorFinder interface {
	FindRecommended(ctx context.Context, q ports.DonorQuery) ([]domain.Donor, error)
}

type Service struct {
	proc   Procedure
	donors DonorFinder
	limit  int
	log    *zap.Logger
}

func New(proc Procedure, donors DonorFinder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{proc: proc, donors: donors, limit: DefaultLimit, log: log}
}

// Recommend never returns an error; failures are reported as a Degraded result.
func (s *Service) Recommend(ctx context.Context, in Input) Result {
	prediction, err := s.proc.Predict(ctx, in)
	if err != nil {
		s.log.Warn("recommendation procedure failed", zap.String("args", in.Args()), zap.Error(err))
		return degraded(err)
	}
	donors, err := s.Shortlist(ctx, in)
	if err != nil {
		s.log.Error("donor shortlist query failed", zap.Error(err))
		return degraded(err)
	}
	return Result{Outcome: OK, Prediction: prediction, Donors: donors}
}

// Shortlist runs only the donor query.
func (s *Service) Shortlist(ctx context.Context, in Input) ([]domain.Donor, error) {
	donors, err := s.donors.FindRecommended(ctx, ports.DonorQuery{
		BloodGroup: in.BloodGroup,
		City:       in.City,
		State:      in.State,
		Limit:      s.limit,
	})
	if err != nil {
		return nil, err
	}
	if donors == nil {
		donors = []domain.Donor{}
	}
	return donors, nil
}
