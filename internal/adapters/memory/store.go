// Package memory is a process-local implementation of ports.Store used when
// no database is configured, and by tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type job struct {
	ID        string
	RequestID string
	Status    string // queued|running|completed|failed
	Reason    string
	Attempts  int
}

type state struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	seq        int64
	order      map[string]int64
	identities map[string]domain.Identity
	banks      map[string]domain.BloodBank
	hospitals  map[string]domain.Hospital
	donors     map[string]domain.Donor
	donations  map[string]domain.Donation
	requests   map[string]domain.BloodRequest
	jobs       []job
}

// undoLog holds the inverse of every write made inside one transaction, so
// a rollback leaves writes made outside it untouched.
type undoLog []func()

// keep records how to put m[k] back if the transaction fails. Caller holds mu.
func keep[K comparable, V any](s *Store, m map[K]V, k K) {
	if s.undo == nil {
		return
	}
	old, had := m[k]
	*s.undo = append(*s.undo, func() {
		if had {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// keepJob is keep for the job queue. Caller holds mu.
func (s *Store) keepJob(id string) {
	if s.undo == nil {
		return
	}
	i := slices.IndexFunc(s.st.jobs, func(j job) bool { return j.ID == id })
	var old job
	if i >= 0 {
		old = s.st.jobs[i]
	}
	had := i >= 0
	*s.undo = append(*s.undo, func() {
		cur := slices.IndexFunc(s.st.jobs, func(j job) bool { return j.ID == id })
		switch {
		case cur < 0 && had:
			s.st.jobs = append(s.st.jobs, old)
		case cur >= 0 && had:
			s.st.jobs[cur] = old
		case cur >= 0:
			s.st.jobs = slices.Delete(s.st.jobs, cur, cur+1)
		}
	})
}

// Store implements ports.Store. Transactions are serialised by a store-wide
// mutex and rolled back through their undo log.
type Store struct {
	st   *state
	undo *undoLog
	now  func() time.Time
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			order:      map[string]int64{},
			identities: map[string]domain.Identity{},
			banks:      map[string]domain.BloodBank{},
			hospitals:  map[string]domain.Hospital{},
			donors:     map[string]domain.Donor{},
			donations:  map[string]domain.Donation{},
			requests:   map[string]domain.BloodRequest{},
		},
		now: time.Now,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx ports.Store) error) error {
	if s.undo != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	var undo undoLog
	if err := fn(&Store{st: s.st, undo: &undo, now: s.now}); err != nil {
		s.st.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		s.st.mu.Unlock()
		return err
	}
	return nil
}

// track assigns an id when missing and records creation order. Caller holds mu.
func (s *Store) track(id *string) {
	st := s.st
	if *id == "" {
		*id = uuid.NewString()
	}
	keep(s, st.order, *id)
	st.seq++
	st.order[*id] = st.seq
}

// newestFirst sorts records by creation order, latest first.
func newestFirst[T any](st *state, items []T, id func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return int(st.order[id(b)] - st.order[id(a)])
	})
}

func cloneBank(b domain.BloodBank) domain.BloodBank {
	b.Inventory = slices.Clone(b.Inventory)
	return b
}

func cloneDonor(d domain.Donor) domain.Donor {
	d.MedicalHistory.Diseases = slices.Clone(d.MedicalHistory.Diseases)
	d.MedicalHistory.Medications = slices.Clone(d.MedicalHistory.Medications)
	d.MedicalHistory.Allergies = slices.Clone(d.MedicalHistory.Allergies)
	if d.LastDonationDate != nil {
		t := *d.LastDonationDate
		d.LastDonationDate = &t
	}
	return d
}

func cloneRequest(r domain.BloodRequest) domain.BloodRequest {
	r.RecommendedDonors = slices.Clone(r.RecommendedDonors)
	if r.FulfilledAt != nil {
		t := *r.FulfilledAt
		r.FulfilledAt = &t
	}
	return r
}
