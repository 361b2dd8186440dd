package ports

import (
	"context"
	"time"

	"bloodlink/internal/domain"
)

// IdentityRepository stores login accounts. Emails are stored lower-cased.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, ident *domain.Identity) error
	GetIdentity(ctx context.Context, id string) (domain.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)
	ListIdentities(ctx context.Context) ([]domain.Identity, error)
	SetIdentityActive(ctx context.Context, id string, active bool) error
}

// BloodBankRepository stores bank profiles together with their inventory ledger.
type BloodBankRepository interface {
	CreateBloodBank(ctx context.Context, bank *domain.BloodBank) error
	GetBloodBank(ctx context.Context, id string) (domain.BloodBank, error)
	// LockBloodBank loads a bank and holds it for the rest of the enclosing
	// transaction so inventory read-modify-write cycles serialise per bank.
	LockBloodBank(ctx context.Context, id string) (domain.BloodBank, error)
	ListBloodBanks(ctx context.Context) ([]domain.BloodBank, error)
	ListBloodBanksWithStock(ctx context.Context, group domain.BloodGroup) ([]domain.BloodBank, error)
	UpdateBloodBank(ctx context.Context, bank domain.BloodBank) error
	SaveInventory(ctx context.Context, bankID string, entries ...domain.InventoryEntry) error
}

type HospitalRepository interface {
	CreateHospital(ctx context.Context, h *domain.Hospital) error
	GetHospital(ctx context.Context, id string) (domain.Hospital, error)
	UpdateHospital(ctx context.Context, h domain.Hospital) error
}

// DonorQuery selects recommendation candidates: available donors of a blood
// group whose city or state contains the given text, case-insensitively.
type DonorQuery struct {
	BloodGroup domain.BloodGroup
	City       string
	State      string
	Limit      int
}

// DonorRepository stores donor profiles, keyed naturally by phone.
type DonorRepository interface {
	CreateDonor(ctx context.Context, d *domain.Donor) error
	GetDonor(ctx context.Context, id string) (domain.Donor, error)
	GetDonorByPhone(ctx context.Context, phone string) (domain.Donor, error)
	UpdateDonor(ctx context.Context, d domain.Donor) error
	ListDonors(ctx context.Context) ([]domain.Donor, error)
	CountDonors(ctx context.Context) (int, error)
	// RecordDonation increments donationCount and sets lastDonationDate.
	RecordDonation(ctx context.Context, donorID string, at time.Time) error
	// FindRecommended orders by donationCount desc, then lastDonationDate asc
	// with never-donated first.
	FindRecommended(ctx context.Context, q DonorQuery) ([]domain.Donor, error)
}

// DonationFilter narrows ListDonations; empty fields match everything.
type DonationFilter struct {
	DonorID     string
	BloodBankID string
}

type DonationRepository interface {
	CreateDonation(ctx context.Context, d *domain.Donation) error
	GetDonation(ctx context.Context, id string) (domain.Donation, error)
	LockDonation(ctx context.Context, id string) (domain.Donation, error)
	UpdateDonation(ctx context.Context, d domain.Donation) error
	// ListDonations returns newest first.
	ListDonations(ctx context.Context, f DonationFilter) ([]domain.Donation, error)
}

// RequestFilter narrows ListRequests; empty fields match everything.
type RequestFilter struct {
	Statuses    []domain.RequestStatus
	Urgency     domain.Urgency
	RequestedBy string
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, r *domain.BloodRequest) error
	GetRequest(ctx context.Context, id string) (domain.BloodRequest, error)
	LockRequest(ctx context.Context, id string) (domain.BloodRequest, error)
	// UpdateRequest writes status, fulfillment and notes. The recommendation
	// fields belong to SetRecommendation and are left as stored.
	UpdateRequest(ctx context.Context, r domain.BloodRequest) error
	DeleteRequest(ctx context.Context, id string) error
	// ListRequests returns newest first.
	ListRequests(ctx context.Context, f RequestFilter) ([]domain.BloodRequest, error)
	SetRecommendation(ctx context.Context, id string, prediction string, donorIDs []string) error
}

// Store groups every repository behind one transaction boundary.
type Store interface {
	IdentityRepository
	BloodBankRepository
	HospitalRepository
	DonorRepository
	DonationRepository
	RequestRepository
	JobRepository

	// InTx runs fn against a transactional view of the store. fn's error
	// rolls everything back. Nested calls join the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
