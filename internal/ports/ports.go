package ports

import (
	"context"
	"time"

	"bloodlink/internal/domain"
)

// Session is an issued identity token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Registration carries the account fields plus the role-specific profile fields.
type Registration struct {
	Email              string
	Password           string
	Role               string
	Name               string
	RegistrationNumber string
	Phone              string
	ContactEmail       string
	Address            domain.Address
	OpenTime           string
	CloseTime          string
	EmergencyContact   string
}

// Accounts registers, authenticates and administers identities.
type Accounts interface {
	Register(ctx context.Context, reg Registration) (domain.Identity, Session, error)
	Login(ctx context.Context, email, password string) (domain.Identity, Session, error)
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
	CreateUser(ctx context.Context, actor domain.Principal, email, password, role string) (domain.Identity, error)
	ListUsers(ctx context.Context, actor domain.Principal) ([]domain.Identity, error)
	SetActive(ctx context.Context, actor domain.Principal, id string, active bool) (domain.Identity, error)
	Profile(ctx context.Context, actor domain.Principal) (any, error)
}

type NewBloodBank struct {
	Name               string
	RegistrationNumber string
	Phone              string
	Email              string
	Address            domain.Address
	Inventory          []domain.InventoryUpdate
	OperatingHours     *domain.OperatingHours
	Verified           bool
}

// BloodBankPatch updates only the non-nil fields.
type BloodBankPatch struct {
	Name           *string
	Phone          *string
	Email          *string
	Address        *domain.Address
	OperatingHours *domain.OperatingHours
	Verified       *bool
}

type InventoryChange struct {
	Operation  string
	BloodGroup string
	Quantity   int
}

// BloodBanks manages bank profiles and their inventory.
type BloodBanks interface {
	Create(ctx context.Context, actor domain.Principal, in NewBloodBank) (domain.BloodBank, error)
	List(ctx context.Context) ([]domain.BloodBank, error)
	FilterByGroup(ctx context.Context, group string) ([]domain.BloodBank, error)
	Get(ctx context.Context, id string) (domain.BloodBank, error)
	UpdateProfile(ctx context.Context, actor domain.Principal, id string, patch BloodBankPatch) (domain.BloodBank, error)
	Inventory(ctx context.Context, actor domain.Principal, id string) (domain.Inventory, error)
	UpdateInventory(ctx context.Context, actor domain.Principal, id string, change InventoryChange) (domain.Inventory, error)
	BulkUpdateInventory(ctx context.Context, actor domain.Principal, id string, updates []domain.InventoryUpdate) (domain.Inventory, error)
}

// DonorInfo is a partial donor profile. Zero values and nil slices mean
// "not supplied" and leave stored values untouched on update.
type DonorInfo struct {
	FullName         string
	Phone            string
	Email            string
	DateOfBirth      *time.Time
	Gender           string
	BloodGroup       string
	Address          domain.Address
	Diseases         []string
	Medications      []string
	Allergies        []string
	LastDonationDate *time.Time
	Available        *bool
}

type Donors interface {
	Create(ctx context.Context, info DonorInfo) (domain.Donor, error)
	Update(ctx context.Context, actor domain.Principal, id string, info DonorInfo) (domain.Donor, error)
	List(ctx context.Context) ([]domain.Donor, error)
}

type ScheduleDonation struct {
	Donor        DonorInfo
	BloodBankID  string
	BloodGroup   string
	Quantity     int
	DonationDate *time.Time
	Notes        string
}

type DonationStatusUpdate struct {
	Status      string
	TestResults *domain.TestResults
}

// Donations schedules donations and drives their status lifecycle.
type Donations interface {
	Schedule(ctx context.Context, in ScheduleDonation) (domain.Donation, error)
	UpdateStatus(ctx context.Context, actor domain.Principal, id string, upd DonationStatusUpdate) (domain.Donation, error)
	List(ctx context.Context, actor domain.Principal) ([]domain.Donation, error)
	Get(ctx context.Context, actor domain.Principal, id string) (domain.DonationDetails, error)
}

type NewBloodRequest struct {
	PatientName             string
	BloodGroup              string
	UnitsRequired           int
	Urgency                 string
	RequiredBy              *time.Time
	Reason                  string
	Notes                   string
	City                    string
	State                   string
	MonthsSinceLastDonation int
}

// RequestStatusUpdate names the fulfilling bank explicitly; for a blood bank
// caller it is always the caller itself.
type RequestStatusUpdate struct {
	Status      string
	Notes       *string
	BloodBankID string
}

// Requests drives the hospital blood request lifecycle.
type Requests interface {
	Create(ctx context.Context, actor domain.Principal, in NewBloodRequest) (domain.BloodRequest, error)
	// ProcessRecommendation computes the queued recommendation synchronously.
	ProcessRecommendation(ctx context.Context, id string) (domain.BloodRequest, error)
	Get(ctx context.Context, id string) (domain.BloodRequest, error)
	List(ctx context.Context, status, urgency string) ([]domain.BloodRequest, error)
	UpdateStatus(ctx context.Context, actor domain.Principal, id string, upd RequestStatusUpdate) (domain.BloodRequest, error)
	Delete(ctx context.Context, actor domain.Principal, id string) error
	Recommendations(ctx context.Context, actor domain.Principal, id string) (domain.RequestRecommendations, error)
}

type HospitalPatch struct {
	Name             *string
	Phone            *string
	EmergencyContact *string
	Address          *domain.Address
}

type Hospitals interface {
	Profile(ctx context.Context, actor domain.Principal) (domain.Hospital, error)
	UpdateProfile(ctx context.Context, actor domain.Principal, patch HospitalPatch) (domain.Hospital, error)
}

// Dashboards assembles the role landing pages.
type Dashboards interface {
	Home(ctx context.Context, user *domain.Principal) (domain.Home, error)
	Hospital(ctx context.Context, actor domain.Principal) (domain.HospitalDashboard, error)
	BloodBank(ctx context.Context, actor domain.Principal) (domain.BloodBankDashboard, error)
}
