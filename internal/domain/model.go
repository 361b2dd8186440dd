package domain

import "time"

// Core records. The HTTP adapter serialises these directly, so JSON names
// follow the field names clients already use.

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

// Merge returns a with every non-empty field of src applied.
func (a Address) Merge(src Address) Address {
	if src.Street != "" {
		a.Street = src.Street
	}
	if src.City != "" {
		a.City = src.City
	}
	if src.State != "" {
		a.State = src.State
	}
	if src.Pincode != "" {
		a.Pincode = src.Pincode
	}
	return a
}

// Identity is a login account. Role never changes after creation.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (i Identity) Principal() Principal {
	return Principal{ID: i.ID, Email: i.Email, Role: i.Role}
}

type OperatingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// BloodBank shares its id with the owning identity when registered through
// the account flow.
type BloodBank struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	RegistrationNumber string         `json:"registrationNumber"`
	Phone              string         `json:"phone"`
	Email              string         `json:"email"`
	Address            Address        `json:"address"`
	Inventory          Inventory      `json:"inventory"`
	OperatingHours     OperatingHours `json:"operatingHours"`
	Verified           bool           `json:"isVerified"`
	CreatedAt          time.Time      `json:"createdAt"`
}

type Hospital struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registrationNumber"`
	Phone              string    `json:"phone"`
	Address            Address   `json:"address"`
	EmergencyContact   string    `json:"emergencyContact"`
	Verified           bool      `json:"isVerified"`
	Active             bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

type MedicalHistory struct {
	Diseases    []string `json:"diseases"`
	Medications []string `json:"medications"`
	Allergies   []string `json:"allergies"`
}

// Donor profiles exist without a login account; phone is the natural key.
type Donor struct {
	ID               string         `json:"id"`
	FullName         string         `json:"fullName"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email,omitempty"`
	DateOfBirth      time.Time      `json:"dateOfBirth"`
	Gender           Gender         `json:"gender"`
	BloodGroup       BloodGroup     `json:"bloodGroup"`
	Address          Address        `json:"address"`
	MedicalHistory   MedicalHistory `json:"medicalHistory"`
	LastDonationDate *time.Time     `json:"lastDonationDate,omitempty"`
	Available        bool           `json:"isAvailable"`
	DonationCount    int            `json:"donationCount"`
	CreatedAt        time.Time      `json:"createdAt"`
}

type TestResults struct {
	HIVStatus       string `json:"hivStatus,omitempty"`
	HepatitisStatus string `json:"hepatitisStatus,omitempty"`
	OtherTests      string `json:"otherTests,omitempty"`
	Approved        bool   `json:"approved"`
}

type Donation struct {
	ID            string         `json:"id"`
	DonorID       string         `json:"donor"`
	BloodBankID   string         `json:"bloodBank"`
	BloodGroup    BloodGroup     `json:"bloodGroup"`
	Quantity      int            `json:"quantity"`
	DonationDate  time.Time      `json:"donationDate"`
	Status        DonationStatus `json:"status"`
	CompletedDate *time.Time     `json:"completedDate,omitempty"`
	TestResults   TestResults    `json:"testResults"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// BloodRequest is raised by a hospital. City, State and
// MonthsSinceLastDonation feed the donor recommendation.
type BloodRequest struct {
	ID                      string        `json:"id"`
	RequestedBy             string        `json:"requestedBy"`
	PatientName             string        `json:"patientName"`
	BloodGroup              BloodGroup    `json:"bloodGroup"`
	UnitsRequired           int           `json:"unitsRequired"`
	Urgency                 Urgency       `json:"urgency"`
	RequiredBy              time.Time     `json:"requiredBy"`
	Reason                  string        `json:"reason"`
	Status                  RequestStatus `json:"status"`
	FulfilledBy             string        `json:"fulfilledBy,omitempty"`
	FulfilledAt             *time.Time    `json:"fulfilledAt,omitempty"`
	Notes                   string        `json:"notes,omitempty"`
	City                    string        `json:"city,omitempty"`
	State                   string        `json:"state,omitempty"`
	MonthsSinceLastDonation int           `json:"monthsSinceLastDonation,omitempty"`
	RecommendedDonors       []string      `json:"recommendedDonors"`
	MLPrediction            string        `json:"mlPrediction,omitempty"`
	CreatedAt               time.Time     `json:"createdAt"`
}
