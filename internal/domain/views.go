package domain

// Read models assembled by services for the presentation layer.

type BloodBankSummary struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

func (b BloodBank) Summary() BloodBankSummary {
	return BloodBankSummary{ID: b.ID, Name: b.Name, Phone: b.Phone, Address: b.Address}
}

type DonationDetails struct {
	Donation
	Donor     *Donor            `json:"donorProfile,omitempty"`
	BloodBank *BloodBankSummary `json:"bloodBankProfile,omitempty"`
}

type RequestRecommendations struct {
	Request    BloodRequest `json:"request"`
	Donors     []Donor      `json:"donors"`
	Prediction string       `json:"prediction"`
}

type HospitalDashboard struct {
	Hospital *Hospital      `json:"hospital,omitempty"`
	Requests []BloodRequest `json:"requests"`
}

type BloodBankDashboard struct {
	Bank             *BloodBank     `json:"bank"`
	Inventory        Inventory      `json:"inventory"`
	Donations        []Donation     `json:"donations"`
	RegisteredDonors int            `json:"registeredDonorsCount"`
	Requests         []BloodRequest `json:"requests"`
	Donors           []Donor        `json:"donors"`
}

type Home struct {
	User       *Principal  `json:"user,omitempty"`
	BloodBanks []BloodBank `json:"bloodBanks"`
}
