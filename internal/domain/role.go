package domain

// Role is fixed at registration.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleBloodBank Role = "bloodbank"
	RoleHospital  Role = "hospital"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleDonor, RoleBloodBank, RoleHospital, RoleAdmin:
		return r, nil
	}
	return "", Validationf("invalid role selected")
}

// Principal is the authenticated caller, resolved from the identity store on
// every request.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanManageBank is true for the bank's own identity and for admins.
func (p Principal) CanManageBank(bankID string) bool {
	return p.IsAdmin() || (p.Role == RoleBloodBank && p.ID == bankID)
}
