package domain

import "strings"

// BloodGroup is one of the eight ABO/Rh categories.
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists every group in display order.
var BloodGroups = []BloodGroup{
	APositive, ANegative, BPositive, BNegative,
	ABPositive, ABNegative, OPositive, ONegative,
}

func (g BloodGroup) Valid() bool {
	for _, v := range BloodGroups {
		if g == v {
			return true
		}
	}
	return false
}

func (g BloodGroup) String() string { return string(g) }

// ParseBloodGroup normalises user input. A trailing space is read as "+"
// because an unescaped "A+" in a query string decodes to "A ".
func ParseBloodGroup(s string) (BloodGroup, error) {
	raw := strings.ToUpper(strings.TrimLeft(s, " "))
	trimmed := strings.TrimRight(raw, " ")
	if trimmed != raw && !strings.HasSuffix(trimmed, "+") && !strings.HasSuffix(trimmed, "-") {
		trimmed += "+"
	}
	g := BloodGroup(trimmed)
	if !g.Valid() {
		return "", Validationf("invalid blood group: %q", s)
	}
	return g, nil
}
