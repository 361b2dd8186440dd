package domain

// DonationStatus is the lifecycle state of a scheduled donation.
type DonationStatus string

const (
	DonationScheduled DonationStatus = "scheduled"
	DonationCompleted DonationStatus = "completed"
	DonationCancelled DonationStatus = "cancelled"
	DonationRejected  DonationStatus = "rejected"
)

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationScheduled: {DonationScheduled, DonationCompleted, DonationCancelled, DonationRejected},
	DonationCompleted: {DonationCompleted},
	DonationCancelled: {DonationCancelled},
	DonationRejected:  {DonationRejected},
}

func ParseDonationStatus(s string) (DonationStatus, error) {
	st := DonationStatus(s)
	if _, ok := donationTransitions[st]; !ok {
		return "", Validationf("invalid donation status: %q", s)
	}
	return st, nil
}

func (s DonationStatus) Terminal() bool { return s != DonationScheduled }

// CanTransition reports whether the strict table allows s -> to.
// Re-applying completed is allowed; the completion side effects are guarded separately.
func (s DonationStatus) CanTransition(to DonationStatus) bool {
	return containsStatus(donationTransitions[s], to)
}

// RequestStatus is the lifecycle state of a hospital blood request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestPending, RequestApproved, RequestFulfilled, RequestRejected, RequestCancelled},
	RequestApproved:  {RequestApproved, RequestFulfilled, RequestRejected, RequestCancelled},
	RequestFulfilled: {},
	RequestRejected:  {RequestRejected},
	RequestCancelled: {RequestCancelled},
}

func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	if _, ok := requestTransitions[st]; !ok {
		return "", Validationf("invalid request status: %q", s)
	}
	return st, nil
}

func (s RequestStatus) Terminal() bool {
	return s == RequestFulfilled || s == RequestRejected || s == RequestCancelled
}

// CanTransition reports whether the strict table allows s -> to.
// A fulfilled request never transitions again, so inventory is deducted at most once.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	return containsStatus(requestTransitions[s], to)
}

// Deletable reports whether a request in this state may be removed by its owner.
// Approved and fulfilled requests may already have inventory effects.
func (s RequestStatus) Deletable() bool {
	return s == RequestPending || s == RequestRejected || s == RequestCancelled
}

// Urgency of a blood request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency defaults an empty value to medium.
func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case "":
		return UrgencyMedium, nil
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u, nil
	}
	return "", Validationf("invalid urgency: %q", s)
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", Validationf("invalid gender: %q", s)
}

func containsStatus[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
