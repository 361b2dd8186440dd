package httpadapter

import (
	"net/http"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type inventoryRow struct {
	BloodGroup string  `json:"bloodGroup"`
	Quantity   flexInt `json:"quantity"`
}

func toUpdates(rows []inventoryRow) []domain.InventoryUpdate {
	out := make([]domain.InventoryUpdate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.InventoryUpdate{BloodGroup: domain.BloodGroup(row.BloodGroup), Quantity: int(row.Quantity)})
	}
	return out
}

type bankPayload struct {
	Name               string                 `json:"name"`
	RegistrationNumber string                 `json:"registrationNumber"`
	Phone              string                 `json:"phone"`
	Email              string                 `json:"email"`
	Inventory          []inventoryRow         `json:"inventory"`
	OperatingHours     *domain.OperatingHours `json:"operatingHours"`
	Verified           flexBool               `json:"isVerified"`
	addressFields
}

func (s *Server) addBank(w http.ResponseWriter, r *http.Request) {
	var in bankPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	bank, err := s.banks.Create(r.Context(), principal(r), ports.NewBloodBank{
		Name:               in.Name,
		RegistrationNumber: in.RegistrationNumber,
		Phone:              in.Phone,
		Email:              in.Email,
		Address:            in.address(),
		Inventory:          toUpdates(in.Inventory),
		OperatingHours:     in.OperatingHours,
		Verified:           bool(in.Verified),
	})
	if err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	s.ok(w, r, http.StatusCreated, "blood bank added", bank, "/profile")
}

func (s *Server) listBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := s.banks.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", banks, "")
}

func (s *Server) filterBanks(w http.ResponseWriter, r *http.Request) {
	group, err := queryString(r, "bloodGroup")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	banks, err := s.banks.FilterByGroup(r.Context(), group)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", banks, "")
}

func (s *Server) getBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	bank, err := s.banks.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", bank, "")
}

type bankProfilePayload struct {
	Name           *string                `json:"name"`
	Phone          *string                `json:"phone"`
	Email          *string                `json:"email"`
	OperatingHours *domain.OperatingHours `json:"operatingHours"`
	Verified       *flexBool              `json:"isVerified"`
	addressFields
}

func (s *Server) updateBankProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	var in bankProfilePayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	patch := ports.BloodBankPatch{
		Name:           in.Name,
		Phone:          in.Phone,
		Email:          in.Email,
		OperatingHours: in.OperatingHours,
		Verified:       in.Verified.ptr(),
	}
	if in.supplied() {
		addr := in.address()
		patch.Address = &addr
	}
	bank, err := s.banks.UpdateProfile(r.Context(), principal(r), id, patch)
	if err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	s.ok(w, r, http.StatusOK, "profile updated", bank, "/bloodbank-dashboard")
}

func (s *Server) getInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	inv, err := s.banks.Inventory(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", inv, "")
}

type inventoryPayload struct {
	Operation  string  `json:"operation"`
	BloodGroup string  `json:"bloodGroup"`
	Quantity   flexInt `json:"quantity"`
}

func (s *Server) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	var in inventoryPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	inv, err := s.banks.UpdateInventory(r.Context(), principal(r), id, ports.InventoryChange{
		Operation:  in.Operation,
		BloodGroup: in.BloodGroup,
		Quantity:   int(in.Quantity),
	})
	if err != nil {
		s.fail(w, r, err, "/bloodbank-dashboard")
		return
	}
	s.ok(w, r, http.StatusOK, "inventory updated", inv, "/bloodbank-dashboard")
}

type bulkInventoryPayload struct {
	Inventory []inventoryRow `json:"inventory"`
}

func (s *Server) bulkUpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	var in bulkInventoryPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}
	inv, err := s.banks.BulkUpdateInventory(r.Context(), principal(r), id, toUpdates(in.Inventory))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "inventory updated", inv, "")
}
