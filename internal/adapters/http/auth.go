package httpadapter

import (
	"net/http"
	"time"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type registerPayload struct {
	Email              string                 `json:"email"`
	Password           string                 `json:"password"`
	Role               string                 `json:"role"`
	Name               string                 `json:"name"`
	RegistrationNumber string                 `json:"registrationNumber"`
	Phone              string                 `json:"phone"`
	ContactEmail       string                 `json:"contactEmail"`
	OperatingHours     *domain.OperatingHours `json:"operatingHours"`
	EmergencyContact   string                 `json:"emergencyContact"`
	addressFields
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in registerPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/register")
		return
	}
	reg := ports.Registration{
		Email:              in.Email,
		Password:           in.Password,
		Role:               in.Role,
		Name:               in.Name,
		RegistrationNumber: in.RegistrationNumber,
		Phone:              in.Phone,
		ContactEmail:       in.ContactEmail,
		Address:            in.address(),
		EmergencyContact:   in.EmergencyContact,
	}
	if in.OperatingHours != nil {
		reg.OpenTime, reg.CloseTime = in.OperatingHours.Open, in.OperatingHours.Close
	}
	ident, sess, err := s.accounts.Register(r.Context(), reg)
	if err != nil {
		s.fail(w, r, err, "/register")
		return
	}
	s.setSession(w, sess)
	s.ok(w, r, http.StatusCreated, "registration successful", ident, landingPage(ident.Role))
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/login")
		return
	}
	ident, sess, err := s.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(w, r, err, "/login")
		return
	}
	s.setSession(w, sess)
	s.ok(w, r, http.StatusOK, "login successful", ident, landingPage(ident.Role))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.ok(w, r, http.StatusOK, "logged out", nil, "")
}

func (s *Server) setSession(w http.ResponseWriter, sess ports.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func landingPage(role domain.Role) string {
	switch role {
	case domain.RoleHospital:
		return "/hospital-dashboard"
	case domain.RoleBloodBank:
		return "/bloodbank-dashboard"
	}
	return "/"
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	out, err := s.accounts.Profile(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", out, "")
}

type userPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in userPayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/users")
		return
	}
	ident, err := s.accounts.CreateUser(r.Context(), principal(r), in.Email, in.Password, in.Role)
	if err != nil {
		s.fail(w, r, err, "/users")
		return
	}
	s.ok(w, r, http.StatusCreated, "user created", ident, "/users")
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.ListUsers(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.ok(w, r, http.StatusOK, "", users, "")
}

type activePayload struct {
	Active *flexBool `json:"isActive"`
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err, "/users")
		return
	}
	var in activePayload
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err, "/users")
		return
	}
	if in.Active == nil {
		s.fail(w, r, domain.Validationf("isActive is required"), "/users")
		return
	}
	ident, err := s.accounts.SetActive(r.Context(), principal(r), id, bool(*in.Active))
	if err != nil {
		s.fail(w, r, err, "/users")
		return
	}
	msg := "user deactivated"
	if ident.Active {
		msg = "user activated"
	}
	s.ok(w, r, http.StatusOK, msg, ident, "/users")
}
