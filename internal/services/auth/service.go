// Package auth registers accounts, issues identity tokens and resolves them
// back to principals on every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

const minPasswordLen = 6

type Service struct {
	store  ports.Store
	tokens *Tokens
	log    *zap.Logger
	now    func() time.Time
}

var _ ports.Accounts = (*Service)(nil)

func New(store ports.Store, tokens *Tokens, log *zap.Logger) *Service {
	return &Service{store: store, tokens: tokens, log: log, now: time.Now}
}

func validateCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", domain.Validationf("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.Validationf("invalid email address")
	}
	if len(password) < minPasswordLen {
		return "", domain.Validationf("password must be at least %d characters", minPasswordLen)
	}
	return email, nil
}

// Register creates the identity and its role profile in one transaction.
// Admin accounts can only be self-registered while no identity exists.
func (s *Service) Register(ctx context.Context, reg ports.Registration) (domain.Identity, ports.Session, error) {
	email, err := validateCredentials(reg.Email, reg.Password)
	if err != nil {
		return domain.Identity{}, ports.Session{}, err
	}
	role, err := domain.ParseRole(reg.Role)
	if err != nil {
		return domain.Identity{}, ports.Session{}, err
	}
	rp := roleProfiles[role]
	if err := rp.validate(reg); err != nil {
		return domain.Identity{}, ports.Session{}, err
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return domain.Identity{}, ports.Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	ident := domain.Identity{Email: email, PasswordHash: hash, Role: role, Active: true, CreatedAt: now}
	err = s.store.InTx(ctx, func(tx ports.Store) error {
		if role == domain.RoleAdmin {
			existing, err := tx.ListIdentities(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return domain.Forbiddenf("admin accounts are created by an administrator")
			}
		}
		if err := tx.CreateIdentity(ctx, &ident); err != nil {
			return err
		}
		return rp.onRegister(ctx, tx, ident, reg, now)
	})
	if err != nil {
		return domain.Identity{}, ports.Session{}, err
	}
	s.log.Info("identity registered", zap.String("user_id", ident.ID), zap.String("role", string(role)))

	sess, err := s.tokens.Issue(ident)
	return ident, sess, err
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.Identity, ports.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.Identity{}, ports.Session{}, domain.Validationf("email and password are required")
	}
	ident, err := s.store.GetIdentityByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Identity{}, ports.Session{}, domain.Unauthorizedf("invalid credentials")
	}
	if err != nil {
		return domain.Identity{}, ports.Session{}, err
	}
	if !CheckPasswordHash(password, ident.PasswordHash) {
		return domain.Identity{}, ports.Session{}, domain.Unauthorizedf("invalid credentials")
	}
	if !ident.Active {
		return domain.Identity{}, ports.Session{}, domain.Forbiddenf("account is deactivated")
	}
	sess, err := s.tokens.Issue(ident)
	return ident, sess, err
}

// Authenticate verifies the token and re-resolves the identity so that
// deactivated or deleted accounts are rejected before the token expires.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.Unauthorizedf("authentication required")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, err
	}
	ident, err := s.store.GetIdentity(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Principal{}, domain.Unauthorizedf("user not found")
	}
	if err != nil {
		return domain.Principal{}, err
	}
	if !ident.Active {
		return domain.Principal{}, domain.Forbiddenf("account is deactivated")
	}
	if string(ident.Role) != claims.Role {
		return domain.Principal{}, domain.Unauthorizedf("invalid token")
	}
	return ident.Principal(), nil
}

func requireAdmin(actor domain.Principal) error {
	if !actor.IsAdmin() {
		return domain.Forbiddenf("admin access required")
	}
	return nil
}

// CreateUser creates a bare identity on behalf of an admin.
func (s *Service) CreateUser(ctx context.Context, actor domain.Principal, email, password, role string) (domain.Identity, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Identity{}, err
	}
	email, err := validateCredentials(email, password)
	if err != nil {
		return domain.Identity{}, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.Identity{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	ident := domain.Identity{Email: email, PasswordHash: hash, Role: r, Active: true, CreatedAt: s.now()}
	if err := s.store.CreateIdentity(ctx, &ident); err != nil {
		return domain.Identity{}, err
	}
	s.log.Info("identity created by admin", zap.String("user_id", ident.ID), zap.String("admin_id", actor.ID))
	return ident, nil
}

func (s *Service) ListUsers(ctx context.Context, actor domain.Principal) ([]domain.Identity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.ListIdentities(ctx)
}

// SetActive toggles an account. A hospital's profile flag follows its account.
func (s *Service) SetActive(ctx context.Context, actor domain.Principal, id string, active bool) (domain.Identity, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Identity{}, err
	}
	if id == actor.ID && !active {
		return domain.Identity{}, domain.Validationf("cannot deactivate your own account")
	}
	var out domain.Identity
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		ident, err := tx.GetIdentity(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.SetIdentityActive(ctx, id, active); err != nil {
			return err
		}
		if ident.Role == domain.RoleHospital {
			h, err := tx.GetHospital(ctx, id)
			if err == nil {
				h.Active = active
				if err := tx.UpdateHospital(ctx, h); err != nil {
					return err
				}
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		ident.Active = active
		out = ident
		return nil
	})
	if err != nil {
		return domain.Identity{}, err
	}
	s.log.Info("identity active flag changed", zap.String("user_id", id), zap.Bool("active", active))
	return out, nil
}

// Profile returns the caller's role profile.
func (s *Service) Profile(ctx context.Context, actor domain.Principal) (any, error) {
	ident, err := s.store.GetIdentity(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return roleProfiles[ident.Role].profile(ctx, s.store, ident)
}
