package auth

import (
	"context"

	"github.com/zaimgo/marketing-api/internal/config"
	"github.com/zaimgo/marketing-api/pkg/auth"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/security"
)

type Servicer interface {
	Login(ctx context.Context, login, password string) (string, error)
	Validate(token string) (string, error)
}

// Service authenticates the single configured operator account and
// issues admin tokens. Operator provisioning lives outside this repo;
// the credential pair comes from config with the password stored as a
// bcrypt hash.
type Service struct {
	cfg    config.AdminConfig
	issuer *auth.TokenIssuer
	hasher security.PasswordHasher
}

func NewService(cfg config.AdminConfig) *Service {
	return &Service{
		cfg:    cfg,
		issuer: auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry),
		hasher: security.NewBcryptHasher(12),
	}
}

func (s *Service) Login(_ context.Context, login, password string) (string, error) {
	if login != s.cfg.Login {
		return "", apperrors.Unauthorized(nil)
	}
	if err := s.hasher.Compare(s.cfg.PasswordHash, password); err != nil {
		return "", apperrors.Unauthorized(err)
	}
	return s.issuer.Generate(login)
}

func (s *Service) Validate(token string) (string, error) {
	login, err := s.issuer.Validate(token)
	if err != nil {
		return "", apperrors.Unauthorized(err)
	}
	return login, nil
}
