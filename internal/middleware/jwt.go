package middleware

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shakilmiahcse/social-org-finance/config"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const DefaultTokenTTL = 24 * time.Hour

// Claims carries the tenant context issued by the identity layer. Subject is
// the acting user and Org the organization every call is scoped to.
type Claims struct {
	Org         string   `json:"org"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission) || slices.Contains(c.Permissions, PermissionAll)
}

type JwtService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJwtService(cfg config.JWTConfig) (*JwtService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &JwtService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

func (s *JwtService) GenerateToken(organizationID, actorID ulid.ULID, permissions []string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	claims := Claims{
		Org:         organizationID.String(),
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        pkg.GenerateULID(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *JwtService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.ErrUnauthorized.WithMessage("token expired").WithError(err)
		}
		return nil, appErrors.ErrUnauthorized.WithMessage("invalid token").WithError(err)
	}

	if _, err := pkg.ParseULID(claims.Org); err != nil {
		return nil, appErrors.ErrUnauthorized.WithMessage("token has no organization").WithError(err)
	}
	if _, err := pkg.ParseULID(claims.Subject); err != nil {
		return nil, appErrors.ErrUnauthorized.WithMessage("token has no subject").WithError(err)
	}
	return claims, nil
}
