package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/videotube/backend/internal/apperrors"
	"github.com/videotube/backend/internal/models"
)

// TokenConfig configures an Issuer. Both secrets are required and must differ so a
// leaked access key cannot mint refresh tokens.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now overrides the clock used for issuing and validating tokens.
	Now func() time.Time
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Fullname string `json:"fullname,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. It carries only the user id (subject).
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	cfg TokenConfig
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg TokenConfig) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{cfg: cfg}, nil
}

// IssueAccessToken signs a short-lived token carrying the user's identity.
func (i *Issuer) IssueAccessToken(user models.User) (string, time.Time, error) {
	now := i.cfg.Now()
	expiresAt := now.Add(i.cfg.AccessTTL)

	claims := AccessClaims{
		Username:         user.Username,
		Email:            user.Email,
		Fullname:         user.Fullname,
		RegisteredClaims: i.registered(user.ID, now, expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a long-lived token carrying only the user id.
func (i *Issuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	now := i.cfg.Now()
	expiresAt := now.Add(i.cfg.RefreshTTL)

	claims := RefreshClaims{RegisteredClaims: i.registered(userID, now, expiresAt)}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssuePair issues a fresh access and refresh token for user.
func (i *Issuer) IssuePair(user models.User) (models.SessionTokens, error) {
	if user.ID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	access, accessExp, err := i.IssueAccessToken(user)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refresh, refreshExp, err := i.IssueRefreshToken(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken validates signature, issuer and expiry of an access token.
func (i *Issuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(token, claims, i.cfg.AccessSecret, "access"); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken validates signature, issuer and expiry of a refresh token.
func (i *Issuer) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(token, claims, i.cfg.RefreshSecret, "refresh"); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (i *Issuer) parse(token string, claims jwt.Claims, secret []byte, kind string) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.cfg.Now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperrors.Wrap(apperrors.KindExpiredToken, kind+" token has expired", err)
		}
		return apperrors.Wrap(apperrors.KindInvalidToken, "invalid "+kind+" token", err)
	}
	if !parsed.Valid {
		return apperrors.New(apperrors.KindInvalidToken, "invalid "+kind+" token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return apperrors.New(apperrors.KindInvalidToken, "invalid "+kind+" token")
	}
	return nil
}
