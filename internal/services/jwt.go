package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAccessTokenDuration фіксований строк дії access token
	DefaultAccessTokenDuration = 15 * time.Minute
	// DefaultRefreshTokenDuration строк дії підпису refresh token
	DefaultRefreshTokenDuration = 7 * 24 * time.Hour

	refreshTokenType = "refresh"
)

// TokenConfig містить секрети та строки дії токенів. Заповнюється один раз
// при старті процесу і передається в NewTokenIssuer.
type TokenConfig struct {
	AccessSecret         string
	RefreshSecret        string
	Issuer               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration

	// Now підміняє годинник у тестах
	Now func() time.Time
}

// TokenIssuer підписує та перевіряє access і refresh токени
type TokenIssuer interface {
	IssueAccessToken(subject, role string) (*IssuedToken, error)
	IssueRefreshToken(subject, role string, ttl time.Duration) (*IssuedToken, error)
	VerifyAccessToken(tokenString string) (*AccessTokenClaims, error)
	DecodeAccessToken(tokenString string) (*AccessTokenClaims, error)
	VerifyRefreshToken(tokenString string) (*RefreshTokenClaims, error)
	AccessTokenDuration() time.Duration
}

// IssuedToken підписаний токен разом з його метаданими
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
	ExpiresIn int64
}

// AccessTokenClaims представляє claims для Access Token
type AccessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID повертає subject токена
func (c *AccessTokenClaims) UserID() string {
	return c.Subject
}

// RefreshTokenClaims представляє claims для Refresh Token
type RefreshTokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// jwtService реалізація TokenIssuer
type jwtService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer створює новий TokenIssuer з двома окремими секретами
func NewTokenIssuer(cfg TokenConfig) (TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}

	j := &jwtService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTokenDuration,
		refreshTTL:    cfg.RefreshTokenDuration,
		now:           cfg.Now,
	}
	if j.accessTTL <= 0 {
		j.accessTTL = DefaultAccessTokenDuration
	}
	if j.refreshTTL <= 0 {
		j.refreshTTL = DefaultRefreshTokenDuration
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j, nil
}

func (j *jwtService) AccessTokenDuration() time.Duration {
	return j.accessTTL
}

// IssueAccessToken генерує access token зі свіжим jti
func (j *jwtService) IssueAccessToken(subject, role string) (*IssuedToken, error) {
	now := j.now()
	expiresAt := now.Add(j.accessTTL)
	jti := uuid.NewString()

	claims := AccessTokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": subject,
		"jti":     jti,
	}).Debug("Access token issued")

	return &IssuedToken{
		Token:     signed,
		JTI:       jti,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(j.accessTTL / time.Second),
	}, nil
}

// IssueRefreshToken генерує refresh token без jti. ttl <= 0 означає строк за замовчуванням.
func (j *jwtService) IssueRefreshToken(subject, role string, ttl time.Duration) (*IssuedToken, error) {
	if ttl <= 0 {
		ttl = j.refreshTTL
	}
	now := j.now()
	expiresAt := now.Add(ttl)

	claims := RefreshTokenClaims{
		Role:      role,
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ExpiresAt: expiresAt,
		ExpiresIn: int64(ttl / time.Second),
	}, nil
}

// VerifyAccessToken перевіряє підпис і строк дії access token
func (j *jwtService) VerifyAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := j.parse(tokenString, claims, j.accessSecret, true); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrVerificationFailed
	}
	return claims, nil
}

// DecodeAccessToken перевіряє лише підпис, ігноруючи строк дії.
// Використовується при logout, щоб відкликати навіть прострочений токен.
func (j *jwtService) DecodeAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := j.parse(tokenString, claims, j.accessSecret, false); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken валідує Refresh Token
func (j *jwtService) VerifyRefreshToken(tokenString string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := j.parse(tokenString, claims, j.refreshSecret, true); err != nil {
		return nil, err
	}
	if claims.TokenType != refreshTokenType || claims.Subject == "" {
		return nil, ErrVerificationFailed
	}
	return claims, nil
}

// parse зводить будь-яку помилку jwt до ErrVerificationFailed
func (j *jwtService) parse(tokenString string, claims jwt.Claims, secret []byte, validateClaims bool) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if validateClaims {
		opts = append(opts, jwt.WithExpirationRequired())
		if j.issuer != "" {
			opts = append(opts, jwt.WithIssuer(j.issuer))
		}
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		logrus.WithError(err).Debug("Token verification failed")
		return ErrVerificationFailed
	}
	if !token.Valid {
		return ErrVerificationFailed
	}
	return nil
}
