package auth

import (
	"context"
	"fmt"
	"time"

	"funneltrack/internal/log"
)

// UserStore is the external credential store. GetOTPSecret reports a
// missing user by wrapping ErrUserNotFound.
type UserStore interface {
	UserExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, username, otpSecret string) error
	GetOTPSecret(ctx context.Context, username string) (string, error)
}

// RevocationStore keeps at most one issued-before threshold per user.
// Invalidate replaces any prior record; only the newest threshold is
// ever enforced, since invalidating before T covers every earlier T'.
type RevocationStore interface {
	Invalidate(ctx context.Context, username string, iatUntil int64) error
	IsAccepted(ctx context.Context, username string, iat int64) (bool, error)
}

// TokenPair is a fresh access+refresh token set.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ServiceConfig tunes the auth service. Zero values fall back to the
// production defaults.
type ServiceConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	OTP        OTPVerifier
	Cipher     SecretCipher
}

// Service orchestrates OTP verification, token issuance and
// revocation.
type Service struct {
	users       UserStore
	revocations RevocationStore
	codec       *Codec
	otp         OTPVerifier
	cipher      SecretCipher
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	logger      *log.Logger
}

func NewService(users UserStore, revocations RevocationStore, codec *Codec, cfg ServiceConfig, logger *log.Logger) *Service {
	if cfg.Issuer == "" {
		cfg.Issuer = "funneltrack"
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.OTP == nil {
		cfg.OTP = TOTPVerifier{}
	}
	if cfg.Cipher == nil {
		cfg.Cipher = PlaintextCipher{}
	}
	return &Service{
		users:       users,
		revocations: revocations,
		codec:       codec,
		otp:         cfg.OTP,
		cipher:      cfg.Cipher,
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		logger:      logger.WithComponent(log.ComponentAuth),
	}
}

// GenerateSecret produces a fresh OTP secret and provisioning URI for
// a username nobody holds yet. Nothing is persisted here; the secret
// is only stored once Register proves possession of it.
func (s *Service) GenerateSecret(ctx context.Context, username string) (ProvisionedSecret, error) {
	taken, err := s.users.UserExists(ctx, username)
	if err != nil {
		return ProvisionedSecret{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return ProvisionedSecret{}, ErrUsernameTaken
	}
	secret, err := NewSecret(s.issuer, username)
	if err != nil {
		return ProvisionedSecret{}, fmt.Errorf("generate otp secret: %w", err)
	}
	return secret, nil
}

// Register persists a new user after verifying the presented OTP code
// against the provisioned secret, then issues a first token pair. The
// username check runs before the OTP check.
func (s *Service) Register(ctx context.Context, username, secret, otpCode string) (TokenPair, error) {
	taken, err := s.users.UserExists(ctx, username)
	if err != nil {
		return TokenPair{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return TokenPair{}, ErrUsernameTaken
	}
	if !s.otp.Verify(otpCode, secret) {
		return TokenPair{}, ErrInvalidOTP
	}
	sealed, err := s.cipher.Seal(secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("seal otp secret: %w", err)
	}
	if err := s.users.CreateUser(ctx, username, sealed); err != nil {
		return TokenPair{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUsername, username)
	return s.issuePair(username)
}

// Login verifies an OTP code against the stored secret and issues a
// fresh token pair.
func (s *Service) Login(ctx context.Context, username, otpCode string) (TokenPair, error) {
	sealed, err := s.users.GetOTPSecret(ctx, username)
	if err != nil {
		return TokenPair{}, err
	}
	secret, err := s.cipher.Open(sealed)
	if err != nil {
		return TokenPair{}, fmt.Errorf("open otp secret: %w", err)
	}
	if !s.otp.Verify(otpCode, secret) {
		return TokenPair{}, ErrInvalidOTP
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUsername, username)
	return s.issuePair(username)
}

// Refresh trades a valid refresh token for a new pair. The used
// token's issue time becomes the user's revocation threshold, so
// replaying it (or any older token) fails with ErrTokenBlacklisted.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.Kind != KindRefresh {
		return TokenPair{}, ErrTokenMalformed
	}
	iat := claims.IssuedAt.Unix()
	accepted, err := s.revocations.IsAccepted(ctx, claims.Username, iat)
	if err != nil {
		return TokenPair{}, fmt.Errorf("check revocation: %w", err)
	}
	if !accepted {
		return TokenPair{}, ErrTokenBlacklisted
	}
	if err := s.revocations.Invalidate(ctx, claims.Username, iat); err != nil {
		return TokenPair{}, fmt.Errorf("invalidate tokens: %w", err)
	}
	s.logger.InfoContext(ctx, "Tokens refreshed",
		log.FieldUsername, claims.Username, log.FieldIssuedAt, iat)
	return s.issuePair(claims.Username)
}

// Authenticate validates an access token and returns its claims.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, ErrTokenMalformed
	}
	accepted, err := s.revocations.IsAccepted(ctx, claims.Username, claims.IssuedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if !accepted {
		return nil, ErrTokenBlacklisted
	}
	return claims, nil
}

func (s *Service) issuePair(username string) (TokenPair, error) {
	access, err := s.codec.Issue(username, KindAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(username, KindRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
