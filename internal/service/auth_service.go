package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/repository"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoSession          = errors.New("no active session")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// AuthEvent names a change of authentication state.
type AuthEvent string

const (
	AuthEventSignedIn  AuthEvent = "SIGNED_IN"
	AuthEventSignedOut AuthEvent = "SIGNED_OUT"
)

// AuthListener is notified after sign-in and sign-out.
type AuthListener func(ctx context.Context, event AuthEvent, userID string)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User, profileName string) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// AuthSession is what a successful sign-in or sign-up returns.
type AuthSession struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      *model.User       `json:"user"`
	Profile   model.UserProfile `json:"profile"`
}

// AuthService handles registration, JWTs and the single active session per user.
type AuthService struct {
	cfg   *config.Config
	rdb   *redis.Client
	users UserStore
	log   zerolog.Logger

	mu        sync.RWMutex
	listeners map[int]AuthListener
	nextID    int
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, users UserStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:       cfg,
		rdb:       rdb,
		users:     users,
		log:       log.With().Str("component", "auth_service").Logger(),
		listeners: make(map[int]AuthListener),
	}
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (s *AuthService) OnAuthStateChange(fn AuthListener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) emit(ctx context.Context, event AuthEvent, userID string) {
	s.mu.RLock()
	fns := make([]AuthListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, event, userID)
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SignUp registers a user and signs them in.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (*AuthSession, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{Email: strings.ToLower(strings.TrimSpace(req.Email)), PasswordHash: hash}
	name := model.DisplayName(strings.TrimSpace(req.Nickname), u.Email)
	if err := s.users.Create(ctx, u, name); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", u.ID).Msg("User registered")
	return s.startSession(ctx, u)
}

// SignIn verifies credentials and issues a token. A new sign-in replaces any
// session the user had on another device.
func (s *AuthService) SignIn(ctx context.Context, req model.SignInRequest) (*AuthSession, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	return s.startSession(ctx, u)
}

// SignOut revokes the user's session.
func (s *AuthService) SignOut(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.emit(ctx, AuthEventSignedOut, userID)
	return nil
}

// GetSession returns the signed-in user and profile.
func (s *AuthService) GetSession(ctx context.Context, userID string) (*model.User, model.UserProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, model.UserProfile{}, err
	}
	return u, s.profile(ctx, u), nil
}

func (s *AuthService) profile(ctx context.Context, u *model.User) model.UserProfile {
	p, err := s.users.GetProfile(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Err(err).Str("user_id", u.ID).Msg("Profile lookup failed")
		}
		return model.UserProfile{UserID: u.ID, Name: model.DisplayName("", u.Email)}
	}
	if p.Name == "" {
		p.Name = model.DisplayName("", u.Email)
	}
	return *p
}

func (s *AuthService) startSession(ctx context.Context, u *model.User) (*AuthSession, error) {
	token, expiresAt, err := s.GenerateToken(ctx, u)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, AuthEventSignedIn, u.ID)
	return &AuthSession{Token: token, ExpiresAt: expiresAt, User: u, Profile: s.profile(ctx, u)}, nil
}

// GenerateToken creates a JWT and registers its JTI as the user's active session.
func (s *AuthService) GenerateToken(ctx context.Context, u *model.User) (string, time.Time, error) {
	jti := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(s.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: u.ID,
		Email:  u.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	// Store session in Redis with same expiry as JWT.
	if err := s.rdb.Set(ctx, config.CacheKey.UserSessionKey(u.ID), jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateSession checks that the token's JTI matches the active session in Redis.
func (s *AuthService) ValidateSession(ctx context.Context, userID, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoSession
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}
