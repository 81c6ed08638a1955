package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/zntb/automated-newsletter-service/internal/config"
	"github.com/zntb/automated-newsletter-service/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid session token")
)

type userRepository interface {
	GetByEmail(ctx context.Context, email string) (models.User, bool, error)
	Create(ctx context.Context, u models.User) error
}

// Session is the parsed admin identity carried by a bearer token.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// Service authenticates admins against the users table, with an
// environment-credential fallback that provisions the first admin row on
// its first login.
type Service struct {
	users      userRepository
	adminCfg   config.Admin
	jwtSecret  []byte
	sessionTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(users userRepository, adminCfg config.Admin, authCfg config.Auth, logger zerolog.Logger) *Service {
	return &Service{
		users:      users,
		adminCfg:   adminCfg,
		jwtSecret:  []byte(authCfg.JWTSecret),
		sessionTTL: time.Duration(authCfg.SessionTTL) * time.Minute,
		log:        logger.With().Str("component", "AuthService").Logger(),
		now:        time.Now,
	}
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, found, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if !found {
		user, err = s.provisionFromEnv(ctx, email, password)
		if err != nil {
			return "", err
		}
	} else if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// provisionFromEnv creates the admin row when the presented credentials
// match ADMIN_EMAIL / ADMIN_PASSWORD and no user exists yet. The comparison
// is constant-time so response timing reveals nothing about the env password.
func (s *Service) provisionFromEnv(ctx context.Context, email, password string) (models.User, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminCfg.Email)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminCfg.Password)) == 1
	if s.adminCfg.Email == "" || !emailOK || !passwordOK {
		return models.User{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("email", email).Msg("admin user provisioned from environment")
	return user, nil
}

func (s *Service) issueToken(user models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseSession validates a bearer token and extracts the admin identity.
func (s *Service) ParseSession(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidSession
	}

	userID, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || role != models.RoleAdmin {
		return Session{}, ErrInvalidSession
	}

	return Session{UserID: userID, Email: email, Role: role}, nil
}
