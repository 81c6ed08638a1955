package auth_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zntb/automated-newsletter-service/internal/config"
	"github.com/zntb/automated-newsletter-service/internal/models"
	"github.com/zntb/automated-newsletter-service/internal/services/auth"
)

type fakeUserRepo struct {
	users   map[string]models.User
	created []models.User
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (models.User, bool, error) {
	u, ok := f.users[email]
	return u, ok, nil
}

func (f *fakeUserRepo) Create(_ context.Context, u models.User) error {
	if f.users == nil {
		f.users = map[string]models.User{}
	}
	f.users[u.Email] = u
	f.created = append(f.created, u)
	return nil
}

func newService(repo *fakeUserRepo, adminCfg config.Admin) *auth.Service {
	return auth.NewService(repo, adminCfg, config.Auth{
		JWTSecret:  "test-secret",
		SessionTTL: 60,
	}, zerolog.Nop())
}

func TestLoginProvisionsAdminFromEnv(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newService(repo, config.Admin{Email: "admin@example.com", Password: "hunter2"})

	token, err := svc.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.NotEqual(t, "hunter2", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter2")))

	session, err := svc.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, session.UserID)
	assert.Equal(t, "admin@example.com", session.Email)
	assert.Equal(t, models.RoleAdmin, session.Role)
}

func TestLoginRejectsWrongEnvCredentials(t *testing.T) {
	svc := newService(&fakeUserRepo{}, config.Admin{Email: "admin@example.com", Password: "hunter2"})

	_, err := svc.Login(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "intruder@example.com", "hunter2")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginRejectsUnknownUserWithoutEnvAdmin(t *testing.T) {
	svc := newService(&fakeUserRepo{}, config.Admin{})

	_, err := svc.Login(context.Background(), "someone@example.com", "whatever")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginExistingUser(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeUserRepo{users: map[string]models.User{
		"admin@example.com": {
			ID:           "user-1",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		},
	}}
	svc := newService(repo, config.Admin{})

	token, err := svc.Login(context.Background(), "admin@example.com", "s3cret")
	require.NoError(t, err)

	session, err := svc.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)

	_, err = svc.Login(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Empty(t, repo.created)
}

func TestParseSessionRejectsTamperedToken(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newService(repo, config.Admin{Email: "admin@example.com", Password: "hunter2"})

	token, err := svc.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.ParseSession(token + "x")
	assert.ErrorIs(t, err, auth.ErrInvalidSession)

	_, err = svc.ParseSession("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestParseSessionRejectsForeignSecret(t *testing.T) {
	repo := &fakeUserRepo{}
	issuer := newService(repo, config.Admin{Email: "admin@example.com", Password: "hunter2"})
	token, err := issuer.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)

	verifier := auth.NewService(repo, config.Admin{}, config.Auth{
		JWTSecret:  "different-secret",
		SessionTTL: 60,
	}, zerolog.Nop())

	_, err = verifier.ParseSession(token)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
}
