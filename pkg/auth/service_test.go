package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"localtube/pkg/apperr"
	"localtube/pkg/models"
	"localtube/pkg/repository"
	"localtube/pkg/repository/mocks"
)

func newTestService(t *testing.T) (*Service, *mocks.UserRepository, *RedisSessionStore) {
	t.Helper()
	users := new(mocks.UserRepository)
	sessions, _ := newRedisStore(t)
	svc, err := NewService(users, sessions, Options{Secret: "test-secret", TTL: time.Hour, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	return svc, users, sessions
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestService_Register(t *testing.T) {
	svc, users, _ := newTestService(t)

	users.On("CreateUser", mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "alice" && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("pw123")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*models.User).ID = 5
	}).Return(nil).Once()

	user, err := svc.Register("  alice ", "pw123")
	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password, "hash must not leave the service")
	users.AssertExpectations(t)
}

func TestService_Register_DuplicateUsername(t *testing.T) {
	svc, users, _ := newTestService(t)
	users.On("CreateUser", mock.AnythingOfType("*models.User")).Return(repository.ErrDuplicateEntry).Once()

	_, err := svc.Register("alice", "pw")
	assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)
}

func TestService_Register_StoreError(t *testing.T) {
	svc, users, _ := newTestService(t)
	users.On("CreateUser", mock.AnythingOfType("*models.User")).Return(errors.New("disk full")).Once()

	_, err := svc.Register("alice", "pw")
	assert.ErrorIs(t, err, apperr.ErrStore)
}

func TestService_Register_Validation(t *testing.T) {
	svc, users, _ := newTestService(t)

	for _, tc := range []struct{ username, password string }{
		{"", "pw"},
		{"   ", "pw"},
		{"alice", ""},
		{strings.Repeat("a", 51), "pw"},
		{"alice", strings.Repeat("p", 73)},
	} {
		_, err := svc.Register(tc.username, tc.password)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
	users.AssertNotCalled(t, "CreateUser", mock.Anything)
}

func TestService_LoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	svc, users, sessions := newTestService(t)
	users.On("FindUserByName", "alice").Return(&models.User{ID: 9, Username: "alice", Password: hashed(t, "pw123")}, nil)
	users.On("FindUserByID", uint(9)).Return(&models.User{ID: 9, Username: "alice"}, nil)

	token, sess, err := svc.Login(ctx, "alice", "pw123", ClientMeta{UserAgent: "test", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, uint(9), sess.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	stored, err := sessions.Find(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", stored.UserAgent)

	identity, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: 9, Username: "alice"}, identity)

	svc.Logout(ctx, token)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// logging out twice or with junk is harmless
	svc.Logout(ctx, token)
	svc.Logout(ctx, "junk")
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService(t)
	users.On("FindUserByName", "alice").Return(&models.User{ID: 1, Username: "alice", Password: hashed(t, "right")}, nil)
	users.On("FindUserByName", "ghost").Return(nil, repository.ErrNotFound)

	_, _, err := svc.Login(ctx, "alice", "wrong", ClientMeta{})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "ghost", "right", ClientMeta{})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestService_Login_UnknownUserPaysForComparison(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService(t)
	users.On("FindUserByName", "alice").Return(&models.User{ID: 1, Username: "alice", Password: hashed(t, "right")}, nil)
	users.On("FindUserByName", "ghost").Return(nil, repository.ErrNotFound)

	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, _, err := svc.Login(ctx, "ghost", "right", ClientMeta{})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	require.Len(t, compared, 1, "unknown users must still run a bcrypt comparison")
	assert.Equal(t, svc.dummyHash, compared[0])

	cost, err := bcrypt.Cost(svc.dummyHash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost, "placeholder hash uses the configured cost")

	_, _, err = svc.Login(ctx, "alice", "wrong", ClientMeta{})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Len(t, compared, 2)
}

func TestService_Resolve_DeletedUser(t *testing.T) {
	ctx := context.Background()
	svc, users, sessions := newTestService(t)
	users.On("FindUserByName", "alice").Return(&models.User{ID: 4, Username: "alice", Password: hashed(t, "pw")}, nil)
	users.On("FindUserByID", uint(4)).Return(nil, repository.ErrNotFound).Once()

	token, sess, err := svc.Login(ctx, "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = sessions.Find(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "session of a removed user is deleted")
	users.AssertExpectations(t)
}

func TestService_Resolve_UserLookupError(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService(t)
	users.On("FindUserByName", "alice").Return(&models.User{ID: 4, Username: "alice", Password: hashed(t, "pw")}, nil)
	users.On("FindUserByID", uint(4)).Return(nil, errors.New("connection reset")).Once()

	token, _, err := svc.Login(ctx, "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestService_Resolve_InvalidToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "forged")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewService_Options(t *testing.T) {
	users := new(mocks.UserRepository)
	sessions := NewDBSessionStore(new(mocks.SessionRepository))

	_, err := NewService(users, sessions, Options{})
	assert.Error(t, err, "empty secret")

	_, err = NewService(users, sessions, Options{Secret: "s", BcryptCost: 99})
	assert.Error(t, err)

	svc, err := NewService(users, sessions, Options{Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, svc.TTL())
	assert.Equal(t, bcrypt.DefaultCost, svc.cost)
}
