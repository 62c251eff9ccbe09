// Package auth registers users, verifies credentials and manages sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"localtube/pkg/apperr"
	"localtube/pkg/models"
	"localtube/pkg/repository"
)

const (
	maxUsernameLength = 50
	// bcrypt ignores input past 72 bytes
	maxPasswordLength = 72
)

type Options struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

// ClientMeta is recorded with a new session.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type Service struct {
	users    repository.UserRepository
	sessions SessionStore
	signer   *TokenSigner
	ttl      time.Duration
	cost     int

	// dummyHash is compared against for unknown usernames so both failure
	// paths cost one bcrypt comparison.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

func NewService(users repository.UserRepository, sessions SessionStore, opts Options) (*Service, error) {
	if users == nil || sessions == nil {
		panic("user repository and session store are required for auth.Service")
	}
	signer, err := NewTokenSigner(opts.Secret)
	if err != nil {
		return nil, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", opts.BcryptCost)
	}
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		signer:    signer,
		ttl:       opts.TTL,
		cost:      opts.BcryptCost,
		dummyHash: dummyHash,
		compare:   bcrypt.CompareHashAndPassword,
	}, nil
}

// TTL is how long a new session lives.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	logCtx := logrus.WithField("username", username)

	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}
	if len(username) > maxUsernameLength {
		return nil, apperr.Validation("username must be at most %d characters", maxUsernameLength)
	}
	if len(password) > maxPasswordLength {
		return nil, apperr.Validation("password must be at most %d bytes", maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, Password: string(hash)}
	if err := s.users.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Registration rejected: username taken")
			return nil, apperr.ErrDuplicateUsername
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, apperr.Store("create user", err)
	}

	logCtx.WithField("user_id", user.ID).Info("User registered")
	user.Password = ""
	return user, nil
}

// Login checks the credentials, opens a session and returns its signed token.
func (s *Service) Login(ctx context.Context, username, password string, meta ClientMeta) (string, *models.Session, error) {
	username = strings.TrimSpace(username)
	logCtx := logrus.WithField("username", username)

	user, err := s.users.FindUserByName(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.compare(s.dummyHash, []byte(password))
			logCtx.Warn("Login failed: unknown user")
			return "", nil, apperr.ErrInvalidCredentials
		}
		logCtx.WithError(err).Error("Login failed: error finding user")
		return "", nil, apperr.Store("find user", err)
	}
	if err := s.compare([]byte(user.Password), []byte(password)); err != nil {
		logCtx.Warn("Login failed: wrong password")
		return "", nil, apperr.ErrInvalidCredentials
	}

	sess := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Username:  user.Username,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		logCtx.WithError(err).Error("Login failed: could not store session")
		return "", nil, apperr.Store("save session", err)
	}

	token, err := s.signer.Sign(sess)
	if err != nil {
		logCtx.WithError(err).Error("Login failed: could not sign session token")
		return "", nil, err
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in")
	return token, sess, nil
}

// Logout revokes the session behind token. Unknown or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return
	}
	if err := s.sessions.Delete(ctx, claims.Id); err != nil {
		logrus.WithError(err).WithField("username", claims.Username).Error("Logout: failed to delete session")
		return
	}
	logrus.WithField("username", claims.Username).Info("User logged out")
}

// Resolve maps a session token to the identity it was issued for. Invalid,
// expired and revoked tokens, and sessions whose user no longer exists,
// yield ErrSessionNotFound.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	sess, err := s.sessions.Find(ctx, claims.Id)
	if err != nil {
		return nil, err
	}
	// the account may have been removed since login
	user, err := s.users.FindUserByID(sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if delErr := s.sessions.Delete(ctx, sess.ID); delErr != nil {
				logrus.WithError(delErr).WithField("user_id", sess.UserID).Warn("Failed to delete orphaned session")
			}
			return nil, ErrSessionNotFound
		}
		return nil, apperr.Store("find session user", err)
	}
	return &Identity{UserID: user.ID, Username: user.Username}, nil
}
