package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"localtube/pkg/models"
)

type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) CreateSession(s *models.Session) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *SessionRepository) FindSession(id string) (*models.Session, error) {
	args := m.Called(id)
	sess, _ := args.Get(0).(*models.Session)
	return sess, args.Error(1)
}

func (m *SessionRepository) DeleteSession(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *SessionRepository) DeleteExpiredSessions(now time.Time) (int64, error) {
	args := m.Called(now)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
