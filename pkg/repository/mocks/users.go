// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"localtube/pkg/models"
)

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(u *models.User) error {
	args := m.Called(u)
	return args.Error(0)
}

func (m *UserRepository) FindUserByName(username string) (*models.User, error) {
	args := m.Called(username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) FindUserByID(id uint) (*models.User, error) {
	args := m.Called(id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
