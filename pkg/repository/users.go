package repository

import (
	"fmt"

	"github.com/jinzhu/gorm"

	"localtube/pkg/models"
)

func (s *Store) CreateUser(u *models.User) error {
	if err := s.db.Create(u).Error; err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create user %q: %w", u.Username, err)
	}
	return nil
}

func (s *Store) FindUserByName(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find user by username %q: %w", username, err)
	}
	return &user, nil
}

func (s *Store) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find user by id %d: %w", id, err)
	}
	return &user, nil
}
