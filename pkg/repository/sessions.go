package repository

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"

	"localtube/pkg/models"
)

func (s *Store) CreateSession(sess *models.Session) error {
	if err := s.db.Create(sess).Error; err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create session for user %d: %w", sess.UserID, err)
	}
	return nil
}

func (s *Store) FindSession(id string) (*models.Session, error) {
	var sess models.Session
	if err := s.db.Where("id = ?", id).First(&sess).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find session: %w", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(id string) error {
	if err := s.db.Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("gorm: delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(now time.Time) (int64, error) {
	result := s.db.Where("expires_at <= ?", now).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
