package repository

import (
	"fmt"

	"localtube/pkg/models"
)

func (s *Store) InsertLike(l *models.Like) (bool, error) {
	if err := s.db.Create(l).Error; err != nil {
		if isDuplicateEntryError(err) {
			return false, nil
		}
		return false, fmt.Errorf("gorm: insert like (user %d, video %d): %w", l.UserID, l.VideoID, err)
	}
	return true, nil
}

func (s *Store) CountLikes(videoID uint) (int, error) {
	var count int
	if err := s.db.Model(&models.Like{}).Where("video_id = ?", videoID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("gorm: count likes for video %d: %w", videoID, err)
	}
	return count, nil
}

func (s *Store) InsertComment(c *models.Comment) error {
	if err := s.db.Create(c).Error; err != nil {
		return fmt.Errorf("gorm: insert comment (user %d, video %d): %w", c.UserID, c.VideoID, err)
	}
	return nil
}

func (s *Store) ListComments(videoID uint) ([]models.CommentListing, error) {
	comments := []models.CommentListing{}
	err := s.db.Table("comments").
		Select("comments.*, users.username").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.video_id = ?", videoID).
		Order("comments.id ASC").
		Scan(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list comments for video %d: %w", videoID, err)
	}
	return comments, nil
}
