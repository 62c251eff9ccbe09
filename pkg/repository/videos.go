package repository

import (
	"fmt"

	"github.com/jinzhu/gorm"

	"localtube/pkg/models"
)

const videoListingColumns = "videos.*, users.username"

func (s *Store) videoListings() *gorm.DB {
	return s.db.Table("videos").
		Select(videoListingColumns).
		Joins("JOIN users ON users.id = videos.user_id")
}

func (s *Store) InsertVideo(v *models.Video) error {
	if err := s.db.Create(v).Error; err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: insert video %q: %w", v.Title, err)
	}
	return nil
}

func (s *Store) FindVideoByID(id uint) (*models.VideoListing, error) {
	var rows []models.VideoListing
	if err := s.videoListings().Where("videos.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm: find video %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *Store) FindVideoByFilename(filename string) (*models.Video, error) {
	var video models.Video
	if err := s.db.Where("filename = ?", filename).First(&video).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find video by filename %q: %w", filename, err)
	}
	return &video, nil
}

func (s *Store) SearchVideos(term string) ([]models.VideoListing, error) {
	query := s.videoListings()
	if term != "" {
		pattern := "%" + term + "%"
		query = query.Where("videos.title LIKE ? OR videos.description LIKE ?", pattern, pattern)
	}

	videos := []models.VideoListing{}
	if err := query.Order("videos.id DESC").Scan(&videos).Error; err != nil {
		return nil, fmt.Errorf("gorm: search videos %q: %w", term, err)
	}
	return videos, nil
}
