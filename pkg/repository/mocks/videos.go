package mocks

import (
	"github.com/stretchr/testify/mock"

	"localtube/pkg/models"
)

type VideoRepository struct {
	mock.Mock
}

func (m *VideoRepository) InsertVideo(v *models.Video) error {
	args := m.Called(v)
	return args.Error(0)
}

func (m *VideoRepository) FindVideoByID(id uint) (*models.VideoListing, error) {
	args := m.Called(id)
	video, _ := args.Get(0).(*models.VideoListing)
	return video, args.Error(1)
}

func (m *VideoRepository) FindVideoByFilename(filename string) (*models.Video, error) {
	args := m.Called(filename)
	video, _ := args.Get(0).(*models.Video)
	return video, args.Error(1)
}

func (m *VideoRepository) SearchVideos(term string) ([]models.VideoListing, error) {
	args := m.Called(term)
	videos, _ := args.Get(0).([]models.VideoListing)
	return videos, args.Error(1)
}
