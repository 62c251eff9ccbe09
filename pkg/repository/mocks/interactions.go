package mocks

import (
	"github.com/stretchr/testify/mock"

	"localtube/pkg/models"
)

type InteractionRepository struct {
	mock.Mock
}

func (m *InteractionRepository) InsertLike(l *models.Like) (bool, error) {
	args := m.Called(l)
	return args.Bool(0), args.Error(1)
}

func (m *InteractionRepository) CountLikes(videoID uint) (int, error) {
	args := m.Called(videoID)
	return args.Int(0), args.Error(1)
}

func (m *InteractionRepository) InsertComment(c *models.Comment) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *InteractionRepository) ListComments(videoID uint) ([]models.CommentListing, error) {
	args := m.Called(videoID)
	comments, _ := args.Get(0).([]models.CommentListing)
	return comments, args.Error(1)
}
