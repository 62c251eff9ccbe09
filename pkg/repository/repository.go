// Package repository is the data access layer. Services depend on the
// interfaces declared here; Store is the gorm implementation.
package repository

import (
	"errors"
	"time"

	"localtube/pkg/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry is returned when a write violates a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

type UserRepository interface {
	// CreateUser inserts u and fills in its ID. A taken username yields ErrDuplicateEntry.
	CreateUser(u *models.User) error
	FindUserByName(username string) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
}

type VideoRepository interface {
	InsertVideo(v *models.Video) error
	FindVideoByID(id uint) (*models.VideoListing, error)
	FindVideoByFilename(filename string) (*models.Video, error)
	// SearchVideos matches term against title and description, newest first.
	// An empty term matches every video.
	SearchVideos(term string) ([]models.VideoListing, error)
}

type InteractionRepository interface {
	// InsertLike reports false without error when the like already exists.
	InsertLike(l *models.Like) (bool, error)
	CountLikes(videoID uint) (int, error)
	InsertComment(c *models.Comment) error
	// ListComments returns a video's comments oldest first.
	ListComments(videoID uint) ([]models.CommentListing, error)
}

type SessionRepository interface {
	CreateSession(s *models.Session) error
	FindSession(id string) (*models.Session, error)
	DeleteSession(id string) error
	DeleteExpiredSessions(now time.Time) (int64, error)
}
