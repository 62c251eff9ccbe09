// Package catalog implements browsing, uploads, likes and comments.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"localtube/pkg/apperr"
	"localtube/pkg/auth"
	"localtube/pkg/media"
	"localtube/pkg/models"
	"localtube/pkg/repository"
	"localtube/pkg/storage"
)

const maxTitleLength = 200

type Service struct {
	videos       repository.VideoRepository
	interactions repository.InteractionRepository
	store        storage.Store
	maxUpload    int64
}

func NewService(videos repository.VideoRepository, interactions repository.InteractionRepository, store storage.Store, maxUpload int64) *Service {
	return &Service{
		videos:       videos,
		interactions: interactions,
		store:        store,
		maxUpload:    maxUpload,
	}
}

// ListVideos returns videos whose title or description contains term,
// newest first. A blank term lists everything.
func (s *Service) ListVideos(term string) ([]models.VideoListing, error) {
	videos, err := s.videos.SearchVideos(strings.TrimSpace(term))
	if err != nil {
		return nil, apperr.Store("search videos", err)
	}
	return videos, nil
}

func (s *Service) GetVideoDetail(id uint) (*models.VideoDetail, error) {
	video, err := s.findVideo(id)
	if err != nil {
		return nil, err
	}
	comments, err := s.interactions.ListComments(id)
	if err != nil {
		return nil, apperr.Store("list comments", err)
	}
	likes, err := s.interactions.CountLikes(id)
	if err != nil {
		return nil, apperr.Store("count likes", err)
	}
	return &models.VideoDetail{Video: *video, Comments: comments, Likes: likes}, nil
}

func (s *Service) findVideo(id uint) (*models.VideoListing, error) {
	video, err := s.videos.FindVideoByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Store("find video", err)
	}
	return video, nil
}

type UploadInput struct {
	Title       string
	Description string
	// Filename is the client's name for the file; only its extension is kept.
	Filename string
	Size     int64
	File     io.ReadSeeker
}

// Upload stores the file under a generated name and records the video for
// the current user.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.Video, error) {
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if len(title) > maxTitleLength {
		return nil, apperr.Validation("title must be at most %d characters", maxTitleLength)
	}
	if in.File == nil || in.Size <= 0 {
		return nil, apperr.Validation("a video file is required")
	}
	if s.maxUpload > 0 && in.Size > s.maxUpload {
		return nil, apperr.Validation("file is larger than %d MB", s.maxUpload>>20)
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !media.IsVideoExtension(ext) {
		return nil, apperr.Validation("unsupported file type %q", ext)
	}

	detected, err := mimetype.DetectReader(in.File)
	if err != nil {
		return nil, fmt.Errorf("sniff upload: %w", err)
	}
	if !strings.HasPrefix(detected.String(), "video/") {
		return nil, apperr.Validation("file content is %s, not a video", detected.String())
	}
	if _, err := in.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	logCtx := logrus.WithFields(logrus.Fields{"user_id": owner.UserID, "title": title})
	name := uuid.New().String() + ext
	if err := s.store.Save(ctx, name, in.File, media.ContentType(name)); err != nil {
		logCtx.WithError(err).Error("Upload: failed to store file")
		return nil, fmt.Errorf("store upload: %w", err)
	}

	video := &models.Video{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Filename:    name,
		UserID:      owner.UserID,
	}
	if err := s.videos.InsertVideo(video); err != nil {
		if delErr := s.store.Delete(ctx, name); delErr != nil {
			logCtx.WithError(delErr).Warn("Upload: failed to remove orphaned file")
		}
		logCtx.WithError(err).Error("Upload: failed to insert video")
		return nil, apperr.Store("insert video", err)
	}

	logCtx.WithFields(logrus.Fields{"video_id": video.ID, "filename": name, "size": in.Size}).Info("Video uploaded")
	return video, nil
}

// Like records that the current user likes the video. Liking again is a no-op.
func (s *Service) Like(ctx context.Context, videoID uint) error {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.findVideo(videoID); err != nil {
		return err
	}
	added, err := s.interactions.InsertLike(&models.Like{UserID: user.UserID, VideoID: videoID})
	if err != nil {
		return apperr.Store("insert like", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.UserID, "video_id": videoID, "new": added}).Debug("Video liked")
	return nil
}

func (s *Service) Comment(ctx context.Context, videoID uint, text string) (*models.Comment, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("comment cannot be empty")
	}
	if _, err := s.findVideo(videoID); err != nil {
		return nil, err
	}
	comment := &models.Comment{UserID: user.UserID, VideoID: videoID, Text: text}
	if err := s.interactions.InsertComment(comment); err != nil {
		return nil, apperr.Store("insert comment", err)
	}
	return comment, nil
}
