// Package media streams stored videos with HTTP byte-range support.
package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"localtube/pkg/apperr"
	"localtube/pkg/repository"
	"localtube/pkg/storage"
)

const DefaultContentType = "video/mp4"

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".ogv":  "video/ogg",
}

// IsVideoExtension reports whether ext (with leading dot) is accepted for upload.
func IsVideoExtension(ext string) bool {
	_, ok := contentTypes[strings.ToLower(ext)]
	return ok
}

// ContentType picks the response type from the file extension.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return DefaultContentType
}

// Stream is a ready-to-write response. The caller must close Body.
type Stream struct {
	Status        int
	ContentType   string
	ContentLength int64
	Headers       map[string]string
	Body          io.ReadCloser
}

type Server struct {
	videos repository.VideoRepository
	store  storage.Store
}

func NewServer(videos repository.VideoRepository, store storage.Store) *Server {
	return &Server{videos: videos, store: store}
}

// Open resolves filename through the video table and opens the requested
// span. Unknown names, missing blobs and unreadable blobs are all ErrNotFound.
func (s *Server) Open(ctx context.Context, filename, rangeHeader string) (*Stream, error) {
	logCtx := logrus.WithField("filename", filename)

	if !storage.ValidName(filename) {
		logCtx.Warn("Media: rejected invalid filename")
		return nil, apperr.ErrNotFound
	}
	if _, err := s.videos.FindVideoByFilename(filename); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Store("find video by filename", err)
	}

	size, err := s.store.Size(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			logCtx.Warn("Media: video row exists but blob is missing")
		} else {
			logCtx.WithError(err).Error("Media: failed to stat blob")
		}
		return nil, apperr.ErrNotFound
	}

	span, partial, err := ParseRange(rangeHeader, size)
	if err != nil {
		return nil, err
	}

	stream := &Stream{
		Status:      http.StatusOK,
		ContentType: ContentType(filename),
		Headers:     map[string]string{"Accept-Ranges": "bytes"},
	}
	if partial {
		stream.Status = http.StatusPartialContent
		stream.Headers["Content-Range"] = span.ContentRange(size)
	} else {
		span = ByteRange{Start: 0, End: size - 1}
	}
	stream.ContentLength = span.Length()

	body, err := s.store.Open(ctx, filename, span.Start, stream.ContentLength)
	if err != nil {
		logCtx.WithError(err).Error("Media: failed to open blob")
		return nil, apperr.ErrNotFound
	}
	stream.Body = body

	logCtx.WithFields(logrus.Fields{
		"status": stream.Status,
		"start":  span.Start,
		"length": stream.ContentLength,
	}).Debug("Media: streaming video")
	return stream, nil
}
