package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"localtube/pkg/apperr"
	"localtube/pkg/auth"
	"localtube/pkg/catalog"
	"localtube/pkg/media"
)

func (h *Handler) Index(c *gin.Context) {
	query := c.Query("q")
	videos, err := h.catalog.ListVideos(query)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{"Query": query, "Videos": videos})
}

type uploadForm struct {
	Title       string
	Description string
}

func (h *Handler) uploadPage(c *gin.Context, status int, form uploadForm, msg string) {
	h.render(c, status, "upload.html", gin.H{
		"Title":       "Upload",
		"Form":        form,
		"Error":       msg,
		"MaxUploadMB": h.maxUpload >> 20,
	})
}

func (h *Handler) UploadForm(c *gin.Context) {
	if auth.CurrentUser(c.Request.Context()) == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	h.uploadPage(c, http.StatusOK, uploadForm{}, "")
}

func (h *Handler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	if auth.CurrentUser(ctx) == nil {
		h.fail(c, apperr.ErrAuthRequired)
		return
	}

	if h.maxUpload > 0 {
		// leave room for the other form fields and multipart framing
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadPage(c, http.StatusRequestEntityTooLarge, uploadForm{}, fmt.Sprintf("File is larger than %d MB", h.maxUpload>>20))
			return
		}
		h.uploadPage(c, http.StatusBadRequest, uploadForm{}, "Expected a multipart form upload")
		return
	}
	form := uploadForm{Title: c.PostForm("title"), Description: c.PostForm("description")}

	header, err := c.FormFile("video")
	if err != nil {
		h.uploadPage(c, http.StatusBadRequest, form, "A video file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open multipart file: %w", err))
		return
	}
	defer file.Close()

	video, err := h.catalog.Upload(ctx, catalog.UploadInput{
		Title:       form.Title,
		Description: form.Description,
		Filename:    header.Filename,
		Size:        header.Size,
		File:        file,
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusBadRequest {
			h.uploadPage(c, status, form, msg)
			return
		}
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, watchURL(video.ID))
}

func (h *Handler) Watch(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	detail, err := h.catalog.GetVideoDetail(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.String(http.StatusNotFound, "Video not found")
			return
		}
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "watch.html", gin.H{"Title": detail.Video.Title, "Detail": detail})
}

func (h *Handler) Like(c *gin.Context) {
	id, err := idParam(c, "videoId")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.catalog.Like(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, watchURL(id))
}

func (h *Handler) Comment(c *gin.Context) {
	id, err := idParam(c, "videoId")
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.catalog.Comment(c.Request.Context(), id, c.PostForm("comment")); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, watchURL(id))
}

// Stream serves a stored video, honouring a single byte range.
func (h *Handler) Stream(c *gin.Context) {
	stream, err := h.media.Open(c.Request.Context(), c.Param("filename"), c.GetHeader("Range"))
	if err != nil {
		var rangeErr *media.RangeError
		if errors.As(err, &rangeErr) {
			c.Header("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
		}
		h.fail(c, err)
		return
	}
	defer stream.Body.Close()

	c.DataFromReader(stream.Status, stream.ContentLength, stream.ContentType, stream.Body, stream.Headers)
}
