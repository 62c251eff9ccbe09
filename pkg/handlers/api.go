package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *Handler) APIListVideos(c *gin.Context) {
	videos, err := h.catalog.ListVideos(c.Query("q"))
	if err != nil {
		h.failJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos, "count": len(videos)})
}

func (h *Handler) APIGetVideo(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.failJSON(c, err)
		return
	}
	detail, err := h.catalog.GetVideoDetail(id)
	if err != nil {
		h.failJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		logrus.WithError(err).Error("Health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
