package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"localtube/pkg/apperr"
	"localtube/pkg/auth"
)

func (h *Handler) RegisterForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Username": ""})
}

func (h *Handler) Register(c *gin.Context) {
	username := c.PostForm("username")
	if _, err := h.auth.Register(username, c.PostForm("password")); err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.fail(c, err)
			return
		}
		h.render(c, status, "register.html", gin.H{"Title": "Register", "Error": msg, "Username": username})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Login", "Username": ""})
}

func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	meta := auth.ClientMeta{UserAgent: c.Request.UserAgent(), IPAddress: c.ClientIP()}

	token, _, err := h.auth.Login(c.Request.Context(), username, c.PostForm("password"), meta)
	if err != nil {
		if !errors.Is(err, apperr.ErrInvalidCredentials) {
			h.fail(c, err)
			return
		}
		status, msg := errorStatus(err)
		h.render(c, status, "login.html", gin.H{"Title": "Login", "Error": msg, "Username": username})
		return
	}

	h.cookie.Set(c, token, h.auth.TTL())
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout always succeeds, even without a session.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.Name); err == nil && token != "" {
		h.auth.Logout(c.Request.Context(), token)
	}
	h.cookie.Clear(c)
	c.Redirect(http.StatusFound, "/")
}
