package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Cookie describes the session cookie.
type Cookie struct {
	Name   string
	Secure bool
}

func (ck Cookie) Set(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, token, int(ttl.Seconds()), "/", "", ck.Secure, true)
}

func (ck Cookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ck.Name, "", -1, "/", "", ck.Secure, true)
}

// Middleware attaches the session's identity to the request context when the
// cookie holds a live session. It never rejects a request; handlers decide
// whether anonymous access is allowed.
func Middleware(svc *Service, cookie Cookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookie.Name)
		if err != nil || token == "" {
			c.Next()
			return
		}

		identity, err := svc.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				cookie.Clear(c)
			} else {
				logrus.WithError(err).Error("Auth middleware: session lookup failed")
			}
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Set("user_id", identity.UserID)
		logrus.WithField("user_id", identity.UserID).Debug("Auth middleware: session resolved")
		c.Next()
	}
}
