// Package handlers is the HTTP surface: HTML pages, the media endpoint and a
// small JSON API.
package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"localtube/pkg/apperr"
	"localtube/pkg/auth"
	"localtube/pkg/catalog"
	"localtube/pkg/media"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping() error
}

type Handler struct {
	auth      *auth.Service
	catalog   *catalog.Service
	media     *media.Server
	db        Pinger
	cookie    auth.Cookie
	maxUpload int64
}

type Options struct {
	Cookie auth.Cookie
	// MaxUploadBytes caps the request body of POST /upload.
	MaxUploadBytes int64
}

func New(authSvc *auth.Service, catalogSvc *catalog.Service, mediaSrv *media.Server, db Pinger, opts Options) *Handler {
	if authSvc == nil || catalogSvc == nil || mediaSrv == nil || db == nil {
		panic("all services are required for handlers.Handler")
	}
	return &Handler{
		auth:      authSvc,
		catalog:   catalogSvc,
		media:     mediaSrv,
		db:        db,
		cookie:    opts.Cookie,
		maxUpload: opts.MaxUploadBytes,
	}
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatDate": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	}).ParseFS(templateFS, "templates/*.html")
}

// Routes installs the templates, the auth middleware and every route on r.
// credentialLimit, when not nil, guards POST /login and POST /register.
func (h *Handler) Routes(r *gin.Engine, credentialLimit gin.HandlerFunc) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)
	r.Use(auth.Middleware(h.auth, h.cookie))

	var limited []gin.HandlerFunc
	if credentialLimit != nil {
		limited = append(limited, credentialLimit)
	}

	r.GET("/", h.Index)
	r.GET("/upload", h.UploadForm)
	r.POST("/upload", h.Upload)
	r.GET("/watch/:id", h.Watch)
	r.GET("/video/:filename", h.Stream)
	r.POST("/like/:videoId", h.Like)
	r.POST("/comment/:videoId", h.Comment)

	r.GET("/register", h.RegisterForm)
	r.POST("/register", append(limited, h.Register)...)
	r.GET("/login", h.LoginForm)
	r.POST("/login", append(limited, h.Login)...)
	r.GET("/logout", h.Logout)

	api := r.Group("/api")
	{
		api.GET("/videos", h.APIListVideos)
		api.GET("/videos/:id", h.APIGetVideo)
	}
	r.GET("/health", h.Health)
	return nil
}

// render adds the fields every page expects before executing page.
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	for _, key := range []string{"Title", "Query", "Error"} {
		if _, ok := data[key]; !ok {
			data[key] = ""
		}
	}
	data["User"] = auth.CurrentUser(c.Request.Context())
	c.HTML(status, page, data)
}

// errorStatus maps a service error to a status code and a message that is
// safe to show to the client.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrAuthRequired):
		return http.StatusUnauthorized, "Login required"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, apperr.ErrDuplicateUsername):
		return http.StatusConflict, "Username already taken"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, apperr.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable"
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), apperr.ErrValidation.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// fail writes err as plain text. Server errors are logged with the request.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	c.String(status, msg)
}

func (h *Handler) failJSON(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("API request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

// idParam parses a positive numeric path parameter. Anything else is treated
// as a missing record.
func idParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ErrNotFound
	}
	return uint(id), nil
}

func watchURL(id uint) string {
	return "/watch/" + strconv.FormatUint(uint64(id), 10)
}
