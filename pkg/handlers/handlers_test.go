package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"localtube/pkg/auth"
	"localtube/pkg/catalog"
	"localtube/pkg/database"
	"localtube/pkg/media"
	"localtube/pkg/models"
	"localtube/pkg/repository"
	"localtube/pkg/storage"
)

const (
	cookieName = "sid"
	maxUpload  = 1 << 20
)

var mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

func fakeMP4(n int) []byte {
	b := make([]byte, n)
	copy(b, mp4Header)
	for i := len(mp4Header); i < n; i++ {
		b[i] = byte(i)
	}
	return b
}

type testApp struct {
	router *gin.Engine
	store  *repository.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	db, err := database.Open("sqlite3", filepath.Join(dir, "localtube.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repository.NewStore(db)

	blobs, err := storage.NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	authSvc, err := auth.NewService(store, auth.NewDBSessionStore(store), auth.Options{
		Secret:     "test-secret",
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	h := New(authSvc,
		catalog.NewService(store, store, blobs, maxUpload),
		media.NewServer(store, blobs),
		store,
		Options{Cookie: auth.Cookie{Name: cookieName}, MaxUploadBytes: maxUpload},
	)
	r := gin.New()
	require.NoError(t, h.Routes(r, nil))
	return &testApp{router: r, store: store}
}

func (a *testApp) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (a *testApp) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, cookie)
}

func (a *testApp) upload(t *testing.T, title, description, filename string, content []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("description", description))
	if content != nil {
		part, err := mw.CreateFormFile("video", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, cookie)
}

// signUp registers and logs in a user, returning the session cookie.
func (a *testApp) signUp(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := a.postForm("/register", url.Values{"username": {username}, "password": {password}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
	return a.login(t, username, password)
}

func (a *testApp) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := a.postForm("/login", url.Values{"username": {username}, "password": {password}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			assert.True(t, c.HttpOnly)
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

// uploadVideo uploads content and returns the new video's id.
func (a *testApp) uploadVideo(t *testing.T, cookie *http.Cookie, title string, content []byte) uint {
	t.Helper()
	w := a.upload(t, title, "about "+title, "clip.mp4", content, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/watch/"), loc)
	id, err := strconv.ParseUint(strings.TrimPrefix(loc, "/watch/"), 10, 64)
	require.NoError(t, err)
	return uint(id)
}

func TestAccounts(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.get("/register", nil).Code)
	assert.Equal(t, http.StatusOK, app.get("/login", nil).Code)

	cookie := app.signUp(t, "alice", "s3cret")

	w := app.get("/", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Signed in as alice")

	w = app.postForm("/register", url.Values{"username": {"alice"}, "password": {"other"}}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Username already taken")

	w = app.postForm("/register", url.Values{"username": {""}, "password": {"x"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.postForm("/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	w = app.postForm("/login", url.Values{"username": {"nobody"}, "password": {"s3cret"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signUp(t, "alice", "pw")
	id := app.uploadVideo(t, cookie, "intro", fakeMP4(256))

	w := app.get("/logout", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	// the old cookie no longer resolves to a session
	w = app.postForm("/like/"+strconv.Itoa(int(id)), nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.postForm("/comment/"+strconv.Itoa(int(id)), url.Values{"comment": {"hi"}}, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.upload(t, "again", "", "clip.mp4", fakeMP4(64), cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusFound, app.get("/logout", nil).Code, "logout without a session still redirects")
}

func TestUploadAndWatch(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signUp(t, "alice", "pw")

	w := app.get("/upload", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, app.get("/upload", cookie).Code)

	id := app.uploadVideo(t, cookie, "Holiday", fakeMP4(512))

	w = app.get("/watch/"+strconv.Itoa(int(id)), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Holiday")
	assert.Contains(t, w.Body.String(), "about Holiday")
	assert.Contains(t, w.Body.String(), "Uploaded by alice")

	assert.Equal(t, http.StatusNotFound, app.get("/watch/9999", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/watch/abc", nil).Code)
}

func TestUploadRejected(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signUp(t, "alice", "pw")

	tests := []struct {
		name     string
		title    string
		filename string
		content  []byte
		status   int
	}{
		{"anonymous", "t", "a.mp4", fakeMP4(64), http.StatusUnauthorized},
		{"missing title", "", "a.mp4", fakeMP4(64), http.StatusBadRequest},
		{"missing file", "t", "", nil, http.StatusBadRequest},
		{"wrong extension", "t", "a.txt", fakeMP4(64), http.StatusBadRequest},
		{"not a video", "t", "a.mp4", []byte("just some text"), http.StatusBadRequest},
		{"too large", "t", "a.mp4", fakeMP4(3 * maxUpload), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cookie
			if tt.name == "anonymous" {
				c = nil
			}
			w := app.upload(t, tt.title, "", tt.filename, tt.content, c)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	videos, err := app.store.SearchVideos("")
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestSearch(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signUp(t, "alice", "pw")
	first := app.uploadVideo(t, cookie, "cats playing", fakeMP4(64))
	second := app.uploadVideo(t, cookie, "dogs running", fakeMP4(64))

	w := app.get("/api/videos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Videos []models.VideoListing `json:"videos"`
		Count  int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Equal(t, 2, all.Count)
	assert.Equal(t, second, all.Videos[0].ID, "newest first")
	assert.Equal(t, first, all.Videos[1].ID)
	assert.Equal(t, "alice", all.Videos[0].Username)

	w = app.get("/?q=cats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cats playing")
	assert.NotContains(t, w.Body.String(), "dogs running")

	w = app.get("/?q=zebra", nil)
	assert.Contains(t, w.Body.String(), "No videos found")
}

func TestLikesAndComments(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice", "pw")
	bob := app.signUp(t, "bob", "pw")
	id := app.uploadVideo(t, alice, "intro", fakeMP4(64))
	path := strconv.Itoa(int(id))

	for i := 0; i < 2; i++ {
		w := app.postForm("/like/"+path, nil, bob)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/watch/"+path, w.Header().Get("Location"))
	}
	w := app.postForm("/comment/"+path, url.Values{"comment": {"nice one"}}, bob)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = app.postForm("/comment/"+path, url.Values{"comment": {"   "}}, bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusNotFound, app.postForm("/like/9999", nil, bob).Code)
	assert.Equal(t, http.StatusUnauthorized, app.postForm("/like/"+path, nil, nil).Code)

	w = app.get("/api/videos/"+path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail models.VideoDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, 1, detail.Likes, "liking twice counts once")
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "nice one", detail.Comments[0].Text)
	assert.Equal(t, "bob", detail.Comments[0].Username)

	w = app.get("/api/videos/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}

func TestStream(t *testing.T) {
	app := newTestApp(t)
	cookie := app.signUp(t, "alice", "pw")
	content := fakeMP4(1000)
	id := app.uploadVideo(t, cookie, "intro", content)

	video, err := app.store.FindVideoByID(id)
	require.NoError(t, err)
	src := "/video/" + video.Filename

	w := app.get(src, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, content, w.Body.Bytes())

	ranged := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, src, nil)
		req.Header.Set("Range", header)
		return app.do(req, nil)
	}

	w = ranged("bytes=0-99")
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 0-99/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, "100", w.Header().Get("Content-Length"))
	assert.Equal(t, content[:100], w.Body.Bytes())

	w = ranged("bytes=900-")
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 900-999/1000", w.Header().Get("Content-Range"))
	assert.Equal(t, content[900:], w.Body.Bytes())

	w = ranged("bytes=1000-")
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */1000", w.Header().Get("Content-Range"))

	assert.Equal(t, http.StatusNotFound, app.get("/video/unknown.mp4", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/video/..%2Flocaltube.db", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.get("/video/.hidden", nil).Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.get("/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestErrorStatus(t *testing.T) {
	status, msg := errorStatus(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", msg)
}
