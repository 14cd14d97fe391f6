package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/internal/storage"
	"github.com/d60-Lab/microblog/internal/testutil"
	"github.com/d60-Lab/microblog/pkg/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	mediaDir := t.TempDir()
	blobs, err := storage.NewLocal(mediaDir)
	require.NoError(t, err)

	h := handler.NewHandler(handler.Services{
		Auth:      service.NewAuthService(store),
		Relations: service.NewRelationshipService(store, nil),
		Tweets:    service.NewTweetService(store),
		Media:     service.NewMediaService(store, blobs),
		Feed:      service.NewFeedService(store, nil),
	}, handler.Options{
		APIKeyHeader:   "api-key",
		MaxUploadBytes: 1 << 10,
		Ping:           func(ctx context.Context) error { return database.Ping(ctx, db) },
	})
	return &testServer{
		router: NewRouter(h, RouterOptions{Registry: prometheus.NewRegistry(), Swagger: true, MediaDir: mediaDir}),
		db:     db,
	}
}

func (s *testServer) do(t *testing.T, method, path, key string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("api-key", key)
	}
	return s.serve(t, req)
}

func (s *testServer) upload(t *testing.T, key, filename string, data []byte) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/medias", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("api-key", key)
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func assertError(t *testing.T, body map[string]any, errType string) {
	t.Helper()
	assert.Equal(t, false, body["result"])
	assert.Equal(t, errType, body["error_type"])
	assert.NotEmpty(t, body["error_message"])
}

func TestAuthGate(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "alice", "k1")

	code, body := s.do(t, http.MethodGet, "/api/tweets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assertError(t, body, "Unauthenticated")

	code, body = s.do(t, http.MethodGet, "/api/users/me", "nope", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assertError(t, body, "Unauthenticated")

	code, body = s.do(t, http.MethodGet, "/api/users/me", "k1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["result"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["name"])
	assert.Equal(t, []any{}, user["followers"])
	assert.Equal(t, []any{}, user["following"])
}

func TestTweetLifecycle(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "alice", "k1")
	bob := testutil.CreateUser(t, s.db, "bob", "k2")

	code, body := s.do(t, http.MethodPost, "/api/tweets", "k1", map[string]any{"tweet_data": "hello"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"result": true, "tweet_id": 1.0}, body)

	code, body = s.do(t, http.MethodGet, "/api/tweets", "k2", nil)
	require.Equal(t, http.StatusOK, code)
	tweets := body["tweets"].([]any)
	require.Len(t, tweets, 1)
	assert.Equal(t, map[string]any{
		"id":          1.0,
		"content":     "hello",
		"attachments": []any{},
		"author":      map[string]any{"id": 1.0, "name": "alice"},
		"likes":       []any{},
	}, tweets[0])

	code, body = s.do(t, http.MethodPost, "/api/tweets/1/likes", "k2", nil)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]any{"result": true}, body)

	_, body = s.do(t, http.MethodGet, "/api/tweets", "k1", nil)
	likes := body["tweets"].([]any)[0].(map[string]any)["likes"].([]any)
	require.Len(t, likes, 1)
	assert.Equal(t, float64(bob.ID), likes[0].(map[string]any)["user_id"])

	code, _ = s.do(t, http.MethodDelete, "/api/tweets/1/likes", "k2", nil)
	assert.Equal(t, http.StatusAccepted, code)

	code, body = s.do(t, http.MethodDelete, "/api/tweets/1", "k2", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assertError(t, body, "Forbidden")

	code, _ = s.do(t, http.MethodDelete, "/api/tweets/1", "k1", nil)
	assert.Equal(t, http.StatusAccepted, code)

	code, body = s.do(t, http.MethodDelete, "/api/tweets/1", "k1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assertError(t, body, "NotFound")

	code, body = s.do(t, http.MethodPost, "/api/tweets/1/likes", "k2", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assertError(t, body, "NotFound")
}

func TestCreateTweetValidation(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "alice", "k1")

	code, body := s.do(t, http.MethodPost, "/api/tweets", "k1", map[string]any{"tweet_data": strings.Repeat("x", 281)})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assertError(t, body, "InvalidInput")

	code, body = s.do(t, http.MethodPost, "/api/tweets", "k1", map[string]any{"tweet_data": "hi", "image_ids": []int{42}})
	assert.Equal(t, http.StatusNotFound, code)
	assertError(t, body, "NotFound")

	req := httptest.NewRequest(http.MethodPost, "/api/tweets", strings.NewReader("{not json"))
	req.Header.Set("api-key", "k1")
	code, body = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, code)
	assertError(t, body, "BadRequest")

	code, body = s.do(t, http.MethodDelete, "/api/tweets/abc", "k1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assertError(t, body, "InvalidInput")
}

func TestMediaUploadAndAttach(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "alice", "k1")

	code, body := s.upload(t, "k1", "cat.png", []byte("png"))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]any{"result": true, "media_id": 1.0}, body)

	code, body = s.upload(t, "k1", "cat.png", []byte("png"))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 1.0, body["media_id"])

	code, body = s.upload(t, "k1", "big.png", bytes.Repeat([]byte("x"), 2<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assertError(t, body, "TooLarge")

	code, _ = s.do(t, http.MethodPost, "/api/tweets", "k1", map[string]any{"tweet_data": "look", "tweet_media_ids": []int{1}})
	require.Equal(t, http.StatusOK, code)

	_, body = s.do(t, http.MethodGet, "/api/tweets", "k1", nil)
	tw := body["tweets"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"/media/1_cat.png"}, tw["attachments"])
}

func TestFeedHidesUploaderKey(t *testing.T) {
	s := newTestServer(t)
	const secret = "alice-secret-key"
	testutil.CreateUser(t, s.db, "alice", secret)
	testutil.CreateUser(t, s.db, "bob", "k2")

	code, _ := s.upload(t, secret, "cat.png", []byte("png bytes"))
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPost, "/api/tweets", secret, map[string]any{"tweet_data": "look", "tweet_media_ids": []int{1}})
	require.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/api/tweets", nil)
	req.Header.Set("api-key", "k2")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), secret)
	assert.Contains(t, w.Body.String(), `"/media/1_cat.png"`)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/1_cat.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png bytes", w.Body.String())
}

func TestFollowScenario(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "alice", "k1")
	testutil.CreateUser(t, s.db, "bob", "k2")

	code, body := s.do(t, http.MethodPost, "/api/users/1/follow", "k2", nil)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, map[string]any{"result": true}, body)

	_, body = s.do(t, http.MethodGet, "/api/users/1", "", nil)
	assert.Equal(t, []any{map[string]any{"id": 2.0, "name": "bob"}}, body["user"].(map[string]any)["followers"])

	_, body = s.do(t, http.MethodGet, "/api/users/2", "", nil)
	assert.Equal(t, []any{map[string]any{"id": 1.0, "name": "alice"}}, body["user"].(map[string]any)["following"])

	code, body = s.do(t, http.MethodPost, "/api/users/1/follow", "k2", nil)
	assert.Equal(t, http.StatusConflict, code)
	assertError(t, body, "AlreadyFollowing")

	code, body = s.do(t, http.MethodPost, "/api/users/2/follow", "k2", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assertError(t, body, "FollowSelf")

	code, body = s.do(t, http.MethodPost, "/api/users/9/follow", "k2", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assertError(t, body, "NotFound")

	code, _ = s.do(t, http.MethodDelete, "/api/users/1/follow", "k2", nil)
	assert.Equal(t, http.StatusAccepted, code)

	code, body = s.do(t, http.MethodDelete, "/api/users/1/follow", "k2", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assertError(t, body, "NotFollowing")

	code, body = s.do(t, http.MethodGet, "/api/users/9", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assertError(t, body, "NotFound")
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["result"])

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "microblog_http_requests_total")

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/tweets")
}
