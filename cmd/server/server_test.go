package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/flasker/internal/config"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/testutil"
	"go.uber.org/zap"
)

type apiClient struct {
	t      *testing.T
	router http.Handler
	db     *database.Database
}

type authFunc func(r *http.Request)

func bearer(token string) authFunc {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func basic(username, password string) authFunc {
	return func(r *http.Request) { r.SetBasicAuth(username, password) }
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	cfg := config.Config{
		SiteName:         "Flasker",
		AppNickname:      "flasker",
		Env:              "dev",
		SecretKey:        "test-secret",
		TokenTTL:         time.Hour,
		ResultTTL:        time.Minute,
		Admins:           []string{"boss@example.com"},
		BlockedUsernames: []string{"admin", "flasker"},
	}
	srv := newServer(cfg, db, rdb, zap.NewNop())
	return &apiClient{t: t, router: srv.Router, db: db}
}

func (a *apiClient) do(method, path string, body any, auth authFunc) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != nil {
		auth(req)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type userBody struct {
	PublicID      string `json:"public_id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Group         string `json:"group"`
	FollowerCount int64  `json:"follower_count"`
	FollowedCount int64  `json:"followed_count"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type tokenBody struct {
	PublicID string `json:"public_id"`
	Token    string `json:"token"`
}

type userPage struct {
	Items []userBody `json:"items"`
	Meta  struct {
		Page       int   `json:"page"`
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
	} `json:"_meta"`
	Links struct {
		Self string  `json:"self"`
		Next *string `json:"next"`
		Prev *string `json:"prev"`
	} `json:"_links"`
}

func (a *apiClient) register(username, email string) userBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/users", map[string]string{
		"username": username,
		"email":    email,
		"name":     username,
		"password": "dog",
	}, nil)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[userBody](a.t, w)
}

func (a *apiClient) login(username string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/tokens", nil, basic(username, "dog"))
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[tokenBody](a.t, w).Token
}

func TestRegistrationConflicts(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodPost, "/v1/users", map[string]string{
		"username": "susan",
		"email":    "susan@example.com",
		"name":     "Susan",
		"password": "dog",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[userBody](t, w)
	require.Equal(t, "/v1/users/"+created.PublicID, w.Header().Get("Location"))
	require.Equal(t, "susan@example.com", created.Email)
	require.Equal(t, "user", created.Group)

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "taken username",
			body:    map[string]string{"username": "Susan", "email": "other@example.com", "name": "x", "password": "dog"},
			message: "please use a different username",
		},
		{
			name:    "taken email",
			body:    map[string]string{"username": "other", "email": "SUSAN@example.com", "name": "x", "password": "dog"},
			message: "please use a different email address",
		},
		{
			name:    "reserved username",
			body:    map[string]string{"username": "admin", "email": "root@example.com", "name": "x", "password": "dog"},
			message: "please use a different username",
		},
		{
			name:    "missing password",
			body:    map[string]string{"username": "other", "email": "other@example.com", "name": "x"},
			message: "must include username, email, name, and password fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/v1/users", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[errorBody](t, w)
			require.Equal(t, "bad request", body.Error)
			require.Equal(t, tt.message, body.Message)
		})
	}

	w = api.do(http.MethodPost, "/v1/users", map[string]any{"username": "x", "bogus": 1}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRegistration(t *testing.T) {
	api := newAPI(t)

	boss := api.register("boss", "Boss@Example.com")
	require.Equal(t, "admin", boss.Group)
}

func TestTokenLifecycle(t *testing.T) {
	api := newAPI(t)
	susan := api.register("susan", "susan@example.com")

	w := api.do(http.MethodPost, "/v1/tokens", nil, basic("susan", "wrong"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	w = api.do(http.MethodPost, "/v1/tokens", nil, basic("SUSAN", "dog"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issued := decode[tokenBody](t, w)
	require.Equal(t, susan.PublicID, issued.PublicID)
	require.NotEmpty(t, issued.Token)

	// still valid for longer than a minute, so it is handed out again
	require.Equal(t, issued.Token, api.login("susan"))

	w = api.do(http.MethodGet, "/v1/users/"+susan.PublicID, nil, bearer(issued.Token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "susan@example.com", decode[userBody](t, w).Email)

	w = api.do(http.MethodDelete, "/v1/tokens", nil, bearer(issued.Token))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/v1/users/"+susan.PublicID, nil, bearer(issued.Token))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "unauthorized", decode[errorBody](t, w).Error)

	fresh := api.login("susan")
	require.NotEqual(t, issued.Token, fresh)

	w = api.do(http.MethodGet, "/v1/users/"+susan.PublicID, nil, bearer(fresh))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticationStoreDown(t *testing.T) {
	api := newAPI(t)
	susan := api.register("susan", "susan@example.com")
	token := api.login("susan")

	require.NoError(t, api.db.Close())

	w := api.do(http.MethodGet, "/v1/users/"+susan.PublicID, nil, bearer(token))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	w = api.do(http.MethodPost, "/v1/tokens", nil, basic("susan", "dog"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFollowRoundTrip(t *testing.T) {
	api := newAPI(t)
	susan := api.register("susan", "susan@example.com")
	john := api.register("john", "john@example.com")
	susanToken := api.login("susan")
	johnToken := api.login("john")

	followPath := "/v1/users/" + john.PublicID + "/follow"
	for i := 0; i < 2; i++ {
		w := api.do(http.MethodPost, followPath, nil, bearer(susanToken))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := api.do(http.MethodGet, "/v1/users/"+john.PublicID+"/followers", nil, bearer(susanToken))
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[userPage](t, w)
	require.Len(t, page.Items, 1)
	require.Equal(t, susan.PublicID, page.Items[0].PublicID)
	require.Empty(t, page.Items[0].Email)
	require.EqualValues(t, 1, page.Meta.TotalItems)
	require.Nil(t, page.Links.Next)
	require.Nil(t, page.Links.Prev)

	w = api.do(http.MethodGet, "/v1/users/"+john.PublicID, nil, bearer(johnToken))
	require.EqualValues(t, 1, decode[userBody](t, w).FollowerCount)

	w = api.do(http.MethodGet, "/v1/notifications", nil, bearer(johnToken))
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[struct {
		Items []struct {
			Name string         `json:"name"`
			Data map[string]any `json:"data"`
		} `json:"items"`
	}](t, w)
	require.Len(t, notes.Items, 1)
	require.Equal(t, "new_follower", notes.Items[0].Name)
	require.Equal(t, "susan", notes.Items[0].Data["username"])

	for i := 0; i < 2; i++ {
		w = api.do(http.MethodDelete, followPath, nil, bearer(susanToken))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w = api.do(http.MethodGet, "/v1/users/"+susan.PublicID+"/followed", nil, bearer(susanToken))
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[userPage](t, w)
	require.Empty(t, page.Items)
	require.EqualValues(t, 0, page.Meta.TotalItems)

	w = api.do(http.MethodPost, "/v1/users/"+susan.PublicID+"/follow", nil, bearer(susanToken))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "you cannot follow yourself", decode[errorBody](t, w).Message)
}

func TestUserAuthorization(t *testing.T) {
	api := newAPI(t)
	susan := api.register("susan", "susan@example.com")
	john := api.register("john", "john@example.com")
	api.register("boss", "boss@example.com")
	susanToken := api.login("susan")
	bossToken := api.login("boss")

	w := api.do(http.MethodGet, "/v1/users", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/v1/users/nope", nil, bearer(susanToken))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/v1/users/"+john.PublicID, nil, bearer(susanToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[userBody](t, w).Email)

	w = api.do(http.MethodPut, "/v1/users/"+john.PublicID, map[string]string{"name": "Johnny"}, bearer(susanToken))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPut, "/v1/users/"+susan.PublicID, map[string]string{"username": "john"}, bearer(susanToken))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "please use a different username", decode[errorBody](t, w).Message)

	w = api.do(http.MethodPut, "/v1/users/"+susan.PublicID, map[string]string{"about_me": "hi"}, bearer(susanToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPut, "/v1/users/"+susan.PublicID, map[string]any{"shoe_size": 9}, bearer(susanToken))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodDelete, "/v1/users/"+john.PublicID, nil, bearer(susanToken))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodDelete, "/v1/users/"+john.PublicID, nil, bearer(bossToken))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/v1/users/"+john.PublicID, nil, bearer(susanToken))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/v1/users?per_page=1", nil, bearer(susanToken))
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[userPage](t, w)
	require.Len(t, page.Items, 1)
	require.EqualValues(t, 2, page.Meta.TotalItems)
	require.NotNil(t, page.Links.Next)
	require.Equal(t, "/v1/users?page=2&per_page=1", *page.Links.Next)
}

func TestGuestIsRejected(t *testing.T) {
	api := newAPI(t)
	susan := api.register("susan", "susan@example.com")
	api.register("guest", "guest@example.com")
	guestToken := api.login("guest")

	w := api.do(http.MethodPost, "/v1/users/"+susan.PublicID+"/follow", nil, bearer(guestToken))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportFollowersTask(t *testing.T) {
	api := newAPI(t)
	api.register("susan", "susan@example.com")
	token := api.login("susan")

	w := api.do(http.MethodPost, "/v1/tasks/export_followers", nil, bearer(token))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	task := decode[struct {
		ID       string `json:"id"`
		Progress int    `json:"progress"`
	}](t, w)
	require.NotEmpty(t, task.ID)

	w = api.do(http.MethodPost, "/v1/tasks/export_followers", nil, bearer(token))
	require.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, "/v1/tasks/"+task.ID, nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, decode[struct {
		Progress int `json:"progress"`
	}](t, w).Progress)

	w = api.do(http.MethodGet, "/v1/tasks", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	require.Equal(t, task.ID, list.Items[0].ID)

	w = api.do(http.MethodGet, "/v1/tasks/unknown", nil, bearer(token))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentVisibility(t *testing.T) {
	api := newAPI(t)
	api.register("boss", "boss@example.com")
	api.register("susan", "susan@example.com")
	bossToken := api.login("boss")
	susanToken := api.login("susan")

	draft := map[string]any{"title": "Intro", "body": "hello", "phase": 1, "section": 1, "status": false}

	w := api.do(http.MethodPost, "/v1/content", draft, bearer(susanToken))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPost, "/v1/content", draft, bearer(bossToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	publicID := decode[struct {
		PublicID string `json:"public_id"`
	}](t, w).PublicID

	w = api.do(http.MethodPost, "/v1/content", draft, bearer(bossToken))
	require.Equal(t, http.StatusBadRequest, w.Code)

	type contentPage struct {
		Items []map[string]any `json:"items"`
	}

	w = api.do(http.MethodGet, "/v1/content", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[contentPage](t, w).Items)

	w = api.do(http.MethodGet, "/v1/content/"+publicID, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/v1/content", nil, bearer(bossToken))
	require.Len(t, decode[contentPage](t, w).Items, 1)

	w = api.do(http.MethodPut, "/v1/content/"+publicID, map[string]any{"status": true}, bearer(bossToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/v1/content/"+publicID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodDelete, "/v1/content/"+publicID, nil, bearer(bossToken))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestPasswordReset(t *testing.T) {
	api := newAPI(t)
	api.register("susan", "susan@example.com")

	w := api.do(http.MethodPost, "/v1/reset_password", map[string]string{"email": "nobody@example.com"}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = api.do(http.MethodPost, "/v1/reset_password", map[string]string{"email": "susan@example.com"}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = api.do(http.MethodPost, "/v1/reset_password/not-a-token", map[string]string{"password": "new"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"database": "ok", "redis": "ok"}, decode[map[string]any](t, w))
}
