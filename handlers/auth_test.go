package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/sessions"
	"github.com/progreview/progreview-api/internal/tokens"
	"github.com/progreview/progreview-api/internal/users"
	"github.com/progreview/progreview-api/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	cfg    *config.Config
	users  *users.Service
	sess   *sessions.Service
	router *gin.Engine
}

func newAuthFixture(t *testing.T, loginLimit gin.HandlerFunc) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret-32-bytes-xxxxxx"
	cfg.JWT.AccessTokenTTL = 5 * time.Minute
	settings := config.DefaultSettings()
	settings.SaltRounds = bcrypt.MinCost

	f := &authFixture{
		cfg:   cfg,
		users: users.NewService(users.NewMemoryUserRepository(), settings, nil),
		sess:  sessions.NewService(sessions.NewMemoryRepository(), time.Hour),
	}
	_, err := f.users.Create(context.Background(), users.CreateInput{
		Username: "alice",
		Password: "correct horse",
		Groups:   []string{"Administrators"},
	}, actionlog.Actor{})
	require.NoError(t, err)

	f.router = gin.New()
	NewAuthHandler(cfg, f.users, f.sess).Register(f.router.Group("/"), loginLimit)
	return f
}

func post(r http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type loginResponse struct {
	AccessToken  string                 `json:"accessToken"`
	RefreshToken string                 `json:"refreshToken"`
	User         map[string]interface{} `json:"user"`
	ExpiresIn    int                    `json:"expiresIn"`
}

func login(t *testing.T, f *authFixture) loginResponse {
	t.Helper()
	w := post(f.router, "/auth/login", `{"username":"alice","password":"correct horse"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lr loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	return lr
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t, nil)
	lr := login(t, f)

	assert.NotEmpty(t, lr.RefreshToken)
	assert.Equal(t, 300, lr.ExpiresIn)
	assert.Equal(t, "alice", lr.User["username"])
	assert.NotContains(t, lr.User, "passwordHash")

	claims, err := tokens.ParseAccessToken(f.cfg.JWT.Secret, lr.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, lr.User["id"], claims["sub"])
	assert.Equal(t, []interface{}{"Administrators"}, claims["groups"])
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newAuthFixture(t, nil)

	w := post(f.router, "/auth/login", `{"username":"alice","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(f.router, "/auth/login", `{"username":"nobody","password":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(f.router, "/auth/login", `{"username":"alice"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	f := newAuthFixture(t, middleware.LoginRateLimitMiddleware(client, 2, 30*time.Minute))
	for i := 0; i < 2; i++ {
		w := post(f.router, "/auth/login", `{"username":"alice","password":"wrong"}`, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := post(f.router, "/auth/login", `{"username":"alice","password":"correct horse"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// refresh is not behind the login limiter
	w = post(f.router, "/auth/refresh", `{"refresh_token":"unknown"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	lr := login(t, f)

	w := post(f.router, "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, lr.RefreshToken), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rr))
	assert.NotEmpty(t, rr.AccessToken)
	assert.NotEqual(t, lr.RefreshToken, rr.RefreshToken)

	// the old refresh token is spent
	w = post(f.router, "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, lr.RefreshToken), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_DeletedUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	lr := login(t, f)
	require.NoError(t, f.users.Delete(context.Background(), lr.User["id"].(string), actionlog.Actor{}))

	w := post(f.router, "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, lr.RefreshToken), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_InvalidRefresh(t *testing.T) {
	f := newAuthFixture(t, nil)
	w := post(f.router, "/auth/refresh", `{"refresh_token":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(f.router, "/auth/refresh", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_BlacklistsAccessAndDeletesRefresh(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	f := newAuthFixture(t, nil)
	lr := login(t, f)

	w := post(f.router, "/auth/logout", fmt.Sprintf(`{"refresh_token":%q}`, lr.RefreshToken), map[string]string{"Authorization": "Bearer " + lr.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)

	sess, err := f.sess.ValidateRefresh(context.Background(), lr.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	assert.True(t, m.Exists(sessions.BlacklistKey(lr.AccessToken)))
	black, err := sessions.IsAccessTokenBlacklisted(context.Background(), lr.AccessToken)
	require.NoError(t, err)
	assert.True(t, black)
}

func TestParseExpFromJWT(t *testing.T) {
	sign := func(c jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("any-key"))
		require.NoError(t, err)
		return raw
	}

	expTime, err := parseExpFromJWT(sign(jwt.MapClaims{"sub": "s1", "exp": 1700000000}))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), expTime.Unix())

	_, err = parseExpFromJWT(sign(jwt.MapClaims{"sub": "s2"}))
	assert.Error(t, err)

	_, err = parseExpFromJWT("not.a.jwt")
	assert.Error(t, err)

	_, err = parseExpFromJWT("single")
	assert.Error(t, err)
}
