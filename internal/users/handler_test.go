package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/progreview/progreview-api/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(svc *Service, claims map[string]interface{}) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, claims)
		c.Next()
	})
	NewHandler(svc).Register(api, middleware.AllowGroups("Administrators"))
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_AdminLifecycle(t *testing.T) {
	svc, _ := newTestService()
	r := newRouter(svc, map[string]interface{}{"sub": "root-id", "username": "root", "root": true})

	w := doJSON(r, http.MethodPost, "/api/user", map[string]interface{}{"username": "alice", "password": "pw", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)

	w = doJSON(r, http.MethodPost, "/api/user", map[string]interface{}{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/api/user", map[string]interface{}{"username": "al", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = doJSON(r, http.MethodPatch, "/api/user/"+id, map[string]interface{}{"groups": []string{"Chairs"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Chairs")

	w = doJSON(r, http.MethodDelete, "/api/user/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/user/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_NonAdminForbidden(t *testing.T) {
	svc, _ := newTestService()
	r := newRouter(svc, map[string]interface{}{"sub": "u1", "username": "reviewer", "groups": []interface{}{"Reviewers"}})

	w := doJSON(r, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_MeLocalUser(t *testing.T) {
	svc, _ := newTestService()
	u, err := svc.Create(t.Context(), CreateInput{Username: "alice", Password: "pw"}, admin)
	require.NoError(t, err)
	r := newRouter(svc, map[string]interface{}{"sub": u.ID, "username": "alice"})

	w := doJSON(r, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		User map[string]interface{} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User["username"])
}

func TestHandler_MeFederatedUser(t *testing.T) {
	svc, _ := newTestService()
	r := newRouter(svc, map[string]interface{}{"sub": "kc-sub", "preferred_username": "kcuser", "email": "kc@example.com"})

	w := doJSON(r, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kcuser")

	got, err := svc.GetBySub(t.Context(), "kc-sub")
	require.NoError(t, err)
	assert.Equal(t, "kc@example.com", got.Email)
}
