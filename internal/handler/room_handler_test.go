package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"Lee_Meet/internal/middleware"
	"Lee_Meet/internal/model"
	"Lee_Meet/internal/repository/memory"
	"Lee_Meet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth 测试用：跳过 JWT，直接注入身份
func fakeAuth(uid uint64, role int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uid)
		c.Set(middleware.ContextRoleKey, role)
		c.Next()
	}
}

func newRoomRouter(uid uint64, role int) (*gin.Engine, *memory.Store) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	invites := service.NewInviteService(store, "http://localhost:3000/join")
	roomSvc := service.NewRoomService(store, store, invites, store, store.OutboxRepo())
	joinSvc := service.NewJoinService(store, store, invites, store,
		&service.StaticMeetingProvider{Base: "http://meet.local"}, store.OutboxRepo())
	h := NewRoomHandler(roomSvc, joinSvc)

	r := gin.New()
	g := r.Group("/api/room", fakeAuth(uid, role))
	g.POST("/create", h.Create)
	g.POST("/:id/start", h.Start)
	g.POST("/:id/join", h.Join)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestRoomCreateAndJoinHTTP(t *testing.T) {
	r, _ := newRoomRouter(1, model.PlatformAdmin)

	w, resp := doJSON(t, r, http.MethodPost, "/api/room/create", gin.H{
		"meet_name":  "晨会",
		"visibility": "public",
	})
	require.Equal(t, http.StatusOK, w.Code)
	room := resp["room"].(map[string]any)
	assert.Equal(t, "scheduled", room["state"])
	assert.Equal(t, "public", room["visibility"])
	roomID := room["id"].(string)

	// 管理者 join 即开播
	w, resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/room/%s/join", roomID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp["join_url"])
	assert.Equal(t, "live", resp["room"].(map[string]any)["state"])
}

func TestRoomCreatePrivateReturnsToken(t *testing.T) {
	r, _ := newRoomRouter(1, model.PlatformAdmin)

	w, resp := doJSON(t, r, http.MethodPost, "/api/room/create", gin.H{
		"meet_name":  "闭门会",
		"visibility": "private",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, resp["invite_token"])
}

func TestRoomCreateForbiddenHTTP(t *testing.T) {
	r, _ := newRoomRouter(5, model.PlatformUser)

	w, resp := doJSON(t, r, http.MethodPost, "/api/room/create", gin.H{
		"meet_name":  "偷开的房",
		"visibility": "public",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "unauthorized", resp["error"])
}

func TestRoomJoinCredentialRequiredHTTP(t *testing.T) {
	adminRouter, store := newRoomRouter(1, model.PlatformAdmin)

	_, resp := doJSON(t, adminRouter, http.MethodPost, "/api/room/create", gin.H{
		"meet_name":  "私密房",
		"visibility": "private",
	})
	roomID := resp["room"].(map[string]any)["id"].(string)
	_, _ = doJSON(t, adminRouter, http.MethodPost, fmt.Sprintf("/api/room/%s/start", roomID), nil)

	// 路人访问同一个 store
	invites := service.NewInviteService(store, "http://localhost:3000/join")
	roomSvc := service.NewRoomService(store, store, invites, store, store.OutboxRepo())
	joinSvc := service.NewJoinService(store, store, invites, store,
		&service.StaticMeetingProvider{Base: "http://meet.local"}, store.OutboxRepo())
	h := NewRoomHandler(roomSvc, joinSvc)
	guest := gin.New()
	guest.POST("/api/room/:id/join", fakeAuth(9, model.PlatformUser), h.Join)

	w, resp := doJSON(t, guest, http.MethodPost, fmt.Sprintf("/api/room/%s/join", roomID), gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "credential_required", resp["error"])
	assert.Contains(t, resp["missing"], "inviteToken")
}
