package routes

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/container"
	"github.com/chosencharacters/Tankmas2024-Server/internal/domain/entities/presence"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/database"
	presencestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/presence"
	"github.com/chosencharacters/Tankmas2024-Server/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: true,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)

	db, err := database.NewConnection("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema())

	registry := presencestore.NewRoomRegistry([]presence.RoomDef{
		{ID: 1, Name: "Tankmas Village", Identifier: "village", Maps: []string{"village_main"}},
	})
	require.NoError(t, registry.Sync(db))

	prevPassword := config.AdminPassword
	config.AdminPassword = "hunter2"
	t.Cleanup(func() { config.AdminPassword = prevPassword })

	appContainer := container.NewContainer(db, registry, "test-secret", logger)
	return SetupRoutes(appContainer)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestResponseEnvelopeCarriesTickRate(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/rooms/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(500), body["tick_rate"])
	require.Contains(t, body, "data")
}

func TestJoinRoomAndReadBack(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/rooms/1/users", gin.H{
		"name": "paco", "x": 100, "y": 200,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["request_for_more_info"])

	w = doJSON(t, router, http.MethodPost, "/rooms/1/users", gin.H{
		"name": "paco", "costume": "pico", "sx": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["request_for_more_info"])

	w = doJSON(t, router, http.MethodGet, "/rooms/1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decodeBody(t, w)["data"].(map[string]any)
	require.Contains(t, users, "paco")
	paco := users["paco"].(map[string]any)
	assert.Equal(t, float64(100), paco["x"])
	assert.Equal(t, "pico", paco["costume"])
}

func TestUnknownRoomIs404(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/rooms/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "room not found", body["error"])

	w = doJSON(t, router, http.MethodGet, "/rooms/banana", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventPostAndPoll(t *testing.T) {
	router := newTestRouter(t)

	// Prime darnell's cursor before paco posts.
	w := doJSON(t, router, http.MethodPost, "/rooms/1/events/get", gin.H{"username": "darnell"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/rooms/1/events/post", gin.H{
		"username": "paco", "type": "sticker", "data": gin.H{"sticker": "pico"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/rooms/1/events/get", gin.H{"username": "darnell"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	evs := data["events"].([]any)
	require.Len(t, evs, 1)
	ev := evs[0].(map[string]any)
	assert.Equal(t, "paco", ev["username"])
	assert.Equal(t, "sticker", ev["type"])
}

func TestSaveEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/saves/get", gin.H{"username": "paco"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeBody(t, w)["data"], "no save yet")

	w = doJSON(t, router, http.MethodPost, "/saves/post", gin.H{"username": "paco", "data": "blob"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/saves/get", gin.H{"username": "paco"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "blob", decodeBody(t, w)["data"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/admin/users", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/admin/login", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/admin/login", gin.H{"password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestAdminKickRemovesUser(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/admin/login", gin.H{"password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decodeBody(t, w)["token"].(string)

	w = doJSON(t, router, http.MethodPost, "/rooms/1/users", gin.H{
		"name": "paco", "x": 1, "y": 2, "costume": "pico", "sx": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	raw, err := json.Marshal(gin.H{"username": "paco"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/kick", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, true, decodeBody(t, w2)["removed"])

	w = doJSON(t, router, http.MethodGet, "/rooms/1/users", nil)
	users := decodeBody(t, w)["data"].(map[string]any)
	assert.NotContains(t, users, "paco")
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "rate")
	assert.Contains(t, body, "feed_clients")
}
