package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/config"
	"github.com/mosaic-erp/reinsurance/internal/di"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newTestServer(t *testing.T) (*httptest.Server, *di.Container) {
	t.Helper()
	cfg := &config.Config{
		DataDir:           t.TempDir(),
		Port:              8080,
		DevMode:           true,
		NationalCurrency:  "UZS",
		HomeTerritory:     "uzbek",
		HomeTerritoryCode: "uz",
		Risk: &config.RiskConfig{
			TerritoryThreshold: 25,
			ClassThreshold:     30,
			CedantThreshold:    15,
			TopN:               25,
		},
		ExchangeRate: &config.ExchangeRateConfig{
			APIURL:       "http://127.0.0.1:1",
			SyncSchedule: "0 0 */6 * * *",
			Currencies:   []string{"USD"},
		},
		Backup: &config.BackupConfig{
			Enabled:       true,
			Schedule:      "0 30 2 * * *",
			RetentionDays: 30,
		},
	}

	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)

	srv := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		container.Close()
	})
	return ts, container
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
	dbs := body["databases"].(map[string]interface{})
	assert.Equal(t, "ok", dbs["portfolio"])
	assert.Equal(t, "ok", dbs["config"])
}

func TestSystemStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/system/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Len(t, data["databases"], 3)
	assert.Len(t, data["jobs"], 4)
}

func TestSystemJobs_RunUnknown(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/system/jobs/nope/run", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	errBody := decodeBody(t, resp)["error"].(map[string]interface{})
	assert.Equal(t, false, errBody["retryable"])
}

func TestSystemBackup_CreatesLocalArchive(t *testing.T) {
	ts, container := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/system/backup", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	local, err := container.BackupService.ListBackups()
	require.NoError(t, err)
	assert.Len(t, local, 1)

	resp, err = http.Get(ts.URL + "/api/system/backups")
	require.NoError(t, err)
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Len(t, data["local"], 1)
}

func TestSettingsOverride_StreamsEvent(t *testing.T) {
	ts, container := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=settings_changed"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The greeting is written after the handler has subscribed
	var hello wsMessage
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "connected", hello.Type)
	assert.Equal(t, 1, container.EventBus.SubscriberCount(events.SettingsChanged))

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/settings/risk_top_n", bytes.NewBufferString(`{"value": 5}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var msg wsMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.SettingsChanged), msg.Type)
	assert.Equal(t, "risk_top_n", msg.Data["key"])

	assert.Equal(t, 5, container.RiskService.TopN(context.Background()))
}

func TestSettingsOverride_RejectsOutOfRange(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/settings/risk_threshold_class", bytes.NewBufferString(`{"value": 150}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}
