package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fraud-detector/internal/config"
	"fraud-detector/internal/models"
	"fraud-detector/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, jwtSecret string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		HTTPPort: "0",
		LogFile:  filepath.Join(dir, "app.log"),
		LogLevel: "error",
		Store: config.StoreConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(dir, "fraud.db"),
		},
		Rules: *config.DefaultRulesConfig(),
		Observer: config.ObserverConfig{
			JWTSecret:   jwtSecret,
			SendTimeout: time.Second,
			QueueSize:   16,
		},
		Pipeline: config.PipelineConfig{DataFile: filepath.Join(dir, "missing.json")},
	}
}

func buildServer(t *testing.T, cfg *config.Config) (*App, *httptest.Server) {
	t.Helper()
	ctx := context.Background()

	a, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, a.BuildBroadcastLayer(ctx))
	a.BuildPipelineLayer()
	require.NoError(t, a.BuildServerLayer())

	srv := httptest.NewServer(a.server.Router)
	t.Cleanup(func() {
		srv.Close()
		_ = a.pipelineHandler.Shutdown(ctx)
		a.Close(ctx)
	})
	return a, srv
}

const highValueBatch = `{"transactions":[{
	"transaction_id":"T1","timestamp":"2024-03-01T09:00:00",
	"customer_email":"e@x.com","customer_ip":"10.0.0.1",
	"billing_country":"SG","shipping_country":"ID",
	"payment_method":"CREDIT_CARD","amount_usd":"1500.00","status":"APPROVED",
	"product_category":"LAPTOP","quantity":1,"unit_price":"1500.00",
	"is_first_purchase":true}]}`

func TestApp_IngestStreamsAlertToObserver(t *testing.T) {
	a, srv := buildServer(t, testConfig(t, ""))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/alerts", nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting models.ObserverGreeting
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "connected", greeting.Type)
	require.Eventually(t, func() bool { return a.fanout.Count() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/v1/pipeline/ingest", "application/json", bytes.NewBufferString(highValueBatch))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary models.BatchSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Flagged)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var payload models.AlertPayload
	require.NoError(t, conn.ReadJSON(&payload))
	assert.Equal(t, "T1", payload.TransactionID)
	assert.Equal(t, 55, payload.RiskScore)
	assert.Equal(t, []models.RuleName{models.RuleHighValueFirstPurchase, models.RuleGeographicMismatch}, payload.TriggeredRules)
	assert.Equal(t, models.PayloadStatusNew, payload.AlertStatus)

	alert, err := a.store.Alerts().GetByTransactionID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertNeedsReview, alert.Status)
}

func TestApp_HealthzAndMissingTriggerFile(t *testing.T) {
	_, srv := buildServer(t, testConfig(t, ""))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/pipeline/trigger", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_AlertStreamRequiresToken(t *testing.T) {
	_, srv := buildServer(t, testConfig(t, "secret"))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/alerts"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _, err := service.NewObserverAuthService("secret").IssueToken("dashboard", time.Minute)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting models.ObserverGreeting
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "Connected to fraud alert stream", greeting.Message)
}

func TestApp_CLIIngestUsesNoOpBroadcaster(t *testing.T) {
	cfg := testConfig(t, "")
	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Ingest(context.Background(), cfg.Pipeline.DataFile, 0)
	assert.Error(t, err)
	assert.Nil(t, a.fanout)
}

func TestNewApp_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Store.Driver = "mysql"

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}
