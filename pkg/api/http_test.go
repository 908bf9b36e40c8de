package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/mux"
	"github.com/vitalink/platform/pkg/common/logger"
	"github.com/vitalink/platform/pkg/connector"
	"github.com/vitalink/platform/pkg/dispatch"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/parsing"
	"github.com/vitalink/platform/pkg/pipeline"
	"github.com/vitalink/platform/pkg/postprocess"
	"github.com/vitalink/platform/pkg/telemetry"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeLedger struct {
	events   []telemetry.Event
	statuses []telemetry.Status
}

func (l *fakeLedger) RecordEvent(ctx context.Context, event *telemetry.Event) error {
	l.events = append(l.events, *event)
	return nil
}

func (l *fakeLedger) UpsertStatus(ctx context.Context, status *telemetry.Status, postprocessFailed bool) error {
	return nil
}

func (l *fakeLedger) ListEvents(ctx context.Context, filter telemetry.EventFilter) ([]telemetry.Event, error) {
	return l.events, nil
}

func (l *fakeLedger) ListStatuses(ctx context.Context) ([]telemetry.Status, error) {
	return l.statuses, nil
}

type fakeDispatcher struct {
	err error
}

func (d *fakeDispatcher) Send(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	if d.err != nil {
		return nil, d.err
	}
	return map[string]interface{}{"vital_id": "VID1", "SEPS": float64(2)}, nil
}

type fakeExecutor struct {
	result postprocess.Result
}

func (e *fakeExecutor) Run(cfg *hospital.Config, record map[string]interface{}) postprocess.Result {
	return e.result
}

func pushConfig() *hospital.Config {
	return &hospital.Config{
		HospitalID:       "H1",
		ConnectorType:    hospital.ConnectorPushRESTAPI,
		Enabled:          true,
		TransformProfile: "HOSP_A",
	}
}

func newTestRouter(dispatcher dispatch.Dispatcher, executor pipeline.PostprocessRunner, ledger telemetry.Ledger, cfg *hospital.Config) *mux.Router {
	if executor == nil {
		executor = &fakeExecutor{result: postprocess.Result{Success: true}}
	}
	connectors := &connector.Factory{HTTPClient: http.DefaultClient}
	runner := pipeline.NewRunner(ledger, dispatcher, executor, connectors)

	router := mux.NewRouter()
	NewHandler(runner, ledger, func() *hospital.Config { return cfg }).Register(router)
	return router
}

func rawBody(t *testing.T, overrides map[string]interface{}) *bytes.Buffer {
	t.Helper()
	record := map[string]interface{}{
		"SBP":        "120",
		"DBP":        "80",
		"PR":         "70",
		"RR":         "16",
		"BT":         "36.5",
		"SpO2":       "98",
		"patient_id": "P1",
		"birthdate":  "19900101",
		"sex":        "M",
		"created_at": "2024-01-01 10:00:00",
		"updated_at": "2024-01-01 10:00:00",
	}
	for key, value := range overrides {
		if value == nil {
			delete(record, key)
			continue
		}
		record[key] = value
	}

	body, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("failed to marshal record: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPushReturnsBackendResponse(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", rawBody(t, nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if response["vital_id"] != "VID1" {
		t.Fatalf("unexpected response: %v", response)
	}
}

func TestPushRejectsMalformedRecordWithCode(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", rawBody(t, map[string]interface{}{"sex": "X"})))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &response)
	if response["error_code"] != parsing.ParseErrorCode {
		t.Fatalf("expected %s, got %v", parsing.ParseErrorCode, response["error_code"])
	}
}

func TestPushMapsDispatchFailureToBadGateway(t *testing.T) {
	dispatcher := &fakeDispatcher{err: &dispatch.DispatchError{StatusCode: http.StatusInternalServerError}}
	router := newTestRouter(dispatcher, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", rawBody(t, nil)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &response)
	if response["error_code"] != dispatch.DispatchErrorCode {
		t.Fatalf("expected %s, got %v", dispatch.DispatchErrorCode, response["error_code"])
	}
}

func TestPushConfirmationFailureIsStructured200(t *testing.T) {
	executor := &fakeExecutor{result: postprocess.Result{Success: false, ErrorCode: postprocess.CodeFailed}}
	router := newTestRouter(&fakeDispatcher{}, executor, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", rawBody(t, nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &response)
	if response["status"] != pipeline.PushStatusPostprocessFailed {
		t.Fatalf("unexpected response: %v", response)
	}
	if response["error_code"] != postprocess.CodeFailed {
		t.Fatalf("expected %s, got %v", postprocess.CodeFailed, response["error_code"])
	}
}

func TestPushRejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", bytes.NewBufferString("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPushWithoutConfigurationIsUnavailable(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/push", rawBody(t, nil)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAdminLogsListsLedgerEvents(t *testing.T) {
	ledger := &fakeLedger{events: []telemetry.Event{{Name: "pipeline_complete", HospitalID: "H1"}}}
	router := newTestRouter(&fakeDispatcher{}, nil, ledger, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/logs?hospital_id=H1&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response map[string][]telemetry.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(response["items"]) != 1 || response["items"][0].Name != "pipeline_complete" {
		t.Fatalf("unexpected items: %v", response["items"])
	}
}

func TestAdminStatusListsLedgerRows(t *testing.T) {
	ledger := &fakeLedger{statuses: []telemetry.Status{{HospitalID: "H1", LastStatus: telemetry.StatusSuccess}}}
	router := newTestRouter(&fakeDispatcher{}, nil, ledger, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response map[string][]telemetry.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(response["items"]) != 1 || response["items"][0].HospitalID != "H1" {
		t.Fatalf("unexpected items: %v", response["items"])
	}
}

func TestRunNowRejectsPushConnector(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/run", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetricsEndpointServesText(t *testing.T) {
	router := newTestRouter(&fakeDispatcher{}, nil, &fakeLedger{}, pushConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected metrics exposition body")
	}
}
