package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunocserra/extincor-pdf-function/internal/assets"
	"github.com/brunocserra/extincor-pdf-function/internal/config"
	"github.com/brunocserra/extincor-pdf-function/internal/jobs"
	"github.com/brunocserra/extincor-pdf-function/internal/pipeline"
	"github.com/brunocserra/extincor-pdf-function/internal/storage"
	"github.com/brunocserra/extincor-pdf-function/pkg/database"
)

type stubConverter struct{}

func (stubConverter) Convert(ctx context.Context, html string, images []assets.Asset) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Server.MaxRequests = 100
	cfg.Kafka.Topic = "pdf-generation-jobs"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = time.Hour
	cfg.Auth.Email = "api@extincor.pt"
	cfg.Auth.Password = "s3cret"
	cfg.Blob.Container = "pdf-reports"
	cfg.Blob.Prefix = "relatorios/"
	cfg.Images.FetchTimeout = 5 * time.Second
	cfg.Images.FetchConcurrency = 2
	return cfg
}

type serverFixture struct {
	server   *Server
	cfg      *config.Config
	mock     sqlmock.Sqlmock
	producer *mocks.SyncProducer
	tracker  jobs.StageTracker
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	cfg := testConfig()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker := jobs.NewRedisStageTracker(redisClient, time.Hour)

	producer := mocks.NewSyncProducer(t, nil)
	t.Cleanup(func() { producer.Close() })

	renderer, err := pipeline.NewRenderer()
	require.NoError(t, err)
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	handler := jobs.NewHandler(cfg, renderer, stubConverter{}, blobs,
		assets.NewResolver(cfg.Images), &jobs.MockNotifier{}, jobs.NopStageTracker{})

	clients := &database.Clients{DB: sqlx.NewDb(db, "sqlmock"), Redis: redisClient}
	return &serverFixture{
		server:   NewServer(cfg, clients, producer, handler, tracker),
		cfg:      cfg,
		mock:     mock,
		producer: producer,
		tracker:  tracker,
	}
}

func (fx *serverFixture) token(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": fx.cfg.Auth.Email,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fx.cfg.JWT.Secret))
	require.NoError(t, err)
	return signed
}

func (fx *serverFixture) do(t *testing.T, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := fx.server.App().Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func TestLogin(t *testing.T) {
	fx := newServerFixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp, body := fx.do(t, "POST", "/api/login",
			`{"email":"api@extincor.pt","password":"s3cret"}`, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["token"])
		assert.Equal(t, "Bearer", body["type"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, _ := fx.do(t, "POST", "/api/login",
			`{"email":"api@extincor.pt","password":"nope"}`, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := fx.do(t, "POST", "/api/login", `{"email":"api@extincor.pt"}`, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	fx := newServerFixture(t)
	fx.cfg.Auth.Password = ""

	resp, _ := fx.do(t, "POST", "/api/login", `{"email":"api@extincor.pt","password":""}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// even a matching empty credential is rejected
	resp, _ = fx.do(t, "POST", "/api/login", `{"email":"api@extincor.pt","password":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	fx := newServerFixture(t)

	resp, _ := fx.do(t, "POST", "/api/reports", `{"reportId":"R1"}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "jwtware rejects a missing token")

	resp, _ = fx.do(t, "GET", "/api/reports", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateReport(t *testing.T) {
	fx := newServerFixture(t)

	fx.mock.ExpectQuery("INSERT INTO reports").
		WithArgs("R1", pipeline.TemplatePreventiva, "pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	fx.producer.ExpectSendMessageAndSucceed()

	resp, body := fx.do(t, "POST", "/api/reports", `{"reportId":"R1"}`, fx.token(t))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, "R1", body["reportId"])
	assert.Equal(t, "pending", body["status"])

	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestCreateReportValidation(t *testing.T) {
	fx := newServerFixture(t)
	token := fx.token(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{broken`},
		{"empty object", `{}`},
		{"no identifier", `{"data":{"maoObra":"a"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := fx.do(t, "POST", "/api/reports", tt.body, token)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateReportEnqueueFailure(t *testing.T) {
	fx := newServerFixture(t)

	fx.mock.ExpectQuery("INSERT INTO reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	fx.producer.ExpectSendMessageAndFail(errors.New("kafka: broker unreachable"))

	resp, body := fx.do(t, "POST", "/api/reports", `{"reportId":"R2"}`, fx.token(t))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to enqueue job", body["error"])
}

func TestGetReport(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	fx.tracker.Update(context.Background(), "R1", jobs.StageConvertingPDF)

	columns := []string{"id", "report_id", "template", "status", "blob_url", "error", "created_at", "updated_at"}
	fx.mock.ExpectQuery("SELECT \\* FROM reports WHERE id=").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "R1", "Preventiva", "processing", "", "", now, now))

	resp, body := fx.do(t, "GET", "/api/reports/7", "", fx.token(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONVERTING_PDF", body["stage"])

	report, ok := body["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "R1", report["report_id"])
	assert.Equal(t, "processing", report["status"])
}

func TestGetReportNotFound(t *testing.T) {
	fx := newServerFixture(t)

	fx.mock.ExpectQuery("SELECT \\* FROM reports WHERE id=").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp, _ := fx.do(t, "GET", "/api/reports/99", "", fx.token(t))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListReports(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	columns := []string{"id", "report_id", "template", "status", "blob_url", "error", "created_at", "updated_at"}
	fx.mock.ExpectQuery("SELECT \\* FROM reports ORDER BY id DESC").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "R2", "Orcamento", "pending", "", "", now, now).
			AddRow(1, "R1", "Preventiva", "completed", "file:///tmp/R1.pdf", "", now, now))

	resp, body := fx.do(t, "GET", "/api/reports", "", fx.token(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reports, ok := body["reports"].([]any)
	require.True(t, ok)
	assert.Len(t, reports, 2)
}

func TestRenderReport(t *testing.T) {
	fx := newServerFixture(t)

	payload := `{"reportId":"R1","templateName":"Preventiva","data":{"maoObra":"a;b","fotos":[]}}`
	resp, body := fx.do(t, "POST", "/api/reports/render", payload, fx.token(t))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PDF R1 generated and stored", body["message"])
	assert.Contains(t, body["url"], "R1.pdf")
	assert.Equal(t, float64(len("%PDF-1.4 stub")), body["sizeBytes"])
}

func TestRenderReportValidation(t *testing.T) {
	fx := newServerFixture(t)

	resp, _ := fx.do(t, "POST", "/api/reports/render", `{}`, fx.token(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
