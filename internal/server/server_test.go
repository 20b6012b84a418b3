package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/purchaseorder"
	porender "github.com/constructoai/backoffice/internal/purchaseorder/render"
	"github.com/constructoai/backoffice/internal/store/document"
	"github.com/constructoai/backoffice/internal/store/legacy"
	"github.com/constructoai/backoffice/internal/submission/aggregate"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/internal/submission/numbering"
	"github.com/constructoai/backoffice/internal/submission/repair"
	"github.com/constructoai/backoffice/internal/submission/resolver"
	"github.com/constructoai/backoffice/internal/submission/service"
	"github.com/constructoai/backoffice/internal/submission/tokenguard"
	"github.com/constructoai/backoffice/internal/submission/tokens"
	"github.com/constructoai/backoffice/pkg/db"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	server        *Server
	submissionSvc *service.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Config{
		Environment:    "test",
		BaseURL:        "http://localhost:8080",
		DataDir:        t.TempDir(),
		BackupDir:      t.TempDir(),
		FilesDir:       t.TempDir(),
		BackupKeepDays: 30,
	}
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 14, 0, 0, 0, time.UTC))
	ctx := context.Background()

	legConn, err := db.OpenInMemory()
	require.NoError(t, err)
	leg := legacy.NewWithDB(legConn, cfg, log)
	require.NoError(t, leg.Migrate(ctx))

	docConn, err := db.OpenInMemory()
	require.NoError(t, err)
	doc := document.NewWithDB(docConn, cfg, log)
	require.NoError(t, doc.Migrate(ctx))

	poConn, err := db.OpenInMemory()
	require.NoError(t, err)
	poStore := purchaseorder.NewStoreWithDB(poConn, log)
	require.NoError(t, poStore.Migrate(ctx))

	companyConn, err := db.OpenInMemory()
	require.NoError(t, err)
	companyStore := company.NewWithDB(companyConn, log)
	require.NoError(t, companyStore.Migrate(ctx))

	stores := []domain.Store{doc, leg}
	allocator := numbering.New(numbering.Params{Stores: stores, Clock: clk, Log: log})
	gen := tokens.NewGenerator()

	submissionSvc := service.New(service.Params{
		Legacy:    leg,
		Documents: doc,
		Allocator: allocator,
		NewToken:  gen,
		Clock:     clk,
		Cfg:       cfg,
		Log:       log,
	})

	srv := NewServer(ServerParams{
		Gin:           NewEngine(cfg),
		Cfg:           cfg,
		SubmissionSvc: submissionSvc,
		ResolverSvc:   resolver.New(resolver.Params{Stores: stores, Clock: clk, Log: log}),
		AggregateSvc:  aggregate.New(aggregate.Params{Stores: stores, Log: log}),
		RepairSvc:     repair.New(repair.Params{Stores: stores, Allocator: allocator, Log: log}),
		TokenguardSvc: tokenguard.New(tokenguard.Params{
			Stores: stores, Cfg: cfg, Clock: clk, NewToken: gen, Log: log,
		}),
		PurchaseOrderSvc: purchaseorder.New(purchaseorder.Params{
			Store:    poStore,
			Settings: config.StaticSettings(config.DefaultSettings()),
			Clock:    clk,
			Log:      log,
		}),
		PORenderer:   porender.NewRenderer(),
		CompanyStore: companyStore,
	})

	return &testApp{server: srv, submissionSvc: submissionSvc}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.server.Engine().ServeHTTP(w, req)
	return w
}

func (a *testApp) seedSubmission(t *testing.T) domain.Submission {
	t.Helper()
	sub, err := a.submissionSvc.CreateLegacy(context.Background(), service.CreateLegacyRequest{
		ClientName:  "Tremblay",
		ProjectName: "Toiture",
		Amount:      12500,
	})
	require.NoError(t, err)
	return sub
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestClientDecisionFlow(t *testing.T) {
	app := newTestApp(t)
	sub := app.seedSubmission(t)

	w := app.do(t, http.MethodGet, "/s/"+sub.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[domain.Submission](t, w)
	assert.Equal(t, sub.Number, got.Number)
	assert.Equal(t, domain.StatusPending, got.Status)

	w = app.do(t, http.MethodPost, "/s/"+sub.Token+"/decision", gin.H{"decision": "approved"})
	require.Equal(t, http.StatusOK, w.Code)
	decided := decode[domain.Submission](t, w)
	assert.Equal(t, domain.StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	// A decided submission refuses further client decisions.
	w = app.do(t, http.MethodPost, "/s/"+sub.Token+"/decision", gin.H{"decision": "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code)
	envelope := decode[errorResponse](t, w)
	assert.Equal(t, "conflict", envelope.Error.Type)
}

func TestClientDecisionValidation(t *testing.T) {
	app := newTestApp(t)
	sub := app.seedSubmission(t)

	w := app.do(t, http.MethodPost, "/s/"+sub.Token+"/decision", gin.H{"decision": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/s/no-such-token/decision", gin.H{"decision": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	envelope := decode[errorResponse](t, w)
	assert.Equal(t, "not_found", envelope.Error.Type)
}

func TestAdminOverrideBypassesDecisionGuard(t *testing.T) {
	app := newTestApp(t)
	sub := app.seedSubmission(t)

	w := app.do(t, http.MethodPost, "/s/"+sub.Token+"/decision", gin.H{"decision": "approved"})
	require.Equal(t, http.StatusOK, w.Code)

	// The back-office can move a decided submission back to pending.
	w = app.do(t, http.MethodPut, "/admin/submissions/"+sub.Token+"/status", gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[domain.Submission](t, w)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestCreateListDeleteSubmission(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/admin/submissions", gin.H{
		"client_name":  "Gagnon",
		"project_name": "Agrandissement",
		"amount":       48000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Submission](t, w)
	assert.Equal(t, "2025-001", created.Number)
	assert.NotEmpty(t, created.Token)

	w = app.do(t, http.MethodGet, "/admin/submissions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = app.do(t, http.MethodDelete, "/admin/submissions/"+created.RefID(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/admin/submissions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 0, list.Count)
}

func TestUploadAndDownloadSubmissionFile(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "devis.pdf")
	require.NoError(t, err)
	pdf := []byte("%PDF-1.4 body")
	_, err = fw.Write(pdf)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("client_name", "Roy"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/submissions/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	app.server.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Submission](t, w)

	w = app.do(t, http.MethodGet, "/s/"+created.Token+"/file", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdf, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "devis.pdf")

	// Legacy submissions carry no uploaded document.
	sub := app.seedSubmission(t)
	w = app.do(t, http.MethodGet, "/s/"+sub.Token+"/file", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSubmissionRejectsBlankClient(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/admin/submissions", gin.H{"client_name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decode[errorResponse](t, w)
	assert.Equal(t, "validation_error", envelope.Error.Type)
}

func TestPurchaseOrderEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/admin/purchase-orders/next-number", nil)
	require.Equal(t, http.StatusOK, w.Code)
	next := decode[struct {
		Number string `json:"number"`
	}](t, w)
	assert.Equal(t, "BC-2025-001", next.Number)

	w = app.do(t, http.MethodPost, "/admin/purchase-orders", gin.H{
		"supplier_name": "Matco",
		"items": []gin.H{
			{"position": 1, "title": "2x4x8", "quantity": 100, "unit_price": 4.25},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode[purchaseorder.Order](t, w)
	assert.Equal(t, "BC-2025-001", saved.Number)
	assert.Equal(t, 425.0, saved.Subtotal)

	w = app.do(t, http.MethodGet, "/admin/purchase-orders/BC-2025-001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/admin/purchase-orders/BC-2025-999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
