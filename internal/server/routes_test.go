package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	amendmentdomain "github.com/smallbiznis/taxledger/internal/amendment/domain"
	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	ingestiondomain "github.com/smallbiznis/taxledger/internal/ingestion/domain"
	taxpositiondomain "github.com/smallbiznis/taxledger/internal/taxposition/domain"
)

type fakeIngestionService struct {
	called  bool
	lastReq ingestiondomain.TransactionRequest
	err     error
}

func (f *fakeIngestionService) Ingest(ctx context.Context, req ingestiondomain.TransactionRequest) error {
	f.called = true
	f.lastReq = req
	_ = ctx
	return f.err
}

type fakeAmendmentService struct {
	called bool
	resp   *amendmentdomain.AmendResponse
	err    error
}

func (f *fakeAmendmentService) Apply(ctx context.Context, req amendmentdomain.AmendRequest) (*amendmentdomain.AmendResponse, error) {
	f.called = true
	_ = ctx
	_ = req
	return f.resp, f.err
}

func (f *fakeAmendmentService) Replay(ctx context.Context, sale *eventdomain.SaleEvent) error {
	_ = ctx
	_ = sale
	return nil
}

type fakeTaxPositionService struct {
	called bool
	asOf   time.Time
	pos    *taxpositiondomain.Position
	err    error
}

func (f *fakeTaxPositionService) Compute(ctx context.Context, asOf time.Time) (*taxpositiondomain.Position, error) {
	f.called = true
	f.asOf = asOf
	_ = ctx
	return f.pos, f.err
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	srv.engine = router
	srv.RegisterAPIRoutes()
	return router
}

func TestIngestTransactionReturns202(t *testing.T) {
	ingestionSvc := &fakeIngestionService{}
	router := newTestRouter(&Server{ingestionSvc: ingestionSvc})

	body := `{"eventType":"SALES","date":"2024-02-22T17:29:39Z","invoiceId":"INV-1","items":[{"itemId":"A","cost":1099,"taxRate":0.2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if !ingestionSvc.called {
		t.Fatal("expected ingestion service to be called")
	}
	if ingestionSvc.lastReq.InvoiceID != "INV-1" {
		t.Fatalf("expected invoiceId INV-1, got %q", ingestionSvc.lastReq.InvoiceID)
	}
	if resp.Body.String() != "{}" {
		t.Fatalf("expected empty object body, got %s", resp.Body.String())
	}
}

func TestIngestTransactionMalformedBodyReturns400(t *testing.T) {
	ingestionSvc := &fakeIngestionService{}
	router := newTestRouter(&Server{ingestionSvc: ingestionSvc})

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if ingestionSvc.called {
		t.Fatal("expected ingestion service not to be called")
	}
}

func TestIngestTransactionUnknownEventTypeReturns400(t *testing.T) {
	ingestionSvc := &fakeIngestionService{err: eventdomain.ErrInvalidEventType}
	router := newTestRouter(&Server{ingestionSvc: ingestionSvc})

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(`{"eventType":"REFUND"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if payload.Error.Type != "validation_error" {
		t.Fatalf("expected validation_error, got %q", payload.Error.Type)
	}
}

func TestAmendSaleReturns202WithStatusBody(t *testing.T) {
	amendmentSvc := &fakeAmendmentService{
		resp: &amendmentdomain.AmendResponse{
			Status:  amendmentdomain.StatusRecordedSalePending,
			Message: "Amendment saved. Sale does not exist yet.",
		},
	}
	router := newTestRouter(&Server{amendmentSvc: amendmentSvc})

	body := `{"date":"2024-02-22T17:29:39Z","invoiceId":"INV-1","itemId":"A","cost":798,"taxRate":0.15}`
	req := httptest.NewRequest(http.MethodPatch, "/api/sale", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if !amendmentSvc.called {
		t.Fatal("expected amendment service to be called")
	}

	var got amendmentdomain.AmendResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got.Status != amendmentdomain.StatusRecordedSalePending {
		t.Fatalf("expected pending status, got %q", got.Status)
	}
}

func TestGetTaxPositionReturnsComputedPosition(t *testing.T) {
	taxPositionSvc := &fakeTaxPositionService{
		pos: &taxpositiondomain.Position{
			Date:        time.Date(2024, 2, 22, 17, 29, 39, 0, time.UTC),
			TaxPosition: 49,
		},
	}
	router := newTestRouter(&Server{taxPositionSvc: taxPositionSvc})

	req := httptest.NewRequest(http.MethodGet, "/api/tax-position?date=2024-02-22T17:29:39Z", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !taxPositionSvc.called {
		t.Fatal("expected tax position service to be called")
	}
	if !taxPositionSvc.asOf.Equal(time.Date(2024, 2, 22, 17, 29, 39, 0, time.UTC)) {
		t.Fatalf("unexpected asOf: %s", taxPositionSvc.asOf)
	}

	var got taxpositiondomain.Position
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got.TaxPosition != 49 {
		t.Fatalf("expected taxPosition 49, got %d", got.TaxPosition)
	}
}

func TestGetTaxPositionMissingDateReturns400(t *testing.T) {
	taxPositionSvc := &fakeTaxPositionService{}
	router := newTestRouter(&Server{taxPositionSvc: taxPositionSvc})

	req := httptest.NewRequest(http.MethodGet, "/api/tax-position", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if taxPositionSvc.called {
		t.Fatal("expected tax position service not to be called")
	}
}

func TestGetTaxPositionBadDateReturns400(t *testing.T) {
	router := newTestRouter(&Server{taxPositionSvc: &fakeTaxPositionService{}})

	req := httptest.NewRequest(http.MethodGet, "/api/tax-position?date=22-02-2024", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}
