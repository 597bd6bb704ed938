package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"theftalert/internal/domain"
	"theftalert/internal/ingest"
	"theftalert/internal/logging"
	"theftalert/internal/metrics"
)

const reportJSON = `{
  "id": "r-1",
  "make": "Ford",
  "model": "Focus",
  "year": 2019,
  "licensePlate": "AB12 CDE",
  "status": "Active",
  "location": {"latitude": 51.5, "longitude": -0.13, "locality": "Charing Cross"}
}`

type fakeProcessor struct {
	mu      sync.Mutex
	reports []domain.VehicleReport
	err     error
}

func (p *fakeProcessor) OnReportCreated(_ context.Context, report domain.VehicleReport) (domain.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return domain.Summary{ReportID: report.ID, State: domain.StateCompleted, UsersScanned: 3}, p.err
}

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(bool) error { a.acked = true; return nil }

func (a *fakeAck) Nack(_ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func newRouter(p ingest.Processor, health func(context.Context) error) http.Handler {
	return ingest.NewRouter(ingest.RouterOptions{
		Processor: p,
		Metrics:   metrics.New().Handler(),
		Health:    health,
		Logger:    logging.NewNop(),
	})
}

func TestReportCreatedEndpoint(t *testing.T) {
	p := &fakeProcessor{}
	srv := httptest.NewServer(newRouter(p, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/events/report-created", "application/json", strings.NewReader(reportJSON))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var summary domain.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.ReportID != "r-1" || summary.UsersScanned != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(p.reports) != 1 || p.reports[0].Location.Locality != "Charing Cross" || p.reports[0].Status != domain.StatusActive {
		t.Fatalf("reports = %+v", p.reports)
	}
}

func TestReportCreatedStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed", `{"id":`, nil, http.StatusBadRequest},
		{"directory down", reportJSON, domain.Wrap(domain.ErrDirectoryUnavailable, "directory", "sqlite", "scan", errors.New("locked")), http.StatusServiceUnavailable},
		{"cancelled", reportJSON, context.Canceled, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&fakeProcessor{err: tc.err}, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/events/report-created", strings.NewReader(tc.body)))
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	healthy := true
	router := newRouter(&fakeProcessor{}, func(context.Context) error {
		if !healthy {
			return errors.New("database is closed")
		}
		return nil
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy healthz = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "theftalert_") {
		t.Fatalf("metrics = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events/report-created", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET on event route = %d", rec.Code)
	}
}

func TestConsumerHandleSettlesDeliveries(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		acked    bool
		requeued bool
	}{
		{name: "processed", body: reportJSON, acked: true},
		{name: "malformed dropped", body: "not json"},
		{name: "directory down requeued", body: reportJSON, err: domain.ErrDirectoryUnavailable, requeued: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := ingest.NewConsumer(ingest.ConsumerOptions{Queue: "report.created"}, &fakeProcessor{err: tc.err}, logging.NewNop())
			ack := &fakeAck{}
			c.Handle(context.Background(), []byte(tc.body), ack)
			if ack.acked != tc.acked {
				t.Fatalf("acked = %v", ack.acked)
			}
			if !tc.acked && !ack.nacked {
				t.Fatal("expected nack")
			}
			if ack.requeue != tc.requeued {
				t.Fatalf("requeue = %v", ack.requeue)
			}
		})
	}
}

func TestServerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := ingest.NewServer("127.0.0.1:0", newRouter(&fakeProcessor{}, nil), logging.NewNop())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	srv.Stop()
}
