package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmcavoy/deckguide/internal/api/handlers"
	"github.com/jmcavoy/deckguide/internal/gemini"
	"github.com/jmcavoy/deckguide/internal/guide"
	"github.com/jmcavoy/deckguide/internal/metrics"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/storage"
)

type fakeService struct {
	result *guide.Result
	err    error
}

func (f *fakeService) Generate(_ context.Context, _ string) (*guide.Result, error) {
	return f.result, f.err
}

type fakeHistory struct {
	guides map[int64]*storage.GuideRecord
}

func (f *fakeHistory) GetGuide(_ context.Context, id int64) (*storage.GuideRecord, error) {
	rec, ok := f.guides[id]
	if !ok {
		return nil, storage.ErrGuideNotFound
	}
	return rec, nil
}

func (f *fakeHistory) ListGuides(_ context.Context, _ int) ([]*storage.GuideRecord, error) {
	var out []*storage.GuideRecord
	for _, rec := range f.guides {
		out = append(out, rec)
	}
	return out, nil
}

func newTestServer(svc *fakeService, history *fakeHistory) *Server {
	var h handlers.HistoryReader
	if history != nil {
		h = history
	}
	return NewServer(DefaultConfig(), svc, h, metrics.NewPipeline(), nil)
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(&fakeService{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}

func TestGenerateGuide_Success(t *testing.T) {
	server := newTestServer(&fakeService{
		result: &guide.Result{Guide: "## Strategy\nAttack.", GuideID: 7},
	}, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/guides", `{"decklist":"4 Lightning Bolt"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data guide.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response not JSON: %v", err)
	}
	if resp.Data.Guide != "## Strategy\nAttack." {
		t.Errorf("Guide = %q", resp.Data.Guide)
	}
}

func TestGenerateGuide_InvalidBody(t *testing.T) {
	server := newTestServer(&fakeService{}, nil)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/guides", "not json")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestGenerateGuide_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no valid lines", guide.ErrNoValidLines, http.StatusBadRequest},
		{"in flight", guide.ErrGenerationInFlight, http.StatusConflict},
		{
			"resolution failure",
			&resolver.ResolutionError{Failures: []resolver.Failure{{Reason: "no cards found matching X after general search"}}},
			http.StatusUnprocessableEntity,
		},
		{"transport failure", &gemini.TransportError{Err: context.DeadlineExceeded}, http.StatusBadGateway},
		{"shape failure", &gemini.ShapeError{Detail: "no candidates"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&fakeService{err: tt.err}, nil)

			rec := doRequest(t, server, http.MethodPost, "/api/v1/guides", `{"decklist":"x"}`)

			if rec.Code != tt.want {
				t.Errorf("Status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGetGuide(t *testing.T) {
	history := &fakeHistory{guides: map[int64]*storage.GuideRecord{
		3: {ID: 3, Decklist: "1 Island", Guide: "## Islands"},
	}}
	server := newTestServer(&fakeService{}, history)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/guides/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, server, http.MethodGet, "/api/v1/guides/99", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 for missing guide", rec.Code)
	}

	rec = doRequest(t, server, http.MethodGet, "/api/v1/guides/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400 for non-numeric ID", rec.Code)
	}
}

func TestListGuides_HistoryDisabled(t *testing.T) {
	server := newTestServer(&fakeService{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/guides", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 when history is disabled", rec.Code)
	}
}

func TestGetMetrics(t *testing.T) {
	server := newTestServer(&fakeService{}, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data metrics.Report `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response not JSON: %v", err)
	}
}
