package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/storage"
	"github.com/litescript/ls-skyline/internal/theme"
)

type fakeController struct {
	snap      theme.Snapshot
	smartErr  error
	enableCtx context.Context
	refreshes int
}

func (f *fakeController) Snapshot() theme.Snapshot { return f.snap }

func (f *fakeController) SetSelection(sel theme.Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	f.snap.Selection = sel
	f.snap.Weather = sel.Weather
	return nil
}

func (f *fakeController) EnableSmart(ctx context.Context) error {
	if f.smartErr != nil {
		return f.smartErr
	}
	f.enableCtx = ctx
	f.snap.Mode = theme.ModeSmart
	return nil
}

func (f *fakeController) DisableSmart() { f.snap.Mode = theme.ModeManual }

func (f *fakeController) Refresh() bool {
	if f.snap.Mode != theme.ModeSmart {
		return false
	}
	f.refreshes++
	return true
}

type fakeHistory struct {
	obs   []storage.Observation
	limit int
}

func (f *fakeHistory) RecentObservations(limit int) ([]storage.Observation, error) {
	f.limit = limit
	return f.obs, nil
}

var fixedNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func newTestServer(ctrl *fakeController, h History) *Server {
	cfg := ServerConfig{
		Controller: ctrl,
		Now:        func() time.Time { return fixedNow },
	}
	if h != nil {
		cfg.History = h
	}
	return NewServer(context.Background(), cfg)
}

func manualController() *fakeController {
	sel := theme.DefaultSelection()
	return &fakeController{snap: theme.Snapshot{
		Mode:      theme.ModeManual,
		Selection: sel,
		Weather:   sel.Weather,
	}}
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(manualController(), nil)
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "healthy" || body["mode"] != "manual" {
		t.Errorf("body = %v", body)
	}
}

func TestScene(t *testing.T) {
	s := newTestServer(manualController(), nil)
	rec := do(t, s, http.MethodGet, "/api/v1/scene", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Mode      string          `json:"mode"`
		TimeOfDay string          `json:"time_of_day"`
		Positions astro.Positions `json:"positions"`
		Palette   catalog.Palette `json:"palette"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Mode != "manual" || body.TimeOfDay != "afternoon" {
		t.Errorf("mode/time = %s/%s", body.Mode, body.TimeOfDay)
	}
	if !body.Positions.Sun.Visible || body.Positions.Sun.Phase != 0.5 {
		t.Errorf("afternoon sun = %+v", body.Positions.Sun)
	}
	if body.Positions.Moon.Visible {
		t.Error("afternoon moon should be hidden")
	}
	if body.Palette.Label == "" {
		t.Error("missing palette label")
	}
}

func TestEnvironment(t *testing.T) {
	ctrl := manualController()
	s := newTestServer(ctrl, nil)

	if rec := do(t, s, http.MethodGet, "/api/v1/environment", ""); rec.Code != http.StatusNotFound {
		t.Errorf("no environment: status = %d", rec.Code)
	}

	ctrl.snap.Environment = &acquire.Environment{
		Location:    acquire.Location{City: "Lisbon", Country: "PT", Method: acquire.MethodIP},
		HasLocation: true,
	}
	rec := do(t, s, http.MethodGet, "/api/v1/environment", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	loc := decode(t, rec)["location"].(map[string]any)
	if loc["city"] != "Lisbon" || loc["method"] != "ip" {
		t.Errorf("location = %v", loc)
	}
}

func TestSelection(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		want     theme.Selection
	}{
		{"both", `{"weather":"snowy","time_of_day":"night"}`, http.StatusOK,
			theme.Selection{Weather: catalog.Snowy, TimeOfDay: astro.Night}},
		{"weather only", `{"weather":"sunny"}`, http.StatusOK,
			theme.Selection{Weather: catalog.Clear, TimeOfDay: astro.Afternoon}},
		{"time only", `{"time_of_day":"dawn"}`, http.StatusOK,
			theme.Selection{Weather: catalog.Clear, TimeOfDay: astro.Dawn}},
		{"bad weather", `{"weather":"hail"}`, http.StatusBadRequest, theme.DefaultSelection()},
		{"bad time", `{"time_of_day":"noonish"}`, http.StatusBadRequest, theme.DefaultSelection()},
		{"bad json", `{`, http.StatusBadRequest, theme.DefaultSelection()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := manualController()
			s := newTestServer(ctrl, nil)
			rec := do(t, s, http.MethodPut, "/api/v1/selection", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if ctrl.snap.Selection != tt.want {
				t.Errorf("selection = %+v, want %+v", ctrl.snap.Selection, tt.want)
			}
		})
	}
}

func TestMode(t *testing.T) {
	ctrl := manualController()
	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewServer(base, ServerConfig{Controller: ctrl})

	rec := do(t, s, http.MethodPut, "/api/v1/mode", `{"mode":"SMART"}`)
	if rec.Code != http.StatusOK || ctrl.snap.Mode != theme.ModeSmart {
		t.Fatalf("enable: status %d mode %s", rec.Code, ctrl.snap.Mode)
	}
	if ctrl.enableCtx != base {
		t.Error("smart mode should run under the server context, not the request")
	}

	rec = do(t, s, http.MethodPut, "/api/v1/mode", `{"mode":"manual"}`)
	if rec.Code != http.StatusOK || ctrl.snap.Mode != theme.ModeManual {
		t.Fatalf("disable: status %d mode %s", rec.Code, ctrl.snap.Mode)
	}

	if rec := do(t, s, http.MethodPut, "/api/v1/mode", `{"mode":"auto"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode: status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/v1/mode", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing mode: status = %d", rec.Code)
	}

	ctrl.smartErr = errors.New("no resolver")
	if rec := do(t, s, http.MethodPut, "/api/v1/mode", `{"mode":"smart"}`); rec.Code != http.StatusConflict {
		t.Errorf("enable failure: status = %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	ctrl := manualController()
	s := newTestServer(ctrl, nil)

	if rec := do(t, s, http.MethodPost, "/api/v1/refresh", ""); rec.Code != http.StatusConflict {
		t.Errorf("manual refresh: status = %d", rec.Code)
	}

	ctrl.snap.Mode = theme.ModeSmart
	if rec := do(t, s, http.MethodPost, "/api/v1/refresh", ""); rec.Code != http.StatusAccepted {
		t.Errorf("smart refresh: status = %d", rec.Code)
	}
	if ctrl.refreshes != 1 {
		t.Errorf("refreshes = %d", ctrl.refreshes)
	}
}

func TestObservations(t *testing.T) {
	s := newTestServer(manualController(), nil)
	if rec := do(t, s, http.MethodGet, "/api/v1/observations", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no storage: status = %d", rec.Code)
	}

	h := &fakeHistory{obs: []storage.Observation{{City: "Oslo"}, {City: "Bergen"}}}
	s = newTestServer(manualController(), h)

	rec := do(t, s, http.MethodGet, "/api/v1/observations?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if h.limit != 5 {
		t.Errorf("limit = %d", h.limit)
	}
	if body := decode(t, rec); body["count"] != float64(2) {
		t.Errorf("count = %v", body["count"])
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/observations?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d", rec.Code)
	}
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := NewServer(context.Background(), ServerConfig{
		Addr:       "127.0.0.1:0",
		Controller: manualController(),
	})
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start after Stop = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Stop")
	}
}

func TestServer_StopWhileStarting(t *testing.T) {
	s := NewServer(context.Background(), ServerConfig{
		Addr:       "127.0.0.1:0",
		Controller: manualController(),
	})

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
