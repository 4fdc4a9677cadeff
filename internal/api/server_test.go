package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/engine"
	"github.com/talgya/rift-station/internal/persistence"
	"github.com/talgya/rift-station/internal/survey"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "station.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat := content.Default()
	clk := &clock.Fake{Current: time.Unix(100000, 0)}
	bonuses := engine.NewBonusCache(cat)
	power := &engine.PowerService{Store: store, Catalog: cat}

	return &Server{
		Store:      store,
		Missions:   &engine.MissionEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		Upgrades:   &engine.UpgradeEngine{Store: store, Catalog: cat, Clock: clk},
		Research:   &engine.ResearchEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		Extraction: &engine.ExtractionEngine{Store: store, Catalog: cat, Clock: clk, Bonuses: bonuses},
		Battles:    &engine.BattleService{Store: store, Catalog: cat, Clock: clk},
		Station:    &engine.Station{Store: store, Catalog: cat, Clock: clk, Power: power},
		Power:      power,
		Scanner: &survey.Scanner{
			Store: store, Catalog: cat,
			Field: survey.NewField("api-test"), Clock: clk,
		},
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestCreatePlayerEndpoint(t *testing.T) {
	s := testServer(t)

	w := postJSON(t, s.handleCreatePlayer, map[string]string{"name": "ada"})
	if w.Code != http.StatusCreated {
		t.Fatalf("want 201 got %d: %s", w.Code, w.Body.String())
	}
	var p persistence.Player
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID == 0 || p.Name != "ada" {
		t.Fatalf("unexpected player %+v", p)
	}

	if w := postJSON(t, s.handleCreatePlayer, map[string]string{"name": "  "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank name: want 400 got %d", w.Code)
	}
}

func TestPlayerViewEndpoint(t *testing.T) {
	s := testServer(t)
	p, err := s.Store.CreatePlayer("view", 0)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/player/%d", p.ID), nil)
	w := httptest.NewRecorder()
	s.handlePlayer(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", w.Code, w.Body.String())
	}

	var view struct {
		Player persistence.Player `json:"player"`
		Power  engine.Budget      `json:"power"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Player.ID != p.ID {
		t.Fatalf("wrong player in view: %+v", view.Player)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/player/99999", nil)
	w = httptest.NewRecorder()
	s.handlePlayer(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing player: want 404 got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	s := testServer(t)
	p, err := s.Store.CreatePlayer("mapper", 0)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}

	// Unknown tech is a validation failure.
	w := postJSON(t, s.handleResearch, map[string]any{"player_id": p.ID, "tech_id": "warp_drive"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown tech: want 400 got %d", w.Code)
	}

	// Missing drone is 404.
	w = postJSON(t, s.handleDispatch, map[string]any{"player_id": p.ID, "drone_id": 999, "node_id": 1})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing drone: want 404 got %d", w.Code)
	}

	// Insufficient funds: hub threshold is 1000 against the starting 500.
	w = postJSON(t, s.handleHubUpgrade, map[string]any{"player_id": p.ID})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short funds: want 400 got %d", w.Code)
	}

	// Duplicate research project is a conflict.
	if _, err := s.Research.Start(p.ID, "basic_mining"); err != nil {
		t.Fatalf("start research: %v", err)
	}
	w = postJSON(t, s.handleResearch, map[string]any{"player_id": p.ID, "tech_id": "parallel_compute"})
	if w.Code != http.StatusConflict {
		t.Fatalf("active project: want 409 got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("burst of 2 rejected")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("third immediate request allowed past the burst")
	}
	// Buckets are per IP.
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("fresh IP rejected")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:4242"

	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request: want 200 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: want 429 got %d", w.Code)
	}
}
