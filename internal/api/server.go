// Package api exposes the station over HTTP. GET endpoints are read-only
// views of entity rows; POST endpoints are the user-triggered actions that
// share the conditional-update discipline with the tick engines, so they
// compose safely with concurrent sweeps.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/talgya/rift-station/internal/combat"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/engine"
	"github.com/talgya/rift-station/internal/persistence"
	"github.com/talgya/rift-station/internal/survey"
)

// Server wires the engines' user actions to HTTP.
type Server struct {
	Store      *persistence.Store
	Missions   *engine.MissionEngine
	Upgrades   *engine.UpgradeEngine
	Research   *engine.ResearchEngine
	Extraction *engine.ExtractionEngine
	Battles    *engine.BattleService
	Station    *engine.Station
	Power      *engine.PowerService
	Scanner    *survey.Scanner
	Port       int
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	actionLimiter := NewRateLimiter(5, 10)

	mux := http.NewServeMux()

	// Read-only views.
	mux.HandleFunc("/api/v1/player/", s.handlePlayer)
	mux.HandleFunc("/api/v1/battle/", s.handleBattle)

	// Actions.
	mux.HandleFunc("/api/v1/players", actionLimiter.Limit(s.handleCreatePlayer))
	mux.HandleFunc("/api/v1/scan", actionLimiter.Limit(s.handleScan))
	mux.HandleFunc("/api/v1/missions", actionLimiter.Limit(s.handleDispatch))
	mux.HandleFunc("/api/v1/missions/cancel", actionLimiter.Limit(s.handleCancelMission))
	mux.HandleFunc("/api/v1/upgrades/drone", actionLimiter.Limit(s.handleDroneUpgrade))
	mux.HandleFunc("/api/v1/upgrades/array", actionLimiter.Limit(s.handleArrayUpgrade))
	mux.HandleFunc("/api/v1/research", actionLimiter.Limit(s.handleResearch))
	mux.HandleFunc("/api/v1/research/cancel", actionLimiter.Limit(s.handleCancelResearch))
	mux.HandleFunc("/api/v1/arrays/deploy", actionLimiter.Limit(s.handleDeploy))
	mux.HandleFunc("/api/v1/arrays/recall", actionLimiter.Limit(s.handleRecall))
	mux.HandleFunc("/api/v1/build/facility", actionLimiter.Limit(s.handleBuildFacility))
	mux.HandleFunc("/api/v1/build/drone", actionLimiter.Limit(s.handleBuildDrone))
	mux.HandleFunc("/api/v1/build/array", actionLimiter.Limit(s.handleBuildArray))
	mux.HandleFunc("/api/v1/build/ship", actionLimiter.Limit(s.handleBuildShip))
	mux.HandleFunc("/api/v1/hub/upgrade", actionLimiter.Limit(s.handleHubUpgrade))
	mux.HandleFunc("/api/v1/battles/raid", actionLimiter.Limit(s.handleRaid))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the core's error taxonomy onto HTTP statuses: validation
// failures are 400/409, missing rows 404, lost races 409.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, persistence.ErrInsufficientResources),
		errors.Is(err, engine.ErrMaxLevel),
		errors.Is(err, engine.ErrHubLevelTooLow),
		errors.Is(err, engine.ErrCapReached),
		errors.Is(err, engine.ErrPrereqsUnmet),
		errors.Is(err, engine.ErrUnknownTech),
		errors.Is(err, engine.ErrUnknownTier),
		errors.Is(err, engine.ErrUnknownChassis),
		errors.Is(err, engine.ErrUnknownFacility),
		errors.Is(err, engine.ErrUnknownTrack),
		errors.Is(err, engine.ErrEmptyFleet),
		errors.Is(err, engine.ErrNodeUnusable),
		errors.Is(err, engine.ErrTargetNotRift),
		errors.Is(err, survey.ErrScannerCapacity):
		status = http.StatusBadRequest
	case errors.Is(err, persistence.ErrRaceLost),
		errors.Is(err, engine.ErrDroneBusy),
		errors.Is(err, engine.ErrArrayBusy),
		errors.Is(err, engine.ErrUpgradeInFlight),
		errors.Is(err, engine.ErrProjectActive),
		errors.Is(err, engine.ErrAlreadyUnlocked),
		errors.Is(err, engine.ErrMaxHubLevel):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotYourEntity):
		status = http.StatusForbidden
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads a JSON request body into v, enforcing POST.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	player, err := s.Store.CreatePlayer(req.Name, s.Station.Clock.Now().Unix())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

// handlePlayer serves /api/v1/player/{id}: the full station view.
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/player/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "bad player id", http.StatusBadRequest)
		return
	}

	player, err := s.Store.GetPlayer(id)
	if err != nil {
		writeError(w, err)
		return
	}
	budget, err := s.Power.CalculateBudget(s.Store.DB(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	drones, _ := s.Store.DronesOf(id)
	arrays, _ := s.Store.ArraysOf(id)
	nodes, _ := s.Store.NodesOf(id)
	facilities, _ := persistence.FacilitiesOf(s.Store.DB(), id)

	writeJSON(w, http.StatusOK, map[string]any{
		"player":     player,
		"power":      budget,
		"drones":     drones,
		"arrays":     arrays,
		"nodes":      nodes,
		"facilities": facilities,
	})
}

// handleBattle serves /api/v1/battle/{id}: the record with the inflated
// turn log.
func (s *Server) handleBattle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/battle/")
	b, err := s.Store.GetBattle(id)
	if err != nil {
		writeError(w, err)
		return
	}
	log, err := combat.DecodeLog(b.TurnLog)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"battle": b,
		"log":    log,
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	node, err := s.Scanner.Scan(req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
		DroneID  int64 `json:"drone_id"`
		NodeID   int64 `json:"node_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	mission, err := s.Missions.Dispatch(req.PlayerID, req.DroneID, req.NodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mission)
}

func (s *Server) handleCancelMission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID  int64  `json:"player_id"`
		MissionID string `json:"mission_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Missions.Cancel(req.PlayerID, req.MissionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleDroneUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		DroneID  int64  `json:"drone_id"`
		Kind     string `json:"kind"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Upgrades.StartDroneUpgrade(req.PlayerID, req.DroneID, content.UpgradeKind(req.Kind)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "upgrading"})
}

func (s *Server) handleArrayUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		ArrayID  int64  `json:"array_id"`
		Kind     string `json:"kind"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Upgrades.StartArrayUpgrade(req.PlayerID, req.ArrayID, content.UpgradeKind(req.Kind)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "upgrading"})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		TechID   string `json:"tech_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	project, err := s.Research.Start(req.PlayerID, req.TechID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleCancelResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID  int64 `json:"player_id"`
		ProjectID int64 `json:"project_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Research.Cancel(req.PlayerID, req.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
		ArrayID  int64 `json:"array_id"`
		NodeID   int64 `json:"node_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Extraction.Deploy(req.PlayerID, req.ArrayID, req.NodeID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deployed"})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
		ArrayID  int64 `json:"array_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Extraction.Recall(req.PlayerID, req.ArrayID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
}

func (s *Server) handleBuildFacility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		Type     string `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	budget, err := s.Station.BuildFacility(req.PlayerID, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleBuildDrone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
		Tier     int   `json:"tier"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, err := s.Station.BuildDrone(req.PlayerID, req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"drone_id": id})
}

func (s *Server) handleBuildArray(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
		Tier     int   `json:"tier"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, err := s.Station.BuildArray(req.PlayerID, req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"array_id": id})
}

func (s *Server) handleBuildShip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64  `json:"player_id"`
		Chassis  string `json:"chassis"`
		Role     string `json:"role"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = persistence.RoleReserve
	}
	id, err := s.Battles.BuildShip(req.PlayerID, req.Chassis, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"ship_id": id})
}

func (s *Server) handleHubUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Station.UpgradeHub(req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "upgraded"})
}

func (s *Server) handleRaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64 `json:"player_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	record, outcome, err := s.Battles.FightRaid(req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"battle_id": record.ID,
		"victory":   outcome.Victory,
		"rounds":    outcome.Rounds,
		"reward":    record.RewardCredits,
	})
}
