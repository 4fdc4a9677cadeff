// Command stationd runs the rift-station persistent simulation daemon.
package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"log/slog"

	"github.com/talgya/rift-station/internal/api"
	"github.com/talgya/rift-station/internal/clock"
	"github.com/talgya/rift-station/internal/content"
	"github.com/talgya/rift-station/internal/engine"
	"github.com/talgya/rift-station/internal/persistence"
	"github.com/talgya/rift-station/internal/survey"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dbPath := envStr("STATIOND_DB", "data/station.db")
	apiPort := envInt("STATIOND_PORT", 8080)
	worldSeed := envStr("STATIOND_SEED", "rift-station")
	catalogPath := envStr("STATIOND_CATALOG", "")

	slog.Info("rift-station daemon starting",
		"db", dbPath, "port", apiPort, "seed", worldSeed)

	// ── Content ───────────────────────────────────────────────────────
	catalog, err := content.Load(catalogPath)
	if err != nil {
		slog.Error("failed to load content catalog", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	store, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Engines ───────────────────────────────────────────────────────
	clk := clock.Real{}
	bonuses := engine.NewBonusCache(catalog)
	power := &engine.PowerService{Store: store, Catalog: catalog}

	missions := &engine.MissionEngine{
		Store: store, Catalog: catalog, Clock: clk, Bonuses: bonuses,
	}
	riftDecay := &engine.RiftDecayEngine{
		Store: store, Catalog: catalog, Clock: clk, Bonuses: bonuses,
	}
	extraction := &engine.ExtractionEngine{
		Store: store, Catalog: catalog, Clock: clk, Bonuses: bonuses,
	}
	upgrades := &engine.UpgradeEngine{
		Store: store, Catalog: catalog, Clock: clk,
	}
	research := &engine.ResearchEngine{
		Store: store, Catalog: catalog, Clock: clk, Bonuses: bonuses,
	}
	expedition := &engine.ExpeditionEngine{Store: store, Clock: clk}
	battles := &engine.BattleService{Store: store, Catalog: catalog, Clock: clk}
	station := &engine.Station{Store: store, Catalog: catalog, Clock: clk, Power: power}
	scanner := &survey.Scanner{
		Store:   store,
		Catalog: catalog,
		Field:   survey.NewField(worldSeed),
		Clock:   clk,
	}

	// ── Scheduler ─────────────────────────────────────────────────────
	sched := &engine.Scheduler{}
	sched.Register(missions, engine.MissionInterval)
	sched.Register(riftDecay, engine.RiftDecayInterval)
	sched.Register(extraction, engine.ExtractionInterval)
	sched.Register(upgrades, engine.UpgradeInterval)
	sched.Register(research, engine.ResearchInterval)
	sched.Register(expedition, engine.ExpeditionInterval)
	sched.Start()

	// ── API ───────────────────────────────────────────────────────────
	server := &api.Server{
		Store:      store,
		Missions:   missions,
		Upgrades:   upgrades,
		Research:   research,
		Extraction: extraction,
		Battles:    battles,
		Station:    station,
		Power:      power,
		Scanner:    scanner,
		Port:       apiPort,
	}
	server.Start()

	slog.Info("rift-station running", "port", apiPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	sched.Stop()
	slog.Info("goodbye")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
