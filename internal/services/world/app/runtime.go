package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emberveil/emberveil/internal/platform/timeouts"
	"github.com/emberveil/emberveil/internal/services/world/domain/balance"
	"github.com/emberveil/emberveil/internal/services/world/domain/encounter"
	"github.com/emberveil/emberveil/internal/services/world/domain/hooks"
	"github.com/emberveil/emberveil/internal/services/world/domain/travel"
	"github.com/emberveil/emberveil/internal/services/world/domain/vitals"
	worldsqlite "github.com/emberveil/emberveil/internal/services/world/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls world startup, dependencies, and loop cadence.
type RuntimeConfig struct {
	Port            int
	DBPath          string
	BalancePath     string
	HomeLocationID  string
	TickInterval    time.Duration
	BossEveryNTicks int

	EncounterCeiling  int
	EncounterTTL      time.Duration
	DefeatCooldown    time.Duration
	LocationCooldown  time.Duration
	SweepEveryNCycles int

	// Collaborator hooks; nil values fall back to log-backed stand-ins.
	Rewards      hooks.RewardGranter
	Achievements hooks.AchievementChecker
	Challenges   hooks.ChallengeTracker
	Landmarks    hooks.LandmarkResolver
	Notifier     hooks.Notifier
	Capability   hooks.FightingCapability
}

const (
	defaultWorldPort = 8095
	defaultWorldDB   = "data/world.db"
	defaultHomeID    = "town-square"
)

// Run starts world runtime dependencies and the simulation tick loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultWorldPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorldDB
	}
	if strings.TrimSpace(cfg.HomeLocationID) == "" {
		cfg.HomeLocationID = defaultHomeID
	}

	tables := balance.Default()
	if strings.TrimSpace(cfg.BalancePath) != "" {
		loaded, err := balance.Load(cfg.BalancePath)
		if err != nil {
			return fmt.Errorf("load balance tables: %w", err)
		}
		tables = loaded
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create world storage dir: %w", err)
		}
	}

	worldStore, err := worldsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open world sqlite store: %w", err)
	}
	defer func() {
		if closeErr := worldStore.Close(); closeErr != nil {
			log.Printf("close world sqlite store: %v", closeErr)
		}
	}()

	fallback := hooks.NewLogHooks(nil)
	if cfg.Rewards == nil {
		cfg.Rewards = fallback
	}
	if cfg.Achievements == nil {
		cfg.Achievements = fallback
	}
	if cfg.Challenges == nil {
		cfg.Challenges = fallback
	}
	if cfg.Landmarks == nil {
		cfg.Landmarks = fallback
	}
	if cfg.Notifier == nil {
		cfg.Notifier = fallback
	}
	if cfg.Capability == nil {
		cfg.Capability = fallback
	}

	regenerator := vitals.NewRegenerator(worldStore, tables, nil, nil)
	travelLifecycle := travel.NewLifecycle(
		worldStore,
		cfg.Landmarks,
		cfg.Rewards,
		cfg.Achievements,
		cfg.Challenges,
		travel.Config{
			HomeLocationID:  cfg.HomeLocationID,
			FirstVisitBonus: tables.FirstVisitBonus,
		},
		nil,
		nil,
	)
	encounterManager := encounter.NewManager(
		worldStore,
		cfg.Capability,
		cfg.Notifier,
		encounter.Config{
			Ceiling:           cfg.EncounterCeiling,
			TTL:               cfg.EncounterTTL,
			DefeatCooldown:    cfg.DefeatCooldown,
			LocationCooldown:  cfg.LocationCooldown,
			HomeLocationID:    cfg.HomeLocationID,
			SweepEveryNCycles: cfg.SweepEveryNCycles,
			BaseHP:            tables.EncounterBaseHP,
			HPScalingFactor:   tables.HPScalingFactor,
			TierWeights:       tables.TierWeights,
		},
		nil,
		nil,
		nil,
	)

	driver := NewDriver(travelLifecycle, regenerator, encounterManager, DriverConfig{
		TickInterval:    cfg.TickInterval,
		BossEveryNTicks: cfg.BossEveryNTicks,
	}, nil)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on world port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("world.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(timeouts.Shutdown):
			grpcServer.Stop()
		}
		<-serveErr
	}()

	log.Printf("world server listening at %v", listener.Addr())
	return driver.Run(ctx)
}
