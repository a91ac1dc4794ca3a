// Package world parses world command flags and launches the world simulation
// runtime.
package world

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/emberveil/emberveil/internal/platform/cmd"
	platformgrpc "github.com/emberveil/emberveil/internal/platform/grpc"
	"github.com/emberveil/emberveil/internal/platform/timeouts"
	worldserver "github.com/emberveil/emberveil/internal/services/world/app"
)

// Config holds world command configuration.
type Config struct {
	Port              int           `env:"EMBERVEIL_WORLD_PORT" envDefault:"8095"`
	DBPath            string        `env:"EMBERVEIL_WORLD_DB_PATH" envDefault:"data/world.db"`
	BalancePath       string        `env:"EMBERVEIL_WORLD_BALANCE_PATH"`
	HomeLocationID    string        `env:"EMBERVEIL_WORLD_HOME_LOCATION" envDefault:"town-square"`
	TickInterval      time.Duration `env:"EMBERVEIL_WORLD_TICK_INTERVAL" envDefault:"1m"`
	BossEveryNTicks   int           `env:"EMBERVEIL_WORLD_BOSS_EVERY_N_TICKS" envDefault:"5"`
	EncounterCeiling  int           `env:"EMBERVEIL_WORLD_ENCOUNTER_CEILING" envDefault:"1"`
	EncounterTTL      time.Duration `env:"EMBERVEIL_WORLD_ENCOUNTER_TTL" envDefault:"2h"`
	DefeatCooldown    time.Duration `env:"EMBERVEIL_WORLD_DEFEAT_COOLDOWN" envDefault:"6h"`
	LocationCooldown  time.Duration `env:"EMBERVEIL_WORLD_LOCATION_COOLDOWN" envDefault:"24h"`
	SweepEveryNCycles int           `env:"EMBERVEIL_WORLD_SWEEP_EVERY_N_CYCLES" envDefault:"2"`

	// HealthCheck probes a running instance instead of starting one. Used as
	// the container health probe so the image needs no extra tooling.
	HealthCheck bool `env:"-"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The world health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The world SQLite database path")
	fs.StringVar(&cfg.BalancePath, "balance-path", cfg.BalancePath, "Optional balance tables YAML path")
	fs.StringVar(&cfg.HomeLocationID, "home-location", cfg.HomeLocationID, "The home location id")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "Simulation tick interval")
	fs.IntVar(&cfg.BossEveryNTicks, "boss-every-n-ticks", cfg.BossEveryNTicks, "Boss lifecycle cadence in ticks")
	fs.IntVar(&cfg.EncounterCeiling, "encounter-ceiling", cfg.EncounterCeiling, "Maximum concurrently active encounters")
	fs.DurationVar(&cfg.EncounterTTL, "encounter-ttl", cfg.EncounterTTL, "Active encounter lifetime before expiry")
	fs.DurationVar(&cfg.DefeatCooldown, "defeat-cooldown", cfg.DefeatCooldown, "Global spawn cooldown after a defeat")
	fs.DurationVar(&cfg.LocationCooldown, "location-cooldown", cfg.LocationCooldown, "Per-location spawn cooldown")
	fs.IntVar(&cfg.SweepEveryNCycles, "sweep-every-n-cycles", cfg.SweepEveryNCycles, "Orphan capability sweep cadence in boss cycles")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Probe the running world service health and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RunHealthCheck dials the local health server and waits for it to report
// SERVING within the standard dial timeout.
func RunHealthCheck(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf("localhost:%d", cfg.Port)
	conn, err := platformgrpc.DialWithHealth(ctx, nil, addr, timeouts.GRPCDial, nil, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		return fmt.Errorf("health check %s: %w", addr, err)
	}
	return conn.Close()
}

// Run starts the world runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorld, func(context.Context) error {
		return worldserver.Run(ctx, worldserver.RuntimeConfig{
			Port:              cfg.Port,
			DBPath:            cfg.DBPath,
			BalancePath:       cfg.BalancePath,
			HomeLocationID:    cfg.HomeLocationID,
			TickInterval:      cfg.TickInterval,
			BossEveryNTicks:   cfg.BossEveryNTicks,
			EncounterCeiling:  cfg.EncounterCeiling,
			EncounterTTL:      cfg.EncounterTTL,
			DefeatCooldown:    cfg.DefeatCooldown,
			LocationCooldown:  cfg.LocationCooldown,
			SweepEveryNCycles: cfg.SweepEveryNCycles,
		})
	})
}
