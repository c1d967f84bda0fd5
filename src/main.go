package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"liftsim/src/car"
	"liftsim/src/config"
	"liftsim/src/robot"
	"liftsim/src/sim"
	"liftsim/src/tenant"
	"liftsim/src/types"
)

func main() {
	floors := flag.Int("floors", 10, "number of floors in the building")
	policyName := flag.String("policy", "equal", "dispatch policy: equal, robot-priority or tenant-priority")
	scale := flag.Float64("scale", 0, "time scale: 0 = free-running, 1 = real time")
	duration := flag.Duration("duration", 4*time.Hour, "virtual time to simulate")
	trips := flag.Int("tenants", 8, "number of tenant trips to generate")
	flag.Parse()

	initLogger()

	cfg := config.Default()
	cfg.FloorCount = *floors
	cfg.TimeScale = *scale
	policy, err := types.ParsePolicy(*policyName)
	if err != nil {
		slog.Error("invalid policy flag", "err", err)
		os.Exit(1)
	}
	cfg.DispatchPolicy = policy

	// Start inside the off-peak window so the cleaning round runs.
	start := time.Date(2026, 1, 1, cfg.OffPeakStart, 0, 0, 0, time.UTC)
	clk := sim.NewClock(start, cfg.TimeScale)
	lift := car.New("car-1", cfg, clk)
	cleaner := robot.New("cleaner-1", cfg, lift, clk)
	cleaner.StartCleaning()

	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < *trips; i++ {
		delay := time.Duration(i)*11*time.Minute + time.Duration(rng.Intn(300))*time.Second
		clk.Schedule(delay, func() {
			from := 1 + rng.Intn(cfg.FloorCount)
			to := 1 + rng.Intn(cfg.FloorCount)
			if to == from {
				to = cfg.LobbyFloor
				if from == cfg.LobbyFloor {
					to = cfg.FloorCount
				}
			}
			if _, err := tenant.Spawn(lift, clk, from, to, cfg.TenantPatience); err != nil {
				slog.Error("tenant spawn failed", "err", err)
			}
		})
	}

	clk.Schedule(*duration, clk.Stop)
	clk.Run()

	snap := lift.Snapshot()
	slog.Info("simulation finished",
		"virtualTime", clk.Now().Format("2006-01-02 15:04:05"),
		"totalRequests", snap.Stats.TotalRequests,
		"robotRequests", snap.Stats.RobotRequests,
		"tenantRequests", snap.Stats.TenantRequests,
		"boardings", snap.Stats.Boardings,
		"alightings", snap.Stats.Alightings,
		"capacityRejections", snap.Stats.CapacityRejections,
		"floorsCleaned", len(cleaner.VisitedFloors()),
		"battery", cleaner.BatteryLevel())
}

// initLogger sets up global logging configuration with compact time format.
func initLogger() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("15:04:05"))
				}
			}
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					file := source.File
					if lastSlash := strings.LastIndexByte(file, '/'); lastSlash >= 0 {
						file = file[lastSlash+1:]
					}
					a.Value = slog.StringValue(fmt.Sprintf("%s:%d", file, source.Line))
				}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(handler))
}
