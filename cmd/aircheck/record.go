package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/preflight"
	"aircheck/internal/radiko"
	"aircheck/internal/recording"
	"aircheck/internal/services"
	"aircheck/internal/stations"
)

// runRecord is the root command's recording path. Arguments and the
// requested window are validated before any network traffic so typos fail
// in milliseconds instead of after a handshake.
func runRecord(cmd *cobra.Command, ctx *commandContext, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	stationID := strings.ToUpper(strings.TrimSpace(args[0]))
	if !radiko.ValidStationID(stationID) {
		return fmt.Errorf("invalid station id %q: expected letters and digits like TBS or QRR", args[0])
	}
	start, err := radiko.ParseTimestamp(strings.TrimSpace(args[1]))
	if err != nil {
		return fmt.Errorf("invalid start time %q: expected YYYYMMDDHHMMSS in JST", args[1])
	}
	minutes := cfg.Recording.DefaultDurationMinutes
	if len(args) > 2 {
		minutes, err = strconv.Atoi(strings.TrimSpace(args[2]))
		if err != nil || minutes <= 0 {
			return fmt.Errorf("invalid duration %q: expected a positive number of minutes", args[2])
		}
	}
	window := radiko.TimeWindow{Start: start, Duration: time.Duration(minutes) * time.Minute}
	retention := time.Duration(cfg.Playlist.RetentionDays) * 24 * time.Hour
	if err := window.Validate(time.Now(), retention); err != nil {
		return err
	}

	outputPath := filepath.Join(cfg.Paths.OutputDir,
		fmt.Sprintf("%s_%s.aac", stationID, radiko.FormatTimestamp(time.Now())))

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	// Concurrent recorder processes append to the same date file; the run id
	// keeps their records apart.
	logger = logging.WithRunID(logger, uuid.NewString())
	logging.CleanupOldLogs(cmd.Context(), logger, []logging.RetentionTarget{{
		Dir:     cfg.Paths.LogDir,
		Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.DateFileName(time.Now()))},
	}}, cfg.Logging.RetentionDays)

	if err := preflight.Ensure(cfg); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	station, err := lookupStation(runCtx, cfg, logger, stationID)
	if err != nil {
		return err
	}

	job := recording.NewJob(station, window, outputPath)
	orchestrator, err := recording.NewOrchestrator(cfg, recording.WithOrchestratorLogger(logger))
	if err != nil {
		return err
	}
	if err := orchestrator.Run(runCtx, job); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s to %s\n", station.Name, job.OutputPath)
	return nil
}

// lookupStation refreshes the station catalog for the configured area and
// confirms the requested station broadcasts there.
func lookupStation(runCtx context.Context, cfg *config.Config, logger *slog.Logger, stationID string) (radiko.Station, error) {
	client, err := radiko.NewStationClient(cfg, radiko.WithStationLogger(logger))
	if err != nil {
		return radiko.Station{}, err
	}
	list, err := client.List(runCtx, cfg.Service.AreaID)
	if err != nil {
		return radiko.Station{}, fmt.Errorf("fetch station list for %s: %w", cfg.Service.AreaID, err)
	}

	catalog, err := stations.Open(stations.WithCatalogLogger(logger))
	if err != nil {
		return radiko.Station{}, err
	}
	defer catalog.Close()
	if err := catalog.Replace(runCtx, list); err != nil {
		return radiko.Station{}, err
	}

	station, err := catalog.Lookup(runCtx, stationID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return radiko.Station{}, fmt.Errorf("station %s does not broadcast in area %s; run `aircheck stations` for the list",
				stationID, cfg.Service.AreaID)
		}
		return radiko.Station{}, err
	}
	return station, nil
}
