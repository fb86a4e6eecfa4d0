package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aircheck/internal/radiko"
	"aircheck/internal/stations"
)

func newStationsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List stations broadcasting in the configured area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStations(cmd, ctx)
		},
	}
}

func runStations(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	client, err := radiko.NewStationClient(cfg)
	if err != nil {
		return err
	}
	list, err := client.List(cmd.Context(), cfg.Service.AreaID)
	if err != nil {
		return fmt.Errorf("fetch station list for %s: %w", cfg.Service.AreaID, err)
	}

	catalog, err := stations.Open()
	if err != nil {
		return err
	}
	defer catalog.Close()
	if err := catalog.Replace(cmd.Context(), list); err != nil {
		return err
	}
	all, err := catalog.All(cmd.Context())
	if err != nil {
		return err
	}
	areaID, areaName, err := catalog.Area(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	heading := areaID
	if areaName != "" {
		heading = fmt.Sprintf("%s (%s)", cases.Title(language.Und).String(areaName), areaID)
	}
	for _, line := range renderSectionHeader("Stations: "+heading, colorize) {
		fmt.Fprintln(out, line)
	}
	if len(all) == 0 {
		fmt.Fprintln(out, "No stations in this area")
		return nil
	}

	rows := make([][]string, 0, len(all))
	for _, station := range all {
		rows = append(rows, []string{station.ID, station.Name, station.ASCIIName})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Name", "ASCII Name"}, rows))
	return nil
}
