package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var areaFlag string
	var outputDirFlag string
	var stationList bool

	ctx := newCommandContext(&configFlag, &areaFlag, &outputDirFlag)

	rootCmd := &cobra.Command{
		Use:   "aircheck [station-id start-time [duration-minutes]]",
		Short: "Timeshift radio recorder",
		Long: `aircheck records past broadcasts from the timeshift service.

Pass a station id and a start time (YYYYMMDDHHMMSS, JST wall clock) to
record. The duration defaults to recording.default_duration_minutes from
the configuration file when omitted.`,
		Args:          cobra.RangeArgs(0, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if stationList {
				return runStations(cmd, ctx)
			}
			if len(args) == 0 {
				return cmd.Help()
			}
			if len(args) < 2 {
				return errors.New("start time is required (YYYYMMDDHHMMSS, JST)")
			}
			return runRecord(cmd, ctx, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&areaFlag, "area-id", "", "Record as this area instead of the configured one (JP1 through JP47)")
	rootCmd.PersistentFlags().StringVar(&outputDirFlag, "output-dir", "", "Write recordings to this directory")
	rootCmd.Flags().BoolVar(&stationList, "station-list", false, "List the area's stations and exit")

	rootCmd.AddCommand(newStationsCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
