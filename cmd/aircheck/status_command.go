package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aircheck/internal/preflight"
)

// newStatusCommand reports the resolved configuration and whether the
// environment is ready to record. Failing checks are rendered, not
// returned, so the command always exits zero when it could inspect the
// machine.
func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resolved configuration and recording readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			configKind, configDetail := statusOK, ctx.configPath
			if !ctx.configExists {
				configKind = statusWarn
				configDetail += " (missing, defaults in use)"
			}
			fmt.Fprintln(out, renderStatusLine("Config file", configKind, configDetail, colorize))
			fmt.Fprintln(out, renderStatusLine("Area", statusInfo, cfg.Service.AreaID, colorize))
			fmt.Fprintln(out, renderStatusLine("Output directory", statusInfo, cfg.Paths.OutputDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Log directory", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Encoder", statusInfo, cfg.EncoderBinary(), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Readiness", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.Run(cfg)
			failed := 0
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out)
			if failed > 0 {
				fmt.Fprintf(out, "%d of %d checks failed\n", failed, len(results))
			} else {
				fmt.Fprintln(out, "Ready to record")
			}
			return nil
		},
	}
}
