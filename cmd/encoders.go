package cmd

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/encoders/validation"
	"github.com/smazurov/sentryexport/internal/logging"
)

// CreateEncodersCmd creates the encoders command.
func CreateEncodersCmd() *cobra.Command {
	var (
		quality   string
		frontOnly bool
	)

	cmd := &cobra.Command{
		Use:   "encoders",
		Short: "Probe and list H.264 encoders",
		Long: `Runs the encoder capability probe (a short test encode per hardware encoder) and prints ` +
			`which encoders work on this machine and which one an export would use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(configPath(cmd))
			if err != nil {
				return err
			}
			logging.Initialize(opts.Logging())

			q, err := encoders.ParseQuality(quality)
			if err != nil {
				return err
			}
			svc, err := BuildServices(opts)
			if err != nil {
				return err
			}

			caps := svc.Selector.Capabilities(cmd.Context())
			choice, err := svc.Selector.Select(cmd.Context(), encoders.Request{Quality: q, FrontOnly: frontOnly})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ffmpeg: %s (%s)\n", caps.FFmpegPath, caps.FFmpegVersion)
			if caps.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "probe failed, software only: %s\n", caps.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEncoderTable(caps, choice.Encoder))
			fmt.Fprintf(cmd.OutOrStdout(), "%s export: %s %dx%d q%d (%s)\n",
				q, choice.Encoder, choice.Target.Width, choice.Target.Height, choice.Target.Quality, choice.Reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&quality, "quality", string(encoders.QualityHigh), "Quality tier to select an encoder for")
	cmd.Flags().BoolVar(&frontOnly, "front-only", false, "Select for a front-camera-only export")
	return cmd
}

func renderEncoderTable(caps encoders.Capabilities, selected string) string {
	registry := validation.DefaultRegistry()
	preference := encoders.PreferenceOrder(runtime.GOOS)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Encoder", "Family", "Hardware", "Status", "Rank"})

	for _, v := range registry.GetAllValidators() {
		for _, name := range registry.GetCompiledEncoders(v, caps.Compiled) {
			status := "ok"
			switch {
			case v.IsHardware() && slices.Contains(caps.Failed, name):
				status = "failed"
			case v.IsHardware() && !caps.HasHardware(name):
				status = "untested"
			}
			if name == selected {
				status += " *"
			}
			rank := "-"
			if i := slices.Index(preference, name); i >= 0 {
				rank = strconv.Itoa(i + 1)
			}
			tw.AppendRow(table.Row{name, v.GetDescription(), yesNo(v.IsHardware()), status, rank})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
