// Command rfchartctl imports forecasts into the configured backend and
// renders chart configs from payload endpoints.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rfcharts/internal/amqp"
	"rfcharts/internal/cli"
	"rfcharts/internal/core"
	"rfcharts/internal/dashboard"
	"rfcharts/internal/fetch"
	"rfcharts/internal/importer"
	"rfcharts/internal/render"
)

func main() {
	cli.LoadEnvFile()

	rootCmd := &cobra.Command{
		Use:          "rfchartctl",
		Short:        "Manage reserve fund forecasts and chart configs",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newImportCmd(), newExportCmd(), newBuildCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var planID, sheet string
	cmd := &cobra.Command{
		Use:   "import --plan ID file.xlsx|file.csv",
		Short: "Store a forecast spreadsheet in the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := cli.LoadAndValidateConfig()
			logger, closer := cli.SetupLogger(cfg)
			defer closer.Close()

			res := cli.InitBackend(ctx, logger.Logger, cfg)
			if res.Cleanup != nil {
				defer res.Cleanup()
			}

			var versions importer.Versioner
			if v, ok := res.Backend.(importer.Versioner); ok {
				versions = v
			}
			// a nil *amqp.Client must stay a nil interface
			var publisher amqp.Publisher
			if res.Events != nil {
				publisher = res.Events
			}

			svc := importer.NewService(res.Backend, versions, publisher, logger.Logger)
			f, err := svc.Import(ctx, planID, args[0], sheet)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d months into plan %s\n", len(f.Months), f.PlanID)
			return nil
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "Plan identifier")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: first sheet)")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newExportCmd() *cobra.Command {
	var planID string
	cmd := &cobra.Command{
		Use:   "export --plan ID out.xlsx|out.csv",
		Short: "Write a stored forecast to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := cli.LoadAndValidateConfig()
			logger, closer := cli.SetupLogger(cfg)
			defer closer.Close()

			res := cli.InitBackend(ctx, logger.Logger, cfg)
			if res.Cleanup != nil {
				defer res.Cleanup()
			}

			f, err := res.Backend.ReadForecast(ctx, planID)
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			defer out.Close()

			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".xlsx":
				err = importer.WriteXLSX(out, f)
			case ".csv":
				err = f.WriteCSV(out)
			default:
				err = fmt.Errorf("%w: %s", importer.ErrUnsupportedFormat, args[0])
			}
			if err != nil {
				return err
			}
			return out.Close()
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "Plan identifier")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newBuildCmd() *cobra.Command {
	var (
		kind      string
		endpoint  string
		file      string
		output    string
		fontColor string
		pretty    bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "build --kind K (--endpoint URL | --file payload.json)",
		Short: "Render the Chart.js config of one payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := core.ParseChartKind(kind)
			if err != nil {
				return err
			}

			p, err := loadPayload(cmd.Context(), endpoint, file, timeout)
			if err != nil {
				return err
			}

			chart, err := dashboard.Render(p, k, render.NewTheme(fontColor))
			if err != nil {
				return err
			}

			var data []byte
			if pretty {
				data, err = json.MarshalIndent(chart, "", "  ")
			} else {
				data, err = json.Marshal(chart)
			}
			if err != nil {
				return fmt.Errorf("serialization failed: %w", err)
			}

			if output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Chart kind: "+kindList())
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Payload endpoint URL")
	cmd.Flags().StringVar(&file, "file", "", "Read the payload from a JSON file instead")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&fontColor, "font-color", render.DefaultFontColor, "Global chart font colour")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Endpoint request timeout")
	_ = cmd.MarkFlagRequired("kind")
	cmd.MarkFlagsMutuallyExclusive("endpoint", "file")
	cmd.MarkFlagsOneRequired("endpoint", "file")
	return cmd
}

func loadPayload(ctx context.Context, endpoint, file string, timeout time.Duration) (core.RawPayload, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return core.RawPayload{}, fmt.Errorf("read payload: %w", err)
		}
		return core.DecodePayload(data)
	}
	return fetch.NewClient(timeout, nil).Payload(ctx, endpoint)
}

func kindList() string {
	kinds := core.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
