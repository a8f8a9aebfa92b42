package main

import (
	"fmt"
	"strings"

	"github.com/cyhsu/AgriGeoSpatial/internal/catalog"
	"github.com/cyhsu/AgriGeoSpatial/internal/delivery"
	"github.com/cyhsu/AgriGeoSpatial/internal/gdalio"
	"github.com/cyhsu/AgriGeoSpatial/internal/notification"
	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envPath    string
	logLevel   string
	outputDir  string
	workers    int
	noBanner   bool

	cfg properties.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "agrigeo",
		Short:         "Grid, filter and correct aerial imagery of agricultural fields",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "TOML config file")
	f.StringVar(&opts.envPath, "env", "", ".env file, defaults to the first of .env, ../.env, ../../.env")
	f.StringVar(&opts.logLevel, "log-level", "", "log level, overrides the config")
	f.StringVar(&opts.outputDir, "output", "", "result folder, overrides the config")
	f.IntVar(&opts.workers, "workers", 0, "worker count, overrides the config")
	f.BoolVar(&opts.noBanner, "no-banner", false, "do not print the banner")

	root.AddCommand(
		newGridCmd(opts),
		newHarvestCmd(opts),
		newShadowCmd(opts),
		newReflectanceCmd(opts),
		newRunCmd(opts),
		newCatalogCmd(),
	)
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	envPaths := []string{".env", "../.env", "../../.env"}
	if o.envPath != "" {
		envPaths = []string{o.envPath}
	}
	if err := properties.LoadEnv(envPaths...); err != nil {
		return err
	}
	cfg, err := properties.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = o.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)
	o.cfg = cfg

	if !o.noBanner {
		printBanner()
	}
	return nil
}

func (o *rootOptions) service() *delivery.Service {
	return delivery.NewService(o.cfg, gdalio.Store{})
}

// report prints the outcome of a run and sends the matching notification.
func report(command string, rep *delivery.Report, err error) error {
	if err != nil {
		ui.PrintError(err.Error())
		if nerr := notification.SendDiscordErrorNotification(command, err); nerr != nil {
			logrus.WithError(nerr).Warn("failed to send error notification")
		}
		return err
	}
	summary := make(map[string]any, len(rep.Summary))
	for k, v := range rep.Summary {
		summary[k] = v
	}
	ui.PrintSummary("Summary", summary)
	ui.PrintSuccess("Files written:\n  " + strings.Join(rep.Outputs, "\n  "))
	if nerr := notification.SendDiscordSuccessNotification(command, rep.Summary); nerr != nil {
		logrus.WithError(nerr).Warn("failed to send success notification")
	}
	return nil
}

func nameOr(name, path string) string {
	if name != "" {
		return name
	}
	return delivery.RunName(path)
}

func newGridCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "grid <boundary>",
		Short: "Tile a field boundary with square cells in the metric CRS",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rep, err := opts.service().RunGrid(args[0], nameOr(name, args[0]))
			return report("grid", rep, err)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "result folder name, defaults to the boundary file name")
	return cmd
}

func newHarvestCmd(opts *rootOptions) *cobra.Command {
	in := delivery.HarvestInput{}
	cmd := &cobra.Command{
		Use:   "harvest <boundary> <yield>",
		Short: "Keep the grid cells covered by yield polygons and join their attributes",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			in.Boundary, in.Yield = args[0], args[1]
			in.Name = nameOr(in.Name, args[0])
			rep, err := opts.service().RunHarvest(in)
			return report("harvest", rep, err)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "result folder name, defaults to the boundary file name")
	cmd.Flags().BoolVar(&in.CollapseByYield, "collapse", false, "keep a single cell per yield polygon")
	return cmd
}

func newShadowCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "shadow <raster>",
		Short: "Detect shadowed pixels by NDVI and replace them with smoothed values",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rep, err := opts.service().CorrectShadows(args[0], nameOr(name, args[0]))
			return report("shadow", rep, err)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "result folder name, defaults to the raster file name")
	return cmd
}

func newReflectanceCmd(opts *rootOptions) *cobra.Command {
	in := delivery.ReflectanceInput{}
	cmd := &cobra.Command{
		Use:   "reflectance <polygons> <raster>",
		Short: "Compute per-polygon band means relative to a raster-wide quantile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Layer, in.Raster = args[0], args[1]
			in.Name = nameOr(in.Name, args[0])
			rep, err := opts.service().RunReflectance(cmd.Context(), in)
			return report("reflectance", rep, err)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "result folder name, defaults to the polygon file name")
	cmd.Flags().BoolVar(&in.Strict, "strict", false, "fail when a band's quantile reference is zero")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	in := delivery.PipelineInput{}
	cmd := &cobra.Command{
		Use:   "run <boundary> <yield> <raster>",
		Short: "Grid, filter, correct shadows and compute reflectance in one go",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Boundary, in.Yield, in.Raster = args[0], args[1], args[2]
			in.Name = nameOr(in.Name, args[0])
			rep, err := opts.service().RunPipeline(cmd.Context(), in)
			return report("run", rep, err)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "result folder name, defaults to the boundary file name")
	cmd.Flags().BoolVar(&in.CollapseByYield, "collapse", false, "keep a single cell per yield polygon")
	cmd.Flags().BoolVar(&in.Strict, "strict", false, "fail when a band's quantile reference is zero")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	var keyword string
	cmd := &cobra.Command{
		Use:   "catalog <root>",
		Short: "List the shapefiles, archives and dated rasters under a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := catalog.Collect(args[0], keyword)
			if err != nil {
				ui.PrintError(err.Error())
				return err
			}
			ui.PrintInfo(fmt.Sprintf("Shapefiles matching %q:", keyword))
			for _, p := range c.Shapefiles {
				fmt.Fprintln(ui.Output, "  "+p)
			}
			ui.PrintInfo("Archives:")
			for _, p := range c.Archives {
				fmt.Fprintln(ui.Output, "  "+p)
			}
			for _, d := range c.Dates() {
				ui.PrintInfo(d + ":")
				for _, p := range c.Rasters[d] {
					fmt.Fprintln(ui.Output, "  "+p)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyword, "keyword", "", "only list shapefiles whose name contains this keyword")
	return cmd
}
