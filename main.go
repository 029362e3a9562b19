package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/rm-hull/png-scrubber/cmd"
	"github.com/rm-hull/png-scrubber/internal"
	"github.com/spf13/cobra"
)

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000",
	})))
}

func main() {
	var cfg internal.Config
	var configFile string
	var verbose bool
	var outputDir string
	var workers int
	var keepNames bool
	var lenient bool
	var inbox string
	var interval time.Duration
	var port int
	var debug bool
	var asJSON bool

	setupLogging(false)
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaults := internal.DefaultConfig()
	defaultConfig := os.Getenv("PNG_SCRUBBER_CONFIG")
	if defaultConfig == "" {
		defaultConfig = internal.DefaultConfigFile
	}

	rootCmd := &cobra.Command{
		Use:           "png-scrubber",
		Long:          `Strip text, EXIF and timestamp metadata from PNG files without touching the image data`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			setupLogging(verbose)
			var err error
			cfg, err = internal.LoadConfig(configFile, c.Flags().Changed("config"))
			if err != nil {
				return err
			}

			// command line flags win over config file and environment
			flags := c.Flags()
			if flags.Changed("out") {
				cfg.OutputDir = outputDir
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("keep-names") {
				cfg.KeepNames = &keepNames
			}
			if flags.Changed("lenient") {
				cfg.Lenient = lenient
			}
			if flags.Changed("inbox") {
				cfg.Watch.Inbox = inbox
			}
			if flags.Changed("interval") {
				cfg.Watch.Interval = interval
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfig, "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	stripCmd := &cobra.Command{
		Use:   "strip [--out <dir>] [--workers <n>] [--keep-names] [--lenient] <file|dir>...",
		Short: "Remove metadata chunks from PNG files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.Strip(ctx, args, cfg.Options())
		},
	}
	stripCmd.Flags().StringVarP(&outputDir, "out", "o", defaults.OutputDir, "Output directory")
	stripCmd.Flags().IntVarP(&workers, "workers", "w", defaults.Workers, "Number of files processed in parallel")
	stripCmd.Flags().BoolVar(&keepNames, "keep-names", *defaults.KeepNames, "Keep original file names (otherwise <timestamp>_<n>.png)")
	stripCmd.Flags().BoolVar(&lenient, "lenient", false, "Accept files that end without an IEND chunk")

	inspectCmd := &cobra.Command{
		Use:   "inspect [--json] [--lenient] <file>...",
		Short: "List the chunks of PNG files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.Inspect(os.Stdout, args, asJSON, cfg.FilterOptions()...)
		},
	}
	inspectCmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	inspectCmd.Flags().BoolVar(&lenient, "lenient", false, "Accept files that end without an IEND chunk")

	watchCmd := &cobra.Command{
		Use:   "watch [--inbox <dir>] [--out <dir>] [--interval <duration>]",
		Short: "Periodically strip PNG files dropped into an inbox directory",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Watch(ctx, cfg)
		},
	}
	watchCmd.Flags().StringVar(&inbox, "inbox", defaults.Watch.Inbox, "Directory to watch")
	watchCmd.Flags().StringVarP(&outputDir, "out", "o", defaults.OutputDir, "Output directory")
	watchCmd.Flags().DurationVar(&interval, "interval", defaults.Watch.Interval, "Time between inbox scans")
	watchCmd.Flags().IntVarP(&workers, "workers", "w", defaults.Workers, "Number of files processed in parallel")
	watchCmd.Flags().BoolVar(&lenient, "lenient", false, "Accept files that end without an IEND chunk")

	apiServerCmd := &cobra.Command{
		Use:   "api-server [--port <port>] [--debug]",
		Short: "Start HTTP API server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.ApiServer(cfg, debug)
		},
	}
	apiServerCmd.Flags().IntVar(&port, "port", defaults.Server.Port, "Port to run HTTP server on")
	apiServerCmd.Flags().StringVarP(&outputDir, "out", "o", defaults.OutputDir, "Output directory checked by /healthz")
	apiServerCmd.Flags().BoolVar(&lenient, "lenient", false, "Accept files that end without an IEND chunk")
	apiServerCmd.Flags().BoolVar(&debug, "debug", false, "Enable debugging (pprof) - WARNING: do not enable in production")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(internal.Version())
		},
	}

	rootCmd.AddCommand(stripCmd, inspectCmd, watchCmd, apiServerCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", tint.Err(err))
		stop()
		os.Exit(1)
	}
}
