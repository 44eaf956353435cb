package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "xrrlab",
	Short: "X-ray reflectivity analysis for thin-film stacks",
	Long: `xrrlab models thin-film samples as layer stacks, imports measured X-ray
reflectivity curves and fits the stack to the measurement. Every command works
on one workspace document that holds the instrument setup, the layer stack and
the imported data.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "system config file (default is $HOME/.xrrlab/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.String("workspace", "", "workspace file, or database directory with --store badger")
	flags.String("store", "", "storage backend: file or badger (default from system config)")
	flags.String("name", "default", "workspace name")

	for _, name := range []string{"config", "verbose", "workspace", "store", "name"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig loads a .env file and binds XRRLAB_* environment variables.
func initConfig() {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env")
	}

	viper.SetEnvPrefix("XRRLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
