package cmd

import (
	"os"
	"time"

	coreconfig "github.com/AzielCF/az-aiwa/core/config"
	"github.com/AzielCF/az-aiwa/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagPort      string
	flagDebug     bool
	flagLogFormat string
	flagBasicAuth []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-aiwa",
	Short: "WhatsApp knowledge assistant",
	Long: `Answers WhatsApp Cloud API messages with a tool-augmented LLM agent
and sends stored documents and images on request.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagLogFormat,
		"log-format",
		"",
		"log output format --log-format <text|json>",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&flagBasicAuth,
		"basic-auth", "b",
		nil,
		"basic auth credential for /api | -b=yourUsername:yourPassword",
	)
}

// initEnvConfig loads configuration from environment variables, then lets
// explicit flags override it.
func initEnvConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] Failed to load configuration: %v", err)
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("port") {
		cfg.App.Port = flagPort
	}
	if flags.Changed("debug") {
		cfg.App.Debug = flagDebug
	}
	if flags.Changed("log-format") {
		cfg.App.LogFormat = flagLogFormat
	}
	if flags.Changed("basic-auth") {
		cfg.App.BasicAuth = flagBasicAuth
	}

	initLogger(cfg.App)
}

func initLogger(app coreconfig.AppConfig) {
	if app.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
