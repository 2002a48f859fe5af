package cmd

import (
	"fmt"
	"strconv"

	"github.com/hugovk/constellix-dns-sync/internal/constellixprovider"
	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	"github.com/hugovk/constellix-dns-sync/internal/syncer"
	"github.com/hugovk/constellix-dns-sync/pkg/api"

	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/external-dns/endpoint"
)

var (
	listenAddress     string
	apiKey            string
	apiSecret         string
	baseURL           string
	dryRun            bool
	failFast          bool
	logLevel          string
	zones             []string
	domainFilter      []string
	recordTypes       []string
	unsupportedPolicy string
	concurrency       int
	ttl               int
)

var rootCmd = &cobra.Command{
	Use:   "external-dns-constellix-webhook",
	Short: "Webhook provider for ExternalDNS to manage Constellix DNS records",
	Long:  "Webhook provider for ExternalDNS to manage Constellix DNS records through the Constellix DNS v1 API",
	Run: func(cmd *cobra.Command, args []string) {
		logger := getLogger()
		defer func() {
			if err := logger.Sync(); err != nil {
				fmt.Printf("Failed to sync logger: %v\n", err)
			}
		}()

		if listenAddress == "" {
			logger.Fatal("ERROR: Listen address is required but not set. Please set WEBHOOK_LISTEN_ADDRESS_PORT or WEBHOOK_LISTEN_ADDRESS environment variable.")
		}

		if apiKey == "" {
			logger.Fatal("ERROR: CONSTELLIX_API_KEY is required but not set.")
		}

		if apiSecret == "" {
			logger.Fatal("ERROR: CONSTELLIX_API_SECRET is required but not set.")
		}

		if len(zones) == 0 {
			logger.Fatal("ERROR: at least one zone is required (--zone or CONSTELLIX_ZONES).")
		}

		logger.Info("All required configuration parameters are present")

		provider, err := constellixprovider.NewConstellixProvider(
			logger.With(zap.String("component", "provider")),
			providerConfig(),
		)
		if err != nil {
			logger.Fatal("Failed to initialize Constellix provider", zap.Error(err))
		}

		app := api.New(logger.With(zap.String("component", "api")), provider)

		logger.Info("Starting webhook server", zap.String("address", listenAddress))
		go func() {
			if err := app.Listen(listenAddress); err != nil {
				logger.Fatal("Failed to start server", zap.Error(err))
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("Shutting down server")
	},
}

func providerConfig() constellixprovider.Config {
	types := make([]dnsmodel.Type, 0, len(recordTypes))
	for _, t := range recordTypes {
		types = append(types, dnsmodel.Type(strings.ToUpper(t)))
	}
	return constellixprovider.Config{
		APIKey:            apiKey,
		APISecret:         apiSecret,
		BaseURL:           baseURL,
		Zones:             zones,
		DomainFilter:      endpoint.DomainFilter{Filters: domainFilter},
		DryRun:            dryRun,
		FailFast:          failFast,
		TTL:               ttl,
		RecordTypeFilter:  types,
		UnsupportedPolicy: syncer.UnsupportedPolicy(unsupportedPolicy),
		Concurrency:       concurrency,
	}
}

// getLogger creates a new logger with the configured log level
func getLogger() *zap.Logger {
	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(getZapLogLevel()),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Encoding:          "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("Logger initialized", zap.String("level", logLevel))
	return logger
}

// getZapLogLevel converts the string log level to a zap log level
func getZapLogLevel() zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&listenAddress, "listen-address", "", "The address to listen on for HTTP requests")
	rootCmd.PersistentFlags().StringVar(&apiKey, "constellix-api-key", "", "The Constellix API key to use for authentication")
	rootCmd.PersistentFlags().StringVar(&apiSecret, "constellix-api-secret", "", "The Constellix API secret to use for authentication")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override the Constellix API base URL")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "If true, only print the changes that would be made")
	rootCmd.PersistentFlags().BoolVar(&failFast, "fail-fast", false, "Abort remaining operations on the first failure")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "The log level to use (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSliceVar(&zones, "zone", []string{}, "Zone names to manage (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&domainFilter, "domain-filter", []string{}, "Filter domain names to manage")
	rootCmd.PersistentFlags().StringSliceVar(&recordTypes, "record-type", []string{}, "Restrict syncing to these record types (default: all supported)")
	rootCmd.PersistentFlags().StringVar(&unsupportedPolicy, "unsupported-policy", string(syncer.DropWithWarning), "What to do with unsupported record types: drop or preserve")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Parallel record operations per zone (0 = default)")
}

func initConfig() {
	// Load environment variables from .env file if it exists
	// This is especially useful for local development
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not found, using environment variables")
	} else {
		log.Printf("Loaded configuration from .env file")
	}

	viper.SetEnvPrefix("WEBHOOK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if os.Getenv("WEBHOOK_LISTEN_ADDRESS_PORT") != "" {
		listenAddress = ":" + os.Getenv("WEBHOOK_LISTEN_ADDRESS_PORT")
	} else if os.Getenv("WEBHOOK_LISTEN_ADDRESS") != "" {
		listenAddress = os.Getenv("WEBHOOK_LISTEN_ADDRESS")
	}

	if listenAddress == "" {
		listenAddress = ":8080"
		log.Printf("No listen address configured, using default: %s", listenAddress)
	}

	if os.Getenv("CONSTELLIX_API_KEY") != "" && apiKey == "" {
		apiKey = os.Getenv("CONSTELLIX_API_KEY")
	}

	if os.Getenv("CONSTELLIX_API_SECRET") != "" && apiSecret == "" {
		apiSecret = os.Getenv("CONSTELLIX_API_SECRET")
	}

	if os.Getenv("CONSTELLIX_BASE_URL") != "" && baseURL == "" {
		baseURL = os.Getenv("CONSTELLIX_BASE_URL")
	}

	if os.Getenv("CONSTELLIX_ZONES") != "" && len(zones) == 0 {
		zones = strings.Split(os.Getenv("CONSTELLIX_ZONES"), ",")
	}

	if os.Getenv("DRY_RUN") == "true" && !dryRun {
		dryRun = true
	}

	if os.Getenv("FAIL_FAST") == "true" && !failFast {
		failFast = true
	}

	if os.Getenv("LOG_LEVEL") != "" && logLevel == "info" {
		logLevel = os.Getenv("LOG_LEVEL")
	}

	if os.Getenv("DOMAIN_FILTER") != "" && len(domainFilter) == 0 {
		domainFilter = strings.Split(os.Getenv("DOMAIN_FILTER"), ",")
	}
	if os.Getenv("TTL") != "" {
		ttlvar, _ := strconv.Atoi(os.Getenv("TTL"))
		if ttlvar > 0 {
			ttl = ttlvar
		}
	} else {
		ttl = 300
		log.Printf("No TTL configured, using default: %d", ttl)
	}

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) {
			val := viper.Get(f.Name)
			if err := rootCmd.PersistentFlags().Set(f.Name, fmt.Sprint(val)); err != nil {
				log.Printf("Warning: Failed to set flag %s from environment variable: %v", f.Name, err)
			}
		}
	})
}
