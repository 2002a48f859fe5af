package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/constellix"
	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	"github.com/hugovk/constellix-dns-sync/internal/syncer"
	"github.com/hugovk/constellix-dns-sync/internal/zonefile"
)

var (
	zoneFile    string
	syncTimeout time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "One-shot sync of a YAML zone file against the live Constellix zone",
	Long:  "Loads the desired state from a YAML zone file, diffs it against the live Constellix zone and applies the resulting change plan. Exits non-zero when any operation failed.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := getLogger()
		defer func() {
			if err := logger.Sync(); err != nil {
				fmt.Printf("Failed to sync logger: %v\n", err)
			}
		}()

		if apiKey == "" {
			logger.Fatal("ERROR: CONSTELLIX_API_KEY is required but not set.")
		}
		if apiSecret == "" {
			logger.Fatal("ERROR: CONSTELLIX_API_SECRET is required but not set.")
		}
		if zoneFile == "" {
			logger.Fatal("ERROR: --zone-file is required.")
		}

		desired, err := zonefile.Load(zoneFile)
		if err != nil {
			logger.Fatal("Failed to load zone file", zap.String("file", zoneFile), zap.Error(err))
		}
		logger.Info("Loaded desired state",
			zap.String("zone", desired.Name),
			zap.Int("records", desired.Len()))

		client, err := constellix.NewClient(
			logger.With(zap.String("component", "constellix")),
			constellix.Config{APIKey: apiKey, APISecret: apiSecret, BaseURL: baseURL},
		)
		if err != nil {
			logger.Fatal("Failed to create Constellix API client", zap.Error(err))
		}
		service := constellix.NewRecordService(
			logger.With(zap.String("component", "records")), client)
		engine := syncer.New(
			logger.With(zap.String("component", "syncer")),
			service, syncer.UnsupportedPolicy(unsupportedPolicy))

		types := make([]dnsmodel.Type, 0, len(recordTypes))
		for _, t := range recordTypes {
			types = append(types, dnsmodel.Type(t))
		}

		report, err := engine.Sync(context.Background(), desired.Name, desired, syncer.Options{
			DryRun:           dryRun,
			FailFast:         failFast,
			RecordTypeFilter: types,
			Concurrency:      concurrency,
			Timeout:          syncTimeout,
		})
		if err != nil {
			logger.Fatal("Sync failed", zap.String("zone", desired.Name), zap.Error(err))
		}

		for _, res := range report.Results {
			fields := []zap.Field{
				zap.String("zone", report.Zone),
				zap.String("action", res.Operation.Action),
				zap.String("record", res.Operation.Record.Key().String()),
				zap.String("outcome", string(res.Outcome)),
			}
			if res.Err != nil {
				fields = append(fields, zap.Error(res.Err))
			}
			logger.Info("Operation result", fields...)
		}
		logger.Info("Sync finished", zap.String("summary", report.Summary()))

		os.Exit(report.ExitCode())
	},
}

func init() {
	syncCmd.Flags().StringVar(&zoneFile, "zone-file", "", "Path to the YAML zone file holding the desired state")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 5*time.Minute, "Overall deadline for the sync run, retry waits included")
	rootCmd.AddCommand(syncCmd)
}
