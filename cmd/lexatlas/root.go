package main

import (
	"github.com/spf13/cobra"

	"github.com/lexatlas/lexatlas/common/version"
	"github.com/lexatlas/lexatlas/internal/audit"
	"github.com/lexatlas/lexatlas/internal/config"
	"github.com/lexatlas/lexatlas/internal/observability"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "lexatlas",
		Short:   "Conversational cross-linguistic data pipeline",
		Long:    "LexAtlas collects, validates, and clusters cross-linguistic lexical data\nthrough a conversational assistant or direct pipeline commands.",
		Version: version.Info(),

		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(
		newChatCmd(&configPath),
		newValidateCmd(),
		newNormalizeCmd(),
		newMatrixCmd(),
		newClusterCmd(&configPath),
		newMapLayerCmd(),
		newExportCmd(),
		newAuditCmd(&configPath),
	)
	return cmd
}

// loadApp loads configuration and sets up logging. The returned cleanup
// flushes log buffers and must run before exit.
func loadApp(configPath string) (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	flush := observability.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, flush, nil
}

// openAudit opens the audit trail when one is configured. A nil store means
// auditing is disabled.
func openAudit(cfg *config.Config) (*audit.Store, error) {
	if cfg.Audit.Path == "" {
		return nil, nil
	}
	return audit.Open(cfg.Audit.Path)
}
