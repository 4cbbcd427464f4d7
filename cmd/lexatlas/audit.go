package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tool execution audit trail",
	}

	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent tool executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flush, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer flush()

			store, err := openAudit(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("auditing is disabled (no audit path configured)")
			}
			defer store.Close()

			entries, err := store.Tail(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %s  %s/%s  %s",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.SessionID, e.Server, e.Tool, e.Status)
				if e.ErrorMessage.Valid {
					line += "  " + e.ErrorMessage.String
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	tail.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")

	cmd.AddCommand(tail)
	return cmd
}
