package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lexatlas/lexatlas/common/trace"
	"github.com/lexatlas/lexatlas/common/version"
	"github.com/lexatlas/lexatlas/internal/cluster"
	"github.com/lexatlas/lexatlas/internal/config"
	"github.com/lexatlas/lexatlas/internal/llm"
	"github.com/lexatlas/lexatlas/internal/orchestrator"
	"github.com/lexatlas/lexatlas/internal/session"
	"github.com/lexatlas/lexatlas/internal/tools"
)

func newChatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive analysis session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flush, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer flush()
			return runChat(cmd.Context(), cfg)
		},
	}
}

func runChat(ctx context.Context, cfg *config.Config) error {
	auditStore, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if auditStore != nil {
		defer auditStore.Close()
	}

	provider := llm.New(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	store := session.NewStore(session.Config{
		MaxSessions: cfg.Session.MaxSessions,
		MaxHistory:  cfg.Session.MaxHistory,
	})
	executor := &tools.Executor{
		LLM:       provider,
		Clusterer: cluster.Engine{},
		Defaults: tools.ClusterDefaults{
			MinClusterSize: cfg.Cluster.MinClusterSize,
			MinSamples:     cfg.Cluster.MinSamples,
			Metric:         cfg.Cluster.Metric,
		},
	}
	if auditStore != nil {
		executor.Audit = auditStore
	}
	orch := orchestrator.New(store, provider)

	sessionID := uuid.NewString()
	fmt.Printf("LexAtlas %s\n", version.Info())
	fmt.Printf("Session: %s\n", sessionID)
	fmt.Println("Commands: /upload <file.csv>, /save <file.csv>, /quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lastCSV, lastFilename string
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		var message, uploadedCSV string
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return scanner.Err()
		case strings.HasPrefix(line, "/save"):
			target := strings.TrimSpace(strings.TrimPrefix(line, "/save"))
			if err := saveCSV(lastCSV, lastFilename, target); err != nil {
				fmt.Println(err)
			}
			continue
		case strings.HasPrefix(line, "/upload "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/upload "))
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("cannot read %s: %v\n", path, err)
				continue
			}
			uploadedCSV = string(data)
		default:
			message = line
		}

		turnCtx := trace.WithID(ctx, trace.NewID())
		result := orch.ProcessTurn(turnCtx, sessionID, message, uploadedCSV)

		switch result.Kind {
		case orchestrator.KindError, orchestrator.KindText:
			fmt.Println(result.Content)

		case orchestrator.KindToolCall:
			content := orchestrator.CleanReply(result.Content)
			if result.BlockedReason != "" {
				fmt.Printf("%s\n\n⚠️ **Cannot execute tool:** %s\n", content, result.BlockedReason)
				continue
			}

			toolResult := executor.Execute(turnCtx, result.Call)
			orch.FoldResult(sessionID, result.Call, toolResult)

			if content == "" {
				content = orchestrator.DefaultResponse(result.Call.ID.Tool)
			}
			fmt.Println(content + orchestrator.FormatResult(result.Call.ID.Tool, toolResult))

			if csvData, ok := toolResult["csv"].(string); ok && csvData != "" {
				lastCSV = csvData
				lastFilename, _ = toolResult["filename"].(string)
			}
		}
		fmt.Println()
	}
	return scanner.Err()
}

// saveCSV writes the most recent CSV payload to disk, falling back to the
// export's suggested filename.
func saveCSV(csvData, suggested, target string) error {
	if csvData == "" {
		return fmt.Errorf("no CSV data produced yet")
	}
	if target == "" {
		target = suggested
	}
	if target == "" {
		target = "lexatlas_output.csv"
	}
	if err := os.WriteFile(target, []byte(csvData), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", target, err)
	}
	fmt.Printf("Saved %s\n", target)
	return nil
}
