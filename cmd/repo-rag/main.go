// Package main provides the repo-rag CLI for ingesting and querying repositories.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/repo-rag/internal/app"
	"github.com/bull/repo-rag/internal/config"
	"github.com/bull/repo-rag/internal/github"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "repo-rag",
	Short:         "Ask questions about Git repositories",
	Long:          "Ingest Git repositories into Qdrant and answer questions about them with an LLM.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <repo-url>",
	Short: "Clone and index a repository",
	Long: `Clones the repository and rebuilds its collection from scratch.

This command:
1. Connects to Qdrant and verifies health
2. Clones the repository into REPO_BASE_PATH/<owner>-<name>
3. Loads files with recognized extensions and splits them into chunks
4. Drops and recreates the <owner>-<name> collection
5. Generates embeddings and stores the chunks

Environment variables:
  QDRANT_URL / QDRANT_API_KEY  Qdrant Cloud (both required)
  QDRANT_HOST / QDRANT_PORT    Local Qdrant (default: localhost:6334)
  OPENAI_API_KEY               OpenAI API key for embeddings (required)
  GITHUB_TOKEN                 GitHub token for private repos and rate limits (optional)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <repo-id> <question>",
	Short: "Answer a question about an ingested repository",
	Args:  cobra.ExactArgs(2),
	RunE:  runAsk,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (ingest, chat, health, metrics, MCP)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CONFIG_FILE or repo-rag.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().Int("port", 0, "listen port (overrides PORT)")
	rootCmd.AddCommand(ingestCmd, askCmd, serveCmd, mcpCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for invalid input and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, github.ErrInvalidURL) {
		return 2
	}
	return 1
}

func build(ctx context.Context) (*app.Components, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)
	return app.Build(ctx, cfg, logger)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Reject bad URLs before connecting to anything.
	repoID, err := github.ParseRepoID(args[0])
	if err != nil {
		return err
	}

	components, err := build(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	fmt.Printf("Ingesting %s...\n", repoID)
	result, err := components.Pipeline.Ingest(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Repository %s ingested successfully.\n", result.RepoID)
	fmt.Printf("  Commit: %s\n", result.CommitSHA)
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	for reason, n := range result.SkipReasons {
		fmt.Printf("  Skipped (%s): %d\n", reason, n)
	}
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	components, err := build(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	answer, err := components.Engine.Ask(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Println(answer)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	components, err := build(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	port := components.Config.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}
	return components.Serve(ctx, fmt.Sprintf("0.0.0.0:%d", port))
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	components, err := build(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	components.Logger.Info("Starting repo-rag MCP server (stdio mode)")
	return components.MCP.Run(ctx)
}
