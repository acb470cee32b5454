package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"litscout/internal/agent"
	"litscout/internal/api"
	"litscout/internal/config"
	"litscout/internal/memory"
	"litscout/internal/parser"
	"litscout/internal/providers"
	"litscout/internal/sources"
	"litscout/internal/store"
	"litscout/internal/vector"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger

	planTopic       string
	planSession     string
	planMaxRounds   int
	planSearchLimit int

	serveAddr string
)

var rootCmd = &cobra.Command{
	Use:   "litscout",
	Short: "litscout - planner-driven literature exploration agent",
	Long: `litscout explores scientific literature one session at a time: a planner
chooses search, read, summarize or finish each round, the executor runs the
action against arXiv/OpenAlex and a per-session vector index, and every round
is checkpointed so interrupted sessions resume where they stopped.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")
		logConfig := zap.NewProductionConfig()
		if verbose {
			logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = logConfig.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run a planner-driven exploration session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(planTopic) == "" {
			return fmt.Errorf("--topic is required")
		}
		cfg := config.Load()
		if planMaxRounds > 0 {
			cfg.MaxRounds = planMaxRounds
		}
		if planSearchLimit > 0 {
			cfg.SearchLimit = planSearchLimit
		}
		sessionID := planSession
		if sessionID == "" {
			sessionID = uuid.NewString()[:8]
		}

		layout := store.NewLayout(cfg.DataRoot)
		if err := layout.EnsureDirs(); err != nil {
			return fmt.Errorf("prepare data dirs: %w", err)
		}
		idx, err := vector.Open(layout.VectorDB(), logger)
		if err != nil {
			return fmt.Errorf("open vector index: %w", err)
		}
		defer idx.Close()

		pm, err := providers.NewManager(cfg)
		if err != nil {
			return fmt.Errorf("configure providers: %w", err)
		}
		srcs, err := sources.ForConfig(cfg, logger)
		if err != nil {
			return err
		}

		exec := agent.New(cfg, agent.Params{
			Sources:  srcs,
			Fetcher:  sources.NewFetcher(cfg, logger),
			Parser:   parser.NewPDFParser(cfg, pm.Vision(), logger),
			LLM:      pm.FirstLLMProvider(),
			Embedder: pm.FirstEmbedProvider(),
			Index:    idx,
			Sessions: store.NewSessionStore(layout),
			Chunks:   store.NewChunkStore(layout),
			Layout:   layout,
			Memories: memory.New(cfg, layout, logger),
			Log:      logger,
		})

		note, err := exec.Run(cmd.Context(), sessionID, planTopic)
		if err != nil {
			return err
		}
		fmt.Printf("session %s finished: %d papers, %d findings, %d warnings\n",
			sessionID, len(note.Papers), len(note.Findings), len(note.Warnings))
		fmt.Printf("note: %s\n", layout.NotePath(sessionID))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List finished sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		layout := store.NewLayout(cfg.DataRoot)
		ids, err := store.NewSessionStore(layout).ListSessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve session notes and the paper log over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if serveAddr != "" {
			cfg.APIAddr = serveAddr
		}
		layout := store.NewLayout(cfg.DataRoot)
		if err := layout.EnsureDirs(); err != nil {
			return fmt.Errorf("prepare data dirs: %w", err)
		}
		srv := api.NewServer(cfg, store.NewSessionStore(layout), logger)
		return srv.ListenAndServe()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	planCmd.Flags().StringVar(&planTopic, "topic", "", "research topic to explore")
	planCmd.Flags().StringVar(&planSession, "session", "", "session id (resumes when it exists, random when empty)")
	planCmd.Flags().IntVar(&planMaxRounds, "max-rounds", 0, "override the planner round budget")
	planCmd.Flags().IntVar(&planSearchLimit, "search-limit", 0, "override results per search query")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to LITSCOUT_API_ADDR)")

	rootCmd.AddCommand(planCmd, sessionsCmd, serveCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
