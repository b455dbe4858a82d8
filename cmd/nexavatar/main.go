package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scsonic/nexavatar/api/brand"
	"github.com/scsonic/nexavatar/api/config"
	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/server"
	"github.com/scsonic/nexavatar/api/services"
	"github.com/scsonic/nexavatar/api/store"
	"github.com/scsonic/nexavatar/pkg/otel"
	"github.com/scsonic/nexavatar/shared/circuit"
	"github.com/scsonic/nexavatar/shared/db"
	"github.com/scsonic/nexavatar/shared/httpclient"
	"github.com/scsonic/nexavatar/shared/jsonutil"
	"github.com/scsonic/nexavatar/shared/llm"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "nexavatar",
		Short: "NexAvatar - conversational avatar backend",
		Long: `NexAvatar serves the multi-brand conversational widget: chat,
speech synthesis, access code auth and the admin surface.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		codesCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	result, err := otel.Init(otel.Config{
		ServiceName:  "nexavatar-api",
		Environment:  cfg.Otel.Environment,
		ExportTraces: cfg.Otel.ExportTraces,
	})
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		slog.SetDefault(slog.New(otel.NewPrettyHandler()))
	} else {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			result.Shutdown(shutdownCtx)
		}()
		slog.SetDefault(result.Logger)
	}

	slog.Info("starting nexavatar backend", "version", version)
	slog.Info("server configured", "host", cfg.Server.Host, "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("connecting to database")
	pool, err := db.Connect(ctx, db.Config{URL: cfg.Database.URL, Timezone: "UTC"})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	s := store.New(pool)
	brands := brand.NewRegistry()

	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey,
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens))

	authSvc := services.NewAuthService(s)
	chatSvc := services.NewChatService(llmClient, s, brands, cfg.LLM.Model, cfg.LLM.MaxTokens, slog.Default())

	ttsBreaker := circuit.New(5, 30*time.Second)
	ttsSvc := services.NewTTSService(httpclient.NewLong(), ttsBreaker, cfg.TTS.URL, cfg.TTS.DefaultVoice)
	if !ttsSvc.Configured() {
		slog.Warn("tts backend not configured, speech synthesis disabled")
	}

	srv := server.NewServer(cfg, s, authSvc, chatSvc, ttsSvc, ttsBreaker, brands)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "host", cfg.Server.Host, "port", cfg.Server.Port)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		slog.Info("server stopped")
	}
	return nil
}

func codesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage access codes",
	}
	cmd.AddCommand(codesGenerateCmd(), codesListCmd())
	return cmd
}

func withAuthService(fn func(ctx context.Context, svc *services.AuthService) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, db.Config{URL: cfg.Database.URL, Timezone: "UTC"})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, services.NewAuthService(store.New(pool)))
}

func codesGenerateCmd() *cobra.Command {
	var permanent bool
	var description string
	var count int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random access codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			codeType := domain.CodeOneTime
			if permanent {
				codeType = domain.CodePermanent
			}
			return withAuthService(func(ctx context.Context, svc *services.AuthService) error {
				for i := 0; i < count; i++ {
					code, err := svc.GenerateCode(ctx, codeType, description)
					if err != nil {
						return err
					}
					fmt.Printf("%s  (%s)\n", code.Code, code.Type)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&permanent, "permanent", false, "generate permanent codes instead of one-time")
	cmd.Flags().StringVar(&description, "description", "", "description stored with the codes")
	cmd.Flags().IntVar(&count, "count", 1, "number of codes to generate")
	return cmd
}

func codesListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List access codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuthService(func(ctx context.Context, svc *services.AuthService) error {
				codes, err := svc.ListCodes(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					fmt.Println(jsonutil.MustMarshalIndent(codes))
					return nil
				}
				for _, c := range codes {
					status := "unused"
					if c.IsUsed {
						status = "used"
					}
					fmt.Printf("%s  %-9s  %-6s  %s\n", c.Code, c.Type, status, c.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print codes as JSON")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NexAvatar %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
