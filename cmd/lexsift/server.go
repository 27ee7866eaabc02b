package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/lexsift/lexsift/internal/api"
	"github.com/lexsift/lexsift/internal/blob"
	"github.com/lexsift/lexsift/internal/config"
	"github.com/lexsift/lexsift/internal/corpus"
	"github.com/lexsift/lexsift/internal/document"
	"github.com/lexsift/lexsift/internal/gemini"
	"github.com/lexsift/lexsift/internal/ingest"
	"github.com/lexsift/lexsift/internal/prompts"
	"github.com/lexsift/lexsift/internal/rag"
	"github.com/lexsift/lexsift/internal/retrieval"
	"github.com/lexsift/lexsift/internal/risk"
	"github.com/lexsift/lexsift/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lexsift server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "lexsift version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken := cfg.Auth.Token
	if apiToken == "" {
		apiToken = uuid.New().String()
		fmt.Fprintf(os.Stderr, "no LEXSIFT_AUTH_TOKEN set; generated API token: %s\n", apiToken)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Object storage for uploaded documents.
	blobStore, err := blob.New(ctx, blob.Config{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		Bucket:    cfg.Blob.Bucket,
		UseSSL:    cfg.Blob.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("connecting to object storage: %w", err)
	}

	// Retrieval plumbing: vector store, corpus manager, Gemini backend.
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	registry := document.NewRegistry()

	geminiClient, err := gemini.New(ctx, gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		CredentialsFile: cfg.Gemini.CredentialsFile,
		GenerationModel: cfg.Gemini.GenerationModel,
		EmbeddingModel:  cfg.Gemini.EmbeddingModel,
		GroundingTopK:   cfg.Retrieval.TopK,
	})
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}
	defer geminiClient.Close()
	if cfg.Gemini.ProjectID != "" {
		slog.Info("Gemini backend configured",
			"project", cfg.Gemini.ProjectID, "region", cfg.Gemini.Region,
			"model", cfg.Gemini.GenerationModel)
	}

	embedder := retrieval.NewEmbedder(geminiClient)
	corpora := corpus.NewManager(store, vectorStore, embedder)
	geminiClient.SetRetriever(corpora)

	orchestrator := rag.NewOrchestrator(registry, corpora, geminiClient)

	elaborator := risk.NewElaborator(geminiClient, prompts.Risks)
	extractor, err := risk.NewExtractor(risk.DefaultPatterns())
	if err != nil {
		return fmt.Errorf("compiling risk patterns: %w", err)
	}
	analyzer := risk.NewAnalyzer(extractor, elaborator)

	summarizeOpts := rag.Options{
		MaxAttempts:      cfg.Orchestration.MaxAttempts,
		WaitInterval:     time.Duration(cfg.Orchestration.WaitIntervalSeconds) * time.Second,
		MaxFallbackChars: cfg.Orchestration.SummarizeFallbackChars,
		TopK:             cfg.Retrieval.TopK,
	}
	chatOpts := summarizeOpts
	chatOpts.MaxFallbackChars = cfg.Orchestration.ChatFallbackChars

	handler := api.NewAppHandler(api.AppDeps{
		Registry:      registry,
		Orchestrator:  orchestrator,
		Corpora:       corpora,
		Risks:         analyzer,
		Blob:          blobStore,
		Token:         apiToken,
		SummarizeOpts: summarizeOpts,
		ChatOpts:      chatOpts,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start the import worker.
	worker := ingest.NewWorker(store, blobStore, embedder, vectorStore, 500*time.Millisecond)
	go worker.Run(ctx)

	// MCP server over stdio.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Registry:      registry,
		Orchestrator:  orchestrator,
		Risks:         analyzer,
		SummarizeOpts: summarizeOpts,
		ChatOpts:      chatOpts,
	})
	stdioSrv := mcpserver.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "lexsift listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
