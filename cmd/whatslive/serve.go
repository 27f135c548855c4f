package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DevRickLin/whats-live/internal/adapter"
	"github.com/DevRickLin/whats-live/internal/api"
	"github.com/DevRickLin/whats-live/internal/biz"
	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/conf"
	"github.com/DevRickLin/whats-live/internal/data"
	"github.com/DevRickLin/whats-live/internal/infra/commentapi"
	"github.com/DevRickLin/whats-live/internal/infra/feishu"
	"github.com/DevRickLin/whats-live/internal/infra/llm"
	"github.com/DevRickLin/whats-live/internal/infra/whatsapp"
	"github.com/DevRickLin/whats-live/internal/log"
	"github.com/DevRickLin/whats-live/internal/service"
)

const (
	pairingDelay    = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board API, webhook and presentation feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides WHATSLIVE_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg *conf.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.WithComponent("main")

	// Repositories
	var chat data.ChatClient
	if cfg.Classifier.Enabled() {
		chat = llm.NewClient(cfg.Classifier.APIKey, cfg.Classifier.BaseURL, cfg.Classifier.Model)
		logger.Info().Str("model", cfg.Classifier.Model).Msg("message classifier enabled")
	}
	repos, err := data.NewRepositories(cfg.Storage.DBPath, chat, cfg.Content.Classifier.SystemPrompt)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()
	logger.Info().Str("path", cfg.Storage.DBPath).Msg("settings database opened")

	// Usecases
	ucs, err := biz.NewUsecases(ctx, repos.Settings, cfg.ReportLocation)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Adapters
	var graph *whatsapp.GraphClient
	if cfg.WhatsApp.CloudEnabled() {
		graph = whatsapp.NewGraphClient(cfg.WhatsApp.GraphURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken)
	}

	sim := cfg.Content.Simulation
	registry := adapter.NewRegistry(
		adapter.NewSimulatedAdapter(domain.PlatformFacebook, sim, seedFor(sim.Seed, 1)),
		adapter.NewSimulatedAdapter(domain.PlatformInstagram, sim, seedFor(sim.Seed, 2)),
		adapter.NewYouTubeAdapter(commentapi.NewClient(cfg.CommentAPI.URL, cfg.CommentAPI.Timeout, cfg.CommentAPI.Rate)),
		adapter.NewPhoneAdapter(),
	)
	if graph != nil {
		registry.Register(adapter.NewWhatsAppAdapter(graph))
	} else {
		registry.Register(adapter.NewSimulatedAdapter(domain.PlatformWhatsApp, sim, seedFor(sim.Seed, 3)))
	}

	var feishuClient *feishu.Client
	var feishuAdapter *adapter.FeishuAdapter
	if cfg.Feishu.Enabled() {
		feishuClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
		feishuAdapter = adapter.NewFeishuAdapter(feishuClient)
		registry.Register(feishuAdapter)
	}

	// Services
	connections := service.NewConnectionService(ucs.Board, registry, repos.Classifier, cfg.RefreshInterval)
	defer connections.Stop()
	if secs := ucs.Settings.DisplayConfig().AutoRefreshInterval; secs > 0 {
		connections.ApplyAutoRefresh(time.Duration(secs) * time.Second)
	}

	events := service.NewBroker[domain.SessionEvent]()
	events.Start()
	defer events.Stop()

	var driver repo.SessionDriver
	if graph != nil {
		driver = whatsapp.NewCloudDriver(graph)
	} else {
		driver = whatsapp.NewPairingDriver(pairingDelay)
	}
	session := service.NewSession(driver, events, connections)
	defer session.Stop()

	if feishuClient != nil {
		feishuClient.OnMessage(func(m *feishu.Message) {
			conn, ok := ucs.Board.Connection(domain.PlatformFeishu)
			if !ok {
				return
			}
			msg, ok := feishuAdapter.Convert(conn, m)
			if !ok {
				return
			}
			if _, err := connections.Ingest(ctx, domain.PlatformFeishu, []domain.Message{msg}); err != nil {
				logger.Warn().Err(err).Msg("feishu message not stored")
			}
		})
		go func() {
			if err := feishuClient.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("feishu event socket stopped")
			}
		}()
		defer feishuClient.Stop()
	}

	// HTTP
	srv := api.NewServer(api.Options{
		Addr:        cfg.Server.Addr,
		VerifyToken: cfg.WhatsApp.VerifyToken,
	}, ucs.Board, ucs.Settings, ucs.Report, connections, session, events)
	if graph != nil {
		srv.SetProfileLookup(graph)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info().
		Str("addr", cfg.Server.Addr).
		Bool("whatsapp_cloud", graph != nil).
		Bool("feishu", feishuClient != nil).
		Str("version", version).
		Msg("whats-live started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// seedFor derives a per-adapter seed; zero keeps clock seeding
func seedFor(seed int64, n int64) int64 {
	if seed == 0 {
		return 0
	}
	return seed + n
}
