package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/halwest-tech/kurdish-chat/backend/internal/config"
	"github.com/halwest-tech/kurdish-chat/backend/internal/handler"
	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/assistant"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/auth"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/identity"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/profile"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/speech"
	"github.com/halwest-tech/kurdish-chat/backend/internal/service/workspace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.Init(cfg.Log)

	provider, err := newIdentityProvider(cfg.Identity)
	if err != nil {
		logger.Error("failed to initialize identity provider", "error", err)
		os.Exit(1)
	}

	profiles, closeProfiles, err := newProfileStore(ctx, cfg.Profile)
	if err != nil {
		logger.Error("failed to initialize profile store", "store", cfg.Profile.Store, "error", err)
		os.Exit(1)
	}
	defer closeProfiles()

	backend := newChatBackend(ctx, cfg)

	speechService := speech.NewService(cfg.Speech.ServiceConfig())
	if speechService.Enabled() {
		logger.Info("speech service initialized", "baseUrl", cfg.Speech.BaseURL)
	} else {
		logger.Warn("speech credentials not configured, voice features disabled")
	}

	registry := workspace.NewRegistry(workspace.Dependencies{
		Provider: provider,
		Profiles: profiles,
		Backend:  backend,
		Speech:   speechService,
		AuthOptions: auth.Options{
			MaxRetries: cfg.Identity.MaxRetries,
			RetryDelay: cfg.Identity.RetryDelay,
		},
		TelegramID: cfg.Chat.TelegramID,
	})
	defer registry.CloseAll()

	router := handler.NewRouter(handler.RouterConfig{
		Registry:       registry,
		Speech:         speechService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	defer router.Shutdown()

	startServer(ctx, cfg.Server, router)
}

func newIdentityProvider(cfg config.IdentityConfig) (identity.Provider, error) {
	switch cfg.Provider {
	case config.IdentityFirebase:
		logger.Info("using firebase identity provider")
		return identity.NewFirebaseProvider(identity.FirebaseConfig{
			APIKey:  cfg.FirebaseAPIKey,
			BaseURL: cfg.FirebaseBaseURL,
			Timeout: cfg.Timeout,
		})
	case config.IdentityLocal:
		logger.Warn("using in-memory identity provider, accounts are lost on restart")
		return identity.NewLocalProvider(cfg.JWTSecret, cfg.TokenTTL), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}

func newProfileStore(ctx context.Context, cfg config.ProfileConfig) (profile.Store, func(), error) {
	switch cfg.Store {
	case config.ProfileMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := profile.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("profile store connected", "store", "mongo", "database", cfg.MongoDatabase)
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				logger.Warn("failed to close mongo client", "error", err)
			}
		}, nil
	case config.ProfileMySQL:
		store, err := profile.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("profile store connected", "store", "mysql")
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close mysql connection", "error", err)
			}
		}, nil
	default:
		logger.Info("profile store in memory")
		return profile.NewMemoryStore(), func() {}, nil
	}
}

// newChatBackend 优先使用外部聊天接口，其次使用 Ark 模型在本地生成回复。
func newChatBackend(ctx context.Context, cfg *config.Config) assistant.Backend {
	if cfg.Chat.Enabled() {
		backend, err := assistant.NewHTTPBackend(cfg.Chat.Endpoint, cfg.Chat.Timeout)
		if err == nil {
			logger.Info("chat backend configured", "endpoint", cfg.Chat.Endpoint)
			return backend
		}
		logger.Error("invalid chat backend endpoint", "error", err)
	}

	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Error("failed to initialize ark chat model", "error", err)
			return assistant.Unconfigured()
		}
		backend, err := assistant.NewArkBackend(ctx, chatModel)
		if err != nil {
			logger.Error("failed to build ark chain", "error", err)
			return assistant.Unconfigured()
		}
		logger.Info("chat replies generated with ark", "model", cfg.AI.Model)
		return backend
	}

	logger.Warn("no chat backend configured, set CHAT_API_URL or Ark credentials")
	return assistant.Unconfigured()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("kurdish chat backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
