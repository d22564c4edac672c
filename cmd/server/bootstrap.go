package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arvandy/moodmate/internal/ai"
	"github.com/arvandy/moodmate/internal/api"
	"github.com/arvandy/moodmate/internal/app"
	"github.com/arvandy/moodmate/internal/app/maintenance"
	iauth "github.com/arvandy/moodmate/internal/auth"
	"github.com/arvandy/moodmate/internal/cache"
	"github.com/arvandy/moodmate/internal/database"
	"github.com/arvandy/moodmate/internal/middleware"
	"github.com/arvandy/moodmate/internal/services"
	"github.com/arvandy/moodmate/pkg/logger"
	"github.com/arvandy/moodmate/pkg/mail"
)

// runtimeStack bundles long-lived resources used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *cache.RedisStore
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var store cache.Store = cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		redisStore, redisErr := cache.NewRedisStore(cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(redisErr))
		} else {
			stack.Redis = redisStore
			store = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	tokens, err := iauth.NewTokenService(iauth.JWTConfig{
		AccessSecret:    cfg.Auth.JWT.AccessSecret,
		RefreshSecret:   cfg.Auth.JWT.RefreshSecret,
		Issuer:          cfg.Auth.JWT.Issuer,
		AccessTokenTTL:  cfg.Auth.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.JWT.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	sessions, err := iauth.NewSessionService(stack.DB, tokens, iauth.SessionConfig{
		RefreshTokenTTL: cfg.Auth.JWT.RefreshTokenTTL,
		Cache:           iauth.NewSessionStoreCache(store),
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	users, err := services.NewUserService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	verifications, err := services.NewVerificationService(stack.DB,
		services.WithVerificationExpiry(cfg.Auth.Verification.TTL))
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	authSvc, err := services.NewAuthService(users, verifications, sessions, tokens, mailer, services.AuthConfig{
		VerificationTTL: cfg.Auth.Verification.TTL,
		BaseURL:         cfg.Server.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}

	var embedder ai.Embedder
	var chat ai.ChatModel
	if cfg.AI.Enabled {
		gemini, aiErr := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:     cfg.AI.APIKey,
			ChatModel:  cfg.AI.ChatModel,
			EmbedModel: cfg.AI.EmbedModel,
		})
		if aiErr != nil {
			log.Warn("gemini unavailable; embeddings and chat disabled", zap.Error(aiErr))
		} else {
			embedder = gemini
			chat = gemini
		}
	}

	moods, err := services.NewMoodService(stack.DB, embedder, chat)
	if err != nil {
		return nil, fmt.Errorf("initialise mood service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(sessions, verifications)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Deps{
		DB:          stack.DB,
		Tokens:      tokens,
		Users:       users,
		Auth:        authSvc,
		Moods:       moods,
		RateStore:   middleware.NewStoreRateStore(store),
		RateLimit:   cfg.Server.RateLimit,
		RateWindow:  cfg.Server.RateWindow,
		FrontendURL: cfg.Server.FrontendURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
