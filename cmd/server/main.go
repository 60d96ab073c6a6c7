// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oauthforge/oauth2"
	"github.com/oauthforge/oauth2/examplemodel/pgmodel"
	"github.com/oauthforge/oauth2/internal/config"
	"github.com/oauthforge/oauth2/internal/observability/logger"
	"github.com/oauthforge/oauth2/internal/observability/metrics"
	"github.com/oauthforge/oauth2/internal/observability/tracing"
	transportHTTP "github.com/oauthforge/oauth2/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting oauth2 authorization server")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
		os.Exit(1)
	}
	defer tracer.Shutdown(ctx)

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		os.Exit(1)
	}

	db, err := pgmodel.New(ctx, pgmodel.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to apply schema", logger.Error(err))
		os.Exit(1)
	}

	hasher := pgmodel.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	pgStore := pgmodel.NewModel(db, hasher)

	server := oauth2.NewServer(pgStore,
		oauth2.WithTokenDefaults(oauth2.TokenOptions{
			AccessTokenLifetime:          cfg.OAuth2.AccessTokenLifetime,
			RefreshTokenLifetime:         cfg.OAuth2.RefreshTokenLifetime,
			AllowExtendedTokenAttributes: cfg.OAuth2.AllowExtendedTokenAttributes,
			RequireClientAuthentication:  map[string]bool{},
			AlwaysIssueNewRefreshToken:   boolPtr(cfg.OAuth2.AlwaysIssueNewRefreshToken),
			Realm:                        cfg.OAuth2.Realm,
		}),
		oauth2.WithAuthorizeDefaults(oauth2.AuthorizeOptions{
			AuthorizationCodeLifetime: cfg.OAuth2.AuthorizationCodeLifetime,
		}),
		oauth2.WithAuthenticateDefaults(oauth2.AuthenticateOptions{
			AddAcceptedScopesHeader:   true,
			AddAuthorizedScopesHeader: true,
			Realm:                     cfg.OAuth2.Realm,
		}),
	)

	auditLogger := logger.NewAuditLogger(slog.Default())

	handler, err := transportHTTP.NewHandler(server, auditLogger, tracer, meter)
	if err != nil {
		slog.Error("failed to initialize http handler", logger.Error(err))
		os.Exit(1)
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("listening", logger.Component("server"), logger.Operation("listen"))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := pgmodel.New(ctx, pgmodel.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("applying schema...")
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	fmt.Println("migration successful")
	return nil
}

func boolPtr(b bool) *bool { return &b }
