// cmd/rentvideo/app.go
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rentvideo/internal/account"
	"rentvideo/internal/auth"
	"rentvideo/internal/catalog"
	"rentvideo/internal/config"
	"rentvideo/internal/database"
	"rentvideo/internal/eventlog"
	"rentvideo/internal/httpapi"
	"rentvideo/internal/rental"
)

// app holds the wired services shared by the subcommands.
type app struct {
	db       *database.DB
	events   *eventlog.Log
	tokens   *auth.Tokens
	accounts account.Service
	catalog  catalog.Service
	rentals  rental.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	events := eventlog.NewLog()
	videoRepo := catalog.NewRepository()
	userRepo := account.NewRepository()

	limit := rate.Inf
	if cfg.Auth.LoginPerMinute > 0 {
		limit = rate.Limit(float64(cfg.Auth.LoginPerMinute) / 60)
	}
	accounts := account.NewService(db, userRepo, events, logger,
		account.WithRateLimit(limit, cfg.Auth.LoginBurst))

	rentals, err := rental.NewService(db, rental.NewRepository(), videoRepo, userRepo, events, logger,
		rental.WithLocation(cfg.Location()),
		rental.WithLateFeeRate(cfg.LateFeeRate()),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create rental service: %w", err)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn("no JWT secret configured, using the development secret")
		secret = "rentvideo-development-secret"
	}

	return &app{
		db:       db,
		events:   events,
		tokens:   auth.NewTokens(secret, cfg.TokenTTL()),
		accounts: accounts,
		catalog:  catalog.NewService(db, videoRepo, events, logger),
		rentals:  rentals,
	}, nil
}

func (a *app) deps(logger *zap.Logger) httpapi.Deps {
	return httpapi.Deps{
		DB:       a.db,
		Tokens:   a.tokens,
		Accounts: a.accounts,
		Catalog:  a.catalog,
		Rentals:  a.rentals,
		Events:   a.events,
		Logger:   logger,
	}
}

func (a *app) Close() error {
	return a.db.Close()
}
