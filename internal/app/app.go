// Package app assembles the pieces shared by the API server and the job CLI.
package app

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/config"
	"github.com/01moynul/collabhub-golang/internal/connections"
	"github.com/01moynul/collabhub-golang/internal/database"
	"github.com/01moynul/collabhub-golang/internal/jobs"
	"github.com/01moynul/collabhub-golang/internal/social"
)

// Core is the database plus everything built directly on top of it.
type Core struct {
	DB          *sql.DB
	Social      *social.Registry
	Connections *connections.Service
	Jobs        *jobs.Runner
}

// Open connects to the primary database and builds the social registry and job runner.
func Open(cfg *config.Config, log *zap.Logger) (*Core, error) {
	db, err := database.OpenDB(cfg.PrimaryDSN, log)
	if err != nil {
		return nil, fmt.Errorf("primary database: %w", err)
	}

	registry := Registry(cfg)
	conns := &connections.Service{DB: db, Social: registry}

	return &Core{
		DB:          db,
		Social:      registry,
		Connections: conns,
		Jobs: &jobs.Runner{
			DB:          db,
			Connections: conns,
			Log:         log.Named("jobs"),
			Concurrency: cfg.RefreshConcurrency,
		},
	}, nil
}

// Registry registers the platforms that have credentials.
func Registry(cfg *config.Config) *social.Registry {
	return social.FromApps(social.Apps{
		TikTokKey:         cfg.TikTok.ClientID,
		TikTokSecret:      cfg.TikTok.ClientSecret,
		TikTokRedirect:    cfg.TikTok.RedirectURL,
		InstagramID:       cfg.Instagram.ClientID,
		InstagramSecret:   cfg.Instagram.ClientSecret,
		InstagramRedirect: cfg.Instagram.RedirectURL,
		RatePerSecond:     cfg.RefreshRatePerSec,
	})
}

// Close releases the database pool.
func (c *Core) Close() error {
	return c.DB.Close()
}
