package db

import (
	"context"
	"log"

	"portfolio-feeds/pkg/config"
)

// Sinks holds the archive sinks that were configured and reachable
type Sinks struct {
	Savers []ArticleSaver
	Mongo  *Client
	SQL    DBProvider

	closers []func(ctx context.Context) error
}

// Open connects every archive sink enabled in cfg.
// Archiving is optional, so a sink that cannot connect is logged and left out.
func Open(ctx context.Context, cfg config.ArchiveConfig) *Sinks {
	sinks := &Sinks{}

	if cfg.MongoURI != "" {
		client := NewClient(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err := client.Connect(ctx); err != nil {
			log.Printf("Archive: MongoDB unavailable, skipping: %v", err)
		} else {
			sinks.Mongo = client
			sinks.add(client, client.Close)
		}
	}

	if cfg.PostgresDSN != "" {
		client := NewPostgresClient(PostgresConfig{DSN: cfg.PostgresDSN, MaxOpenConns: 5})
		if err := client.Connect(ctx); err != nil {
			log.Printf("Archive: Postgres unavailable, skipping: %v", err)
		} else {
			sinks.SQL = client
			sinks.add(client, func(context.Context) error { return client.Close() })
		}
	}

	if cfg.SupabaseURL != "" && (cfg.SupabaseKey != "" || cfg.SupabasePassword != "") {
		client := NewSupabaseClient(SupabaseConfig{
			SupabaseURL:  cfg.SupabaseURL,
			SupabaseKey:  cfg.SupabaseKey,
			Password:     cfg.SupabasePassword,
			Table:        cfg.SupabaseTable,
			MaxOpenConns: 5,
		})
		if err := client.Connect(ctx); err != nil {
			log.Printf("Archive: Supabase unavailable, skipping: %v", err)
		} else {
			if sinks.SQL == nil && client.HasDirectDB() {
				sinks.SQL = client
			}
			sinks.add(client, func(context.Context) error { return client.Close() })
		}
	}

	log.Printf("Archive: %d sinks enabled", len(sinks.Savers))
	return sinks
}

func (s *Sinks) add(saver ArticleSaver, closer func(ctx context.Context) error) {
	s.Savers = append(s.Savers, saver)
	s.closers = append(s.closers, closer)
}

// Close disconnects every sink
func (s *Sinks) Close(ctx context.Context) {
	for _, closer := range s.closers {
		if err := closer(ctx); err != nil {
			log.Printf("Archive: error closing sink: %v", err)
		}
	}
}
