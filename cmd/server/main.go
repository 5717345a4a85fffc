package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/pipeline"
	"portfolio-feeds/pkg/posts"
	"portfolio-feeds/pkg/sitemap"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults plus environment when empty)")
		addr       = flag.String("addr", ":8080", "Listen address")
		publicDir  = flag.String("public", "public", "Directory served as static files")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf(".env file not loaded: %v (using environment variables only)", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	builder := sitemap.NewBuilder(cfg, posts.NewFileStore(cfg.Posts.Dir), pipeline.NewArticleSource(cfg))

	mux := http.NewServeMux()
	mux.Handle("/sitemap.xml", sitemap.NewHandler(builder, cfg.Sitemap.CacheControl))
	mux.Handle("/debug/sitemap.xml", sitemap.NewNoCacheHandler(builder))
	mux.Handle("/", http.FileServer(http.Dir(*publicDir)))

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Sitemap.Timeout() + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Serving %s on %s (sitemap base %s)", *publicDir, *addr, cfg.Site.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Printf("Server stopped")
}
