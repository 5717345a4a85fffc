package sitemap

import (
	"log"
	"net/http"
	"strconv"

	"portfolio-feeds/pkg/config"
)

// DefaultCacheControl lets CDNs and browsers reuse the document for an hour
const DefaultCacheControl = "public, max-age=3600, s-maxage=3600"

// NoCacheControl is used by the debugging variant of the route
const NoCacheControl = "no-store, no-cache, must-revalidate"

// NewBuilder creates a builder from the site and sitemap configuration
func NewBuilder(cfg *config.Config, posts PostSource, articles ArticleSource) *Builder {
	return &Builder{
		BaseURL:      cfg.Site.BaseURL,
		StaticRoutes: cfg.Site.StaticRoutes,
		Posts:        posts,
		Articles:     articles,
		Timeout:      cfg.Sitemap.Timeout(),
	}
}

// Handler serves the sitemap document over HTTP
type Handler struct {
	builder      *Builder
	cacheControl string
}

// NewHandler creates a handler that sends the given Cache-Control directive
func NewHandler(builder *Builder, cacheControl string) *Handler {
	if cacheControl == "" {
		cacheControl = DefaultCacheControl
	}
	return &Handler{
		builder:      builder,
		cacheControl: cacheControl,
	}
}

// NewNoCacheHandler creates a handler whose responses are never cached
func NewNoCacheHandler(builder *Builder) *Handler {
	return NewHandler(builder, NoCacheControl)
}

// ServeHTTP builds a fresh document for every request
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := h.builder.Build(r.Context())
	if err != nil {
		log.Printf("Sitemap: ERROR building document: %v", err)
		http.Error(w, "failed to build sitemap", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodGet {
		w.Write(data)
	}
}
