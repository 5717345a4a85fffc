// Lambda function serving the portfolio sitemap behind API Gateway.
//
// Configuration comes from the environment (SITE_BASE_URL, QIITA_HANDLE,
// ZENN_HANDLE, NOTE_HANDLE) on top of the built-in defaults, or from the
// YAML file named by CONFIG_FILE.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"portfolio-feeds/pkg/config"
	"portfolio-feeds/pkg/pipeline"
	"portfolio-feeds/pkg/posts"
	"portfolio-feeds/pkg/sitemap"
)

// Handler builds the sitemap for every request
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Printf("Error loading config: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "configuration error"}, nil
	}

	return respond(ctx, req, newBuilder(cfg), cfg.Sitemap.CacheControl)
}

func newBuilder(cfg *config.Config) *sitemap.Builder {
	return sitemap.NewBuilder(cfg, posts.NewFileStore(cfg.Posts.Dir), pipeline.NewArticleSource(cfg))
}

func respond(ctx context.Context, req events.APIGatewayProxyRequest, builder *sitemap.Builder, cacheControl string) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != "" && req.HTTPMethod != http.MethodGet && req.HTTPMethod != http.MethodHead {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Headers:    map[string]string{"Allow": "GET, HEAD"},
		}, nil
	}

	if req.Path == "/debug/sitemap.xml" {
		cacheControl = sitemap.NoCacheControl
	}
	if cacheControl == "" {
		cacheControl = sitemap.DefaultCacheControl
	}

	data, err := builder.Build(ctx)
	if err != nil {
		log.Printf("Error building sitemap: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "failed to build sitemap"}, nil
	}

	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":  "application/xml",
			"Cache-Control": cacheControl,
		},
	}
	if req.HTTPMethod != http.MethodHead {
		resp.Body = string(data)
	}
	return resp, nil
}

func main() {
	lambda.Start(Handler)
}
