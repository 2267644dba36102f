package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
//
// The function serves the whole API behind an HTTP API (payload v2).
// Without DATABASE_URL it runs on in-memory repositories, which suits the
// synchronous POST /api/research route.

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"marketsauce-agent/internal/bootstrap"
	"marketsauce-agent/internal/shared/config"
	"marketsauce-agent/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	started := time.Now()
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
	telemetry.Info("lambda.http.cold_start", map[string]any{
		"store":   storeKind(cfg.DatabaseURL),
		"init_ms": time.Since(started).Milliseconds(),
		"llm":     cfg.LLMProvider,
	})
}

func storeKind(databaseURL string) string {
	if databaseURL == "" {
		return "memory"
	}
	return "postgres"
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.http.bootstrap_failed", map[string]any{
			"error":  initErr.Error(),
			"method": req.RequestContext.HTTP.Method,
			"path":   req.RawPath,
		})
		return errorResponse("BOOTSTRAP_FAILED", "bootstrap failed"), initErr
	}
	if ginLambda == nil {
		return errorResponse("INTERNAL_ERROR", "router not initialized"), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

// errorResponse mirrors the API error envelope for failures outside gin.
func errorResponse(code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]any{
		"error":  map[string]string{"code": code, "message": message},
		"detail": message,
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}
