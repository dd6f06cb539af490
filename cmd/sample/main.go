// Command sample runs a small esmerald API that touches every major
// feature: includes, url patterns, websockets, bearer auth and the
// generated OpenAPI document.
//
// Run:
//
//	go run ./cmd/sample
//
// Generate the OpenAPI document:
//
//	go run ./cmd/sample -spec                  # JSON to stdout
//	go run ./cmd/sample -spec -yaml -o api.yml # YAML to a file
//	go run ./cmd/sample -verify                # load, validate and compile it
//
// Then explore:
//
//	GET  http://localhost:8080/openapi.json
//	GET  http://localhost:8080/docs
//	GET  http://localhost:8080/v1/health
//	GET  http://localhost:8080/v1/users
//	GET  http://localhost:8080/v1/me          (Authorization: Bearer <jwt>)
//	GET  ws://localhost:8080/v1/ws/echo
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sholola-Gbolahan/esmerald"
	"github.com/Sholola-Gbolahan/esmerald/cmd/sample/users"
	"github.com/Sholola-Gbolahan/esmerald/urls"
)

func main() {
	specFlag := flag.Bool("spec", false, "Print the OpenAPI document and exit")
	yamlFlag := flag.Bool("yaml", false, "Write the document as YAML (with -spec)")
	outFlag := flag.String("o", "", "Output file for the document (with -spec)")
	verifyFlag := flag.Bool("verify", false, "Verify the generated document and exit")
	configFlag := flag.String("config", "", "YAML file with OpenAPI metadata")
	addrFlag := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := esmerald.OpenAPIConfig{
		Title:       "Sample API",
		Version:     "1.0.0",
		Description: "Users, sessions and an echo socket.",
		SpecURL:     "/openapi.json",
		DocsURL:     "/docs",
	}
	if *configFlag != "" {
		loaded, err := esmerald.LoadOpenAPIConfig(*configFlag)
		if err != nil {
			logger.Error("load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()

	r, err := newRouter(cfg, logger, tp, mp)
	if err != nil {
		logger.Error("build router", "err", err)
		os.Exit(1)
	}

	switch {
	case *verifyFlag:
		if err := esmerald.Verify(context.Background(), r.Spec()); err != nil {
			logger.Error("verify", "err", err)
			os.Exit(1)
		}
		logger.Info("document is valid", "paths", len(r.Spec().Paths))
		return
	case *specFlag:
		if err := writeSpec(r, *outFlag, *yamlFlag); err != nil {
			logger.Error("spec generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting server", "addr", *addrFlag)
	if err := r.ListenAndServe(ctx, *addrFlag); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := errors.Join(tp.Shutdown(shutdownCtx), mp.Shutdown(shutdownCtx)); err != nil {
		logger.Error("telemetry shutdown", "err", err)
	}
	logger.Info("server stopped")
}

func newRouter(cfg esmerald.OpenAPIConfig, logger *slog.Logger, tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) (*esmerald.Router, error) {
	secret := []byte(os.Getenv("SAMPLE_JWT_SECRET"))
	if len(secret) == 0 {
		secret = []byte("sample-secret")
	}

	r := esmerald.New(
		esmerald.WithOpenAPIConfig(cfg),
		esmerald.WithLogger(logger),
		esmerald.WithTracer(esmerald.OTelTracer(tp)),
		esmerald.WithSecurityScheme(esmerald.BearerSchemeName, esmerald.BearerScheme()),
		esmerald.WithTagDescriptions(map[string]string{
			"ops":   "Operational endpoints",
			"users": "User management",
		}),
	)
	r.Use(
		esmerald.Recovery(logger),
		esmerald.RequestID(),
		esmerald.Logger(logger),
		esmerald.TrustedHosts(esmerald.TrustedHostConfig{
			AllowedHosts: []string{"localhost", "127.0.0.1", "*.example.com"},
		}),
		esmerald.CORS(esmerald.CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:       600,
		}),
		esmerald.OTelMetrics(mp),
		esmerald.RateLimit(esmerald.RateLimitConfig{Rate: 50, Burst: 100}),
	)
	r.ServeSpecYAML("/openapi.yaml")

	userRoutes, err := urls.Include(users.Namespace)
	if err != nil {
		return nil, err
	}
	adminRoutes, err := urls.Include(users.Namespace, "admin_patterns")
	if err != nil {
		return nil, err
	}

	err = r.Add(
		esmerald.NewInclude("/v1", []esmerald.Route{
			esmerald.Get("/health", health, esmerald.WithTags("ops")),
			esmerald.Get("/legacy", legacy, esmerald.WithTags("ops"), esmerald.WithDeprecated()),
			esmerald.NewInclude("/users", userRoutes, esmerald.WithIncludeTags("users")),
			esmerald.NewInclude("/admin/users", adminRoutes,
				esmerald.WithIncludeTags("users"),
				esmerald.ExcludeIncludeFromSchema(),
			),
			esmerald.NewInclude("/me", []esmerald.Route{
				esmerald.Get("/", me, esmerald.WithSecurity(esmerald.BearerSchemeName),
					esmerald.WithErrors(http.StatusUnauthorized)),
			}, esmerald.WithIncludeMiddleware(esmerald.BearerAuth(esmerald.BearerConfig{
				Secret: secret,
				Leeway: 30 * time.Second,
			}))),
			esmerald.NewWebSocketGateway("/ws/echo", echo),
		}),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func writeSpec(r *esmerald.Router, outFile string, asYAML bool) error {
	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}
	if asYAML {
		return r.WriteSpecYAML(w)
	}
	return r.WriteSpec(w)
}

type healthResp struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func health(_ context.Context, _ *esmerald.Void) (*healthResp, error) {
	return &healthResp{Status: "ok", Time: time.Now()}, nil
}

type legacyResp struct {
	Message string `json:"message"`
}

func legacy(_ context.Context, _ *esmerald.Void) (*legacyResp, error) {
	return &legacyResp{Message: "Use /v1/health instead."}, nil
}

type meResp struct {
	Subject string `json:"subject"`
}

func me(ctx context.Context, _ *esmerald.Void) (*meResp, error) {
	claims, ok := esmerald.BearerClaims(ctx)
	if !ok {
		return nil, esmerald.Error(http.StatusUnauthorized, "missing claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, esmerald.Errorf(http.StatusUnauthorized, "subject: %v", err)
	}
	return &meResp{Subject: sub}, nil
}

func echo(_ context.Context, ws *esmerald.WebSocket) error {
	for {
		msg, err := ws.ReadText()
		if err != nil {
			return err
		}
		if err := ws.WriteText(fmt.Sprintf("echo: %s", msg)); err != nil {
			return err
		}
	}
}
