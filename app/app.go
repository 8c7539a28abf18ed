package app

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/JoshPattman/cvwizard/backend"
	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/JoshPattman/cvwizard/parse"
	"github.com/JoshPattman/cvwizard/storage"
	"github.com/JoshPattman/cvwizard/wizard"
	"github.com/MatusOllah/slogcolor"
	"github.com/fatih/color"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed templates
var templatesFS embed.FS

// A function that handles a request and returns data for a template.
type PageDataHander func(ctx *gin.Context, logger *slog.Logger) (any, error)

// A function that returns the main and auxillary templates to be rendered.
type PageTemplateDefiner func(ctx *gin.Context, logger *slog.Logger) []string

// App collects all data for running the webserver.
type App struct {
	config Config
	logger *slog.Logger
	spool  storage.CVManager
	wizard *wizard.Manager
}

// NewLogger builds the coloured console logger used across the app.
func NewLogger(logLevel slog.Level) *slog.Logger {
	opts := slogcolor.DefaultOptions
	opts.Level = logLevel
	opts.MsgColor = color.New(color.FgMagenta)
	opts.SrcFileMode = slogcolor.Nop
	return slog.New(slogcolor.NewHandler(os.Stderr, opts))
}

// Create a new app.
func BuildApp(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	logger.Info("Setting up upload spool", "driver", cfg.Storage)
	spool, err := storage.Open(ctx, cfg.Storage, cfg.StorageDSN)
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger.With("component", "backend"))

	logger.Info("Creating parser", "parser", cfg.Parser, "fallback", cfg.ParseFallback)
	parser, err := buildParser(cfg, client, logger.With("component", "parser"))
	if err != nil {
		spool.Close()
		return nil, err
	}
	resolver := parse.NewFallbackParser(parser, parse.FallbackMode(cfg.ParseFallback), logger.With("component", "parser"))

	applier := backend.NewApplier(client, cfg.ApplyConcurrency, logger.With("component", "applier"))
	manager, err := wizard.NewManager(wizard.Config{
		Resolver:         resolver,
		Spool:            spool,
		OnComplete:       userFacingCompletion(applier.Apply),
		Validate:         backend.ValidateReview,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		ApplyDelay:       cfg.ApplyDelay,
		ProgressInterval: cfg.ProgressInterval,
		ProgressStep:     cfg.ProgressStep,
		SessionTTL:       cfg.SessionTTL,
		Logger:           logger.With("component", "wizard"),
	})
	if err != nil {
		spool.Close()
		return nil, err
	}
	if n, err := manager.PurgeOrphanedUploads(); err != nil {
		logger.Warn("Could not purge orphaned uploads", "error", err)
	} else {
		logger.Info("Checked upload spool", "num_purged", n)
	}

	logger.Info("Server preparation succsessful")
	return &App{
		config: cfg,
		logger: logger,
		spool:  spool,
		wizard: manager,
	}, nil
}

func buildParser(cfg Config, client *backend.Client, logger *slog.Logger) (parse.Parser, error) {
	switch cfg.Parser {
	case "mock":
		return parse.MockParser{}, nil
	case "llm":
		modelBuilder, err := parse.NewModelBuilder(cfg.OpenAIKey, cfg.Model, cfg.LLMCache, cfg.LLMConcurrency)
		if err != nil {
			return nil, err
		}
		return parse.NewLLMParser(modelBuilder, logger), nil
	default:
		return parse.NewRemoteParser(client, cfg.ParseRate, 1, cfg.ParseTimeout, logger), nil
	}
}

// userFacingCompletion replaces apply failures with a message that is safe to show.
func userFacingCompletion(apply wizard.CompletionFunc) wizard.CompletionFunc {
	return func(ctx context.Context, req datamodels.ApplyRequest) error {
		if err := apply(ctx, req); err != nil {
			return errors.New(backend.UserMessage(err))
		}
		return nil
	}
}

// Run the app until ctx is cancelled, then shut down gracefully.
func (app *App) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    app.config.Addr,
		Handler: app.router(),
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go app.wizard.RunSweeper(sweepCtx, time.Minute)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	app.logger.Info("Server starting", "addr", app.config.Addr)

	select {
	case err := <-serveErr:
		app.wizard.Shutdown()
		return errors.Join(err, app.spool.Close())
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	app.wizard.Shutdown()
	if closeErr := app.spool.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	app.logger.Info("Server exited")
	return err
}

func (app *App) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(app.corsConfig()))
	r.Use(app.requestLogger())
	app.setupHandlers(r)
	return r
}

func (app *App) corsConfig() cors.Config {
	config := cors.DefaultConfig()
	if len(app.config.CORSOrigins) == 0 || slices.Contains(app.config.CORSOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = app.config.CORSOrigins
	}
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	return config
}

const loggerKey = "logger"

// requestLogger gives every request a child logger carrying a txid.
func (app *App) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		logger := app.logger.With("txid", uuid.New().String())
		ctx.Set(loggerKey, logger)
		tstart := time.Now()
		logger.Info("Incoming request", "method", ctx.Request.Method, "path", ctx.Request.URL.Path)
		ctx.Next()
		logger.Info("Finished request", "status", ctx.Writer.Status(), "time_taken", time.Since(tstart))
	}
}

func (app *App) loggerFor(ctx *gin.Context) *slog.Logger {
	if v, ok := ctx.Get(loggerKey); ok {
		if logger, ok := v.(*slog.Logger); ok {
			return logger
		}
	}
	return app.logger
}

// Create a handler that calls the data handler then renders the data using the templates
func (app *App) handlePage(dataHandler PageDataHander, templateDefiner PageTemplateDefiner) func(ctx *gin.Context) {
	return func(ctx *gin.Context) {
		requestLogger := app.loggerFor(ctx)
		templatesToParse := []string{}
		templates := templateDefiner(ctx, requestLogger)
		for _, t := range templates {
			templatesToParse = append(templatesToParse, "templates/"+t+".html")
		}

		tmpl, err := template.ParseFS(templatesFS, templatesToParse...)
		if err != nil {
			requestLogger.Error("Template parse failed", "templates", templates, "error", err)
			ctx.Status(500)
			return
		}

		data, err := dataHandler(ctx, requestLogger)
		if err != nil {
			if errors.Is(err, wizard.ErrSessionNotFound) {
				ctx.Redirect(http.StatusSeeOther, "/")
				return
			}
			requestLogger.Error("Page data handler failed", "templates", templates, "error", err)
			ctx.Status(500)
			return
		}

		ctx.Header("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.ExecuteTemplate(ctx.Writer, templates[0], data); err != nil {
			requestLogger.Error("Template render failed", "templates", templates, "error", err)
			ctx.Status(500)
			return
		}
	}
}
