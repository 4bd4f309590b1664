// Package server initializes and runs the notescan server: configuration,
// database with migrations, object storage, the scan ingestion pipeline,
// and the HTTP API, with graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/notescan/internal/ingest"
	"github.com/dmitrijs2005/notescan/internal/ingest/raster"
	"github.com/dmitrijs2005/notescan/internal/ingest/recognize"
	"github.com/dmitrijs2005/notescan/internal/logging"
	"github.com/dmitrijs2005/notescan/internal/server/config"
	"github.com/dmitrijs2005/notescan/internal/server/httpapi"
	"github.com/dmitrijs2005/notescan/internal/server/notes"
	"github.com/dmitrijs2005/notescan/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notescan/internal/server/uploads"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	rm, err := repomanager.Shared(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	up := uploads.NewS3Adapter(cfg)
	svc := notes.NewService(rm.Conn(), rm, up, logger)

	languages := strings.Split(cfg.OCRLanguages, ",")
	recognizer := recognize.NewTesseractRecognizer(languages...)
	pipe := ingest.New(recognizer, raster.NewFitzRasterizer(), logger, languages...)

	api := httpapi.NewAPI(svc, pipe, up, logger)
	srv := httpapi.NewServer(cfg, logger, api)

	return &App{config: cfg, logger: logger, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
