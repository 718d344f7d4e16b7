// Package dropkit is a server-driven CSV upload control.
//
// The browser runs a thin client: it forwards drop, browse, remove,
// clear, and submit interactions over a WebSocket and renders the state
// snapshots the server pushes back. All selection, validation, and
// submission logic lives server side in pkg/dropzone, so every client
// sees identical behavior.
//
// An App wires the pieces together behind one http.Handler:
//
//	app, err := dropkit.New(dropkit.Config{
//	    Dropzone: dropkit.DropzoneConfig{MaxFiles: 3, EnableAddMore: true},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.Run(ctx, ":8080")
package dropkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
	"github.com/dropkit-go/dropkit/pkg/live"
	"github.com/dropkit-go/dropkit/pkg/middleware"
	"github.com/dropkit-go/dropkit/pkg/upload"
)

// App is the assembled application: staging endpoint, live WebSocket
// endpoint, metrics, and the demo page behind a single http.Handler.
type App struct {
	cfg    Config
	router chi.Router

	store    upload.Store
	archive  upload.Archive
	uploader *upload.BatchUploader
}

// New builds an App from cfg.
func New(cfg Config) (*App, error) {
	cfg.applyDefaults()

	store, err := buildStore(cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("staging store: %w", err)
	}
	archive, err := buildArchive(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	uploader := upload.NewBatchUploader(store, archive, cfg.Logger)
	if cfg.OnBatchArchived != nil {
		onBatch := cfg.OnBatchArchived
		uploader.OnArchived = func(batchID string, files []*upload.File) {
			names := make([]string, len(files))
			for i, f := range files {
				names[i] = f.Filename
			}
			onBatch(batchID, names)
		}
	}

	app := &App{
		cfg:      cfg,
		store:    store,
		archive:  archive,
		uploader: uploader,
	}
	app.router = app.buildRouter()
	return app, nil
}

func buildStore(cfg StagingConfig) (upload.Store, error) {
	if cfg.S3 != nil {
		return upload.NewS3Store(cfg.S3.Client, cfg.S3.Bucket, cfg.S3.Prefix, cfg.MaxFileSize), nil
	}
	return upload.NewDiskStore(cfg.Dir, cfg.MaxFileSize, cfg.TempExpiry)
}

func buildArchive(cfg ArchiveConfig) (upload.Archive, error) {
	if cfg.S3 != nil {
		return upload.NewS3Archive(cfg.S3.Client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}
	return upload.NewDiskArchive(cfg.Dir)
}

func (a *App) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus())
	r.Use(middleware.OpenTelemetry(
		middleware.WithRequestFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		}),
	))

	r.Get("/", a.serveIndex)
	r.Post("/upload", a.stagingHandler())
	r.Get("/live", live.Handler(a.liveConfig()).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// stagingHandler wraps the upload endpoint with staging metrics.
func (a *App) stagingHandler() http.HandlerFunc {
	h := upload.HandlerWithConfig(a.store, &upload.Config{
		MaxFileSize: a.cfg.Staging.MaxFileSize,
		TempExpiry:  a.cfg.Staging.TempExpiry,
	})

	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		switch rec.status {
		case http.StatusOK:
			middleware.RecordUploadStaged()
		case http.StatusUnsupportedMediaType:
			middleware.RecordUploadRejected("not_csv")
		case http.StatusRequestEntityTooLarge:
			middleware.RecordUploadRejected("too_large")
		default:
			middleware.RecordUploadRejected("error")
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (a *App) liveConfig() live.Config {
	zone := a.cfg.dropzoneConfig()
	zone.Upload = a.timedUpload()

	return live.Config{
		Dropzone:          zone,
		ReadTimeout:       a.cfg.Session.ReadTimeout,
		WriteTimeout:      a.cfg.Session.WriteTimeout,
		HeartbeatInterval: a.cfg.Session.HeartbeatInterval,
		MaxEventQueue:     a.cfg.Session.MaxEventQueue,
		Logger:            a.cfg.Logger,
	}
}

// timedUpload wraps the batch uploader with outcome metrics.
func (a *App) timedUpload() dropzone.UploadFunc {
	return func(ctx context.Context, files []dropzone.File, progress func(float64)) error {
		start := time.Now()
		err := a.uploader.Upload(ctx, files, progress)

		status := "success"
		if err != nil {
			status = "error"
		}
		middleware.RecordBatch(status, time.Since(start))
		return err
	}
}

// Uploader returns the app's batch uploader, for embedding the control
// in a host application's own sessions.
func (a *App) Uploader() *upload.BatchUploader {
	return a.uploader
}

// Store returns the staging store.
func (a *App) Store() upload.Store {
	return a.store
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Run serves the app on addr until ctx is cancelled, sweeping expired
// staged files in the background. Shutdown is graceful.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.cleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.cfg.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// cleanupLoop sweeps the staging store until ctx is cancelled.
func (a *App) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Staging.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := a.store.Cleanup(ctx, a.cfg.Staging.TempExpiry)
			if err != nil {
				a.cfg.Logger.Warn("cleanup sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				a.cfg.Logger.Info("cleanup sweep", "removed", removed)
				middleware.RecordCleanup(removed)
			}

		case <-ctx.Done():
			return
		}
	}
}
