/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/godspeed/internal/api"
	"github.com/friendsincode/godspeed/internal/cache"
	"github.com/friendsincode/godspeed/internal/catalog"
	"github.com/friendsincode/godspeed/internal/config"
	"github.com/friendsincode/godspeed/internal/db"
	"github.com/friendsincode/godspeed/internal/eventbus"
	"github.com/friendsincode/godspeed/internal/events"
	"github.com/friendsincode/godspeed/internal/logbuffer"
	"github.com/friendsincode/godspeed/internal/mediaengine"
	"github.com/friendsincode/godspeed/internal/playback"
	"github.com/friendsincode/godspeed/internal/playlog"
	"github.com/friendsincode/godspeed/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	nats     *nats.Conn
	cache    *cache.Cache
	catalog  *catalog.Client
	plays    *playlog.Dispatcher
	bus      *eventbus.NATSBus
	engine   *playback.Engine
	api      *api.API
	logs     *logbuffer.Buffer
	disposed bool

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies. logs may be nil.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, logs *logbuffer.Buffer) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("godspeed-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket upgrades
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
		router: router,
		logs:   logs,
	}

	if err := srv.initDependencies(ctx, logger); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WebSocket streams manage their own deadlines
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies(ctx context.Context, logger zerolog.Logger) error {
	if s.cfg.NATSURL != "" {
		conn, err := playlog.Connect(s.cfg.NATSURL, "godspeed")
		if err != nil {
			return err
		}
		s.nats = conn
		s.DeferClose(func() error {
			conn.Close()
			return nil
		})
	}

	var mirror eventbus.Publisher
	if s.nats != nil {
		mirror = s.nats
	}
	s.bus = eventbus.NewNATSBus(events.NewBus(), mirror, eventbus.NATSConfig{}, logger)

	sinks, err := s.buildSinks()
	if err != nil {
		return err
	}
	s.plays = playlog.NewDispatcher(playlog.Options{}, logger, sinks...)
	s.DeferClose(s.plays.Close)

	if s.cfg.RedisAddr != "" {
		s.cache = cache.New(cache.Config{
			RedisAddr:      s.cfg.RedisAddr,
			RedisPassword:  s.cfg.RedisPassword,
			RedisDB:        s.cfg.RedisDB,
			TTL:            s.cfg.CatalogCacheTTL,
			DisableOnError: true,
		}, logger)
		s.DeferClose(s.cache.Close)
	} else {
		s.cache = cache.Disabled(logger)
	}
	s.catalog = catalog.NewClient(s.cfg.CatalogURL, nil, s.cache, logger)

	element, fabric, err := mediaengine.New(mediaengine.Config{
		Backend:          mediaengine.Backend(s.cfg.MediaBackend),
		PositionInterval: s.cfg.PositionInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("media engine: %w", err)
	}

	s.engine = playback.New(playback.Options{
		Element:    element,
		Fabric:     fabric,
		PlayLogger: s.plays,
		Publisher:  s.bus,
		Logger:     logger,
		Mix:        s.cfg.Mix,
		BaseURL:    s.cfg.CatalogURL,
	})
	if err := s.engine.Init(ctx); err != nil {
		_ = element.Close()
		return fmt.Errorf("init playback engine: %w", err)
	}

	s.api = api.New(s.engine, s.catalog, s.bus, logger).WithLogs(s.logs)
	return nil
}

func (s *Server) buildSinks() ([]playlog.Sink, error) {
	var sinks []playlog.Sink
	for _, name := range s.cfg.PlayLogSinks {
		switch name {
		case config.SinkHTTP:
			sinks = append(sinks, playlog.NewHTTPSink(s.cfg.CatalogURL, nil))
		case config.SinkDB:
			database, err := db.Connect(s.cfg)
			if err != nil {
				return nil, fmt.Errorf("connect database: %w", err)
			}
			s.db = database
			s.DeferClose(func() error { return db.Close(database) })
			if err := db.Migrate(database); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
			sinks = append(sinks, playlog.NewDBSink(database))
		case config.SinkNATS:
			if s.nats == nil {
				return nil, errors.New("nats play log sink requires GODSPEED_NATS_URL")
			}
			sinks = append(sinks, playlog.NewNATSSink(s.nats, s.cfg.NATSSubject))
		default:
			return nil, fmt.Errorf("unknown play log sink %q", name)
		}
	}
	return sinks, nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Engine exposes the playback engine.
func (s *Server) Engine() *playback.Engine {
	return s.engine
}

// Close stops playback and releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()

	var errs []error
	if s.engine != nil && !s.disposed {
		s.disposed = true
		if err := s.engine.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose engine: %w", err))
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("playback notification loop stopped")
		}
	}()

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","state":"` + string(s.engine.State()) + `"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
