package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/metrics"
	"github.com/betbot/wfmtrader/internal/services"
	"github.com/betbot/wfmtrader/pkg/config"
)

var log = logrus.WithField("module", "controlplane")

// Trader is the scheduler loop as seen by the control API.
type Trader interface {
	Start(ctx context.Context)
	Stop()
	Status() services.RunStatus
}

// OrderBook is the trader's view of the operator's own listings.
type OrderBook interface {
	Orders() domain.OwnOrders
}

// LogWatcher is the EE.log watcher.
type LogWatcher interface {
	Start(ctx context.Context)
	Stop()
	IsRunning() bool
	Path() string
}

// Ledger lists recorded transactions.
type Ledger interface {
	Transactions(ctx context.Context, limit int) ([]domain.Transaction, error)
}

// PriceScraper refreshes the price history cache.
type PriceScraper interface {
	Run(ctx context.Context) (services.ScrapeResult, error)
	Running() bool
}

// EventStream serves the websocket event feed.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Config struct {
	Listen string
}

type Deps struct {
	Trader   Trader
	Book     OrderBook  // optional
	Watcher  LogWatcher // optional
	Settings *config.SettingsState
	Events   EventStream  // optional
	Ledger   Ledger       // optional
	Scraper  PriceScraper // optional
}

type Server struct {
	cfg  Config
	deps Deps
	// loops started from a request outlive it
	baseCtx context.Context

	httpSrv *http.Server
	ln      net.Listener
}

func New(ctx context.Context, cfg Config, deps Deps) (*Server, error) {
	if cfg.Listen == "" {
		return nil, errors.New("listen address is required")
	}
	if deps.Trader == nil || deps.Settings == nil {
		return nil, errors.New("trader and settings are required")
	}
	return &Server{cfg: cfg, deps: deps, baseCtx: ctx}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	r.Any("/debug/*path", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	lt := api.Group("/live-trader")
	lt.GET("", s.wrap(s.handleTraderStatus))
	lt.POST("/start", s.wrap(s.handleTraderStart))
	lt.POST("/stop", s.wrap(s.handleTraderStop))
	lt.GET("/orders", s.wrap(s.handleTraderOrders))

	ee := api.Group("/eelog")
	ee.GET("", s.wrap(s.handleWatcherStatus))
	ee.POST("/start", s.wrap(s.handleWatcherStart))
	ee.POST("/stop", s.wrap(s.handleWatcherStop))

	ps := api.Group("/price-scraper")
	ps.GET("", s.wrap(s.handleScraperStatus))
	ps.POST("/run", s.wrap(s.handleScraperRun))

	api.GET("/settings", s.wrap(s.handleSettingsGet))
	api.PUT("/settings", s.wrap(s.handleSettingsUpdate))
	api.GET("/transactions", s.wrap(s.handleTransactions))
	api.GET("/logs/:name", s.wrap(s.handleLogsTail))
	api.GET("/ws", s.wrap(s.handleWS))

	return r
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.ln = ln
	s.httpSrv = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("control plane stopped: %v", err)
		}
	}()
	log.Infof("control plane listening on %s", ln.Addr())
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type paramsKeyType string

const paramsKey paramsKeyType = "wfmtrader_path_params"

// wrap adapts net/http handlers to gin, injecting path params into the request context.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := map[string]string{}
		for _, p := range c.Params {
			m[p.Key] = p.Value
		}
		ctx := context.WithValue(c.Request.Context(), paramsKey, m)
		c.Request = c.Request.WithContext(ctx)
		h(c.Writer, c.Request)
	}
}

func pathParam(r *http.Request, key string) string {
	m, _ := r.Context().Value(paramsKey).(map[string]string)
	return m[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
