package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/pkg/config"
)

func (s *Server) handleTraderStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Trader.Status())
}

func (s *Server) handleTraderStart(w http.ResponseWriter, r *http.Request) {
	s.deps.Trader.Start(s.baseCtx)
	writeJSON(w, http.StatusAccepted, s.deps.Trader.Status())
}

func (s *Server) handleTraderStop(w http.ResponseWriter, r *http.Request) {
	s.deps.Trader.Stop()
	writeJSON(w, http.StatusAccepted, s.deps.Trader.Status())
}

func (s *Server) handleTraderOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.Book == nil {
		writeJSON(w, http.StatusOK, domain.OwnOrders{Buy: []domain.OwnOrder{}, Sell: []domain.OwnOrder{}})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Book.Orders())
}

func (s *Server) watcherStatus() map[string]any {
	return map[string]any{"running": s.deps.Watcher.IsRunning(), "path": s.deps.Watcher.Path()}
}

func (s *Server) handleWatcherStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watcher == nil {
		writeError(w, http.StatusNotFound, "log watcher is disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.watcherStatus())
}

func (s *Server) handleWatcherStart(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watcher == nil {
		writeError(w, http.StatusNotFound, "log watcher is disabled")
		return
	}
	s.deps.Watcher.Start(s.baseCtx)
	writeJSON(w, http.StatusAccepted, s.watcherStatus())
}

func (s *Server) handleWatcherStop(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watcher == nil {
		writeError(w, http.StatusNotFound, "log watcher is disabled")
		return
	}
	s.deps.Watcher.Stop()
	writeJSON(w, http.StatusAccepted, s.watcherStatus())
}

func (s *Server) handleScraperStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scraper == nil {
		writeError(w, http.StatusNotFound, "price scraper is disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"running": s.deps.Scraper.Running()})
}

// handleScraperRun starts a scrape in the background; progress arrives on the event stream.
func (s *Server) handleScraperRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scraper == nil {
		writeError(w, http.StatusNotFound, "price scraper is disabled")
		return
	}
	if s.deps.Scraper.Running() {
		writeError(w, http.StatusConflict, "price scraper already running")
		return
	}
	go func() {
		if _, err := s.deps.Scraper.Run(s.baseCtx); err != nil {
			log.Warnf("price scrape failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"running": true})
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Settings.Snapshot(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var st config.Settings
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.deps.Settings.Update(r.Context(), st); err != nil {
		writeAppError(w, err)
		return
	}
	log.Infof("settings updated")
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		writeJSON(w, http.StatusOK, map[string]any{"transactions": []any{}})
		return
	}
	limit := 100
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 5000 {
			limit = n
		}
	}
	txs, err := s.deps.Ledger.Transactions(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeError(w, http.StatusNotFound, "event stream is disabled")
		return
	}
	s.deps.Events.ServeWS(w, r)
}

func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindData:
		status = http.StatusBadRequest
	case apperr.KindLock:
		status = http.StatusServiceUnavailable
	case apperr.KindNetwork:
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}
