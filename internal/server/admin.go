package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/marketpoll"
)

// AdminServer exposes a small read-only JSON API over the marketpoll
// store, mostly for dashboards and operator spot checks.
type AdminServer struct {
	store  marketpoll.Store
	engine *marketpoll.Engine
	logger zerolog.Logger
}

func NewAdminServer(store marketpoll.Store, engine *marketpoll.Engine, logger zerolog.Logger) *AdminServer {
	return &AdminServer{store: store, engine: engine, logger: logger}
}

func (s *AdminServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/history", s.handleHistory)
}

type statusResponse struct {
	CatalogValid  bool     `json:"catalog_valid"`
	SeededAssets  int      `json:"seeded_assets"`
	CatalogErrors []string `json:"catalog_errors,omitempty"`
}

func (s *AdminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	catalog, _ := s.engine.Catalog()
	s.writeJSON(w, statusResponse{
		CatalogValid:  catalog.Valid(),
		SeededAssets:  len(catalog.Rows),
		CatalogErrors: catalog.Errors,
	})
}

func (s *AdminServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", constants.LeaderboardLimit)
	scores, err := s.store.ListLeaderboard(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin leaderboard query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, scores)
}

func (s *AdminServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", constants.HistoryLimit)
	assetKey := r.URL.Query().Get("asset")
	runs, err := s.store.ListHistory(r.Context(), assetKey, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin history query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, runs)
}

func (s *AdminServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("admin response encode failed")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
