package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"match-relay/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const defaultSegmentContentType = "application/octet-stream"

// Handler exposes the match catalog and relay HTTP endpoints using go-chi.
type Handler struct {
	catalog *Catalog
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Catalog, Service, Logger,
// and optional Metrics. Metrics may be nil to disable metric recording
// (e.g. in tests).
func NewHandler(catalog *Catalog, svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{catalog: catalog, svc: svc, log: log, metrics: m}
}

// ListMatches handles GET /matches.
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.upstreamFailure(w, "catalog refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetMatch handles GET /matches/{matchID}.
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id := MatchID(chi.URLParam(r, "matchID"))
	m, err := h.catalog.Match(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		h.upstreamFailure(w, "catalog refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListStreams handles GET /matches/{matchID}/streams.
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	id := MatchID(chi.URLParam(r, "matchID"))
	m, err := h.catalog.Match(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		h.upstreamFailure(w, "catalog refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       m.ID,
		"variants": m.Variants,
	})
}

// GetMasterPlaylist handles GET /relay/{matchID}?cdn={variant}.
func (h *Handler) GetMasterPlaylist(w http.ResponseWriter, r *http.Request) {
	id := MatchID(chi.URLParam(r, "matchID"))
	variant := Variant(r.URL.Query().Get("cdn"))
	if variant == "" {
		variant = VariantAdFree
	}

	playlist, err := h.svc.MasterPlaylist(r.Context(), id, variant)
	if err != nil {
		var statusErr *UpstreamStatusError
		switch {
		case errors.Is(err, ErrMatchNotFound), errors.Is(err, ErrVariantNotFound):
			h.log.Info("relay lookup failed",
				slog.String("match_id", string(id)),
				slog.String("variant", string(variant)),
				slog.String("error", err.Error()))
			writeError(w, http.StatusNotFound, "match or stream variant not found")
		case errors.Is(err, ErrInvalidStream):
			h.log.Info("stream URL is not a playlist",
				slog.String("match_id", string(id)),
				slog.String("variant", string(variant)),
				slog.String("error", err.Error()))
			writeError(w, http.StatusNotFound, "stream is not a playlist")
		case errors.As(err, &statusErr):
			h.log.Warn("origin rejected master playlist",
				slog.String("match_id", string(id)),
				slog.String("variant", string(variant)),
				slog.String("url", statusErr.URL),
				slog.Int("status", statusErr.StatusCode))
			writeError(w, http.StatusNotFound, "stream unavailable")
			if h.metrics != nil {
				h.metrics.IncUpstreamErrors()
			}
		default:
			h.log.Error("master playlist fetch failed",
				slog.String("match_id", string(id)),
				slog.String("variant", string(variant)),
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "upstream error")
			if h.metrics != nil {
				h.metrics.IncUpstreamErrors()
			}
		}
		return
	}

	w.Header().Set("Content-Type", PlaylistContentType)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, playlist)
	if h.metrics != nil {
		h.metrics.IncPlaylistsRelayed()
	}
}

// GetSegment handles GET /relay/{matchID}/*. The origin response is streamed
// through without buffering; a client disconnect cancels the origin fetch via
// the request context.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	id := MatchID(chi.URLParam(r, "matchID"))
	relativePath := chi.URLParam(r, "*")

	resp, err := h.svc.Segment(r.Context(), id, relativePath)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			h.log.Info("segment requested without session",
				slog.String("match_id", string(id)),
				slog.String("path", relativePath))
			writeError(w, http.StatusNotFound, "no session for match; request the playlist first")
		case errors.Is(err, ErrBadSegmentPath):
			h.log.Warn("segment path rejected",
				slog.String("match_id", string(id)),
				slog.String("path", relativePath))
			writeError(w, http.StatusNotFound, "invalid segment path")
		default:
			h.log.Error("segment fetch failed",
				slog.String("match_id", string(id)),
				slog.String("path", relativePath),
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "upstream error")
			if h.metrics != nil {
				h.metrics.IncUpstreamErrors()
			}
		}
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultSegmentContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Client went away or the origin died mid-stream; the request
		// context has already canceled the upstream fetch.
		h.log.Debug("segment stream aborted",
			slog.String("match_id", string(id)),
			slog.String("path", relativePath),
			slog.String("error", err.Error()))
		return
	}
	if h.metrics != nil {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			h.metrics.IncSegmentsProxied()
		} else {
			h.metrics.IncUpstreamErrors()
		}
	}
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) upstreamFailure(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "upstream feed unavailable")
	if h.metrics != nil {
		h.metrics.IncUpstreamErrors()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
