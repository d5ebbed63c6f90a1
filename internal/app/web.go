package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/render"
	"github.com/relabs-tech/mobility_mapper/internal/store"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// sessionStore is the read side of store.Store.
type sessionStore interface {
	Sessions(ctx context.Context, limit int) ([]pipeline.Summary, error)
	Session(ctx context.Context, id string) (pipeline.Summary, error)
	Zones(ctx context.Context, id string) ([]zones.Zone, error)
}

// WebOptions configures the web handler.
type WebOptions struct {
	Timeline   render.TimelineOptions
	ZoneRadius render.ZoneRadius
	// StaticDir, if set, is served at /.
	StaticDir string
}

// zoneView is a zone with its display radius in metres.
type zoneView struct {
	zones.Zone
	Radius float64 `json:"radius"`
}

func zoneViews(zs []zones.Zone, zr render.ZoneRadius) []zoneView {
	out := make([]zoneView, len(zs))
	for i, z := range zs {
		out[i] = zoneView{Zone: z, Radius: zr.Of(z)}
	}
	return out
}

// NewWebHandler serves the live session state:
//
//	GET /api/summary        running or final session summary
//	GET /api/zones          zones emitted so far, with display radius
//	GET /api/sessions       stored sessions, newest first (?limit=n)
//	GET /api/sessions/{id}  one stored session with its zones
//	GET /api/panel.png      status panel bitmap
//	GET /api/trace.png      trace plot with zone markers
//	GET /charts/features    feature timeline page
//	GET /ws                 event stream
//
// st may be nil when no database is configured.
func NewWebHandler(state *LiveState, hub *Hub, st sessionStore, opts WebOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/summary", func(w http.ResponseWriter, r *http.Request) {
		sum, ok := state.Summary()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, sum)
	})

	mux.HandleFunc("GET /api/zones", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, zoneViews(state.Zones(), opts.ZoneRadius))
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			http.Error(w, "no database configured", http.StatusNotFound)
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		sums, err := st.Sessions(r.Context(), limit)
		if err != nil {
			log.Errorf("web: list sessions: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if sums == nil {
			sums = []pipeline.Summary{}
		}
		writeJSON(w, sums)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			http.Error(w, "no database configured", http.StatusNotFound)
			return
		}
		id := r.PathValue("id")
		sum, err := st.Session(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			log.Errorf("web: load session %s: %v", id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		zs, err := st.Zones(r.Context(), id)
		if err != nil {
			log.Errorf("web: load zones %s: %v", id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, struct {
			pipeline.Summary
			Zones []zoneView `json:"zones"`
		}{sum, zoneViews(zs, opts.ZoneRadius)})
	})

	mux.HandleFunc("GET /api/panel.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if err := render.WritePanelPNG(w, state.Status()); err != nil {
			log.Warnf("web: panel render error: %v", err)
		}
	})

	mux.HandleFunc("GET /api/trace.png", func(w http.ResponseWriter, r *http.Request) {
		samples, coord := state.Trace()
		if len(samples) == 0 {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := render.WriteTracePNG(w, samples, state.Zones(), coord, opts.ZoneRadius); err != nil {
			log.Warnf("web: trace render error: %v", err)
		}
	})

	mux.HandleFunc("GET /charts/features", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.WriteTimelineHTML(w, state.Features(), state.Zones(), opts.Timeline); err != nil {
			log.Warnf("web: timeline render error: %v", err)
		}
	})

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.ServeWS)
	}

	if opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(opts.StaticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("web: json encode error: %v", err)
	}
}
