package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"

	"github.com/Agrid-Dev/housesim/internal/ports"
	"github.com/Agrid-Dev/housesim/internal/psychro"
	"github.com/Agrid-Dev/housesim/internal/status"
)

const streamBuffer = 64

type Server struct {
	svc      ports.SimulationService
	srv      *http.Server
	upgrader websocket.Upgrader
}

// New returns a runnable server. Requests are logged in Apache combined
// format to accessLog when it is not nil.
func New(svc ports.SimulationService, addr string, accessLog io.Writer) *Server {
	mux := http.NewServeMux()
	s := &Server{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/summary", s.handleGetSummary)
	mux.HandleFunc("GET /v1/stream", s.handleStream)

	// Write
	mux.HandleFunc("POST /v1/paused", s.handlePostPaused)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var h http.Handler = mux
	if accessLog != nil {
		h = handlers.CombinedLoggingHandler(accessLog, mux)
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("http status server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		slog.Info("http status server stopped")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	House    string  `json:"house"`
	RunID    string  `json:"run_id"`
	Running  bool    `json:"running"`
	Paused   bool    `json:"paused"`
	Done     int     `json:"houses_done"`
	Failed   int     `json:"houses_failed"`
	LastErr  string  `json:"last_error,omitempty"`
	Progress float64 `json:"progress"`

	Year   int `json:"year"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`

	TempOut   float64 `json:"temp_out_c"`
	TempHouse float64 `json:"temp_house_c"`
	TempAttic float64 `json:"temp_attic_c"`
	RHHouse   float64 `json:"rh_house"`
	Mode      string  `json:"ah_mode"`
	RivecOn   bool    `json:"rivec_on"`
	RelExp    float64 `json:"rel_exp"`
	RelDose   float64 `json:"rel_dose"`
}

func toDTO(s status.Snapshot) snapshotDTO {
	m := s.Minute
	return snapshotDTO{
		House:     s.House,
		RunID:     s.RunID,
		Running:   s.Running,
		Paused:    s.Paused,
		Done:      s.Done,
		Failed:    s.Failed,
		LastErr:   s.LastErr,
		Progress:  s.Progress,
		Year:      s.Clock.Year,
		Day:       s.Clock.Day,
		Hour:      s.Clock.Hour,
		Minute:    s.Clock.Minute,
		TempOut:   m.TempOut - psychro.CToK,
		TempHouse: m.TempHouse - psychro.CToK,
		TempAttic: m.TempAttic - psychro.CToK,
		RHHouse:   m.RHHouse,
		Mode:      m.Mode.String(),
		RivecOn:   m.RivecOn,
		RelExp:    m.RelExp,
		RelDose:   m.RelDose,
	}
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, _ *http.Request) {
	sum, err := s.svc.LastSummary()
	if err != nil {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePostPaused(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v bool) error {
		s.svc.SetPaused(v)
		return nil
	})
}

// handleStream pushes every minute record to a websocket client until the
// client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	records, cancel := s.svc.Subscribe(streamBuffer)
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case rec, ok := <-records:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
	}
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, toDTO(s.svc.Get()))
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
