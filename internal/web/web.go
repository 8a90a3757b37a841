// Package web exposes the engine over HTTP so a drawing front end can feed
// it pointer input and read back layouts, previews and the selection.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"timegrid/internal/config"
	"timegrid/internal/engine"
	"timegrid/internal/host"
	"timegrid/internal/layout"
	appLog "timegrid/internal/log"
	"timegrid/internal/model"
	"timegrid/internal/selection"
)

// Server routes HTTP requests onto a host loop.
type Server struct {
	cfg    *config.Config
	loop   *host.Loop
	router *mux.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, loop *host.Loop) *Server {
	s := &Server{
		cfg:    cfg,
		loop:   loop,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than lock everyone out.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timegrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves s on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/days", s.handleDays).Methods(http.MethodGet)
	api.HandleFunc("/view", s.handleView).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}/rect", s.handlePutRect).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}/rect", s.handleDeleteRect).Methods(http.MethodDelete)
	api.HandleFunc("/pointer/{phase:down|move|up|cancel}", s.handlePointer).Methods(http.MethodPost)
	api.HandleFunc("/keys", s.handleKey).Methods(http.MethodPost)
	api.HandleFunc("/preview", s.handlePreview).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handleSelection).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// do runs fn on the loop and reports a stopped loop as 503.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func(*engine.Engine)) bool {
	if err := s.loop.Do(r.Context(), fn); err != nil {
		appLog.Error("engine call failed", err, "path", r.URL.Path)
		writeError(w, http.StatusServiceUnavailable, "engine unavailable")
		return false
	}
	return true
}

type dayDTO struct {
	Date        model.Date            `json:"date"`
	Rect        *selection.Rect       `json:"rect,omitempty"`
	AllDay      []model.ScheduledItem `json:"all_day"`
	Timed       []model.ScheduledItem `json:"timed"`
	Assignments []layout.Assignment   `json:"assignments"`
}

type viewResponse struct {
	Start     model.Date `json:"start"`
	End       model.Date `json:"end"`
	Month     bool       `json:"month"`
	ScrollTop float64    `json:"scroll_top"`
	Days      []dayDTO   `json:"days,omitempty"`
}

func toDayDTO(d layout.Day) dayDTO {
	out := dayDTO{
		Date:        d.Date,
		AllDay:      d.AllDay,
		Timed:       d.Timed,
		Assignments: d.Assignments,
	}
	if out.AllDay == nil {
		out.AllDay = []model.ScheduledItem{}
	}
	if out.Timed == nil {
		out.Timed = []model.ScheduledItem{}
	}
	if out.Assignments == nil {
		out.Assignments = []layout.Assignment{}
	}
	return out
}

// handleDays lays out the days on screen.
//
// GET /api/days?start=YYYY-MM-DD
//   - start: optional; moves the view to the week (or month) containing it
//     first.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	var start *model.Date
	if v := r.URL.Query().Get("start"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		start = &d
	}

	var resp viewResponse
	ok := s.do(w, r, func(e *engine.Engine) {
		if start != nil {
			s.loop.ShowDate(r.Context(), *start)
		}
		resp = s.view()
		for _, d := range e.Days(s.loop.View()) {
			dto := toDayDTO(d)
			if rect, ok := s.loop.ColumnRect(d.Date); ok {
				dto.Rect = &rect
			}
			resp.Days = append(resp.Days, dto)
		}
	})
	if ok {
		writeJSON(w, http.StatusOK, resp)
	}
}

// view must be called on the loop goroutine.
func (s *Server) view() viewResponse {
	v := s.loop.View()
	return viewResponse{Start: v.Start, End: v.End, Month: s.loop.Month(), ScrollTop: s.loop.ScrollTop()}
}

type viewRequest struct {
	Start     *model.Date `json:"start"`
	ScrollTop *float64    `json:"scroll_top"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid view request")
		return
	}

	var resp viewResponse
	ok := s.do(w, r, func(*engine.Engine) {
		if req.ScrollTop != nil {
			s.loop.Scroll(*req.ScrollTop)
		}
		if req.Start != nil {
			s.loop.ShowDate(r.Context(), *req.Start)
		}
		resp = s.view()
	})
	if ok {
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handlePutRect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var rect selection.Rect
	if err := json.NewDecoder(r.Body).Decode(&rect); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rect")
		return
	}
	if rect.Right < rect.Left || rect.Bottom < rect.Top {
		writeError(w, http.StatusBadRequest, "rect has negative size")
		return
	}
	if s.do(w, r, func(e *engine.Engine) { e.Index().Register(id, rect) }) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteRect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.do(w, r, func(e *engine.Engine) { e.Index().Unregister(id) }) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// pointerRequest is one pointer event. Target and ItemID are only read on
// "down".
type pointerRequest struct {
	PointerID int     `json:"pointer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Target    string  `json:"target"`
	ItemID    string  `json:"item_id"`
	Modifier  bool    `json:"modifier"`
}

// handlePointer feeds one pointer event and answers with the resulting
// gesture state.
//
// POST /api/pointer/{down|move|up|cancel}
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	phase := mux.Vars(r)["phase"]
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid pointer event")
		return
	}

	ev := engine.PointerEvent{
		PointerID: req.PointerID,
		Pos:       selection.Point{X: req.X, Y: req.Y},
		Modifier:  req.Modifier,
	}
	if phase == "down" {
		kind, ok := engine.ParseTargetKind(req.Target)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown target")
			return
		}
		ev.Target = engine.Target{Kind: kind, ItemID: req.ItemID}
	}

	var resp gestureResponse
	ok := s.do(w, r, func(e *engine.Engine) {
		switch phase {
		case "down":
			e.PointerDown(ev)
		case "move":
			e.PointerMove(ev)
		case "up":
			e.PointerUp(ev)
		case "cancel":
			e.PointerCancel(ev)
		}
		resp = gesture(e)
	})
	if ok {
		writeJSON(w, http.StatusOK, resp)
	}
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key event")
		return
	}
	if req.Key != "Escape" {
		// Nothing else is bound.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var resp gestureResponse
	if s.do(w, r, func(e *engine.Engine) {
		e.KeyDown(engine.KeyEscape)
		resp = gesture(e)
	}) {
		writeJSON(w, http.StatusOK, resp)
	}
}

type previewDTO struct {
	Mode            string           `json:"mode"`
	Valid           bool             `json:"valid"`
	Date            *model.Date      `json:"date,omitempty"`
	Lane            string           `json:"lane,omitempty"`
	Time            *model.TimeOfDay `json:"time,omitempty"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	End             *model.TimeOfDay `json:"end,omitempty"`
}

// gestureResponse is the state a front end needs to draw feedback for the
// gesture in progress.
type gestureResponse struct {
	Busy      bool            `json:"busy"`
	Preview   *previewDTO     `json:"preview,omitempty"`
	Marquee   *selection.Rect `json:"marquee,omitempty"`
	Selection []string        `json:"selection"`
}

func gesture(e *engine.Engine) gestureResponse {
	resp := gestureResponse{Busy: e.Busy(), Selection: e.Selection()}
	if resp.Selection == nil {
		resp.Selection = []string{}
	}
	if pv, ok := e.Preview(); ok {
		dto := &previewDTO{Mode: pv.Mode.String(), Valid: pv.Valid}
		if pv.Valid {
			date := pv.Date
			dto.Date = &date
			dto.Lane = pv.Lane.String()
			dto.Time = pv.Time
			dto.DurationMinutes = pv.DurationMinutes
			if pv.End != 0 {
				dto.End = pv.End.Ptr()
			}
		}
		resp.Preview = dto
	}
	if rect, ok := e.Marquee(); ok {
		resp.Marquee = &rect
	}
	return resp
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var resp gestureResponse
	if s.do(w, r, func(e *engine.Engine) { resp = gesture(e) }) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if s.do(w, r, func(e *engine.Engine) { ids = e.Selection() }) {
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.loop.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
