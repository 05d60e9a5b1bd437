package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/fmtplay/internal/models"
	"github.com/joescharf/fmtplay/internal/permalink"
	"github.com/joescharf/fmtplay/internal/playground"
)

// maxBodyBytes bounds request bodies; templates are small.
const maxBodyBytes = 4 << 20

// defaultHistoryLimit is used when /history is called without a limit.
const defaultHistoryLimit = 50

// BuildInfo is reported by the version endpoint.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Server provides the REST API handlers.
type Server struct {
	pg    *playground.Playground
	build BuildInfo
	ui    http.Handler
	log   *slog.Logger

	// followOrigin builds links from the origin each request arrived at.
	followOrigin bool
}

// NewServer creates a new API server. ui serves everything outside /api and
// may be nil.
func NewServer(pg *playground.Playground, build BuildInfo, ui http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{pg: pg, build: build, ui: ui, log: log}
}

// FollowRequestOrigin makes permalinks and reports point at the origin the
// request was sent to instead of the playground's configured base URL. Use it
// when no base URL was configured explicitly.
func (s *Server) FollowRequestOrigin() *Server {
	s.followOrigin = true
	return s
}

// requestBase returns the page URL the client reached: scheme from TLS or
// X-Forwarded-Proto, host from X-Forwarded-Host or Host, root path.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := firstHeaderValue(r, "X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	host := r.Host
	if h := firstHeaderValue(r, "X-Forwarded-Host"); h != "" {
		host = h
	}
	return scheme + "://" + host + "/"
}

func firstHeaderValue(r *http.Request, name string) string {
	v, _, _ := strings.Cut(r.Header.Get(name), ",")
	return strings.ToLower(strings.TrimSpace(v))
}

// playgroundFor returns the playground whose links fit r.
func (s *Server) playgroundFor(r *http.Request) *playground.Playground {
	if !s.followOrigin || r.Host == "" {
		return s.pg
	}
	pg, err := s.pg.WithBase(requestBase(r))
	if err != nil {
		s.log.Debug("request origin unusable for links", "host", r.Host, "error", err)
		return s.pg
	}
	return pg
}

// Router returns an http.Handler for the API routes and the embedded UI.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/session", s.getSession)
	mux.HandleFunc("POST /api/v1/format", s.format)
	mux.HandleFunc("POST /api/v1/lint", s.lint)
	mux.HandleFunc("POST /api/v1/permalink", s.permalink)
	mux.HandleFunc("POST /api/v1/report", s.report)
	mux.HandleFunc("GET /api/v1/history", s.history)
	mux.HandleFunc("GET /api/v1/version", s.version)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	if s.ui != nil {
		mux.Handle("/", s.ui)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionRequest is the body shared by format, lint, permalink and report.
// Omitted options take the playground defaults.
type sessionRequest struct {
	Source *string `json:"source"`
	Mode   *string `json:"mode"`
	Width  *int    `json:"width"`
	Indent *int    `json:"indent"`
}

func (req sessionRequest) session(defaults permalink.Session) permalink.Session {
	s := defaults
	s.Source = ""
	if req.Source != nil {
		s.Source = *req.Source
	}
	if req.Mode != nil {
		s.Mode = *req.Mode
	}
	if req.Width != nil {
		s.Width = *req.Width
	}
	if req.Indent != nil {
		s.Indent = *req.Indent
	}
	return s
}

// decodeBody decodes the JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) decodeSession(w http.ResponseWriter, r *http.Request) (permalink.Session, bool) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return permalink.Session{}, false
	}
	if req.Source == nil {
		writeError(w, http.StatusBadRequest, "source is required")
		return permalink.Session{}, false
	}
	sess := req.session(s.pg.Defaults())
	if err := playground.Validate(sess); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return permalink.Session{}, false
	}
	return sess, true
}

// --- Session ---

type sessionResponse struct {
	Source   string `json:"source"`
	Mode     string `json:"mode"`
	Width    int    `json:"width"`
	Indent   int    `json:"indent"`
	Restored bool   `json:"restored"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, restored := s.pg.Restore(r.URL.RawQuery)
	writeJSON(w, http.StatusOK, sessionResponse{
		Source:   sess.Source,
		Mode:     sess.Mode,
		Width:    sess.Width,
		Indent:   sess.Indent,
		Restored: restored,
	})
}

// --- Format / Lint ---

type formatResponse struct {
	Kind       string  `json:"kind"`
	Text       string  `json:"text"`
	DurationMs float64 `json:"duration_ms"`
	Summary    string  `json:"summary"`
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	res, err := s.pg.Format(r.Context(), playground.OriginAPI, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, formatResponse{
		Kind:       string(res.Kind),
		Text:       res.Text,
		DurationMs: res.DurationMs(),
		Summary:    res.Summary(),
	})
}

type lintResponse struct {
	Kind        string `json:"kind"`
	Output      string `json:"output"`
	PlainOutput string `json:"plain_output"`
	ErrorCount  int    `json:"error_count"`
}

func (s *Server) lint(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == nil {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	res := s.pg.Lint(r.Context(), playground.OriginAPI, req.session(s.pg.Defaults()))
	writeJSON(w, http.StatusOK, lintResponse{
		Kind:        string(res.Kind),
		Output:      res.RawOutput,
		PlainOutput: res.Plain(),
		ErrorCount:  res.ErrorCount,
	})
}

// --- Permalink ---

func (s *Server) permalink(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.decodeSession(w, r)
	if !ok {
		return
	}
	toClipboard := r.URL.Query().Get("copy") == "1"
	link, copied, err := s.playgroundFor(r).Share(sess, toClipboard)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{"url": link}
	if toClipboard {
		resp["copied"] = copied
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Report ---

type reportRequest struct {
	sessionRequest
	Formatted    *string `json:"formatted"`
	Title        string  `json:"title"`
	SuggestTitle bool    `json:"suggest_title"`
}

type reportResponse struct {
	Title     string `json:"title"`
	Diff      string `json:"diff"`
	Permalink string `json:"permalink"`
	Body      string `json:"body"`
	IssueURL  string `json:"issue_url"`
	Empty     bool   `json:"empty"`

	// EngineError is set when the formatter failed on the source.
	EngineError string `json:"engine_error,omitempty"`
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == nil {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	sess := req.session(s.pg.Defaults())
	if err := playground.Validate(sess); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.playgroundFor(r).Report(r.Context(), playground.ReportRequest{
		Session:      sess,
		Formatted:    req.Formatted,
		Title:        req.Title,
		SuggestTitle: req.SuggestTitle,
		Origin:       playground.OriginAPI,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, playground.ErrInvalidWidth) || errors.Is(err, playground.ErrInvalidIndent) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Title:       rep.Title,
		Diff:        rep.Diff,
		Permalink:   rep.Permalink,
		Body:        rep.Body,
		IssueURL:    rep.IssueURL,
		Empty:       rep.Empty(),
		EngineError: rep.EngineError,
	})
}

// --- History ---

type runResponse struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Origin     string  `json:"origin"`
	Mode       string  `json:"mode"`
	Width      int     `json:"width"`
	Indent     int     `json:"indent"`
	SourceSize int     `json:"source_size"`
	DurationMs float64 `json:"duration_ms"`
	ErrorCount int     `json:"error_count"`
	Outcome    string  `json:"outcome"`
	Message    string  `json:"message,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func toRunResponse(run *models.Run) runResponse {
	return runResponse{
		ID:         run.ID,
		Kind:       string(run.Kind),
		Origin:     run.Origin,
		Mode:       run.Mode,
		Width:      run.Width,
		Indent:     run.Indent,
		SourceSize: run.SourceSize,
		DurationMs: float64(run.Duration.Microseconds()) / 1000,
		ErrorCount: run.ErrorCount,
		Outcome:    string(run.Outcome),
		Message:    run.Message,
		CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.pg.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Version ---

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.build)
}
