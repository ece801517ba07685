package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bodul/recite/internal/puzzle"
)

const maxBodySize = 1 << 20 // 1 MiB

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
	// Cleanup stale entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	router    *chi.Mux
	store     *Store
	events    *Broadcaster
	sessionRL *rateLimiter
	tapRL     *rateLimiter
	upgrader  websocket.Upgrader
}

// NewServer creates a configured HTTP server.
func NewServer(store *Store, limits RateLimitConfig) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		events:    NewBroadcaster(),
		sessionRL: newRateLimiter(max(limits.Sessions, 1), time.Minute),
		tapRL:     newRateLimiter(max(limits.Taps, 1), time.Second),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "recite",
			"endpoints": []string{"/health", "/api/articles", "POST /api/segment", "POST /api/sessions", "/api/sessions/{id}"},
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		// Corpus and segmentation
		r.Get("/articles", s.handleListArticles)
		r.Get("/articles/{id}", s.handleGetArticle)
		r.Post("/segment", s.handleSegment)

		// Sessions
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/taps", s.handleTap)
			r.Post("/skip", s.handleSkip)
			r.Get("/hint", s.handleHint)
			r.Get("/events", s.handleSessionEvents)
			r.Get("/ws", s.handleSessionWS)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, "not found", http.StatusNotFound)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self'")
	s.router.ServeHTTP(w, r)
}

// --- Article handlers ---

// GET /api/articles — list the corpus.
func (s *Server) handleListArticles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListArticles())
}

// GET /api/articles/{id} — get a single article.
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	a := s.store.GetArticle(chi.URLParam(r, "id"))
	if a == nil {
		jsonError(w, "article not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// POST /api/segment — segment arbitrary paragraphs.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	if !s.sessionRL.allow(r.RemoteAddr) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Paragraphs []string `json:"paragraphs"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Paragraphs) == 0 {
		jsonError(w, "field 'paragraphs' required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.store.Resolver().Resolve(r.Context(), req.Paragraphs))
}

// --- Session handlers ---

// POST /api/sessions — start playing an article.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessionRL.allow(r.RemoteAddr) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	var req struct {
		ArticleID string `json:"article_id"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ArticleID == "" {
		jsonError(w, "field 'article_id' required", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateSession(r.Context(), req.ArticleID)
	switch {
	case errors.Is(err, ErrArticleNotFound):
		jsonError(w, "article not found", http.StatusNotFound)
		return
	case err != nil:
		log.Warn().Err(err).Str("article", req.ArticleID).Msg("create session")
		jsonError(w, "article cannot be played", http.StatusUnprocessableEntity)
		return
	}

	log.Info().Str("session", game.ID).Str("article", game.ArticleID).
		Int("segments", len(game.Segments)).Str("source", string(game.Source)).Msg("session created")
	writeJSON(w, http.StatusCreated, game.View())
}

// GET /api/sessions/{id} — current session state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	game := s.session(w, r)
	if game == nil {
		return
	}
	writeJSON(w, http.StatusOK, game.View())
}

// DELETE /api/sessions/{id} — abandon a session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.DeleteSession(id) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	s.events.Publish(id, Event{Type: "closed"})
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/sessions/{id}/taps — tap a cell.
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	if !s.tapRL.allow(r.RemoteAddr) {
		jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
		return
	}

	game := s.session(w, r)
	if game == nil {
		return
	}

	var req struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Row == nil || req.Col == nil {
		jsonError(w, "fields 'row' and 'col' required", http.StatusBadRequest)
		return
	}

	res, err := s.applyTap(game, puzzle.Coord{Row: *req.Row, Col: *req.Col})
	if err != nil {
		jsonError(w, "session finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/sessions/{id}/skip — give up on the current segment.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	game := s.session(w, r)
	if game == nil {
		return
	}
	view, err := s.applySkip(game)
	if err != nil {
		jsonError(w, "session finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/sessions/{id}/hint — reveal the next cell.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	game := s.session(w, r)
	if game == nil {
		return
	}
	c, err := game.Hint()
	if err != nil {
		jsonError(w, "session finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /api/sessions/{id}/events — SSE stream.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	game := s.session(w, r)
	if game == nil {
		return
	}

	s.events.ServeSSE(w, r, game.ID, func(sub *subscriber) {
		// Send the current state on connect.
		view := game.View()
		data, _ := json.Marshal(Event{Type: "session_state", Session: &view})
		sub.ch <- string(data)
	})
}

// --- Shared game actions (HTTP and websocket) ---

func (s *Server) applyTap(game *GameSession, c puzzle.Coord) (TapResult, error) {
	res, err := game.Tap(c)
	if err != nil {
		return res, err
	}
	s.events.Publish(game.ID, Event{Type: "tap", Tap: &res})
	if res.Session.Finished && res.Outcome == puzzle.Completed.String() {
		log.Info().Str("session", game.ID).Int("solved", res.Session.Solved).Msg("session finished")
	}
	return res, nil
}

func (s *Server) applySkip(game *GameSession) (SessionView, error) {
	view, err := game.Skip()
	if err != nil {
		return view, err
	}
	s.events.Publish(game.ID, Event{Type: "skip", Session: &view})
	return view, nil
}

// --- Helpers ---

// session loads the {id} session or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *GameSession {
	game := s.store.GetSession(chi.URLParam(r, "id"))
	if game == nil {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return game
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
