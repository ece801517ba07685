package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bodul/recite/internal/puzzle"
	"github.com/bodul/recite/internal/segment"
)

// sourcePreset marks segments bundled with the article.
const sourcePreset segment.Source = "preset"

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrNoSegments      = errors.New("article has no playable text")
)

// Store holds the article corpus and live game sessions in memory.
type Store struct {
	mu       sync.RWMutex
	articles map[string]*Article
	order    []string
	sessions map[string]*GameSession

	resolver *segment.Resolver
	gen      *puzzle.Generator
}

// NewStore creates an empty store.
func NewStore(resolver *segment.Resolver, gen *puzzle.Generator) *Store {
	if resolver == nil {
		resolver = &segment.Resolver{}
	}
	return &Store{
		articles: make(map[string]*Article),
		sessions: make(map[string]*GameSession),
		resolver: resolver,
		gen:      gen,
	}
}

// Resolver returns the segmentation front used for articles.
func (s *Store) Resolver() *segment.Resolver { return s.resolver }

// SetArticles replaces the corpus. Running sessions keep their segments.
func (s *Store) SetArticles(list []*Article) {
	articles := make(map[string]*Article, len(list))
	order := make([]string, 0, len(list))
	for _, a := range list {
		articles[a.ID] = a
		order = append(order, a.ID)
	}

	s.mu.Lock()
	s.articles, s.order = articles, order
	s.mu.Unlock()
}

// GetArticle returns an article by ID, or nil if not found.
func (s *Store) GetArticle(id string) *Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.articles[id]
}

// ListArticles returns articles in corpus order.
func (s *Store) ListArticles() []*Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Article, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.articles[id])
	}
	return list
}

// CreateSession prepares an article and starts a session on it. Segments
// bundled with the article win over the resolver.
func (s *Store) CreateSession(ctx context.Context, articleID string) (*GameSession, error) {
	a := s.GetArticle(articleID)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrArticleNotFound, articleID)
	}

	segs, source := presetSegments(a.Segments), sourcePreset
	if len(segs) == 0 {
		res := s.resolver.Resolve(ctx, a.Paragraphs)
		segs, source = res.Segments, res.Source
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSegments, articleID)
	}

	game := newGameSession(uuid.NewString(), a.ID, segs, source, s.gen)

	s.mu.Lock()
	s.sessions[game.ID] = game
	s.mu.Unlock()

	return game, nil
}

func presetSegments(raw []string) []string {
	var out []string
	for _, r := range raw {
		if c := segment.Clean(r); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// GetSession returns a session by ID, or nil if not found.
func (s *Store) GetSession(id string) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// DeleteSession drops a session. It reports whether it existed.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// SessionCount returns the number of live sessions.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
