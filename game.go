package main

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bodul/recite/internal/puzzle"
	"github.com/bodul/recite/internal/segment"
)

var ErrSessionFinished = errors.New("session finished")

// GameSession plays an article's segments in order. Each segment gets its own
// layout and validator, replaced as soon as the segment is solved or skipped.
type GameSession struct {
	ID        string
	ArticleID string
	Segments  []string
	Source    segment.Source
	CreatedAt time.Time

	mu        sync.Mutex
	gen       *puzzle.Generator
	index     int
	validator *puzzle.Validator // nil once finished
	solved    int
	skipped   []int
}

func newGameSession(id, articleID string, segs []string, source segment.Source, gen *puzzle.Generator) *GameSession {
	g := &GameSession{
		ID:        id,
		ArticleID: articleID,
		Segments:  segs,
		Source:    source,
		CreatedAt: time.Now(),
		gen:       gen,
		skipped:   []int{},
	}
	g.load(0)
	return g
}

// load moves to the first playable segment at or after from. Segments whose
// layout cannot be generated are skipped; single-character segments are
// already solved by the pre-accepted start.
func (g *GameSession) load(from int) {
	for i := from; i < len(g.Segments); i++ {
		layout, err := g.gen.Generate(g.Segments[i])
		if err != nil {
			log.Warn().Err(err).Str("session", g.ID).Int("segment", i).Msg("skipping segment")
			g.skipped = append(g.skipped, i)
			continue
		}
		v := puzzle.NewValidator(layout)
		if v.Done() {
			g.solved++
			continue
		}
		g.index, g.validator = i, v
		return
	}
	g.index, g.validator = len(g.Segments), nil
}

// Tap plays a tap on the current segment. A completed segment advances the
// session before the result is returned.
func (g *GameSession) Tap(c puzzle.Coord) (TapResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.validator == nil {
		return TapResult{}, ErrSessionFinished
	}
	out, st := g.validator.Tap(c)
	res := TapResult{Outcome: out.String(), Segment: g.index, Accepted: st.Accepted}
	if out == puzzle.Completed {
		g.solved++
		g.load(g.index + 1)
	}
	res.Session = g.view()
	return res, nil
}

// Skip abandons the current segment.
func (g *GameSession) Skip() (SessionView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.validator == nil {
		return g.view(), ErrSessionFinished
	}
	g.skipped = append(g.skipped, g.index)
	g.load(g.index + 1)
	return g.view(), nil
}

// Hint returns the cell the player should tap next.
func (g *GameSession) Hint() (puzzle.Coord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.validator == nil {
		return puzzle.Coord{}, ErrSessionFinished
	}
	c, _ := g.validator.Next()
	return c, nil
}

// View returns a snapshot safe to serialize.
func (g *GameSession) View() SessionView {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view()
}

func (g *GameSession) view() SessionView {
	v := SessionView{
		ID:           g.ID,
		ArticleID:    g.ArticleID,
		SegmentIndex: g.index,
		SegmentCount: len(g.Segments),
		Solved:       g.solved,
		Skipped:      slices.Clone(g.skipped),
		Source:       g.Source,
		Finished:     g.validator == nil,
		CreatedAt:    g.CreatedAt,
	}
	if g.validator != nil {
		v.Board = newBoard(g.validator)
	}
	return v
}
