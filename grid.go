package main

import (
	"time"

	"github.com/bodul/recite/internal/puzzle"
	"github.com/bodul/recite/internal/segment"
)

// Board is the player-facing view of one puzzle. It shows characters and the
// already accepted prefix of the path, never the rest of the solution.
type Board struct {
	Size     int            `json:"size"`
	Length   int            `json:"length"`
	Cells    [][]string     `json:"cells"`
	Start    puzzle.Coord   `json:"start"`
	Accepted []puzzle.Coord `json:"accepted"`
}

func newBoard(v *puzzle.Validator) *Board {
	l := v.Layout()
	n := v.State().Accepted
	return &Board{
		Size:     l.Size(),
		Length:   l.Len(),
		Cells:    l.Chars(),
		Start:    l.Start(),
		Accepted: l.Path()[:n],
	}
}

// SessionView is the JSON form of a GameSession.
type SessionView struct {
	ID           string         `json:"id"`
	ArticleID    string         `json:"article_id"`
	SegmentIndex int            `json:"segment_index"`
	SegmentCount int            `json:"segment_count"`
	Solved       int            `json:"solved"`
	Skipped      []int          `json:"skipped"`
	Source       segment.Source `json:"source"`
	Finished     bool           `json:"finished"`
	Board        *Board         `json:"board,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TapResult answers a tap.
type TapResult struct {
	Outcome  string      `json:"outcome"`
	Segment  int         `json:"segment"`  // segment the tap was played on
	Accepted int         `json:"accepted"` // accepted prefix length on that segment
	Session  SessionView `json:"session"`
}

// Event is pushed to SSE subscribers and websocket clients.
type Event struct {
	Type    string        `json:"type"` // session_state, tap, skip, hint, closed, error
	Tap     *TapResult    `json:"tap,omitempty"`
	Session *SessionView  `json:"session,omitempty"`
	Hint    *puzzle.Coord `json:"hint,omitempty"`
	Error   string        `json:"error,omitempty"`
}
