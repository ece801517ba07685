package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bodul/recite/internal/puzzle"
)

const (
	wsMaxMessage = 512
	wsWriteWait  = 10 * time.Second
)

// wsMessage is a client command on the session socket.
type wsMessage struct {
	Type string `json:"type"` // tap, skip, hint
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}

// GET /api/sessions/{id}/ws — play a session over a websocket. Every command
// gets exactly one reply; taps and skips are also published to SSE subscribers.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	game := s.session(w, r)
	if game == nil {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		log.Debug().Err(err).Str("session", game.ID).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	view := game.View()
	if err := writeWS(conn, Event{Type: "session_state", Session: &view}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session", game.ID).Msg("websocket closed")
			}
			return
		}

		var msg wsMessage
		var reply Event
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = Event{Type: "error", Error: "malformed message"}
		} else {
			reply = s.dispatchWS(game, msg, r.RemoteAddr)
		}
		if err := writeWS(conn, reply); err != nil {
			return
		}
	}
}

func (s *Server) dispatchWS(game *GameSession, msg wsMessage, addr string) Event {
	switch msg.Type {
	case "tap":
		if !s.tapRL.allow(addr) {
			return Event{Type: "error", Error: "too many requests"}
		}
		res, err := s.applyTap(game, puzzle.Coord{Row: msg.Row, Col: msg.Col})
		if err != nil {
			return Event{Type: "error", Error: err.Error()}
		}
		return Event{Type: "tap", Tap: &res}
	case "skip":
		view, err := s.applySkip(game)
		if err != nil {
			return Event{Type: "error", Error: err.Error()}
		}
		return Event{Type: "skip", Session: &view}
	case "hint":
		c, err := game.Hint()
		if err != nil {
			return Event{Type: "error", Error: err.Error()}
		}
		return Event{Type: "hint", Hint: &c}
	default:
		return Event{Type: "error", Error: "unknown message type " + msg.Type}
	}
}

func writeWS(conn *websocket.Conn, evt Event) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(evt)
}
