package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/gatedrop/gatedrop/internal/db"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler exposes the websocket endpoints over a hub.
type WSHandler struct {
	hub *Hub
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Feed is the global marketplace feed: new jobs, jobs taken, balance
// notices. Server push only; client messages are discarded.
func (h *WSHandler) Feed(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h.hub.Register(ws)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.hub.Unregister(ws)
			_ = ws.Close()
			break
		}
	}
	return nil
}

// JobRoom joins the room for one job. Only a party to the job or a
// current applicant may join. Inbound messages are location pings,
// relayed verbatim to the room and never stored.
func (h *WSHandler) JobRoom(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	jobID := c.Param("id")
	if jobID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing job id"})
	}

	var (
		requesterID string
		runnerID    *string
		applicants  []string
	)
	err := db.Conn.QueryRow(context.Background(),
		`SELECT requester_id, runner_id, applicants FROM jobs WHERE id = $1`, jobID,
	).Scan(&requesterID, &runnerID, &applicants)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "job not found"})
	}
	if !isParticipant(userID, requesterID, runnerID, applicants) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this job"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h.hub.Register(ws)
	h.hub.Join(jobID, ws)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.hub.Unregister(ws)
			_ = ws.Close()
			break
		}
		h.relay(jobID, raw)
	}
	return nil
}

func isParticipant(userID, requesterID string, runnerID *string, applicants []string) bool {
	if userID == requesterID {
		return true
	}
	if runnerID != nil && userID == *runnerID {
		return true
	}
	for _, a := range applicants {
		if a == userID {
			return true
		}
	}
	return false
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// relay forwards a client push to the job's room. Only location pings
// are accepted; everything else is dropped.
func (h *WSHandler) relay(jobID string, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Type != EventLocationUpdate {
		return
	}
	h.hub.ToRoom(jobID, EventLocationUpdate, msg.Data)
}
