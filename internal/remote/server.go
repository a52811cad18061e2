package remote

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/supervisor"
	"github.com/okena-dev/okena/internal/vcsstatus"
)

// Server is the fiber app exposing pairing and the workspace WebSocket
// bridge, built on the teacher's exact HTTP/WS stack
// (gofiber/fiber + gofiber/websocket).
type Server struct {
	App         *fiber.App
	Auth        *AuthStore
	Bridge      *Bridge
	Broadcaster *Broadcaster
	VCSStatus   *vcsstatus.Poller

	// ServiceStatuses, when set by the composition root, reports every
	// project's current service statuses keyed by project id.
	ServiceStatuses func() map[string][]supervisor.ServiceStatus
}

// NewServer wires a fiber app with pairing, state, and PTY streaming
// routes over bridge/broadcaster/auth.
func NewServer(bridge *Bridge, broadcaster *Broadcaster) *Server {
	s := &Server{
		App:         fiber.New(fiber.Config{DisableStartupMessage: true}),
		Auth:        NewAuthStore(),
		Bridge:      bridge,
		Broadcaster: broadcaster,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// @Summary Redeem a pairing code for a bearer token
	// @Tags remote
	// @Param code query string true "Pairing code"
	// @Success 200 {object} fiber.Map
	// @Router /v1/remote/pair [post]
	s.App.Post("/v1/remote/pair", func(c *fiber.Ctx) error {
		code := c.Query("code")
		token, err := s.Auth.RedeemPairingCode(code)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"token": token})
	})

	// @Summary Regenerate the pairing code, for "okena pair" to print
	// @Tags remote
	// @Success 200 {object} fiber.Map
	// @Router /v1/remote/pairing-code [post]
	s.App.Post("/v1/remote/pairing-code", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"code": s.Auth.RegeneratePairingCode()})
	})

	authed := s.App.Group("/v1/remote", s.requireAuth)

	// @Summary Fetch current workspace state
	// @Tags remote
	// @Success 200 {object} StateSnapshot
	// @Router /v1/remote/state [get]
	authed.Get("/state", func(c *fiber.Ctx) error {
		result := s.Bridge.Submit(Command{Kind: CmdGetState})
		if result.Err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": result.Err.Error()})
		}
		return c.JSON(result.Value)
	})

	// @Summary Fetch the latest per-project branch/diff-stat summary
	// @Tags remote
	// @Success 200 {object} map[string]vcsstatus.Status
	// @Router /v1/remote/vcs-status [get]
	authed.Get("/vcs-status", func(c *fiber.Ctx) error {
		return c.JSON(s.VCSStatus.Snapshot())
	})

	// @Summary Fetch every project's current declared-service statuses
	// @Tags remote
	// @Success 200 {object} map[string][]supervisor.ServiceStatus
	// @Router /v1/remote/services [get]
	authed.Get("/services", func(c *fiber.Ctx) error {
		if s.ServiceStatuses == nil {
			return c.JSON(fiber.Map{})
		}
		return c.JSON(s.ServiceStatuses())
	})

	// @Summary Execute a workspace action on behalf of a remote client
	// @Tags remote
	// @Router /v1/remote/action [post]
	authed.Post("/action", func(c *fiber.Ctx) error {
		var req actions.Request
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid action payload"})
		}
		result := s.Bridge.Submit(Command{Kind: CmdAction, Action: req})
		if result.Err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": result.Err.Error()})
		}
		return c.JSON(fiber.Map{"result": result.Value})
	})

	// @Summary Open the multiplexed PTY stream WebSocket
	// @Tags remote
	// @Param token query string true "Bearer token"
	// @Success 101 {string} string "Switching Protocols"
	// @Router /v1/remote/stream [get]
	s.App.Get("/v1/remote/stream", func(c *fiber.Ctx) error {
		token := c.Query("token")
		if err := s.Auth.ValidateToken(token); err != nil {
			return fiber.ErrUnauthorized
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return websocket.New(s.handleStream)(c)
	})
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		token = c.Query("token")
	}
	if err := s.Auth.ValidateToken(token); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	return c.Next()
}

// streamMsg is the client->server control message on the multiplexed
// stream socket: subscribe/unsubscribe to a terminal's output.
type streamMsg struct {
	Type       string `json:"type"` // "subscribe" | "unsubscribe"
	TerminalID string `json:"terminal_id"`
	StreamID   uint64 `json:"stream_id,omitempty"`
}

func (s *Server) handleStream(conn *websocket.Conn) {
	type sub struct {
		terminalID string
		streamID   uint64
		done       chan struct{}
	}
	var subs []*sub

	defer func() {
		for _, sub := range subs {
			close(sub.done)
			s.Broadcaster.Unsubscribe(sub.terminalID, sub.streamID)
		}
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("remote: stream socket closed: %v", err)
			return
		}

		var msg streamMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe":
			streamID, frames := s.Broadcaster.Subscribe(msg.TerminalID)
			done := make(chan struct{})
			subs = append(subs, &sub{terminalID: msg.TerminalID, streamID: streamID, done: done})

			ack, _ := json.Marshal(fiber.Map{"type": "subscribed", "terminal_id": msg.TerminalID, "stream_id": streamID})
			_ = conn.WriteMessage(websocket.TextMessage, ack)

			go func(streamID uint64) {
				prefix := []byte(strconv.FormatUint(streamID, 10) + ":")
				for {
					select {
					case <-done:
						return
					case frame, ok := <-frames:
						if !ok {
							return
						}
						if err := conn.WriteMessage(websocket.BinaryMessage, append(prefix, frame...)); err != nil {
							return
						}
					}
				}
			}(streamID)
		case "unsubscribe":
			for i, sub := range subs {
				if sub.terminalID == msg.TerminalID && sub.streamID == msg.StreamID {
					close(sub.done)
					s.Broadcaster.Unsubscribe(sub.terminalID, sub.streamID)
					subs = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		}
	}
}

// Listen starts the fiber app on addr, blocking until it stops.
func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}
