package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/websocket"

	"github.com/okena-dev/okena/internal/actions"
	"github.com/okena-dev/okena/internal/logger"
	"github.com/okena-dev/okena/internal/persistence"
	"github.com/okena-dev/okena/internal/workspace"
)

// ConnectionStatus mirrors the client-visible connection lifecycle from
// original_source/src/remote_client/connection.rs.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
	Reconnecting
	ConnError
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case ConnError:
		return "error"
	default:
		return "unknown"
	}
}

// refreshInterval is not read anywhere: RemoteConnection runs no
// token-refresh loop and keeps its saved token until the server rejects it.
const (
	refreshInterval = 10 * time.Minute
	dialTimeout     = 10 * time.Second
	maxBackoff      = 30 * time.Second
)

// RemoteConnection is a client-side handle to one remote okena server:
// its HTTP base URL, saved token, and a background WS connection that
// reconnects with backoff and re-subscribes to every stream it held
// before the drop.
type RemoteConnection struct {
	mu sync.Mutex

	Config persistence.RemoteConnectionConfig

	status  ConnectionStatus
	attempt int
	lastErr error

	conn         *websocket.Conn
	localIDs     map[string]bool   // terminal ids this client has rendered locally
	streamIDs    map[string]uint64 // terminal_id -> stream_id, set on subscribe ack
	termByStream map[uint64]string // stream_id -> terminal_id, for routing inbound frames

	stop chan struct{}

	httpClient *http.Client

	// DataHandler, if set, receives each decoded PTY output frame routed
	// to the local terminal it was subscribed against.
	DataHandler func(terminalID string, data []byte)
}

// NewRemoteConnection creates a client bound to cfg, not yet connected.
func NewRemoteConnection(cfg persistence.RemoteConnectionConfig) *RemoteConnection {
	return &RemoteConnection{
		Config:       cfg,
		status:       Disconnected,
		localIDs:     make(map[string]bool),
		streamIDs:    make(map[string]uint64),
		termByStream: make(map[uint64]string),
		stop:         make(chan struct{}),
		httpClient:   &http.Client{Timeout: dialTimeout},
	}
}

// Status returns the current connection status.
func (r *RemoteConnection) Status() ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *RemoteConnection) setStatus(s ConnectionStatus, err error) {
	r.mu.Lock()
	r.status = s
	r.lastErr = err
	r.mu.Unlock()
}

func (r *RemoteConnection) baseURL(scheme string) string {
	return fmt.Sprintf("%s://%s:%d", scheme, r.Config.Host, r.Config.Port)
}

// Run drives the reconnect loop until Stop is called: dial, handshake
// (GetState + re-subscribe), read frames, and on drop back off and retry.
func (r *RemoteConnection) Run(onState func(StateSnapshot)) {
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		r.setStatus(Connecting, nil)
		if err := r.connectOnce(onState); err != nil {
			r.mu.Lock()
			r.attempt++
			attempt := r.attempt
			r.mu.Unlock()
			r.setStatus(Reconnecting, err)

			backoff := time.Duration(attempt) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-r.stop:
				return
			case <-time.After(backoff):
			}
			continue
		}
	}
}

func (r *RemoteConnection) connectOnce(onState func(StateSnapshot)) error {
	token := ""
	if r.Config.SavedToken != nil {
		token = *r.Config.SavedToken
	}

	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", r.Config.Host, r.Config.Port), Path: "/v1/remote/stream"}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.attempt = 0
	r.mu.Unlock()
	r.setStatus(Connected, nil)

	state, err := r.fetchState(token)
	if err != nil {
		_ = conn.Close()
		return err
	}
	onState(state)
	r.reconcileTerminals(state)
	r.resubscribeAll()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("remote client: read error: %v", err)
			return err
		}
		r.handleFrame(msgType, data)
	}
}

func (r *RemoteConnection) fetchState(token string) (StateSnapshot, error) {
	req, err := http.NewRequest(http.MethodGet, r.baseURL("http")+"/v1/remote/state", nil)
	if err != nil {
		return StateSnapshot{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return StateSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return StateSnapshot{}, fmt.Errorf("remote: GET /v1/remote/state returned %s: %s", resp.Status, body)
	}

	var state StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return StateSnapshot{}, err
	}
	return state, nil
}

// reconcileTerminals implements the idempotent-recreate / evict-stale
// rule from spec.md's reconnect testable property: terminal ids present
// in the fresh state are kept if already known locally (the Terminal
// object, and its scrollback, is reused); ids known locally but absent
// from state are evicted.
func (r *RemoteConnection) reconcileTerminals(state StateSnapshot) {
	present := make(map[string]bool)
	for _, p := range state.Projects {
		for _, id := range layoutTerminalIDs(p.Layout) {
			present[id] = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.localIDs {
		if !present[id] {
			delete(r.localIDs, id)
		}
	}
	for id := range present {
		r.localIDs[id] = true
	}
}

func (r *RemoteConnection) resubscribeAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.localIDs))
	for id := range r.localIDs {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Subscribe(id)
	}
}

// Subscribe asks the server to start streaming terminalID's output.
func (r *RemoteConnection) Subscribe(terminalID string) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return
	}
	msg, _ := json.Marshal(streamMsg{Type: "subscribe", TerminalID: terminalID})
	_ = conn.WriteMessage(websocket.TextMessage, msg)
}

// streamAck is the server's reply to a "subscribe"/"unsubscribe" control
// message, carrying the stream_id frames for that terminal will be
// prefixed with.
type streamAck struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminal_id"`
	StreamID   uint64 `json:"stream_id"`
}

// handleFrame dispatches one message off the multiplexed stream socket:
// text messages are subscribe acks that record the stream_id -> terminal
// id mapping; binary messages are "<stream_id>:<flag><payload>" PTY output
// frames whose payload is brotli-decompressed when the flag says so and
// then routed to DataHandler without the flag byte.
func (r *RemoteConnection) handleFrame(msgType int, data []byte) {
	if msgType == websocket.TextMessage {
		var ack streamAck
		if err := json.Unmarshal(data, &ack); err != nil || ack.Type != "subscribed" {
			return
		}
		r.mu.Lock()
		r.streamIDs[ack.TerminalID] = ack.StreamID
		r.termByStream[ack.StreamID] = ack.TerminalID
		r.mu.Unlock()
		return
	}

	sep := bytes.IndexByte(data, ':')
	if sep < 0 {
		return
	}
	streamID, err := strconv.ParseUint(string(data[:sep]), 10, 64)
	if err != nil {
		return
	}

	r.mu.Lock()
	terminalID, ok := r.termByStream[streamID]
	handler := r.DataHandler
	r.mu.Unlock()
	if !ok || handler == nil {
		return
	}
	payload := data[sep+1:]
	if len(payload) > 0 && frameFlag(payload[0]) == flagBrotli {
		decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload[frameHeader:])))
		if err != nil {
			logger.Debugf("remote client: dropping undecodable frame on stream %d: %v", streamID, err)
			return
		}
		payload = decoded
	} else if len(payload) > 0 {
		payload = payload[frameHeader:]
	}
	handler(terminalID, payload)
}

// SendAction submits an action to the remote server by issuing an
// authenticated HTTP POST to /v1/remote/action, mirroring the server's
// own /action route in server.go.
func (r *RemoteConnection) SendAction(req actions.Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	token := ""
	if r.Config.SavedToken != nil {
		token = *r.Config.SavedToken
	}

	httpReq, err := http.NewRequest(http.MethodPost, r.baseURL("http")+"/v1/remote/action", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote: POST /v1/remote/action returned %s: %s", resp.Status, respBody)
	}
	return nil
}

// Stop tears down the reconnect loop and closes any open socket.
func (r *RemoteConnection) Stop() {
	close(r.stop)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.status = Disconnected
}

// layoutTerminalIDs walks a layout tree collecting every leaf's
// terminal_id, mirroring workspace's own unexported collectTerminalIDs
// but over the read-only snapshot the client receives on the wire.
func layoutTerminalIDs(node *workspace.Layout) []string {
	if node == nil {
		return nil
	}
	var ids []string
	if node.Kind == workspace.KindTerminal {
		if node.TerminalID != nil {
			ids = append(ids, *node.TerminalID)
		}
		return ids
	}
	for _, child := range node.Children {
		ids = append(ids, layoutTerminalIDs(child)...)
	}
	return ids
}
