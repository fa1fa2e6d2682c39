package chessclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-relay/pkg/chessproto"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

var ErrNotConnected = errors.New("websocket not connected")

type EventCallback func(env chessproto.Envelope)

type StateCallback func(state State)

// WebSocket is a reconnecting client for the relay's /ws endpoint.
type WebSocket struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  State
	stateM sync.RWMutex

	eventCbs []EventCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewWebSocket(wsURL string, maxReconnectAttempts int) *WebSocket {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// SetPingInterval changes the keepalive period; call before Connect.
func (ws *WebSocket) SetPingInterval(d time.Duration) {
	if d > 0 {
		ws.pingInterval = d
	}
}

// SetHeaderProvider allows injecting headers into the WS handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
	ws.headerProvider = h
}

func (ws *WebSocket) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	switch ws.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	ws.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
		HTTPHeader: ws.buildHeaders(),
	})
	return conn, err
}

func (ws *WebSocket) attach(conn *websocket.Conn) {
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()
	ws.setState(StateConnected)

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)
}

// Send writes one envelope to the server.
func (ws *WebSocket) Send(ctx context.Context, env chessproto.Envelope) error {
	ws.connM.Lock()
	conn := ws.conn
	ws.connM.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, env)
}

// SendMove submits a move.
func (ws *WebSocket) SendMove(ctx context.Context, from, to, promotion string) error {
	return ws.Send(ctx, chessproto.MustEnvelope(chessproto.EventMove, chessproto.MoveRequest{From: from, To: to, Promotion: promotion}))
}

// Restart asks the server to reset the game.
func (ws *WebSocket) Restart(ctx context.Context) error {
	return ws.Send(ctx, chessproto.MustEnvelope(chessproto.EventRestartGame, nil))
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var env chessproto.Envelope
		if err := wsjson.Read(ws.rootCtx, conn, &env); err != nil {
			if ws.isStopping() {
				return
			}
			ws.setState(StateDisconnected)
			ws.closeConn(conn, websocket.StatusGoingAway, "reconnect")
			ws.scheduleReconnect()
			return
		}

		ws.cbM.RLock()
		callbacks := append([]EventCallback(nil), ws.eventCbs...)
		ws.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(env)
		}
	}
}

// pingLoop closes conn after two consecutive ping failures; listen then reconnects.
func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
			if ws.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			if ws.isStopping() {
				conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			ws.attach(conn)
			return
		}
		ws.setState(StateFailed)
	}()
}

// OnEvent registers cb for every envelope received. Register before Connect.
func (ws *WebSocket) OnEvent(cb EventCallback) {
	if cb == nil {
		return
	}
	ws.cbM.Lock()
	ws.eventCbs = append(ws.eventCbs, cb)
	ws.cbM.Unlock()
}

func (ws *WebSocket) OnStateChange(cb StateCallback) {
	if cb == nil {
		return
	}
	ws.cbM.Lock()
	ws.stateCbs = append(ws.stateCbs, cb)
	ws.cbM.Unlock()
}

func (ws *WebSocket) setState(state State) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := append([]StateCallback(nil), ws.stateCbs...)
	ws.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	if conn := ws.current(); conn != nil {
		ws.closeConn(conn, websocket.StatusNormalClosure, "close")
	}
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(StateDisconnected)
		return nil
	}
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.connM.Lock()
	defer ws.connM.Unlock()
	return ws.conn
}

func (ws *WebSocket) closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	ws.connM.Lock()
	if ws.conn == conn {
		ws.conn = nil
	}
	ws.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
