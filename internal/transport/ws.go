package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/session"
	"github.com/park285/cheese-relay/pkg/chessproto"
)

// Options tunes each WebSocket connection.
type Options struct {
	OriginPatterns []string
	OutboxSize     int
	WriteTimeout   time.Duration
	ReadLimit      int64
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 32
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	return o
}

// Handler upgrades the request and bridges the socket to sess until either side goes away.
func Handler(sess *session.Session, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			obslog.L().Warn("ws_accept_failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(opts.ReadLimit)

		connID := uuid.NewString()
		out := make(chan chessproto.Envelope, opts.OutboxSize)
		if err := sess.Send(r.Context(), session.Join{ConnID: connID, Outbox: out}); err != nil {
			conn.Close(websocket.StatusTryAgainLater, "session unavailable")
			return
		}
		obslog.L().Info("ws_connected", zap.String("conn_id", connID), zap.String("remote", r.RemoteAddr))
		stopped := make(chan struct{})
		defer func() {
			close(stopped)
			_ = sess.Send(context.Background(), session.Leave{ConnID: connID})
			obslog.L().Info("ws_disconnected", zap.String("conn_id", connID))
		}()

		go writeLoop(conn, connID, out, stopped, opts.WriteTimeout)

		readLoop(r.Context(), conn, sess, connID)
	}
}

// writeLoop drains the outbox. A closed outbox means the session dropped this connection.
func writeLoop(conn *websocket.Conn, connID string, out <-chan chessproto.Envelope, stopped <-chan struct{}, timeout time.Duration) {
	failed := false
	for env := range out {
		if failed {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := wsjson.Write(ctx, conn, env)
		cancel()
		if err != nil {
			failed = true
			obslog.L().Warn("ws_write_failed", zap.String("conn_id", connID), zap.String("event", env.Event), zap.Error(err))
			conn.Close(websocket.StatusGoingAway, "write failed")
		}
	}
	select {
	case <-stopped:
	default:
		conn.Close(websocket.StatusPolicyViolation, "dropped")
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, connID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					obslog.L().Debug("ws_read_end", zap.String("conn_id", connID), zap.Error(err))
				}
			}
			return
		}

		msg, ok := decodeClientFrame(data, connID)
		if !ok {
			continue
		}
		if err := sess.Send(ctx, msg); err != nil {
			return
		}
	}
}

// decodeClientFrame maps one client frame to a session message. Unknown events yield ok=false.
func decodeClientFrame(data []byte, connID string) (session.Msg, bool) {
	var env chessproto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return session.Move{ConnID: connID, Malformed: true}, true
	}
	switch env.Event {
	case chessproto.EventMove:
		var req chessproto.MoveRequest
		if err := env.Decode(&req); err != nil {
			return session.Move{ConnID: connID, Malformed: true}, true
		}
		return session.Move{ConnID: connID, Req: req}, true
	case chessproto.EventRestartGame:
		return session.Restart{ConnID: connID}, true
	default:
		obslog.L().Info("ws_unknown_event", zap.String("conn_id", connID), zap.String("event", env.Event))
		return nil, false
	}
}
