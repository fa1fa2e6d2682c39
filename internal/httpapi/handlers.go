package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/render"
	"github.com/park285/cheese-relay/internal/session"
	"github.com/park285/cheese-relay/pkg/chessproto"
)

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Chess</title></head>
<body>
<p>Connect a WebSocket client to <code>/ws</code>. Frames are JSON: <code>{"event": "...", "data": ...}</code>.</p>
<p><img src="/board.png" alt="current position" width="320"></p>
</body>
</html>
`

func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func State(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := snapshot(w, r, sess)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// BoardPNG renders the current position. ?flip=1 shows black at the bottom.
func BoardPNG(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := snapshot(w, r, sess)
		if !ok {
			return
		}
		opts := render.Options{Caption: caption(snap)}
		if flip, err := strconv.ParseBool(r.URL.Query().Get("flip")); err == nil {
			opts.Flip = flip
		}
		if snap.LastMove != nil {
			opts.Highlight = &render.Highlight{From: snap.LastMove.From, To: snap.LastMove.To}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		raw, err := render.PNG(ctx, snap.FEN, opts)
		if err != nil {
			obslog.L().Error("board_render_failed", zap.String("fen", snap.FEN), zap.Error(err))
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(raw)
	}
}

func snapshot(w http.ResponseWriter, r *http.Request, sess *session.Session) (chessproto.StateSnapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, "session unavailable", status)
		return chessproto.StateSnapshot{}, false
	}
	return snap, true
}

func caption(snap chessproto.StateSnapshot) string {
	switch snap.Result {
	case "checkmate":
		return "Checkmate, " + snap.Winner + " wins"
	case "stalemate":
		return "Stalemate"
	case "draw":
		return "Draw"
	}
	if snap.Turn == "b" {
		return "Black to move"
	}
	return "White to move"
}
