package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-relay/internal/rules"
	"github.com/park285/cheese-relay/internal/session"
	"github.com/park285/cheese-relay/internal/transport"
	"github.com/park285/cheese-relay/pkg/chessproto"
)

func newServer(t *testing.T) (*httptest.Server, *session.Session) {
	t.Helper()
	eng, err := rules.NewStandard("")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	sess := session.New(context.Background(), eng)
	srv := httptest.NewServer(SetupRoutes(sess, transport.Options{WriteTimeout: time.Second}))
	t.Cleanup(func() {
		srv.Close()
		sess.Close()
	})
	return srv, sess
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthzAndIndex(t *testing.T) {
	srv, _ := newServer(t)
	if resp := get(t, srv.URL+"/healthz"); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	resp := get(t, srv.URL+"/")
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("index content type: %q", resp.Header.Get("Content-Type"))
	}
}

func TestState_ReflectsMoves(t *testing.T) {
	srv, sess := newServer(t)

	out := make(chan chessproto.Envelope, 16)
	ctx := context.Background()
	if err := sess.Send(ctx, session.Join{ConnID: "w1", Outbox: out}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := sess.Send(ctx, session.Move{ConnID: "w1", Req: chessproto.MoveRequest{From: "g1", To: "f3"}}); err != nil {
		t.Fatalf("move: %v", err)
	}

	resp := get(t, srv.URL+"/api/state")
	var snap chessproto.StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.White || snap.Black || snap.Turn != "b" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.MovesSAN) != 1 || snap.MovesSAN[0] != "Nf3" {
		t.Fatalf("moves: %v", snap.MovesSAN)
	}
}

func TestBoardPNG(t *testing.T) {
	srv, _ := newServer(t)
	resp := get(t, srv.URL+"/board.png?flip=true")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("board: %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("png: %v", err)
	}
}

func TestState_SessionClosed(t *testing.T) {
	srv, sess := newServer(t)
	sess.Close()
	if resp := get(t, srv.URL+"/api/state"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", resp.StatusCode)
	}
}

func TestCaption(t *testing.T) {
	cases := []struct {
		snap chessproto.StateSnapshot
		want string
	}{
		{chessproto.StateSnapshot{Turn: "w"}, "White to move"},
		{chessproto.StateSnapshot{Turn: "b"}, "Black to move"},
		{chessproto.StateSnapshot{Result: "checkmate", Winner: "Black"}, "Checkmate, Black wins"},
		{chessproto.StateSnapshot{Result: "stalemate"}, "Stalemate"},
	}
	for _, tc := range cases {
		if got := caption(tc.snap); got != tc.want {
			t.Fatalf("caption(%+v) = %q, want %q", tc.snap, got, tc.want)
		}
	}
}
