package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/cheese-relay/internal/chessclient"
	"github.com/park285/cheese-relay/internal/fanout"
	"github.com/park285/cheese-relay/pkg/chessproto"
)

var errSeatOpen = errors.New("a seat is free; tailing the socket would take it (use -join or set REDIS_URL)")

type tailMode int

const (
	tailNone tailMode = iota
	tailRedis
	tailSocket
)

// headerFlags collects repeated -header "Name: value" flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, ", ")
}

func (h headerFlags) Set(raw string) error {
	name, value, ok := strings.Cut(raw, ":")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !ok || name == "" || value == "" {
		return fmt.Errorf("header must look like 'Name: value', got %q", raw)
	}
	h[name] = value
	return nil
}

func (h headerFlags) provider() chessclient.HeaderProvider {
	return func() map[string]string { return h }
}

func main() {
	baseURL := flag.String("url", envOr("RELAY_URL", "http://localhost:3000"), "relay base URL")
	boardOut := flag.String("board", "", "write the current board PNG to this file")
	flip := flag.Bool("flip", false, "render the board from black's side")
	join := flag.Bool("join", false, "tail the socket even if that takes a free seat")
	headers := headerFlags{}
	flag.Var(headers, "header", "extra request header 'Name: value' (repeatable)")
	flag.Parse()

	client := chessclient.NewClient(*baseURL,
		chessclient.WithTimeout(8*time.Second),
		chessclient.WithHeaderProvider(headers.provider()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	snap, err := client.State(ctx)
	cancel()
	if err != nil {
		log.Fatalf("/api/state error: %v", err)
	}
	fmt.Printf("fen=%s turn=%s white=%t black=%t spectators=%d moves=%s\n",
		snap.FEN, snap.Turn, snap.White, snap.Black, snap.Spectators, strings.Join(snap.MovesSAN, " "))
	if snap.Result != "" {
		fmt.Printf("result=%s winner=%s\n", snap.Result, snap.Winner)
	}

	if *boardOut != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		raw, err := client.BoardPNG(ctx, *flip)
		cancel()
		if err != nil {
			log.Fatalf("/board.png error: %v", err)
		}
		if err := os.WriteFile(*boardOut, raw, 0o644); err != nil {
			log.Fatalf("write board: %v", err)
		}
		fmt.Printf("board written to %s (%d bytes)\n", *boardOut, len(raw))
	}

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	mode, err := chooseTail(snap, redisURL, *join)
	if err != nil {
		log.Printf("not tailing events: %v", err)
		return
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	switch mode {
	case tailRedis:
		tailFanout(sigCtx, redisURL, envOr("REDIS_CHANNEL", "chess:events"))
	case tailSocket:
		tailWS(sigCtx, *baseURL, headers.provider())
	}
}

// chooseTail prefers the Redis fan-out. The socket is used only when joining
// cannot take a seat from a player, or when the caller asked to join.
func chooseTail(snap *chessproto.StateSnapshot, redisURL string, join bool) (tailMode, error) {
	switch {
	case redisURL != "":
		return tailRedis, nil
	case join || (snap.White && snap.Black):
		return tailSocket, nil
	default:
		return tailNone, errSeatOpen
	}
}

func tailWS(ctx context.Context, baseURL string, headers chessclient.HeaderProvider) {
	ws := chessclient.NewWebSocket(wsURL(baseURL), 5)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state chessclient.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnEvent(printEvent)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	<-ctx.Done()
	_ = ws.Close(context.Background())
}

func tailFanout(ctx context.Context, redisURL, channel string) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := fanout.Connect(cctx, redisURL)
	cancel()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	log.Printf("tailing redis channel %s", channel)
	if err := fanout.Subscribe(ctx, rdb, channel, printEvent); err != nil {
		log.Printf("subscribe: %v", err)
	}
}

func wsURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") + "/ws"
}

func printEvent(env chessproto.Envelope) {
	if len(env.Data) == 0 {
		fmt.Printf("%s %s\n", time.Now().Format("15:04:05"), env.Event)
		return
	}
	fmt.Printf("%s %s %s\n", time.Now().Format("15:04:05"), env.Event, env.Data)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
