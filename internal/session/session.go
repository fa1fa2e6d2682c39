package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/msgcat"
	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/rules"
	"github.com/park285/cheese-relay/pkg/chessproto"
)

var ErrClosed = errors.New("session closed")

// Publisher receives a copy of every broadcast envelope. Publish must not block.
type Publisher interface {
	Publish(env chessproto.Envelope)
}

type Option func(*Session)

// WithPublisher mirrors broadcasts to p.
func WithPublisher(p Publisher) Option {
	return func(s *Session) { s.publisher = p }
}

// WithCatalog sets the catalog used for human-readable notices.
func WithCatalog(c *msgcat.Catalog) Option {
	return func(s *Session) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithInboxSize overrides the inbox buffer.
func WithInboxSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.inboxSize = n
		}
	}
}

// Session owns one shared game. All state below is touched only by loop.
type Session struct {
	inbox     chan Msg
	inboxSize int
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc

	engine    rules.Engine
	roles     RoleTable
	clients   map[string]chan chessproto.Envelope
	publisher Publisher
	catalog   *msgcat.Catalog

	// seats vacated by dropped clients, announced once the current handler finishes
	vacated []rules.Color
}

// New starts the session loop. Cancelling parent shuts the session down.
func New(parent context.Context, engine rules.Engine, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inboxSize: 64,
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		engine:    engine,
		clients:   make(map[string]chan chessproto.Envelope),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = msgcat.MustDefault()
	}
	s.inbox = make(chan Msg, s.inboxSize)

	go s.loop()
	return s
}

// Inbox exposes the raw inbox; prefer Send when the session may already be closed.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send delivers m to the loop, giving up when ctx ends or the session is closed.
func (s *Session) Send(ctx context.Context, m Msg) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot(ctx context.Context) (chessproto.StateSnapshot, error) {
	reply := make(chan chessproto.StateSnapshot, 1)
	if err := s.Send(ctx, GetSnapshot{Reply: reply}); err != nil {
		return chessproto.StateSnapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return chessproto.StateSnapshot{}, ErrClosed
	case <-ctx.Done():
		return chessproto.StateSnapshot{}, ctx.Err()
	}
}

// Close shuts the loop down and waits for it to exit.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.handleJoin(msg)
			case Leave:
				s.handleLeave(msg.ConnID)
			case Move:
				s.handleMove(msg)
			case Restart:
				s.handleRestart(msg.ConnID)
			case GetSnapshot:
				msg.Reply <- s.snapshot()
			case Shutdown:
				s.shutdown()
				return
			}
			s.settle()
		}
	}
}

func (s *Session) handleJoin(m Join) {
	if m.ConnID == "" || m.Outbox == nil {
		return
	}
	if _, dup := s.clients[m.ConnID]; dup {
		obslog.L().Warn("session_join_duplicate", zap.String("conn_id", m.ConnID))
		return
	}
	s.clients[m.ConnID] = m.Outbox

	color := s.roles.Assign(m.ConnID)
	if color == rules.NoColor {
		s.send(m.ConnID, chessproto.MustEnvelope(chessproto.EventSpectatorRole, nil))
	} else {
		s.send(m.ConnID, chessproto.MustEnvelope(chessproto.EventPlayerRole, string(color)))
	}
	s.send(m.ConnID, chessproto.MustEnvelope(chessproto.EventBoardState, s.engine.FEN()))

	obslog.L().Info("session_join",
		zap.String("conn_id", m.ConnID),
		zap.String("role", roleName(color)),
		zap.Int("clients", len(s.clients)),
	)

	if _, ok := s.clients[m.ConnID]; !ok || color == rules.NoColor {
		return
	}
	if s.roles.Holder(color.Opponent()) == "" {
		s.send(m.ConnID, chessproto.MustEnvelope(chessproto.EventWaiting, nil))
		return
	}
	s.broadcast(chessproto.MustEnvelope(chessproto.EventConnected, nil))
}

func (s *Session) handleLeave(id string) {
	ch, ok := s.clients[id]
	if !ok {
		return
	}
	delete(s.clients, id)
	close(ch)

	color := s.roles.Release(id)
	obslog.L().Info("session_leave",
		zap.String("conn_id", id),
		zap.String("role", roleName(color)),
		zap.Int("clients", len(s.clients)),
	)
	if color != rules.NoColor {
		s.vacated = append(s.vacated, color)
	}
}

func (s *Session) handleMove(m Move) {
	if _, ok := s.clients[m.ConnID]; !ok {
		return
	}
	req := m.Req
	if m.Malformed {
		s.reject(m.ConnID, nil, chessproto.ReasonMalformed, notice{})
		return
	}

	seat := s.roles.Seat(m.ConnID)
	if seat == rules.NoColor {
		s.reject(m.ConnID, &req, chessproto.ReasonNotSeated, notice{})
		return
	}
	turn := s.engine.Turn()
	if seat != turn {
		s.reject(m.ConnID, &req, chessproto.ReasonNotYourTurn, notice{Turn: turn.Name()})
		return
	}

	applied, err := s.engine.Apply(rules.Move{From: req.From, To: req.To, Promotion: req.Promotion})
	if err != nil {
		reason := chessproto.ReasonIllegal
		switch {
		case errors.Is(err, rules.ErrMalformedMove):
			reason = chessproto.ReasonMalformed
		case errors.Is(err, rules.ErrGameOver):
			reason = chessproto.ReasonGameOver
		}
		obslog.L().Info("session_move_rejected",
			zap.String("conn_id", m.ConnID),
			zap.String("move", req.From+req.To+req.Promotion),
			zap.String("reason", reason),
			zap.Error(err),
		)
		s.reject(m.ConnID, &req, reason, notice{From: req.From, To: req.To})
		return
	}

	fen := s.engine.FEN()
	obslog.L().Info("session_move",
		zap.String("conn_id", m.ConnID),
		zap.String("color", string(applied.Color)),
		zap.String("uci", applied.Move.UCI()),
		zap.String("san", applied.SAN),
		zap.String("fen", fen),
	)
	s.broadcast(chessproto.MustEnvelope(chessproto.EventMove, toBroadcast(applied)))
	s.broadcast(chessproto.MustEnvelope(chessproto.EventBoardState, fen))

	res := s.engine.Terminal()
	if !res.Over() {
		return
	}
	over := chessproto.GameOver{Result: string(res.Kind)}
	if res.Kind == rules.ResultCheckmate {
		w := res.Winner.Name()
		over.Winner = &w
	}
	over.Message = s.catalog.Text("game_over."+string(res.Kind),
		notice{Winner: res.Winner.Name(), Method: drawReason(res.Method)}, string(res.Kind))
	obslog.L().Info("session_game_over",
		zap.String("result", over.Result),
		zap.String("winner", res.Winner.Name()),
		zap.String("method", res.Method),
		zap.Int("plies", len(s.engine.History())),
	)
	s.broadcast(chessproto.MustEnvelope(chessproto.EventGameOver, over))
}

func (s *Session) handleRestart(id string) {
	if _, ok := s.clients[id]; !ok {
		return
	}
	s.engine.Reset()
	obslog.L().Info("session_restart", zap.String("conn_id", id), zap.String("fen", s.engine.FEN()))
	s.broadcast(chessproto.MustEnvelope(chessproto.EventBoardState, s.engine.FEN()))
	s.broadcast(chessproto.MustEnvelope(chessproto.EventGameRestarted, nil))
}

// settle announces seats vacated during the last handler. Announcing can drop
// more clients, so it runs until nothing is pending.
func (s *Session) settle() {
	for len(s.vacated) > 0 {
		color := s.vacated[0]
		s.vacated = s.vacated[1:]

		s.broadcast(chessproto.MustEnvelope(chessproto.EventOpponentLeft, nil))
		if other := s.roles.Holder(color.Opponent()); other != "" {
			s.send(other, chessproto.MustEnvelope(chessproto.EventWaiting, nil))
		}
	}
}

func (s *Session) reject(id string, req *chessproto.MoveRequest, reason string, n notice) {
	payload := chessproto.InvalidMove{
		Move:    req,
		Reason:  reason,
		Message: s.catalog.Text("invalid_move."+reason, n, reason),
	}
	s.send(id, chessproto.MustEnvelope(chessproto.EventInvalidMove, payload))
}

// send queues env for one client, dropping the client if its outbox is full.
func (s *Session) send(id string, env chessproto.Envelope) {
	ch, ok := s.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- env:
	default:
		s.drop(id, env.Event)
	}
}

func (s *Session) broadcast(env chessproto.Envelope) {
	for id, ch := range s.clients {
		select {
		case ch <- env:
		default:
			s.drop(id, env.Event)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(env)
	}
}

func (s *Session) drop(id, event string) {
	obslog.L().Warn("session_drop_slow_client", zap.String("conn_id", id), zap.String("event", event))
	s.handleLeave(id)
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
		s.roles.Release(id)
	}
	s.vacated = nil
	s.cancel()
	obslog.L().Info("session_shutdown")
}

func (s *Session) snapshot() chessproto.StateSnapshot {
	hist := s.engine.History()
	snap := chessproto.StateSnapshot{
		FEN:        s.engine.FEN(),
		Turn:       string(s.engine.Turn()),
		White:      s.roles.Holder(rules.White) != "",
		Black:      s.roles.Holder(rules.Black) != "",
		Clients:    len(s.clients),
		Spectators: len(s.clients) - s.roles.Seated(),
		MovesUCI:   make([]string, 0, len(hist)),
		MovesSAN:   make([]string, 0, len(hist)),
	}
	for _, a := range hist {
		snap.MovesUCI = append(snap.MovesUCI, a.Move.UCI())
		snap.MovesSAN = append(snap.MovesSAN, a.SAN)
	}
	if n := len(hist); n > 0 {
		last := toBroadcast(hist[n-1])
		snap.LastMove = &last
	}
	if res := s.engine.Terminal(); res.Over() {
		snap.Result = string(res.Kind)
		snap.Winner = res.Winner.Name()
	}
	return snap
}

func toBroadcast(a rules.Applied) chessproto.MoveBroadcast {
	return chessproto.MoveBroadcast{
		From:      a.Move.From,
		To:        a.Move.To,
		Promotion: a.Move.Promotion,
		SAN:       a.SAN,
		Color:     string(a.Color),
	}
}

// drawReason turns a draw method name into the phrase shown to players.
func drawReason(method string) string {
	switch method {
	case "InsufficientMaterial":
		return "insufficient material"
	case "ThreefoldRepetition":
		return "threefold repetition"
	case "FivefoldRepetition":
		return "fivefold repetition"
	case "FiftyMoveRule":
		return "fifty-move rule"
	case "SeventyFiveMoveRule":
		return "seventy-five-move rule"
	default:
		return ""
	}
}

func roleName(c rules.Color) string {
	if c == rules.NoColor {
		return "spectator"
	}
	return c.Name()
}

// notice is the data passed to msgcat templates.
type notice struct {
	From   string
	To     string
	Turn   string
	Winner string
	Method string
}
