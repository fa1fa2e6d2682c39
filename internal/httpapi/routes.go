package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/cheese-relay/internal/obslog"
	"github.com/park285/cheese-relay/internal/session"
	"github.com/park285/cheese-relay/internal/transport"
)

func SetupRoutes(sess *session.Session, wsOpts transport.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/", Index)
	r.Get("/healthz", Healthz)
	r.Get("/ws", transport.Handler(sess, wsOpts))
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", State(sess))
	})
	r.Get("/board.png", BoardPNG(sess))
	return r
}

// accessLog writes one zap line per request. WebSocket upgrades log when the socket closes.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		obslog.L().Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
