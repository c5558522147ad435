// Package gateway is the HTTP front of the bot: the platform webhook
// (handshake + deliveries), the form-encoded gateway variant, health and
// metrics endpoints, and an ops event tap over WebSocket.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wagate/internal/config"
	"wagate/internal/pubsub"
)

// Replier generates the reply text for one inbound message.
type Replier interface {
	Reply(ctx context.Context, senderID, text string) string
}

// Sender dispatches a reply to the messaging platform.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

// Server is the webhook gateway server.
type Server struct {
	Config *config.Config
	Bot    Replier
	Out    Sender
	Events *pubsub.Publisher
	Tap    *ConnManager

	dedup    *Dedup
	limiter  *senderLimiter
	engine   *gin.Engine
	httpSrv  *http.Server
	inflight sync.WaitGroup
	startAt  time.Time
}

func NewServer(cfg *config.Config, bot Replier, out Sender, events *pubsub.Publisher) *Server {
	s := &Server{
		Config:  cfg,
		Bot:     bot,
		Out:     out,
		Events:  events,
		Tap:     NewConnManager(),
		dedup:   NewDedup(10 * time.Minute),
		limiter: newSenderLimiter(cfg.Limits.PerSenderRate, cfg.Limits.Burst),
		startAt: time.Now(),
	}
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", s.ginStatus)
	engine.GET("/health", s.ginStatus)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/webhook", s.ginVerify)
	engine.POST("/webhook", s.ginDeliver)
	engine.POST("/twilio/webhook", s.ginTwilio)
	engine.GET("/ws", s.ginTap)
	return engine
}

// Handler exposes the configured engine, used by httptest in tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens until ctx is cancelled, then shuts down gracefully and
// drains in-flight deliveries.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.engine}

	slog.Info("gateway starting", "port", s.Config.Server.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	s.WaitIdle()
	return nil
}

// WaitIdle blocks until all in-flight deliveries have finished processing.
// Used during shutdown and by tests.
func (s *Server) WaitIdle() {
	s.inflight.Wait()
}

func (s *Server) ginStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "WhatsApp assistant gateway is running",
		"uptime":  time.Since(s.startAt).String(),
	})
}
