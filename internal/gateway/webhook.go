package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"wagate/internal/metrics"
	"wagate/internal/pubsub"
	"wagate/internal/whatsapp"
)

// ginVerify answers the platform's one-time subscription handshake. The
// response is a pure function of the query parameters and the configured
// secret: the challenge is echoed verbatim only on an exact match.
func (s *Server) ginVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token != s.Config.WhatsApp.VerifyToken {
		slog.Warn("webhook verification rejected", "mode", mode)
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	slog.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

// ginDeliver handles a webhook delivery. Deliveries are acked with 200
// before the reply is generated: the platform redelivers on non-2xx, and a
// redelivery of an already-processed message would double-reply. Everything
// after the ack is best effort.
func (s *Server) ginDeliver(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		slog.Warn("failed to read webhook body", "error", err)
		metrics.InboundTotal.WithLabelValues("noop").Inc()
		s.ack(c)
		return
	}

	if !whatsapp.VerifySignature(s.Config.WhatsApp.AppSecret, body, c.GetHeader(whatsapp.SignatureHeader)) {
		slog.Warn("webhook signature mismatch")
		metrics.InboundTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	in, ok := whatsapp.ParseWebhook(body)
	if !ok {
		// Status updates, media, malformed payloads: nothing to process.
		metrics.InboundTotal.WithLabelValues("noop").Inc()
		s.ack(c)
		return
	}

	if s.dedup.IsDuplicate(in.MessageID) {
		slog.Info("duplicate delivery ignored", "messageId", in.MessageID)
		metrics.InboundTotal.WithLabelValues("duplicate").Inc()
		s.ack(c)
		return
	}

	if !s.limiter.Allow(in.From) {
		slog.Warn("sender rate limited", "sender", in.From)
		metrics.InboundTotal.WithLabelValues("ratelimited").Inc()
		s.ack(c)
		return
	}

	metrics.InboundTotal.WithLabelValues("message").Inc()
	s.Events.Publish(c.Request.Context(), pubsub.Event{
		Kind:   "message.inbound",
		Sender: in.From,
		Text:   in.Text,
	})
	s.Tap.Broadcast("message.inbound", gin.H{"sender": in.From, "text": in.Text})

	s.inflight.Add(1)
	go func(in *whatsapp.Incoming) {
		defer s.inflight.Done()
		s.process(context.Background(), in)
	}(in)

	s.ack(c)
}

// process generates and dispatches the reply for one inbound message. Runs
// after the delivery has been acked.
func (s *Server) process(ctx context.Context, in *whatsapp.Incoming) {
	reply := s.Bot.Reply(ctx, in.From, in.Text)

	s.Events.Publish(ctx, pubsub.Event{
		Kind:   "message.reply",
		Sender: in.From,
		Text:   reply,
	})
	s.Tap.Broadcast("message.reply", gin.H{"sender": in.From, "text": reply})

	if err := s.Out.SendText(ctx, in.From, reply); err != nil {
		// Not retried: the inbound delivery is already acked, and a retry
		// storm against the send API helps no one.
		slog.Error("reply dispatch failed", "sender", in.From, "error", err)
		metrics.DispatchFailures.Inc()
		s.Events.Publish(ctx, pubsub.Event{Kind: "dispatch.failed", Sender: in.From})
	}
}

func (s *Server) ack(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
