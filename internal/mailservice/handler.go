package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/exp/rand"

	"bloglist/internal/common"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender, admin string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:     mb,
		m:      NewMailer(host, port, username, password, sender, NewTemplate()),
		admin:  admin,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SendIntegrityAlerts consumes integrity-violation events off the broker and
// mails the operator address. Never acking silently: every event ends up
// either delivered or logged.
func (s *MailService) SendIntegrityAlerts() {
	msgs, err := s.mb.Consume(common.IntegrityViolationKey, common.IntegrityExchange, common.IntegrityViolationQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var payload struct {
					Op     string `json:"op"`
					UserID int    `json:"user_id"`
					BlogID int    `json:"blog_id"`
					Cause  string `json:"cause"`
				}

				err := json.Unmarshal(msg.Body, &payload)
				if err != nil {
					s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
					continue
				}

				// exponential backoff with jitter
				const maxRetries = 5
				const baseDelay = 500 * time.Millisecond

				var attempt int
				for attempt = 0; attempt < maxRetries; attempt++ {
					err = s.m.send(s.admin, payload, "integrity_alert.html")
					if err == nil {
						s.logger.Info("integrity alert sent", slog.String("op", payload.Op), slog.Int("blog_id", payload.BlogID))
						msg.Ack(false)
						break
					}

					delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
					s.logger.Info("delaying integrity alert", slog.String("op", payload.Op), slog.Int("attempt", attempt), slog.Duration("delay", delay))
					time.Sleep(delay)
				}

				if attempt == maxRetries {
					s.logger.Error("could not send integrity alert", slog.String("op", payload.Op), slog.Int("blog_id", payload.BlogID))
					msg.Ack(false)
				}

			case <-s.ctx.Done():
				s.logger.Info("stopping SendIntegrityAlerts due to context cancellation")
				return
			}
		}
	}()
}

func (s *MailService) Close() {
	s.cancel()
}
