// Package notify is the single exit point for outbound messages. It wraps
// the transport adapter with a global rate limit so bursts of scheduled
// sends never trip Telegram's flood control.
package notify

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"visionbot/internal/transport"
	"visionbot/pkg/logx"
)

type Config struct {
	RatePerSec float64
	Burst      int
}

type Service struct {
	adapter transport.Adapter
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, adapter transport.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := cfg.RatePerSec
	if r <= 0 {
		r = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 3
	}
	return &Service{
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(r), burst),
		log:     log,
	}
}

// Send delivers an HTML message to a chat. One best-effort retry on
// transient failure.
func (s *Service) Send(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if s.adapter == nil {
		return transport.MessageRef{}, errors.New("notify: no adapter")
	}
	if opt == nil {
		opt = &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}

	ref, err := s.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt)
	if err == nil || ctx.Err() != nil {
		return ref, err
	}

	s.log.Warn("send failed, retrying once", logx.Int64("chat", chatID), logx.Err(err))
	select {
	case <-ctx.Done():
		return transport.MessageRef{}, ctx.Err()
	case <-time.After(700 * time.Millisecond):
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	return s.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt)
}

// SendHTML is Send with default HTML options.
func (s *Service) SendHTML(ctx context.Context, chatID int64, text string) (transport.MessageRef, error) {
	return s.Send(ctx, chatID, text, nil)
}

func (s *Service) Edit(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.adapter.EditText(ctx, ref, text, opt)
}

func (s *Service) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return s.adapter.AnswerCallback(ctx, callbackID, text)
}
