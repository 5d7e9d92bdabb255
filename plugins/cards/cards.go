// Package cards runs the daily card ritual: a morning draw announcement
// (content withheld) and an evening reveal of the same card, rendered as a
// boxed monospace layout, sent to both recipients.
package cards

import (
	"context"
	"fmt"
	"time"

	"visionbot/internal/bot"
	"visionbot/internal/config"
	"visionbot/internal/storage"
	"visionbot/pkg/logx"
	"visionbot/pkg/tgui"
)

const announceText = "🃏 Card drawn — take a quiet moment to reflect on your day.\n\n" +
	"When it's time, you'll receive the full card reveal."

type Plugin struct {
	log  logx.Logger
	deps bot.Deps
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "cards" }

func (p *Plugin) Init(ctx context.Context, deps bot.Deps) error {
	p.deps = deps
	p.log = deps.Logger.With(logx.String("plugin", p.Name()))
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	return p.schedule(p.deps.Config())
}

func (p *Plugin) Stop(ctx context.Context) error { return nil }

func (p *Plugin) OnConfigChange(ctx context.Context, cfg config.Config) error {
	return p.schedule(cfg)
}

func (p *Plugin) schedule(cfg config.Config) error {
	if err := p.deps.Scheduler.AddDaily("cards:prompt", cfg.Delivery.CardPromptAt, 0, p.sendPrompt); err != nil {
		return err
	}
	return p.deps.Scheduler.AddDaily("cards:reveal", cfg.Delivery.CardRevealAt, 0, p.sendReveal)
}

// sendPrompt draws (or reuses) today's card and announces the draw only.
// The content stays hidden until the reveal.
func (p *Plugin) sendPrompt(ctx context.Context) error {
	day := p.localDay()
	card, err := p.deps.Content.TodayCard(ctx, day)
	if err != nil {
		return err
	}
	p.log.Info("card drawn", logx.String("day", day), logx.Int("id", card.ID))

	for _, who := range p.recipients() {
		if _, err := p.deps.Notify.SendHTML(ctx, who.chatID, tgui.Esc(announceText).String()); err != nil {
			p.log.Warn("card announce failed", logx.String("to", who.name), logx.Err(err))
		}
	}
	return nil
}

// sendReveal shows the same persisted card to both recipients.
func (p *Plugin) sendReveal(ctx context.Context) error {
	day := p.localDay()
	card, err := p.deps.Content.TodayCard(ctx, day)
	if err != nil {
		return err
	}

	box := renderBox(card.Title, card.Message, card.Prompt, boxInnerWidth)
	text := tgui.JoinH("\n", tgui.B("🔮 Today's card"), tgui.Pre(box)).String()

	for _, who := range p.recipients() {
		if _, err := p.deps.Notify.SendHTML(ctx, who.chatID, text); err != nil {
			p.log.Warn("card reveal failed", logx.String("to", who.name), logx.Err(err))
			continue
		}
		_ = p.deps.Store.AppendReflection(ctx, storage.Reflection{
			Kind:      "card",
			ItemID:    fmt.Sprintf("%d", card.ID),
			Recipient: who.name,
		})
	}
	return nil
}

type recipient struct {
	name   string
	chatID int64
}

func (p *Plugin) recipients() []recipient {
	cfg := p.deps.Config()
	out := []recipient{}
	if cfg.Recipients.Me != 0 {
		out = append(out, recipient{name: "me", chatID: cfg.Recipients.Me})
	}
	if cfg.Recipients.Partner != 0 {
		out = append(out, recipient{name: "partner", chatID: cfg.Recipients.Partner})
	}
	return out
}

func (p *Plugin) localDay() string {
	return time.Now().In(p.deps.Scheduler.Location()).Format("2006-01-02")
}

func (p *Plugin) Commands() []bot.Command {
	return []bot.Command{
		{
			Route:       "force_card",
			Description: "send the card draw announcement now",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if err := p.sendPrompt(ctx); err != nil {
					return err
				}
				return req.Reply(ctx, p.deps.Notify, "Sent card prompt ✅")
			},
		},
		{
			Route:       "force_reveal",
			Description: "send the card reveal now",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if err := p.sendReveal(ctx); err != nil {
					return err
				}
				return req.Reply(ctx, p.deps.Notify, "Sent card reveal ✅")
			},
		},
	}
}

var _ bot.ConfigWatcher = (*Plugin)(nil)
