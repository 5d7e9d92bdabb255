// Package system provides the housekeeping commands: greeting, help,
// liveness and a quick config/status dump.
package system

import (
	"context"
	"fmt"
	"time"

	"visionbot/internal/bot"
	"visionbot/pkg/logx"
	"visionbot/pkg/tgui"
)

type Plugin struct {
	log  logx.Logger
	deps bot.Deps

	startedAt time.Time
	version   string
	helpFn    func() string
}

func New(version string) *Plugin {
	return &Plugin{version: version, startedAt: time.Now()}
}

func (p *Plugin) Name() string { return "system" }

// SetHelpFunc wires the router's command overview in after registration.
func (p *Plugin) SetHelpFunc(fn func() string) { p.helpFn = fn }

func (p *Plugin) Init(ctx context.Context, deps bot.Deps) error {
	p.deps = deps
	p.log = deps.Logger.With(logx.String("plugin", p.Name()))
	return nil
}

func (p *Plugin) Start(ctx context.Context) error { return nil }
func (p *Plugin) Stop(ctx context.Context) error  { return nil }

func (p *Plugin) Commands() []bot.Command {
	return []bot.Command{
		{
			Route:       "start",
			Description: "greet and point to help",
			Access:      bot.AccessRecipients,
			Handle: func(ctx context.Context, req *bot.Request) error {
				return req.Reply(ctx, p.deps.Notify,
					tgui.Esc("Hi! I'm your growth assistant bot.\nTry /help to see available commands.").String())
			},
		},
		{
			Route:       "help",
			Description: "usage overview",
			Access:      bot.AccessRecipients,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if p.helpFn == nil {
					return req.Reply(ctx, p.deps.Notify, "No help available.")
				}
				return req.Reply(ctx, p.deps.Notify, p.helpFn())
			},
		},
		{
			Route:       "health",
			Description: "liveness check",
			Access:      bot.AccessRecipients,
			Handle: func(ctx context.Context, req *bot.Request) error {
				now := time.Now().In(p.deps.Scheduler.Location()).Format("2006-01-02 15:04:05 MST")
				return req.Reply(ctx, p.deps.Notify, tgui.Esc("OK ✅\nTime: "+now).String())
			},
		},
		{
			Route:       "status",
			Description: "config and runtime status",
			Access:      bot.AccessOwner,
			Handle:      p.cmdStatus,
		},
	}
}

func (p *Plugin) cmdStatus(ctx context.Context, req *bot.Request) error {
	cfg := p.deps.Config()
	loc := p.deps.Scheduler.Location()
	now := time.Now().In(loc)

	partner := "not configured"
	if cfg.Recipients.Partner != 0 {
		partner = fmt.Sprintf("%d", cfg.Recipients.Partner)
	}

	text := tgui.JoinH("\n",
		tgui.B("Status"),
		tgui.Esc(fmt.Sprintf("Version: %s", p.version)),
		tgui.Esc(fmt.Sprintf("Uptime: %s", time.Since(p.startedAt).Round(time.Second))),
		tgui.Esc(fmt.Sprintf("Timezone: %s • Server time: %s", loc, now.Format("2006-01-02 15:04:05"))),
		tgui.Esc(fmt.Sprintf("Recipient (me): %d", cfg.Recipients.Me)),
		tgui.Esc("Recipient (partner): "+partner),
		tgui.Esc(fmt.Sprintf("Manifest times: %v • Card: %s/%s",
			cfg.Delivery.ManifestTimes, cfg.Delivery.CardPromptAt, cfg.Delivery.CardRevealAt)),
		tgui.Esc("Use /test_in 1 or /test_at HH:MM to verify scheduler delivery."),
	).String()

	if recent := p.deps.Scheduler.History(5); len(recent) > 0 {
		rows := make([]tgui.H, 0, len(recent)+1)
		rows = append(rows, tgui.B("Recent tasks"))
		for _, h := range recent {
			line := fmt.Sprintf("%s %s (%s)", h.Started.In(loc).Format("15:04"), h.Name, h.Duration.Round(time.Millisecond))
			if h.Error != "" {
				line += " ❌ " + h.Error
			}
			rows = append(rows, tgui.Esc(line))
		}
		text += "\n\n" + tgui.JoinH("\n", rows...).String()
	}
	return req.Reply(ctx, p.deps.Notify, text)
}
