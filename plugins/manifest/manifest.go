// Package manifest sends the daily manifestation sets: three lines for the
// owner at the configured morning times, partner copies staggered by a small
// delay, one content set per calendar day via the rotation picker.
package manifest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"visionbot/internal/bot"
	"visionbot/internal/config"
	"visionbot/internal/content"
	"visionbot/internal/scheduler"
	"visionbot/internal/storage"
	"visionbot/pkg/logx"
	"visionbot/pkg/tgui"
)

type Plugin struct {
	log  logx.Logger
	deps bot.Deps
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "manifest" }

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
	// AddDaily upserts by name, so re-registering replaces the old times.
	return p.schedule(cfg)
}

func (p *Plugin) schedule(cfg config.Config) error {
	sched := p.deps.Scheduler
	partnerDelay, err := config.ParseDurationOrDefault("delivery.partner_delay", cfg.Delivery.PartnerDelay, time.Minute)
	if err != nil {
		return err
	}

	for i, at := range cfg.Delivery.ManifestTimes {
		idx := i
		name := fmt.Sprintf("manifest:line_%d", idx)
		if err := sched.AddDaily(name, at, 0, func(ctx context.Context) error {
			return p.sendLine(ctx, idx, false)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}

		if cfg.Recipients.Partner == 0 {
			sched.Remove(fmt.Sprintf("manifest:partner_line_%d", idx))
			continue
		}
		h, m, err := scheduler.ParseHHMM(at)
		if err != nil {
			return err
		}
		pt := time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Add(partnerDelay)
		pname := fmt.Sprintf("manifest:partner_line_%d", idx)
		if err := sched.AddDaily(pname, pt.Format("15:04"), 0, func(ctx context.Context) error {
			return p.sendLine(ctx, idx, true)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", pname, err)
		}
	}
	return nil
}

// sendLine delivers one line of today's set. The set is resolved fresh each
// call so all three lines of a day come from the same item.
func (p *Plugin) sendLine(ctx context.Context, idx int, partner bool) error {
	day := p.localDay()

	var (
		item   content.ManifestItem
		err    error
		chatID int64
		header string
		who    string
	)
	cfg := p.deps.Config()
	if partner {
		item, err = p.deps.Content.TodayPartnerManifest(ctx, day)
		chatID = cfg.Recipients.Partner
		header = "🌅 Manifestation for you:"
		who = "partner"
	} else {
		item, err = p.deps.Content.TodayManifest(ctx, day)
		chatID = cfg.Recipients.Me
		header = "🌅 Manifestation:"
		who = "me"
	}
	if err != nil {
		return err
	}
	if chatID == 0 {
		return nil
	}
	if idx < 0 || idx >= len(item.Set) {
		return fmt.Errorf("line %d out of range for set id=%d (len %d)", idx, item.ID, len(item.Set))
	}

	text := tgui.JoinH("\n\n", tgui.B(header), tgui.Esc(item.Set[idx])).String()
	if _, err := p.deps.Notify.SendHTML(ctx, chatID, text); err != nil {
		return err
	}
	p.log.Info("manifestation sent", logx.String("to", who), logx.Int("id", item.ID), logx.Int("line", idx))

	// best-effort audit trail
	_ = p.deps.Store.AppendReflection(ctx, storage.Reflection{
		Kind:      "manifestation",
		ItemID:    fmt.Sprintf("%d/%d", item.ID, idx),
		Recipient: who,
	})
	return nil
}

// sendSet pushes all lines of today's set at once (the force commands).
func (p *Plugin) sendSet(ctx context.Context, partner bool) error {
	day := p.localDay()
	var item content.ManifestItem
	var err error
	if partner {
		item, err = p.deps.Content.TodayPartnerManifest(ctx, day)
	} else {
		item, err = p.deps.Content.TodayManifest(ctx, day)
	}
	if err != nil {
		return err
	}
	for i := range item.Set {
		if err := p.sendLine(ctx, i, partner); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) localDay() string {
	return time.Now().In(p.deps.Scheduler.Location()).Format("2006-01-02")
}

func (p *Plugin) Commands() []bot.Command {
	return []bot.Command{
		{
			Route:       "force_manifest",
			Description: "send today's manifestation set now",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if err := p.sendSet(ctx, false); err != nil {
					return err
				}
				return req.Reply(ctx, p.deps.Notify, "Sent manifestation set ✅")
			},
		},
		{
			Route:       "force_manifest_partner",
			Description: "send today's partner set now",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if p.deps.Config().Recipients.Partner == 0 {
					return req.Reply(ctx, p.deps.Notify, "No partner chat configured.")
				}
				if err := p.sendSet(ctx, true); err != nil {
					return err
				}
				return req.Reply(ctx, p.deps.Notify, "Sent manifestation set (partner) ✅")
			},
		},
		{
			Route:       "test_in",
			Description: "schedule a test delivery in N minutes",
			Usage:       "/test_in <minutes>",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				minutes := 5
				if len(req.Args) > 0 {
					v, err := strconv.Atoi(req.Args[0])
					if err != nil || v < 0 {
						return fmt.Errorf("usage: /test_in <minutes>")
					}
					minutes = v
				}
				start := time.Now().Add(time.Duration(minutes) * time.Minute)
				p.scheduleOneOffs(start)
				return req.Reply(ctx, p.deps.Notify,
					fmt.Sprintf("Scheduled test delivery starting in %d minute(s).", minutes))
			},
		},
		{
			Route:       "test_at",
			Description: "schedule a test delivery at HH:MM",
			Usage:       "/test_at <HH:MM>",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if len(req.Args) == 0 {
					return fmt.Errorf("usage: /test_at HH:MM (24h)")
				}
				h, m, err := scheduler.ParseHHMM(req.Args[0])
				if err != nil {
					return err
				}
				loc := p.deps.Scheduler.Location()
				at := scheduler.NextClockTime(time.Now(), h, m, loc)
				p.scheduleOneOffs(at)
				return req.Reply(ctx, p.deps.Notify,
					fmt.Sprintf("Scheduled test delivery for %s (%s).", req.Args[0], loc))
			},
		},
		{
			Route:       "clear_used",
			Description: "reset the manifestation rotation",
			Access:      bot.AccessOwner,
			Handle: func(ctx context.Context, req *bot.Request) error {
				if err := p.deps.Content.ClearManifestUsed(ctx); err != nil {
					return err
				}
				return req.Reply(ctx, p.deps.Notify, "Rotation state cleared ✅")
			},
		},
	}
}

// scheduleOneOffs queues the three lines starting at t0, spaced one minute
// apart, partner copies 30 seconds after each.
func (p *Plugin) scheduleOneOffs(t0 time.Time) {
	cfg := p.deps.Config()
	for i := 0; i < 3; i++ {
		idx := i
		at := t0.Add(time.Duration(i) * time.Minute)
		_ = p.deps.Scheduler.AddOnce(fmt.Sprintf("manifest:test_line_%d", idx), at, 0,
			func(ctx context.Context) error { return p.sendLine(ctx, idx, false) })
		if cfg.Recipients.Partner != 0 {
			_ = p.deps.Scheduler.AddOnce(fmt.Sprintf("manifest:test_partner_line_%d", idx), at.Add(30*time.Second), 0,
				func(ctx context.Context) error { return p.sendLine(ctx, idx, true) })
		}
	}
}

var _ bot.ConfigWatcher = (*Plugin)(nil)
