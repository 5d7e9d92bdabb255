// Package reminders sends the fixed daily routine nudges plus a Sunday
// weekly one, all to the owner chat at configurable times.
package reminders

import (
	"context"
	"time"

	"visionbot/internal/bot"
	"visionbot/internal/config"
	"visionbot/pkg/logx"
)

type reminder struct {
	name string
	at   func(cfg config.Config) string
	text string
}

var daily = []reminder{
	{
		name: "reminders:morning",
		at:   func(c config.Config) string { return c.Reminders.Morning },
		text: "🌅 <b>Morning checklist</b>\n" +
			"• 💊 Take <b>Vitamin B12</b> (daily)\n" +
			"• 💧 Drink <b>500ml warm water</b>\n" +
			"• 🧴 Skincare → <b>Cleanser → Moisturizer → Sunscreen</b>",
	},
	{
		name: "reminders:mid_morning",
		at:   func(c config.Config) string { return c.Reminders.MidMorning },
		text: "☀️ <b>Mid-morning</b>\n" +
			"• 🍵 1 cup <b>Green Tea</b>\n" +
			"• 💡 <b>Stay hydrated</b> — drink 1 glass of water now",
	},
	{
		name: "reminders:afternoon",
		at:   func(c config.Config) string { return c.Reminders.Afternoon },
		text: "🍛 <b>Afternoon (post-lunch)</b>\n" +
			"• 💊 Take <b>Iron + Zinc</b> tablet\n" +
			"• ⚠️ <b>Avoid tea/coffee</b> 1 hr before/after iron",
	},
	{
		name: "reminders:evening",
		at:   func(c config.Config) string { return c.Reminders.Evening },
		text: "🌇 <b>Evening</b>\n" +
			"• 🍵 1 cup <b>Green Tea</b> (optional, pre-workout)\n" +
			"• 🏋️ <b>Get moving!</b> Dumbbell workout / 20-min brisk walk",
	},
	{
		name: "reminders:night",
		at:   func(c config.Config) string { return c.Reminders.Night },
		text: "🌙 <b>Night routine</b>\n" +
			"• 🧴 Skincare → <b>Cleanser → Under-eye cream → Moisturizer</b>\n" +
			"• 💧 Drink <b>last glass of water</b>\n" +
			"• ⏰ <b>Lights off by 11 PM</b> for proper recovery",
	},
}

const weeklyText = "📅 <b>Weekly (Sunday)</b>\n" +
	"• 💊 Take <b>Vitamin D3 + K2</b> capsule\n" +
	"• ☀️ Get <b>15–20 min sunlight</b> today"

type Plugin struct {
	log  logx.Logger
	deps bot.Deps
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "reminders" }

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
	if !cfg.Reminders.Enabled {
		for _, r := range daily {
			p.deps.Scheduler.Remove(r.name)
		}
		p.deps.Scheduler.Remove("reminders:weekly")
		return nil
	}

	for _, r := range daily {
		text := r.text
		if err := p.deps.Scheduler.AddDaily(r.name, r.at(cfg), 0, func(ctx context.Context) error {
			return p.send(ctx, text)
		}); err != nil {
			return err
		}
	}
	return p.deps.Scheduler.AddWeekly("reminders:weekly", time.Sunday, cfg.Reminders.WeeklyAt, 0,
		func(ctx context.Context) error { return p.send(ctx, weeklyText) })
}

func (p *Plugin) send(ctx context.Context, text string) error {
	chatID := p.deps.Config().Recipients.Me
	if chatID == 0 {
		return nil
	}
	_, err := p.deps.Notify.SendHTML(ctx, chatID, text)
	return err
}

func (p *Plugin) Commands() []bot.Command { return nil }

var _ bot.ConfigWatcher = (*Plugin)(nil)
