// Package focus runs phone-free pomodoro sessions: /focus starts a timer,
// a halfway ping keeps long sessions honest, and the end ping asks whether
// the phone stayed away. Honest answers feed the daily counters, the streak
// and XP.
package focus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"visionbot/internal/bot"
	"visionbot/internal/storage"
	"visionbot/internal/transport"
	"visionbot/pkg/logx"
	"visionbot/pkg/tgui"
)

const (
	xpPomodoro  = 10
	xpPhoneFree = 5
)

type Plugin struct {
	log  logx.Logger
	deps bot.Deps
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "focus" }

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
			Route:       "focus",
			Description: "start a phone-free focus session",
			Usage:       "/focus [minutes] [tag] [phone|nophone]",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdFocus,
		},
		{
			Route:       "focus_status",
			Description: "today's sessions and streak",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdStatus,
		},
		{
			Route:       "focus_target",
			Description: "set phone-free sessions needed per day",
			Usage:       "/focus_target <n>",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdTarget,
		},
	}
}

func (p *Plugin) Callbacks() []bot.CallbackRoute {
	return []bot.CallbackRoute{
		{Action: "pfree", Handle: p.cbPhoneFree},
	}
}

// parseFocusArgs reads "[minutes] [tag...] [phone|nophone]". A trailing
// phone token sets the commitment; the default is committed.
func parseFocusArgs(args []string, defaultMinutes int) (minutes int, tag string, phoneCommit bool, err error) {
	minutes = defaultMinutes
	phoneCommit = true
	if len(args) == 0 {
		return minutes, "", phoneCommit, nil
	}
	v, aerr := strconv.Atoi(args[0])
	if aerr != nil || v <= 0 || v > 240 {
		return 0, "", false, fmt.Errorf("usage: /focus [minutes 1-240] [tag] [phone|nophone]")
	}
	minutes = v

	rest := args[1:]
	if n := len(rest); n > 0 {
		switch strings.ToLower(rest[n-1]) {
		case "phone":
			rest = rest[:n-1]
		case "nophone":
			phoneCommit = false
			rest = rest[:n-1]
		}
	}
	return minutes, strings.Join(rest, " "), phoneCommit, nil
}

func (p *Plugin) cmdFocus(ctx context.Context, req *bot.Request) error {
	cfg := p.deps.Config()
	minutes, tag, phoneCommit, err := parseFocusArgs(req.Args, cfg.Focus.DefaultMinutes)
	if err != nil {
		return err
	}

	username := ""
	if req.Update.Message != nil {
		username = req.Update.Message.FromUsername
	}
	if err := p.deps.Store.UpsertUser(ctx, req.FromID, req.ChatID, username); err != nil {
		return err
	}

	start := time.Now()
	sessionID, err := p.deps.Store.StartFocusSession(ctx, req.FromID, minutes, tag, phoneCommit, start)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("🎯 Focus started (%dm)", minutes)
	if tag != "" {
		text += " • " + tag
	}
	if phoneCommit {
		text += "\n📵 Phone away, please."
	}
	if err := req.Reply(ctx, p.deps.Notify, tgui.Esc(text).String()); err != nil {
		return err
	}

	chatID := req.ChatID
	if minutes >= cfg.Focus.MidPingMinMinutes {
		mid := start.Add(time.Duration(minutes) * time.Minute / 2)
		_ = p.deps.Scheduler.AddOnce(fmt.Sprintf("focus:mid_%d", sessionID), mid, 0,
			func(jctx context.Context) error {
				_, err := p.deps.Notify.SendHTML(jctx, chatID,
					tgui.Esc("⏳ Halfway. Breathe. Stay with the task. 📵").String())
				return err
			})
	}
	end := start.Add(time.Duration(minutes) * time.Minute)
	_ = p.deps.Scheduler.AddOnce(fmt.Sprintf("focus:end_%d", sessionID), end, 0,
		func(jctx context.Context) error { return p.sendEndPing(jctx, chatID, sessionID) })

	p.log.Info("focus session started",
		logx.Int64("session", sessionID), logx.Int64("user", req.FromID), logx.Int("minutes", minutes))
	return nil
}

func (p *Plugin) sendEndPing(ctx context.Context, chatID, sessionID int64) error {
	sid := strconv.FormatInt(sessionID, 10)
	rm := tgui.NewInline().
		Row(
			tgui.Btn("✅ Phone-free", tgui.Data(p.Name(), "pfree", "1:"+sid)),
			tgui.Btn("❌ Slipped", tgui.Data(p.Name(), "pfree", "0:"+sid)),
		).
		Markup()
	_, err := p.deps.Notify.Send(ctx, chatID,
		tgui.Esc("⏰ Pomodoro complete! Mark honesty for streak:").String(),
		&transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: rm})
	return err
}

// cbPhoneFree records the honesty answer, closes the session and credits XP.
// Payload is "<flag>:<session_id>".
func (p *Plugin) cbPhoneFree(ctx context.Context, req *bot.Request, payload string) error {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("bad payload %q", payload)
	}
	phoneFree := parts[0] == "1"
	sessionID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad session id %q", parts[1])
	}

	_ = p.deps.Adapter.AnswerCallback(ctx, req.Update.Callback.ID, "")

	loc := p.deps.Scheduler.Location()
	now := time.Now().In(loc)
	localDate := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	info, err := p.deps.Store.FocusSessionInfo(ctx, sessionID)
	if err != nil {
		return err
	}
	userID := info.UserID

	counters, err := p.deps.Store.CompleteFocusSession(ctx, sessionID, &phoneFree, "", localDate, yesterday)
	if err != nil {
		return err
	}

	end := info.StartedAt.Add(time.Duration(info.DurationMin) * time.Minute)
	if err := p.deps.Store.RecordPomodoro(ctx, userID, info.StartedAt, end, info.DurationMin, phoneFree, info.Tag); err != nil {
		p.log.Warn("pomodoro record failed", logx.Int64("session", sessionID), logx.Err(err))
	}

	xp := xpPomodoro
	if phoneFree {
		xp += xpPhoneFree
	}
	oldLevel, newLevel, err := p.deps.Store.AddXP(ctx, userID, xp)
	if err != nil {
		return err
	}

	mark := "✅ Phone-free"
	if !phoneFree {
		mark = "❌ Slipped"
	}
	result := fmt.Sprintf("Logged: %s\nToday: %d sessions • %d phone-free • streak %dd",
		mark, counters.Sessions, counters.PhoneFreeSessions, counters.StreakDays)

	ref := transport.MessageRef{ChatID: req.ChatID, MessageID: req.Update.Callback.MessageID}
	if err := p.deps.Notify.Edit(ctx, ref, tgui.Esc(result).String(), nil); err != nil {
		return err
	}

	p.announceMilestones(ctx, req.ChatID, userID, counters, oldLevel, newLevel)
	return nil
}

// announceMilestones sends level-up and badge messages after a completed
// session. Best-effort: failures only log.
func (p *Plugin) announceMilestones(ctx context.Context, chatID, userID int64, c storage.DayCounters, oldLevel, newLevel int) {
	if newLevel > oldLevel {
		_, _ = p.deps.Notify.SendHTML(ctx, chatID,
			tgui.B(fmt.Sprintf("🎉 Level up! You're now level %d.", newLevel)).String())
	}

	type milestone struct {
		ok         bool
		key, label string
	}
	for _, m := range []milestone{
		{c.PhoneFreeSessions >= 1, "first_phone_free", "First phone-free session"},
		{c.StreakDays >= 7, "streak_7", "7-day phone-free streak"},
		{c.StreakDays >= 30, "streak_30", "30-day phone-free streak"},
	} {
		if !m.ok {
			continue
		}
		fresh, err := p.deps.Store.AwardBadge(ctx, userID, m.key, m.label)
		if err != nil {
			p.log.Warn("badge award failed", logx.String("key", m.key), logx.Err(err))
			continue
		}
		if fresh {
			_, _ = p.deps.Notify.SendHTML(ctx, chatID,
				tgui.B("🏅 Badge earned: "+m.label).String())
		}
	}
}

func (p *Plugin) cmdStatus(ctx context.Context, req *bot.Request) error {
	daily, err := p.deps.Store.FocusDaily(ctx, req.FromID, 7)
	if err != nil {
		return err
	}
	streak, err := p.deps.Store.Streak(ctx, req.FromID)
	if err != nil {
		return err
	}

	sessions, pfree := 0, 0
	loc := p.deps.Scheduler.Location()
	today := time.Now().In(loc).Format("2006-01-02")
	if len(daily) > 0 && daily[0].LocalDate == today {
		sessions, pfree = daily[0].Sessions, daily[0].PhoneFreeSessions
	}

	text := tgui.JoinH("\n",
		tgui.B("🎯 Focus today"),
		tgui.Esc(fmt.Sprintf("Sessions: %d • Phone-free: %d", sessions, pfree)),
		tgui.Esc(fmt.Sprintf("Streak: %d day(s) • Target: %d/day", streak.StreakDays, streak.TargetPerDay)),
	).String()
	if len(daily) > 0 {
		rows := make([]tgui.H, 0, len(daily)+1)
		rows = append(rows, tgui.B("Last 7 days"))
		for _, d := range daily {
			rows = append(rows, tgui.Esc(fmt.Sprintf("%s: %d sessions, %d phone-free",
				d.LocalDate, d.Sessions, d.PhoneFreeSessions)))
		}
		text += "\n\n" + tgui.JoinH("\n", rows...).String()
	}
	return req.Reply(ctx, p.deps.Notify, text)
}

func (p *Plugin) cmdTarget(ctx context.Context, req *bot.Request) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("usage: /focus_target <sessions per day>")
	}
	n, err := strconv.Atoi(req.Args[0])
	if err != nil || n < 1 || n > 20 {
		return fmt.Errorf("target must be 1-20")
	}
	if err := p.deps.Store.SetFocusTarget(ctx, req.FromID, n); err != nil {
		return err
	}
	return req.Reply(ctx, p.deps.Notify,
		tgui.Esc(fmt.Sprintf("Target set: %d phone-free session(s) per day ✅", n)).String())
}

var _ bot.CallbackProvider = (*Plugin)(nil)
