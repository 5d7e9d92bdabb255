// Package gamify adds the XP layer: call logging with live start/stop,
// weekly summaries, level and badge reporting, and a pomodoro leaderboard.
package gamify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"visionbot/internal/bot"
	"visionbot/internal/storage"
	"visionbot/pkg/logx"
	"visionbot/pkg/tgui"
)

const (
	xpCallLong  = 15 // calls of 10 minutes or more
	xpCallShort = 5
	longCallMin = 10
)

type callSession struct {
	start time.Time
	tag   string
}

type Plugin struct {
	log  logx.Logger
	deps bot.Deps

	mu      sync.Mutex
	inCalls map[int64]callSession // live calls; lost on restart, /log_call covers that
}

func New() *Plugin { return &Plugin{inCalls: map[int64]callSession{}} }

func (p *Plugin) Name() string { return "gamify" }

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
			Route:       "call_start",
			Description: "start tracking a call",
			Usage:       "/call_start [tag]",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdCallStart,
		},
		{
			Route:       "call_end",
			Description: "finish the tracked call and log it",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdCallEnd,
		},
		{
			Route:       "log_call",
			Description: "log a call after the fact",
			Usage:       "/log_call <minutes> [tag]",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdLogCall,
		},
		{
			Route:       "week",
			Description: "this week's summary",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdWeek,
		},
		{
			Route:       "xp",
			Description: "your XP and level",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdXP,
		},
		{
			Route:       "leaderboard",
			Description: "weekly pomodoro leaderboard",
			Access:      bot.AccessRecipients,
			Handle:      p.cmdLeaderboard,
		},
	}
}

func (p *Plugin) cmdCallStart(ctx context.Context, req *bot.Request) error {
	tag := strings.Join(req.Args, " ")

	p.mu.Lock()
	_, busy := p.inCalls[req.FromID]
	if !busy {
		p.inCalls[req.FromID] = callSession{start: time.Now(), tag: tag}
	}
	p.mu.Unlock()

	if busy {
		return req.Reply(ctx, p.deps.Notify, "A call is already being tracked. /call_end first.")
	}
	return req.Reply(ctx, p.deps.Notify, "📞 Call tracking started. /call_end when you're done.")
}

func (p *Plugin) cmdCallEnd(ctx context.Context, req *bot.Request) error {
	p.mu.Lock()
	sess, ok := p.inCalls[req.FromID]
	delete(p.inCalls, req.FromID)
	p.mu.Unlock()

	if !ok {
		return req.Reply(ctx, p.deps.Notify, "No call in progress. Use /call_start or /log_call <minutes>.")
	}

	end := time.Now()
	minutes := int(end.Sub(sess.start).Minutes())
	return p.recordCall(ctx, req, sess.start, end, minutes, sess.tag)
}

func (p *Plugin) cmdLogCall(ctx context.Context, req *bot.Request) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("usage: /log_call <minutes> [tag]")
	}
	minutes, err := strconv.Atoi(req.Args[0])
	if err != nil || minutes <= 0 || minutes > 24*60 {
		return fmt.Errorf("minutes must be 1-1440")
	}
	tag := strings.Join(req.Args[1:], " ")
	end := time.Now()
	start := end.Add(-time.Duration(minutes) * time.Minute)
	return p.recordCall(ctx, req, start, end, minutes, tag)
}

func (p *Plugin) recordCall(ctx context.Context, req *bot.Request, start, end time.Time, minutes int, tag string) error {
	if err := p.deps.Store.UpsertUser(ctx, req.FromID, req.ChatID, ""); err != nil {
		return err
	}
	if err := p.deps.Store.LogCall(ctx, req.FromID, start, end, minutes, tag, ""); err != nil {
		return err
	}

	xp := xpCallShort
	if minutes >= longCallMin {
		xp = xpCallLong
	}
	oldLevel, newLevel, err := p.deps.Store.AddXP(ctx, req.FromID, xp)
	if err != nil {
		return err
	}
	p.log.Info("call logged", logx.Int64("user", req.FromID), logx.Int("minutes", minutes), logx.Int("xp", xp))

	text := fmt.Sprintf("📞 Call logged: %d min (+%d XP)", minutes, xp)
	if newLevel > oldLevel {
		text += fmt.Sprintf("\n🎉 Level up! You're now level %d.", newLevel)
	}
	return req.Reply(ctx, p.deps.Notify, tgui.Esc(text).String())
}

func (p *Plugin) cmdWeek(ctx context.Context, req *bot.Request) error {
	loc := p.deps.Scheduler.Location()
	weekStart, weekEnd := storage.WeekRange(time.Now().In(loc))

	sum, err := p.deps.Store.WeeklySummary(ctx, req.FromID, weekStart, weekEnd)
	if err != nil {
		return err
	}

	parts := []tgui.H{
		tgui.B(fmt.Sprintf("📊 Week %s → %s", sum.WeekStart, sum.WeekEnd)),
		tgui.Esc(fmt.Sprintf("Pomodoros: %d (%d min)", sum.Pomodoros, sum.PomMinutes)),
		tgui.Esc(fmt.Sprintf("Calls: %d (%d min)", sum.Calls, sum.CallMinutes)),
		tgui.Esc(fmt.Sprintf("XP: %d • Level %d", sum.XP, sum.Level)),
	}
	if len(sum.Badges) > 0 {
		labels := make([]string, 0, len(sum.Badges))
		for _, b := range sum.Badges {
			if b.Label != "" {
				labels = append(labels, b.Label)
			} else {
				labels = append(labels, b.Key)
			}
		}
		parts = append(parts, tgui.Esc("🏅 New badges: "+strings.Join(labels, ", ")))
	}
	return req.Reply(ctx, p.deps.Notify, tgui.JoinH("\n", parts...).String())
}

func (p *Plugin) cmdXP(ctx context.Context, req *bot.Request) error {
	xp, level, err := p.deps.Store.UserXP(ctx, req.FromID)
	if err != nil {
		return err
	}
	next := storage.XPForNextLevel(level)
	return req.Reply(ctx, p.deps.Notify,
		tgui.Esc(fmt.Sprintf("⭐ XP: %d • Level %d (next level at %d XP)", xp, level, next)).String())
}

func (p *Plugin) cmdLeaderboard(ctx context.Context, req *bot.Request) error {
	loc := p.deps.Scheduler.Location()
	weekStart, weekEnd := storage.WeekRange(time.Now().In(loc))

	rows, err := p.deps.Store.Leaderboard(ctx, weekStart, weekEnd, 10)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return req.Reply(ctx, p.deps.Notify, "No pomodoros this week yet. /focus to get on the board.")
	}

	var b strings.Builder
	b.WriteString(tgui.B("🏆 Pomodoros this week").String())
	for i, r := range rows {
		who := "you"
		if r.UserID != req.FromID {
			who = fmt.Sprintf("user %d", r.UserID)
		}
		b.WriteString(fmt.Sprintf("\n%d. %s — %d", i+1, who, r.Pomodoros))
	}
	return req.Reply(ctx, p.deps.Notify, b.String())
}
