package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"visionbot/internal/config"
	"visionbot/internal/runtime/supervisor"
	"visionbot/internal/transport"
	"visionbot/pkg/logx"
	"visionbot/pkg/tgui"
)

const handleTimeout = 30 * time.Second

// Router owns the registered plugins and dispatches inbound updates to their
// commands and callbacks. Unknown senders are dropped before any handler
// runs.
type Router struct {
	deps    Deps
	log     logx.Logger
	plugins []Plugin

	commands  map[string]*pluginCommand        // route -> command
	callbacks map[string]map[string]*cbHandler // plugin -> action -> handler
}

type pluginCommand struct {
	plugin string
	cmd    Command
}

type cbHandler struct {
	plugin string
	route  CallbackRoute
}

func NewRouter(deps Deps, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		deps:      deps,
		log:       log,
		commands:  map[string]*pluginCommand{},
		callbacks: map[string]map[string]*cbHandler{},
	}
}

// Register initializes plugins and indexes their commands and callbacks.
// Duplicate routes are a wiring bug and fail loudly.
func (r *Router) Register(ctx context.Context, plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Init(ctx, r.deps); err != nil {
			return fmt.Errorf("plugin %s init: %w", p.Name(), err)
		}
		for _, c := range p.Commands() {
			route := strings.TrimSpace(strings.ToLower(c.Route))
			if route == "" || c.Handle == nil {
				return fmt.Errorf("plugin %s: command with empty route or handler", p.Name())
			}
			if _, dup := r.commands[route]; dup {
				return fmt.Errorf("plugin %s: duplicate route /%s", p.Name(), route)
			}
			r.commands[route] = &pluginCommand{plugin: p.Name(), cmd: c}
		}
		if cp, ok := p.(CallbackProvider); ok {
			m := map[string]*cbHandler{}
			for _, route := range cp.Callbacks() {
				m[route.Action] = &cbHandler{plugin: p.Name(), route: route}
			}
			r.callbacks[p.Name()] = m
		}
		r.plugins = append(r.plugins, p)
	}
	return nil
}

func (r *Router) StartPlugins(ctx context.Context) error {
	for _, p := range r.plugins {
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("plugin %s start: %w", p.Name(), err)
		}
		r.log.Info("plugin started", logx.String("plugin", p.Name()))
	}
	return nil
}

func (r *Router) StopPlugins(ctx context.Context) {
	// Reverse order of start.
	for i := len(r.plugins) - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Stop(ctx); err != nil {
			r.log.Warn("plugin stop", logx.String("plugin", p.Name()), logx.Err(err))
		}
	}
}

// NotifyConfigChange fans a fresh config out to interested plugins.
func (r *Router) NotifyConfigChange(ctx context.Context, cfg config.Config) {
	for _, p := range r.plugins {
		if w, ok := p.(ConfigWatcher); ok {
			if err := w.OnConfigChange(ctx, cfg); err != nil {
				r.log.Warn("plugin config change", logx.String("plugin", p.Name()), logx.Err(err))
			}
		}
	}
}

// Run consumes the update stream until ctx is done. Each update gets its own
// bounded handler goroutine under sup.
func (r *Router) Run(ctx context.Context, sup *supervisor.Supervisor, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			upd := u
			sup.Go0("router.handle", func(hctx context.Context) {
				hctx, cancel := context.WithTimeout(hctx, handleTimeout)
				defer cancel()
				r.dispatch(hctx, upd)
			})
		}
	}
}

func (r *Router) dispatch(ctx context.Context, u transport.Update) {
	switch u.Kind {
	case transport.UpdateMessage:
		if u.Message != nil {
			r.dispatchMessage(ctx, u)
		}
	case transport.UpdateCallback:
		if u.Callback != nil {
			r.dispatchCallback(ctx, u)
		}
	}
}

func (r *Router) dispatchMessage(ctx context.Context, u transport.Update) {
	msg := u.Message
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	fields := strings.Fields(text)
	route := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	// "/cmd@botname" form in group-ish clients
	if i := strings.IndexByte(route, '@'); i >= 0 {
		route = route[:i]
	}

	pc, ok := r.commands[route]
	if !ok {
		return
	}

	req := &Request{
		ID:     uuid.NewString(),
		Update: u,
		ChatID: msg.ChatID,
		FromID: msg.FromID,
		Args:   fields[1:],
	}
	log := r.log.With(logx.String("req", req.ID), logx.String("cmd", route), logx.Int64("chat", req.ChatID))

	if !r.allowed(pc.cmd.Access, req) {
		log.Warn("command from unknown chat dropped", logx.Int64("from", req.FromID))
		return
	}

	log.Info("command")
	if err := pc.cmd.Handle(ctx, req); err != nil {
		log.Error("command failed", logx.Err(err))
		_, _ = r.deps.Notify.SendHTML(ctx, req.ChatID, "❌ "+tgui.Esc(err.Error()).String())
	}
}

func (r *Router) dispatchCallback(ctx context.Context, u transport.Update) {
	cb := u.Callback
	plugin, action, payload := tgui.SplitData(cb.Data)

	m, ok := r.callbacks[plugin]
	if !ok {
		return
	}
	h, ok := m[action]
	if !ok {
		return
	}

	req := &Request{
		ID:     uuid.NewString(),
		Update: u,
		ChatID: cb.ChatID,
		FromID: cb.FromID,
	}
	log := r.log.With(logx.String("req", req.ID), logx.String("cb", plugin+":"+action), logx.Int64("chat", req.ChatID))

	if !r.allowed(AccessRecipients, req) {
		log.Warn("callback from unknown chat dropped", logx.Int64("from", req.FromID))
		return
	}

	log.Info("callback")
	if err := h.route.Handle(ctx, req, payload); err != nil {
		log.Error("callback failed", logx.Err(err))
		_ = r.deps.Adapter.AnswerCallback(ctx, cb.ID, "error")
	}
}

func (r *Router) allowed(access Access, req *Request) bool {
	cfg := r.deps.Config()
	me := cfg.Recipients.Me
	partner := cfg.Recipients.Partner
	switch access {
	case AccessOwner:
		if req.ChatID == me || req.FromID == me {
			return true
		}
		for _, id := range cfg.Telegram.OwnerUserIDs {
			if req.FromID == id {
				return true
			}
		}
		return false
	default:
		return req.ChatID == me || req.ChatID == partner ||
			req.FromID == me || req.FromID == partner
	}
}

// HelpText renders the /help overview from registered commands.
func (r *Router) HelpText() string {
	routes := make([]string, 0, len(r.commands))
	for route, pc := range r.commands {
		if pc.cmd.Hidden {
			continue
		}
		routes = append(routes, route)
	}
	sort.Strings(routes)

	var b strings.Builder
	b.WriteString(tgui.B("Commands").String())
	b.WriteString("\n")
	for _, route := range routes {
		pc := r.commands[route]
		b.WriteString(tgui.Code("/" + route).String())
		if pc.cmd.Description != "" {
			b.WriteString(" — ")
			b.WriteString(tgui.Esc(pc.cmd.Description).String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// MenuCommands returns the visible commands for the Telegram command menu.
func (r *Router) MenuCommands() []transport.BotCommand {
	routes := make([]string, 0, len(r.commands))
	for route, pc := range r.commands {
		if pc.cmd.Hidden {
			continue
		}
		routes = append(routes, route)
	}
	sort.Strings(routes)

	out := make([]transport.BotCommand, 0, len(routes))
	for _, route := range routes {
		out = append(out, transport.BotCommand{
			Command:     route,
			Description: r.commands[route].cmd.Description,
		})
	}
	return out
}

// SyncMenu pushes the command menu when the adapter supports it.
func (r *Router) SyncMenu(ctx context.Context) {
	up, ok := r.deps.Adapter.(transport.CommandMenuUpdater)
	if !ok {
		return
	}
	if err := up.UpdateMenuCommands(ctx, r.MenuCommands()); err != nil {
		r.log.Warn("command menu sync failed", logx.Err(err))
	}
}
