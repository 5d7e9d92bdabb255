package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"visionbot/internal/config"
	"visionbot/internal/notify"
	"visionbot/internal/transport"
	"visionbot/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	chats []int64
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                               { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, to.ChatID)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) EditText(context.Context, transport.MessageRef, string, *transport.SendOptions) error {
	return nil
}
func (f *fakeAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeAdapter) lastSent() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return "", false
	}
	return f.sent[len(f.sent)-1], true
}

type testPlugin struct {
	name     string
	cmds     []Command
	cbs      []CallbackRoute
	started  bool
	stopped  bool
	reloaded bool
}

func (p *testPlugin) Name() string                                { return p.name }
func (p *testPlugin) Init(ctx context.Context, deps Deps) error   { return nil }
func (p *testPlugin) Start(ctx context.Context) error             { p.started = true; return nil }
func (p *testPlugin) Stop(ctx context.Context) error              { p.stopped = true; return nil }
func (p *testPlugin) Commands() []Command                         { return p.cmds }
func (p *testPlugin) Callbacks() []CallbackRoute                  { return p.cbs }
func (p *testPlugin) OnConfigChange(context.Context, config.Config) error {
	p.reloaded = true
	return nil
}

func testDeps(adapter *fakeAdapter) Deps {
	return Deps{
		Logger:  logx.Nop(),
		Adapter: adapter,
		Notify:  notify.New(notify.Config{RatePerSec: 1000, Burst: 1000}, adapter, logx.Nop()),
		Config: func() config.Config {
			return config.Config{
				Recipients: config.RecipientsConfig{Me: 100, Partner: 200},
			}
		},
	}
}

func msgUpdate(chatID, fromID int64, text string) transport.Update {
	return transport.Update{
		Kind:    transport.UpdateMessage,
		Message: &transport.Message{ID: 1, ChatID: chatID, FromID: fromID, Text: text},
	}
}

func TestRouterDispatchCommand(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	r := NewRouter(testDeps(fa), logx.Nop())

	var gotArgs []string
	p := &testPlugin{name: "t", cmds: []Command{{
		Route:  "ping",
		Access: AccessRecipients,
		Handle: func(ctx context.Context, req *Request) error {
			gotArgs = req.Args
			return req.Reply(ctx, r.deps.Notify, "pong")
		},
	}}}
	if err := r.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.dispatch(context.Background(), msgUpdate(100, 100, "/ping a b"))
	if last, ok := fa.lastSent(); !ok || last != "pong" {
		t.Fatalf("expected pong reply, got %q", last)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "a" || gotArgs[1] != "b" {
		t.Fatalf("args = %v", gotArgs)
	}

	// @botname suffix and case are normalized
	r.dispatch(context.Background(), msgUpdate(100, 100, "/PING@somebot"))
	fa.mu.Lock()
	n := len(fa.sent)
	fa.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected 2 replies, got %d", n)
	}
}

func TestRouterAccessControl(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	r := NewRouter(testDeps(fa), logx.Nop())

	p := &testPlugin{name: "t", cmds: []Command{
		{
			Route:  "everyone",
			Access: AccessRecipients,
			Handle: func(ctx context.Context, req *Request) error {
				return req.Reply(ctx, r.deps.Notify, "hi")
			},
		},
		{
			Route:  "admin",
			Access: AccessOwner,
			Handle: func(ctx context.Context, req *Request) error {
				return req.Reply(ctx, r.deps.Notify, "secret")
			},
		},
	}}
	if err := r.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// stranger is ignored entirely
	r.dispatch(context.Background(), msgUpdate(999, 999, "/everyone"))
	if _, ok := fa.lastSent(); ok {
		t.Fatal("stranger should get no reply")
	}

	// partner can use recipient commands but not owner commands
	r.dispatch(context.Background(), msgUpdate(200, 200, "/everyone"))
	if last, ok := fa.lastSent(); !ok || last != "hi" {
		t.Fatalf("partner should reach recipient command, got %q", last)
	}
	r.dispatch(context.Background(), msgUpdate(200, 200, "/admin"))
	if last, _ := fa.lastSent(); last == "secret" {
		t.Fatal("partner reached owner command")
	}

	// owner can use both
	r.dispatch(context.Background(), msgUpdate(100, 100, "/admin"))
	if last, ok := fa.lastSent(); !ok || last != "secret" {
		t.Fatalf("owner should reach admin command, got %q", last)
	}
}

func TestRouterCallbackDispatch(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	r := NewRouter(testDeps(fa), logx.Nop())

	var gotPayload string
	p := &testPlugin{name: "focus", cbs: []CallbackRoute{{
		Action: "pfree",
		Handle: func(ctx context.Context, req *Request, payload string) error {
			gotPayload = payload
			return nil
		},
	}}}
	if err := r.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.dispatch(context.Background(), transport.Update{
		Kind:     transport.UpdateCallback,
		Callback: &transport.Callback{ID: "c1", FromID: 100, ChatID: 100, MessageID: 7, Data: "focus:pfree:1:42"},
	})
	if gotPayload != "1:42" {
		t.Fatalf("payload = %q, want 1:42", gotPayload)
	}

	// unknown plugin or action is ignored without panicking
	r.dispatch(context.Background(), transport.Update{
		Kind:     transport.UpdateCallback,
		Callback: &transport.Callback{ID: "c2", FromID: 100, ChatID: 100, Data: "nope:what:x"},
	})
}

func TestRouterRejectsDuplicateRoutes(t *testing.T) {
	t.Parallel()

	r := NewRouter(testDeps(&fakeAdapter{}), logx.Nop())
	mk := func(name string) *testPlugin {
		return &testPlugin{name: name, cmds: []Command{{
			Route:  "same",
			Handle: func(context.Context, *Request) error { return nil },
		}}}
	}
	if err := r.Register(context.Background(), mk("a")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(context.Background(), mk("b")); err == nil {
		t.Fatal("duplicate route should fail")
	}
}

func TestHelpTextAndMenu(t *testing.T) {
	t.Parallel()

	r := NewRouter(testDeps(&fakeAdapter{}), logx.Nop())
	p := &testPlugin{name: "t", cmds: []Command{
		{Route: "visible", Description: "shown", Handle: func(context.Context, *Request) error { return nil }},
		{Route: "secret", Hidden: true, Handle: func(context.Context, *Request) error { return nil }},
	}}
	if err := r.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	help := r.HelpText()
	if !strings.Contains(help, "/visible") || strings.Contains(help, "/secret") {
		t.Fatalf("help = %q", help)
	}

	menu := r.MenuCommands()
	if len(menu) != 1 || menu[0].Command != "visible" {
		t.Fatalf("menu = %+v", menu)
	}
}

func TestRouterPluginLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRouter(testDeps(&fakeAdapter{}), logx.Nop())
	p := &testPlugin{name: "t"}
	if err := r.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.StartPlugins(context.Background()); err != nil {
		t.Fatalf("StartPlugins: %v", err)
	}
	if !p.started {
		t.Fatal("plugin not started")
	}
	r.NotifyConfigChange(context.Background(), config.Config{})
	if !p.reloaded {
		t.Fatal("plugin not notified of config change")
	}
	r.StopPlugins(context.Background())
	if !p.stopped {
		t.Fatal("plugin not stopped")
	}
}
