// Package bot is the command core: a small plugin SDK plus the router that
// turns transport updates into command and callback dispatches.
package bot

import (
	"context"

	"visionbot/internal/config"
	"visionbot/internal/content"
	"visionbot/internal/notify"
	"visionbot/internal/scheduler"
	"visionbot/internal/storage"
	"visionbot/internal/transport"
	"visionbot/pkg/logx"
)

// Access controls who may invoke a command. The bot is personal: "owner" is
// the primary recipient, "recipients" additionally admits the partner chat.
type Access int

const (
	AccessOwner Access = iota
	AccessRecipients
)

// Deps is everything a plugin can reach. Config is a snapshot getter so
// plugins always see the latest hot-reloaded values.
type Deps struct {
	Logger    logx.Logger
	Adapter   transport.Adapter
	Notify    *notify.Service
	Scheduler *scheduler.Service
	Store     *storage.Store
	Content   *content.Service
	Config    func() config.Config
}

// Request is one inbound command or callback invocation.
type Request struct {
	ID     string // per-request id, for log correlation
	Update transport.Update
	ChatID int64
	FromID int64
	Args   []string
}

// Reply sends HTML text back to the originating chat.
func (r *Request) Reply(ctx context.Context, n *notify.Service, text string) error {
	_, err := n.SendHTML(ctx, r.ChatID, text)
	return err
}

type Command struct {
	Route       string
	Description string
	Usage       string
	Access      Access
	Hidden      bool // omitted from /help and the Telegram command menu
	Handle      func(ctx context.Context, req *Request) error
}

// CallbackRoute handles inline-button callbacks addressed to a plugin, data
// format "plugin:action:payload".
type CallbackRoute struct {
	Action string
	Handle func(ctx context.Context, req *Request, payload string) error
}

type Plugin interface {
	Name() string
	Init(ctx context.Context, deps Deps) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() []Command
}

// CallbackProvider is implemented by plugins that own inline buttons.
type CallbackProvider interface {
	Callbacks() []CallbackRoute
}

// ConfigWatcher is implemented by plugins that react to config reloads.
type ConfigWatcher interface {
	OnConfigChange(ctx context.Context, cfg config.Config) error
}
