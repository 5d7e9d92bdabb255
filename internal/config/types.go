package config

// Config is visionbot's root configuration. Files may be YAML or JSON;
// unknown fields are rejected so typos surface at load time.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Recipients RecipientsConfig `json:"recipients"`
	Logging    LoggingConfig    `json:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Delivery   DeliveryConfig   `json:"delivery"`
	Reminders  RemindersConfig  `json:"reminders"`
	Focus      FocusConfig      `json:"focus"`
	Content    ContentConfig    `json:"content"`
	Storage    StorageConfig    `json:"storage"`
	Notifier   NotifierConfig   `json:"notifier"`
	Ops        OpsConfig        `json:"ops,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// RecipientsConfig names the two chats the bot talks to. Partner is optional;
// when 0 the partner manifestation jobs are not scheduled.
type RecipientsConfig struct {
	Me      int64 `json:"me"`
	Partner int64 `json:"partner,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	Workers int  `json:"workers,omitempty"`
	// DefaultTimeout is a Go duration string; "0s" disables the global default.
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
	// Timezone is the IANA zone all HH:MM times below are interpreted in.
	Timezone string `json:"timezone,omitempty"`
}

// DeliveryConfig holds the daily content send times (HH:MM, scheduler
// timezone). Defaults match the original routine: three manifestation lines
// in the morning, partner copies staggered one minute later, card drawn
// mid-morning and revealed in the evening.
type DeliveryConfig struct {
	ManifestTimes []string `json:"manifest_times,omitempty"`
	// PartnerDelay is a Go duration string added to each manifest time for
	// the partner's copies.
	PartnerDelay string `json:"partner_delay,omitempty"`
	CardPromptAt string `json:"card_prompt_at,omitempty"`
	CardRevealAt string `json:"card_reveal_at,omitempty"`
}

// RemindersConfig controls the fixed routine reminders.
type RemindersConfig struct {
	Enabled    bool   `json:"enabled"`
	Morning    string `json:"morning,omitempty"`
	MidMorning string `json:"mid_morning,omitempty"`
	Afternoon  string `json:"afternoon,omitempty"`
	Evening    string `json:"evening,omitempty"`
	Night      string `json:"night,omitempty"`
	// WeeklyAt fires on Sunday.
	WeeklyAt string `json:"weekly_at,omitempty"`
}

type FocusConfig struct {
	// DefaultMinutes is used when /focus is called without a duration.
	DefaultMinutes int `json:"default_minutes,omitempty"`
	// MidPingMinMinutes is the minimum session length that gets a halfway ping.
	MidPingMinMinutes int `json:"mid_ping_min_minutes,omitempty"`
}

// ContentConfig optionally overrides the embedded content pools with files
// on disk (same JSON shape).
type ContentConfig struct {
	ManifestFile        string `json:"manifest_file,omitempty"`
	PartnerManifestFile string `json:"partner_manifest_file,omitempty"`
	CardsFile           string `json:"cards_file,omitempty"`
}

type StorageConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// OpsConfig controls the optional HTTP health/status listener.
// Prefer binding to localhost.
type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8099"
}

// Default HH:MM times, applied by Normalize.
const (
	defaultCardPromptAt = "10:00"
	defaultCardRevealAt = "19:00"
	defaultTimezone     = "Asia/Kolkata"
)

var defaultManifestTimes = []string{"08:00", "08:15", "08:30"}

// Normalize fills zero-value fields with defaults. It is called after every
// successful parse so the rest of the app never re-checks defaults.
func (c *Config) Normalize() {
	if len(c.Delivery.ManifestTimes) == 0 {
		c.Delivery.ManifestTimes = append([]string(nil), defaultManifestTimes...)
	}
	if c.Delivery.PartnerDelay == "" {
		c.Delivery.PartnerDelay = "1m"
	}
	if c.Delivery.CardPromptAt == "" {
		c.Delivery.CardPromptAt = defaultCardPromptAt
	}
	if c.Delivery.CardRevealAt == "" {
		c.Delivery.CardRevealAt = defaultCardRevealAt
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = defaultTimezone
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = 2
	}
	if c.Scheduler.HistorySize <= 0 {
		c.Scheduler.HistorySize = 100
	}
	if c.Reminders.Morning == "" {
		c.Reminders.Morning = "07:45"
	}
	if c.Reminders.MidMorning == "" {
		c.Reminders.MidMorning = "10:45"
	}
	if c.Reminders.Afternoon == "" {
		c.Reminders.Afternoon = "13:45"
	}
	if c.Reminders.Evening == "" {
		c.Reminders.Evening = "17:45"
	}
	if c.Reminders.Night == "" {
		c.Reminders.Night = "21:45"
	}
	if c.Reminders.WeeklyAt == "" {
		c.Reminders.WeeklyAt = "09:00"
	}
	if c.Focus.DefaultMinutes <= 0 {
		c.Focus.DefaultMinutes = 25
	}
	if c.Focus.MidPingMinMinutes <= 0 {
		c.Focus.MidPingMinMinutes = 20
	}
	if c.Notifier.RatePerSec <= 0 {
		c.Notifier.RatePerSec = 1
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./visionbot.db"
	}
	if c.Ops.Enabled && c.Ops.Addr == "" {
		c.Ops.Addr = "127.0.0.1:8099"
	}
}
