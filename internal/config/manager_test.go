package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const minimalYAML = `
telegram:
  token: "123:abc"
recipients:
  me: 111
storage:
  path: "./test.db"
`

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yaml", minimalYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Recipients.Me != 111 {
		t.Errorf("me = %d", cfg.Recipients.Me)
	}
	if got := cfg.Scheduler.Timezone; got != "Asia/Kolkata" {
		t.Errorf("default timezone = %q", got)
	}
	if got := len(cfg.Delivery.ManifestTimes); got != 3 {
		t.Errorf("default manifest times = %d, want 3", got)
	}
	if cfg.Delivery.CardPromptAt != "10:00" || cfg.Delivery.CardRevealAt != "19:00" {
		t.Errorf("card defaults = %s/%s", cfg.Delivery.CardPromptAt, cfg.Delivery.CardRevealAt)
	}
	if cfg.Focus.DefaultMinutes != 25 || cfg.Focus.MidPingMinMinutes != 20 {
		t.Errorf("focus defaults = %d/%d", cfg.Focus.DefaultMinutes, cfg.Focus.MidPingMinMinutes)
	}
	if cfg.Reminders.Morning != "07:45" || cfg.Reminders.WeeklyAt != "09:00" {
		t.Errorf("reminder defaults = %s/%s", cfg.Reminders.Morning, cfg.Reminders.WeeklyAt)
	}
	if m.Get() == nil {
		t.Error("Get() should return committed config")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yaml", minimalYAML+"\nsurprise: true\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("unknown top-level field should be rejected")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json",
		`{"telegram":{"token":"t"},"recipients":{"me":5},"storage":{"path":"x.db"}}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse json: %v", err)
	}
	if cfg.Recipients.Me != 5 {
		t.Errorf("me = %d", cfg.Recipients.Me)
	}
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yaml", minimalYAML))
	ch := m.Subscribe(1)

	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m.Commit(cfg)
	m.publish(cfg)

	select {
	case got := <-ch:
		if got != cfg {
			t.Error("subscriber received a different config pointer")
		}
	default:
		t.Fatal("subscriber did not receive the published config")
	}

	m.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after Unsubscribe")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if _, err := ParseDurationField("x", "10s"); err != nil {
		t.Errorf("valid duration: %v", err)
	}
	if _, err := ParseDurationField("x", "ten seconds"); err == nil {
		t.Error("invalid duration should error")
	}
	d, err := ParseDurationOrDefault("x", "", 42)
	if err != nil || d != 42 {
		t.Errorf("empty duration should take default, got %v %v", d, err)
	}
}
