package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"visionbot/pkg/logx"
)

func TestParseHHMM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "08:00", hour: 8, minute: 0},
		{in: "23:59", hour: 23, minute: 59},
		{in: "0:5", hour: 0, minute: 5},
		{in: " 10:45 ", hour: 10, minute: 45},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12", wantErr: true},
		{in: "12:00:00", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		h, m, err := ParseHHMM(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHHMM(%q): expected error, got %d:%d", tc.in, h, m)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHHMM(%q): %v", tc.in, err)
			continue
		}
		if h != tc.hour || m != tc.minute {
			t.Errorf("ParseHHMM(%q) = %d:%d, want %d:%d", tc.in, h, m, tc.hour, tc.minute)
		}
	}
}

func TestNextClockTime(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)

	got := NextClockTime(now, 15, 30, loc)
	want := time.Date(2026, 8, 30, 15, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("future time today: got %v, want %v", got, want)
	}

	got = NextClockTime(now, 9, 0, loc)
	want = time.Date(2026, 8, 31, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("past time rolls to tomorrow: got %v, want %v", got, want)
	}

	// exactly now rolls forward too
	got = NextClockTime(now, 12, 0, loc)
	if !got.Equal(time.Date(2026, 8, 31, 12, 0, 0, 0, loc)) {
		t.Fatalf("boundary time should roll to tomorrow, got %v", got)
	}
}

func TestAddDailyBuildsValidSpec(t *testing.T) {
	t.Parallel()

	// not started: definitions only, registered later on Start
	s := New(Config{Enabled: true, Timezone: "UTC"}, logx.Nop())
	noop := func(ctx context.Context) error { return nil }
	if err := s.AddDaily("job", "08:15", 0, noop); err != nil {
		t.Fatalf("AddDaily: %v", err)
	}
	if err := s.AddDaily("job2", "25:00", 0, noop); err == nil {
		t.Fatal("AddDaily with bad time should fail")
	}
	// Upsert by name keeps a single definition.
	if err := s.AddDaily("job", "09:00", 0, noop); err != nil {
		t.Fatalf("AddDaily upsert: %v", err)
	}
	if len(s.defs) != 1 {
		t.Fatalf("expected 1 schedule after upsert, got %d", len(s.defs))
	}
	if s.defs[0].spec != "0 9 * * *" {
		t.Fatalf("unexpected spec %q", s.defs[0].spec)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	s := New(Config{HistorySize: 2}, logx.Nop())
	ctx := context.Background()
	s.execOne(ctx, task{name: "a", run: func(context.Context) error { return nil }})
	s.execOne(ctx, task{name: "b", run: func(context.Context) error { return nil }})
	s.execOne(ctx, task{name: "c", run: func(context.Context) error { return nil }})

	h := s.History(0)
	if len(h) != 2 {
		t.Fatalf("history size = %d, want 2 (ring)", len(h))
	}
	if h[0].Name != "c" || h[1].Name != "b" {
		t.Fatalf("history order = %s,%s; want c,b", h[0].Name, h[1].Name)
	}
	if got := s.History(1); len(got) != 1 || got[0].Name != "c" {
		t.Fatalf("History(1) = %+v", got)
	}
}

func TestExecOneSurvivesPanickingJob(t *testing.T) {
	t.Parallel()

	s := New(Config{HistorySize: 4}, logx.Nop())
	ctx := context.Background()

	s.execOne(ctx, task{name: "boom", run: func(context.Context) error { panic("kaboom") }})
	// the worker must still be able to run subsequent tasks
	s.execOne(ctx, task{name: "ok", run: func(context.Context) error { return nil }})

	h := s.History(0)
	if len(h) != 2 {
		t.Fatalf("history size = %d, want 2", len(h))
	}
	if h[0].Name != "ok" || h[0].Error != "" {
		t.Fatalf("follow-up task = %+v", h[0])
	}
	if h[1].Name != "boom" || !strings.Contains(h[1].Error, "kaboom") {
		t.Fatalf("panicking task = %+v", h[1])
	}
}

func TestRemoveUnknownName(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop())
	if s.Remove("nope") {
		t.Fatal("Remove of unknown name should report false")
	}
	if s.Remove("") {
		t.Fatal("Remove of empty name should report false")
	}
}
