package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"visionbot/pkg/logx"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	t.Parallel()

	lib, err := Load(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib.Manifests) == 0 || len(lib.PartnerManifests) == 0 || len(lib.Cards) == 0 {
		t.Fatalf("embedded pools should not be empty: %d/%d/%d",
			len(lib.Manifests), len(lib.PartnerManifests), len(lib.Cards))
	}
	for _, m := range lib.Manifests {
		if len(m.Set) != 3 {
			t.Errorf("manifestation id=%d has %d lines, want 3", m.ID, len(m.Set))
		}
	}
	for _, c := range lib.Cards {
		if c.Title == "" || c.Message == "" || c.Prompt == "" {
			t.Errorf("card id=%d incomplete", c.ID)
		}
	}
}

func TestLoadOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifests.json")
	if err := os.WriteFile(path, []byte(`[{"id":1,"set":["a","b","c"]}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lib, err := Load(Config{ManifestFile: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib.Manifests) != 1 || lib.Manifests[0].Set[0] != "a" {
		t.Fatalf("override not applied: %+v", lib.Manifests)
	}
}

func TestLoadRejectsBadOverride(t *testing.T) {
	t.Parallel()

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(Config{ManifestFile: empty}, logx.Nop()); err == nil {
		t.Fatal("empty pool should be rejected")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(Config{CardsFile: bad}, logx.Nop()); err == nil {
		t.Fatal("malformed json should be rejected")
	}

	if _, err := Load(Config{CardsFile: filepath.Join(t.TempDir(), "nope.json")}, logx.Nop()); err == nil {
		t.Fatal("missing override should be rejected")
	}
}

func TestServiceTodayPicks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	lib, err := Load(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := NewService(lib, NewPicker(newFakeStore(), logx.Nop()), "111", "222")

	m, err := svc.TodayManifest(ctx, "2026-08-30")
	if err != nil {
		t.Fatalf("TodayManifest: %v", err)
	}
	if len(m.Set) != 3 {
		t.Fatalf("manifest set len = %d", len(m.Set))
	}

	// same day, same item
	m2, err := svc.TodayManifest(ctx, "2026-08-30")
	if err != nil || m2.ID != m.ID {
		t.Fatalf("manifest pick unstable: %d vs %d (%v)", m.ID, m2.ID, err)
	}

	pm, err := svc.TodayPartnerManifest(ctx, "2026-08-30")
	if err != nil {
		t.Fatalf("TodayPartnerManifest: %v", err)
	}
	if len(pm.Set) == 0 {
		t.Fatal("partner set empty")
	}

	card, err := svc.TodayCard(ctx, "2026-08-30")
	if err != nil {
		t.Fatalf("TodayCard: %v", err)
	}
	card2, err := svc.TodayCard(ctx, "2026-08-30")
	if err != nil || card2.ID != card.ID {
		t.Fatalf("card draw unstable: %d vs %d (%v)", card.ID, card2.ID, err)
	}
}
