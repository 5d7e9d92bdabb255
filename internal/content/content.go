// Package content owns the message pools (manifestation sets and reflective
// cards) and the daily rotation that picks from them: one item per calendar
// day, no repeats until a pool is exhausted, persisted across restarts.
package content

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"visionbot/pkg/logx"
)

//go:embed data/manifestations.json data/manifestations_partner.json data/cards.json
var defaultsFS embed.FS

// Pool names used as rotation keys in storage.
const (
	PoolManifest        = "manifest"
	PoolManifestPartner = "manifest_partner"
	PoolCards           = "cards"
)

// ManifestItem is one day's affirmation set. The three lines are sent at the
// three morning slots.
type ManifestItem struct {
	ID  int      `json:"id"`
	Set []string `json:"set"`
}

// Card is a reflective card: announced in the morning, revealed in the
// evening.
type Card struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Prompt  string `json:"prompt"`
}

type Config struct {
	ManifestFile        string // optional override for the embedded pool
	PartnerManifestFile string
	CardsFile           string
}

// Library holds the loaded pools. Immutable after Load; swap the whole
// Library on config reload.
type Library struct {
	Manifests        []ManifestItem
	PartnerManifests []ManifestItem
	Cards            []Card
}

// Load reads the three pools, preferring override files from config and
// falling back to the embedded defaults.
func Load(cfg Config, log logx.Logger) (*Library, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	lib := &Library{}

	if err := loadPool(cfg.ManifestFile, "data/manifestations.json", &lib.Manifests, log); err != nil {
		return nil, fmt.Errorf("manifestations: %w", err)
	}
	if err := loadPool(cfg.PartnerManifestFile, "data/manifestations_partner.json", &lib.PartnerManifests, log); err != nil {
		return nil, fmt.Errorf("partner manifestations: %w", err)
	}
	if err := loadPool(cfg.CardsFile, "data/cards.json", &lib.Cards, log); err != nil {
		return nil, fmt.Errorf("cards: %w", err)
	}

	if err := lib.validate(); err != nil {
		return nil, err
	}
	log.Info("content pools loaded",
		logx.Int("manifests", len(lib.Manifests)),
		logx.Int("partner_manifests", len(lib.PartnerManifests)),
		logx.Int("cards", len(lib.Cards)),
	)
	return lib, nil
}

func loadPool[T any](overridePath, embeddedPath string, dst *[]T, log logx.Logger) error {
	var (
		b   []byte
		err error
	)
	if strings.TrimSpace(overridePath) != "" {
		b, err = os.ReadFile(overridePath)
		if err != nil {
			return fmt.Errorf("read override %s: %w", overridePath, err)
		}
		log.Debug("pool override loaded", logx.String("path", overridePath))
	} else {
		b, err = defaultsFS.ReadFile(embeddedPath)
		if err != nil {
			return err
		}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (l *Library) validate() error {
	if len(l.Manifests) == 0 {
		return errors.New("manifestation pool is empty")
	}
	if len(l.PartnerManifests) == 0 {
		return errors.New("partner manifestation pool is empty")
	}
	if len(l.Cards) == 0 {
		return errors.New("card pool is empty")
	}
	for _, m := range l.Manifests {
		if len(m.Set) == 0 {
			return fmt.Errorf("manifestation id=%d has an empty set", m.ID)
		}
	}
	for _, m := range l.PartnerManifests {
		if len(m.Set) == 0 {
			return fmt.Errorf("partner manifestation id=%d has an empty set", m.ID)
		}
	}
	for _, c := range l.Cards {
		if strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("card id=%d has no title", c.ID)
		}
	}
	return nil
}

func (l *Library) ManifestByID(id int) (ManifestItem, bool) {
	for _, m := range l.Manifests {
		if m.ID == id {
			return m, true
		}
	}
	return ManifestItem{}, false
}

func (l *Library) PartnerManifestByID(id int) (ManifestItem, bool) {
	for _, m := range l.PartnerManifests {
		if m.ID == id {
			return m, true
		}
	}
	return ManifestItem{}, false
}

func (l *Library) CardByID(id int) (Card, bool) {
	for _, c := range l.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

func (l *Library) manifestIDs(partner bool) []int {
	src := l.Manifests
	if partner {
		src = l.PartnerManifests
	}
	ids := make([]int, len(src))
	for i, m := range src {
		ids[i] = m.ID
	}
	return ids
}

func (l *Library) cardIDs() []int {
	ids := make([]int, len(l.Cards))
	for i, c := range l.Cards {
		ids[i] = c.ID
	}
	return ids
}
