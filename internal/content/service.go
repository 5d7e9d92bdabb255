package content

import (
	"context"
	"fmt"
	"sync"
)

// Service is the read side used by plugins: today's manifestation set, the
// partner's set and today's card, resolved through the rotation picker. The
// library can be swapped on config reload; rotation state stays in storage.
type Service struct {
	mu     sync.RWMutex
	lib    *Library
	picker *Picker

	saltMe      string
	saltPartner string
}

func NewService(lib *Library, picker *Picker, saltMe, saltPartner string) *Service {
	return &Service{lib: lib, picker: picker, saltMe: saltMe, saltPartner: saltPartner}
}

func (s *Service) Library() *Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lib
}

func (s *Service) SetLibrary(lib *Library) {
	if lib == nil {
		return
	}
	s.mu.Lock()
	s.lib = lib
	s.mu.Unlock()
}

// TodayManifest returns the manifestation set chosen for day (YYYY-MM-DD).
func (s *Service) TodayManifest(ctx context.Context, day string) (ManifestItem, error) {
	lib := s.Library()
	id, err := s.picker.PickToday(ctx, PoolManifest, lib.manifestIDs(false), day, s.saltMe, true)
	if err != nil {
		return ManifestItem{}, err
	}
	m, ok := lib.ManifestByID(id)
	if !ok {
		return ManifestItem{}, fmt.Errorf("manifestation id=%d not in pool", id)
	}
	return m, nil
}

// TodayPartnerManifest rotates the partner pool independently of the main one.
func (s *Service) TodayPartnerManifest(ctx context.Context, day string) (ManifestItem, error) {
	lib := s.Library()
	id, err := s.picker.PickToday(ctx, PoolManifestPartner, lib.manifestIDs(true), day, s.saltPartner, true)
	if err != nil {
		return ManifestItem{}, err
	}
	m, ok := lib.PartnerManifestByID(id)
	if !ok {
		return ManifestItem{}, fmt.Errorf("partner manifestation id=%d not in pool", id)
	}
	return m, nil
}

// TodayCard returns the card drawn for day. Cards may repeat across days;
// within a day the draw is stable.
func (s *Service) TodayCard(ctx context.Context, day string) (Card, error) {
	lib := s.Library()
	id, err := s.picker.PickToday(ctx, PoolCards, lib.cardIDs(), day, s.saltMe, false)
	if err != nil {
		return Card{}, err
	}
	c, ok := lib.CardByID(id)
	if !ok {
		return Card{}, fmt.Errorf("card id=%d not in pool", id)
	}
	return c, nil
}

// ClearManifestUsed resets both manifestation rotations (the /clear_used
// command).
func (s *Service) ClearManifestUsed(ctx context.Context) error {
	if err := s.picker.ClearUsed(ctx, PoolManifest); err != nil {
		return err
	}
	return s.picker.ClearUsed(ctx, PoolManifestPartner)
}
