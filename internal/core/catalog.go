package core

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Config returns a copy of the current configuration
func (s *Service) Config() AppConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// Challenge returns a copy of the challenge with the given id
func (s *Service) Challenge(id int64) (Challenge, error) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	for _, c := range s.cfg.Challenges {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return Challenge{}, notFound("challenge", id)
}

// Vehicle returns a copy of the vehicle with the given id
func (s *Service) Vehicle(id int64) (Vehicle, error) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	for _, v := range s.cfg.Vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return Vehicle{}, notFound("vehicle", id)
}

// UnlockedPerks returns the perks the points total qualifies for
func (s *Service) UnlockedPerks(points int) []Perk {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	var out []Perk
	for _, p := range s.cfg.Perks {
		if points >= p.RequiredPoints {
			out = append(out, p)
		}
	}
	return out
}

// SaveChallenge creates a challenge when its id is zero, otherwise replaces it
func (s *Service) SaveChallenge(c Challenge) (Challenge, error) {
	if err := s.validate.Struct(c); err != nil {
		return Challenge{}, fmt.Errorf("invalid challenge: %w", err)
	}
	if err := c.Check(); err != nil {
		return Challenge{}, err
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if c.ID == 0 {
		c.ID = nextID(s.cfg.Challenges, func(x Challenge) int64 { return x.ID })
		s.cfg.Challenges = append(s.cfg.Challenges, c.Clone())
	} else if !replaceByID(s.cfg.Challenges, c.Clone(), func(x Challenge) int64 { return x.ID }) {
		return Challenge{}, notFound("challenge", c.ID)
	}
	s.persistConfigLocked()
	return c, nil
}

// DeleteChallenge removes a challenge. Completed ids already held by users stay.
func (s *Service) DeleteChallenge(id int64) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	var ok bool
	s.cfg.Challenges, ok = removeByID(s.cfg.Challenges, id, func(x Challenge) int64 { return x.ID })
	if !ok {
		return notFound("challenge", id)
	}
	s.persistConfigLocked()
	return nil
}

// SavePerk creates or replaces a perk
func (s *Service) SavePerk(p Perk) (Perk, error) {
	if err := s.validate.Struct(p); err != nil {
		return Perk{}, fmt.Errorf("invalid perk: %w", err)
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if p.ID == 0 {
		p.ID = nextID(s.cfg.Perks, func(x Perk) int64 { return x.ID })
		s.cfg.Perks = append(s.cfg.Perks, p)
	} else if !replaceByID(s.cfg.Perks, p, func(x Perk) int64 { return x.ID }) {
		return Perk{}, notFound("perk", p.ID)
	}
	s.persistConfigLocked()
	return p, nil
}

// DeletePerk removes a perk
func (s *Service) DeletePerk(id int64) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	var ok bool
	s.cfg.Perks, ok = removeByID(s.cfg.Perks, id, func(x Perk) int64 { return x.ID })
	if !ok {
		return notFound("perk", id)
	}
	s.persistConfigLocked()
	return nil
}

// SaveDeal creates or replaces a partner deal
func (s *Service) SaveDeal(d PartnerDeal) (PartnerDeal, error) {
	if err := s.validate.Struct(d); err != nil {
		return PartnerDeal{}, fmt.Errorf("invalid deal: %w", err)
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if d.ID == 0 {
		d.ID = nextID(s.cfg.Deals, func(x PartnerDeal) int64 { return x.ID })
		d.ScanCount = 0
		s.cfg.Deals = append(s.cfg.Deals, d)
	} else if !replaceByID(s.cfg.Deals, d, func(x PartnerDeal) int64 { return x.ID }) {
		return PartnerDeal{}, notFound("deal", d.ID)
	}
	s.persistConfigLocked()
	return d, nil
}

// DeleteDeal removes a partner deal
func (s *Service) DeleteDeal(id int64) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	var ok bool
	s.cfg.Deals, ok = removeByID(s.cfg.Deals, id, func(x PartnerDeal) int64 { return x.ID })
	if !ok {
		return notFound("deal", id)
	}
	s.persistConfigLocked()
	return nil
}

// DisplayDeal returns the deal for showing its code and bumps its scan count
func (s *Service) DisplayDeal(id int64) (PartnerDeal, error) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	for i := range s.cfg.Deals {
		if s.cfg.Deals[i].ID != id {
			continue
		}
		s.cfg.Deals[i].ScanCount++
		s.persistConfigLocked()
		return s.cfg.Deals[i], nil
	}
	return PartnerDeal{}, notFound("deal", id)
}

// SaveVehicle creates or replaces a vehicle
func (s *Service) SaveVehicle(v Vehicle) (Vehicle, error) {
	if err := s.validate.Struct(v); err != nil {
		return Vehicle{}, fmt.Errorf("invalid vehicle: %w", err)
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if v.ID == 0 {
		v.ID = nextID(s.cfg.Vehicles, func(x Vehicle) int64 { return x.ID })
		s.cfg.Vehicles = append(s.cfg.Vehicles, v)
	} else if !replaceByID(s.cfg.Vehicles, v, func(x Vehicle) int64 { return x.ID }) {
		return Vehicle{}, notFound("vehicle", v.ID)
	}
	s.persistConfigLocked()
	return v, nil
}

// DeleteVehicle removes a vehicle. Existing bookings keep their vehicle id.
func (s *Service) DeleteVehicle(id int64) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	var ok bool
	s.cfg.Vehicles, ok = removeByID(s.cfg.Vehicles, id, func(x Vehicle) int64 { return x.ID })
	if !ok {
		return notFound("vehicle", id)
	}
	s.persistConfigLocked()
	return nil
}

// UpdateTheme replaces the theme settings
func (s *Service) UpdateTheme(theme ThemeSettings) ThemeSettings {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.cfg.Theme = theme
	s.persistConfigLocked()
	return theme
}

// ReplaceConfig swaps in a whole configuration, as produced by ExportConfig
func (s *Service) ReplaceConfig(cfg AppConfig) error {
	for _, c := range cfg.Challenges {
		if err := s.validate.Struct(c); err != nil {
			return fmt.Errorf("invalid challenge %d: %w", c.ID, err)
		}
	}
	for _, v := range cfg.Vehicles {
		if err := s.validate.Struct(v); err != nil {
			return fmt.Errorf("invalid vehicle %d: %w", v.ID, err)
		}
	}
	cfg.FillMissing(DefaultConfig())

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.cfg = cfg.Clone()
	s.persistConfigLocked()
	log.WithField("challenges", len(cfg.Challenges)).Info("configuration replaced")
	return nil
}

// ExportConfig renders the configuration as an indented JSON document
func (s *Service) ExportConfig(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(s.Config(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

func nextID[T any](items []T, id func(T) int64) int64 {
	var maxID int64
	for _, item := range items {
		maxID = max(maxID, id(item))
	}
	return maxID + 1
}

func replaceByID[T any](items []T, item T, id func(T) int64) bool {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return true
		}
	}
	return false
}

func removeByID[T any](items []T, target int64, id func(T) int64) ([]T, bool) {
	for i := range items {
		if id(items[i]) == target {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
