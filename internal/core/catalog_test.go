package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestDisplayDealCountsScans(t *testing.T) {
	s, st := newTestService(t, Deps{})

	for i := 1; i <= 3; i++ {
		deal, err := s.DisplayDeal(3)
		if err != nil {
			t.Fatalf("DisplayDeal: %v", err)
		}
		if deal.ScanCount != i {
			t.Fatalf("scan %d: count is %d", i, deal.ScanCount)
		}
	}
	if st.configSaves != 3 {
		t.Fatalf("expected a config save per scan, got %d", st.configSaves)
	}
	if _, err := s.DisplayDeal(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveChallengeCreatesAndReplaces(t *testing.T) {
	s, _ := newTestService(t, Deps{})

	created, err := s.SaveChallenge(Challenge{VenueName: "Honky Tonk", Points: 15, Rules: GPSRules{}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 11 {
		t.Fatalf("expected next id 11, got %d", created.ID)
	}

	created.Points = 25
	if _, err := s.SaveChallenge(created); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := s.Challenge(created.ID)
	if got.Points != 25 {
		t.Fatalf("expected replaced points, got %d", got.Points)
	}

	if _, err := s.SaveChallenge(Challenge{ID: 404, VenueName: "Ghost", Rules: GPSRules{}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestSaveChallengeValidates(t *testing.T) {
	s, _ := newTestService(t, Deps{})

	if _, err := s.SaveChallenge(Challenge{Rules: GPSRules{}}); err == nil {
		t.Fatal("expected missing venue name to fail")
	}
	if _, err := s.SaveChallenge(Challenge{VenueName: "No Rules"}); err == nil {
		t.Fatal("expected missing rules to fail")
	}
	_, err := s.SaveChallenge(Challenge{VenueName: "Cheap", Rules: ReceiptRules{}})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestDeleteChallengeKeepsCompletions(t *testing.T) {
	s, _ := newTestService(t, Deps{})

	if err := s.DeleteChallenge(1); err != nil {
		t.Fatalf("DeleteChallenge: %v", err)
	}
	if _, err := s.Challenge(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted challenge gone, got %v", err)
	}
	u, _ := s.User(2)
	if !u.CompletedChallengeIDs.Has(1) {
		t.Fatal("completed ids must survive challenge deletion")
	}
}

func TestUnlockedPerks(t *testing.T) {
	s, _ := newTestService(t, Deps{})

	tests := []struct {
		points int
		want   int
	}{
		{0, 0}, {20, 1}, {99, 2}, {100, 3}, {1000, 4},
	}
	for _, tt := range tests {
		if got := len(s.UnlockedPerks(tt.points)); got != tt.want {
			t.Errorf("UnlockedPerks(%d) = %d perks, want %d", tt.points, got, tt.want)
		}
	}
}

func TestSavePerkDealVehicle(t *testing.T) {
	s, _ := newTestService(t, Deps{})

	if _, err := s.SavePerk(Perk{Name: "Backstage Tour", RequiredPoints: 500}); err != nil {
		t.Fatalf("SavePerk: %v", err)
	}
	if _, err := s.SaveDeal(PartnerDeal{Name: "No Code"}); err == nil {
		t.Fatal("deal without code should fail validation")
	}
	v, err := s.SaveVehicle(Vehicle{Name: "Trolley", Capacity: 20, Type: "Trolley", QuickRideBaseFare: 40})
	if err != nil {
		t.Fatalf("SaveVehicle: %v", err)
	}
	if v.ID != 3 {
		t.Fatalf("expected vehicle id 3, got %d", v.ID)
	}
	if err := s.DeleteVehicle(v.ID); err != nil {
		t.Fatalf("DeleteVehicle: %v", err)
	}
	if err := s.DeletePerk(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportAndReplaceConfig(t *testing.T) {
	s, _ := newTestService(t, Deps{})
	s.UpdateTheme(ThemeSettings{HeaderText: "Encore", PrimaryColor: "#000"})

	data, err := s.ExportConfig(context.Background())
	if err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}

	var exported AppConfig
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if exported.Theme.HeaderText != "Encore" || len(exported.Challenges) != 10 {
		t.Fatalf("unexpected export: theme=%+v challenges=%d", exported.Theme, len(exported.Challenges))
	}

	other, _ := newTestService(t, Deps{})
	if err := other.ReplaceConfig(exported); err != nil {
		t.Fatalf("ReplaceConfig: %v", err)
	}
	if other.Config().Theme.HeaderText != "Encore" {
		t.Fatal("imported theme not applied")
	}
}
