package core

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

var photo = &Media{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"}

type fakeReferences struct {
	err error
}

func (f fakeReferences) Fetch(context.Context, string) (Media, error) {
	if f.err != nil {
		return Media{}, f.err
	}
	return Media{Data: []byte("ref"), MIMEType: "image/jpeg"}, nil
}

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes", true},
		{"  Yes\n", true},
		{"NO", false},
		{"YES.", false},
		{"Yes, it does", false},
		{"", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		if got := IsAffirmative(tt.answer); got != tt.want {
			t.Errorf("IsAffirmative(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestSubmitGPSGrantsOnce(t *testing.T) {
	s, _ := newTestService(t, Deps{})
	ctx := context.Background()
	guest := mustGuest(t, s, "fan@example.com")

	out, err := s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.State != StateApproved || !out.Granted || out.Message != MsgCheckedIn {
		t.Fatalf("unexpected outcome %+v", out)
	}

	out, err = s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 1})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if out.Granted || out.Message != MsgAlreadyCompleted {
		t.Fatalf("expected already completed, got %+v", out)
	}
	if u, _ := s.User(guest.ID); u.Points != 20 {
		t.Fatalf("expected 20 points, got %d", u.Points)
	}
}

func TestSubmitVideoRequiresMedia(t *testing.T) {
	s, _ := newTestService(t, Deps{})
	guest := mustGuest(t, s, "fan@example.com")

	if _, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 2}); !errors.Is(err, ErrMediaRequired) {
		t.Fatalf("expected ErrMediaRequired, got %v", err)
	}
	out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 2, Media: &Media{Data: []byte("mp4"), MIMEType: "video/mp4"}})
	if err != nil || !out.Granted {
		t.Fatalf("video submission: out=%+v err=%v", out, err)
	}
}

func TestSubmitOracleFailsClosed(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		err       error
		wantState ValidationState
		wantGrant bool
	}{
		{name: "yes", answer: "YES", wantState: StateApproved, wantGrant: true},
		{name: "padded yes", answer: " yes \n", wantState: StateApproved, wantGrant: true},
		{name: "no", answer: "NO", wantState: StateRejected},
		{name: "chatty", answer: "Yes, the receipt shows $30", wantState: StateRejected},
		{name: "empty", answer: "", wantState: StateRejected},
		{name: "transport error", err: errors.New("connection reset"), wantState: StateError},
		{name: "timeout", err: context.DeadlineExceeded, wantState: StateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{answer: tt.answer, err: tt.err}
			s, _ := newTestService(t, Deps{Oracle: oracle})
			guest := mustGuest(t, s, "fan@example.com")

			out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 3, Media: photo})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if out.State != tt.wantState || out.Granted != tt.wantGrant {
				t.Fatalf("got state=%s granted=%v, want %s/%v", out.State, out.Granted, tt.wantState, tt.wantGrant)
			}
			u, _ := s.User(guest.ID)
			if tt.wantGrant != u.CompletedChallengeIDs.Has(3) {
				t.Fatalf("completion mismatch: %v", u.CompletedChallengeIDs.Sorted())
			}
		})
	}
}

func TestSubmitWithoutOracleReportsError(t *testing.T) {
	s, _ := newTestService(t, Deps{})
	guest := mustGuest(t, s, "fan@example.com")

	out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 5, Media: photo})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.State != StateError || out.Granted {
		t.Fatalf("expected error state, got %+v", out)
	}
}

func TestSubmitPromptsCarryChallengeData(t *testing.T) {
	oracle := &fakeOracle{answer: "NO"}
	s, _ := newTestService(t, Deps{Oracle: oracle})
	guest := mustGuest(t, s, "fan@example.com")
	ctx := context.Background()

	if _, err := s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 9, Media: photo}); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if _, err := s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 5, Media: photo}); err != nil {
		t.Fatalf("social: %v", err)
	}

	if !strings.Contains(oracle.prompts[0], `"Skull’s Rainbow Room"`) || !strings.Contains(oracle.prompts[0], "$100?") {
		t.Fatalf("receipt prompt missing venue or amount: %q", oracle.prompts[0])
	}
	if !strings.Contains(oracle.prompts[1], "'@skullsrainbowroom'") {
		t.Fatalf("social prompt missing tag: %q", oracle.prompts[1])
	}
}

func TestSubmitMisconfiguredChallengeSkipsOracle(t *testing.T) {
	oracle := &fakeOracle{answer: "YES"}
	s, _ := newTestService(t, Deps{Oracle: oracle})
	guest := mustGuest(t, s, "fan@example.com")

	// Bypass SaveChallenge validation to simulate a legacy document
	s.cfgMu.Lock()
	s.cfg.Challenges = append(s.cfg.Challenges,
		Challenge{ID: 50, VenueName: "Broken Bar", Points: 10, Rules: ReceiptRules{}},
		Challenge{ID: 51, VenueName: "Quiet Bar", Points: 10, Rules: SocialRules{}},
	)
	s.cfgMu.Unlock()

	for _, id := range []int64{50, 51} {
		out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: id, Media: photo})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("challenge %d: expected ConfigError, got %v", id, err)
		}
		if cfgErr.ChallengeID != id {
			t.Fatalf("expected challenge id %d, got %d", id, cfgErr.ChallengeID)
		}
		if out.State != StateError || out.Granted {
			t.Fatalf("challenge %d: unexpected outcome %+v", id, out)
		}
	}
	if oracle.calls() != 0 {
		t.Fatalf("oracle should not be called, got %d calls", oracle.calls())
	}
}

func TestSubmitRejectsConcurrentValidation(t *testing.T) {
	oracle := &fakeOracle{answer: "YES", block: make(chan struct{})}
	s, _ := newTestService(t, Deps{Oracle: oracle})
	guest := mustGuest(t, s, "fan@example.com")

	done := make(chan Outcome)
	go func() {
		out, _ := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 3, Media: photo})
		done <- out
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.ValidationStatus(guest.ID, 3) != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("first submission never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 3, Media: photo}); !errors.Is(err, ErrValidationInFlight) {
		t.Fatalf("expected ErrValidationInFlight, got %v", err)
	}

	// Another challenge for the same guest is independent
	if out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 1}); err != nil || !out.Granted {
		t.Fatalf("independent submission: out=%+v err=%v", out, err)
	}

	close(oracle.block)
	if out := <-done; !out.Granted {
		t.Fatalf("first submission should be granted, got %+v", out)
	}
	if s.ValidationStatus(guest.ID, 3) != StateIdle {
		t.Fatal("slot should be released")
	}
}

func TestSubmitDropsAnswerForAbandonedRequest(t *testing.T) {
	oracle := &fakeOracle{answer: "YES", block: make(chan struct{})}
	s, _ := newTestService(t, Deps{Oracle: oracle})
	guest := mustGuest(t, s, "fan@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() {
		_, err := s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 3, Media: photo})
		errc <- err
	}()
	for oracle.calls() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if u, _ := s.User(guest.ID); u.Points != 0 || u.CompletedChallengeIDs.Has(3) {
		t.Fatalf("abandoned submission must not grant: %+v", u)
	}
}

func TestSubmitOracleTimeout(t *testing.T) {
	oracle := &fakeOracle{answer: "YES", block: make(chan struct{})}
	s, _ := newTestService(t, Deps{Oracle: oracle, OracleTimeout: 20 * time.Millisecond})
	guest := mustGuest(t, s, "fan@example.com")

	out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 3, Media: photo})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.State != StateError || out.Granted {
		t.Fatalf("expected timeout to map to error state, got %+v", out)
	}
}

func TestSubmitQRCode(t *testing.T) {
	s, _ := newTestService(t, Deps{})
	guest := mustGuest(t, s, "fan@example.com")
	ctx := context.Background()

	out, err := s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 7, Payload: "nash_rock_suite_secret_code"})
	if err != nil || out.State != StateRejected || out.Message != MsgQRRejected {
		t.Fatalf("case differs, expected rejection: out=%+v err=%v", out, err)
	}

	out, err = s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 7, Payload: "NASH_ROCK_SUITE_SECRET_CODE"})
	if err != nil || !out.Granted || out.Message != MsgQRApproved {
		t.Fatalf("exact match: out=%+v err=%v", out, err)
	}
	if out.MessageArgs["venue"] != "Secret Speakeasy" {
		t.Fatalf("expected venue arg, got %v", out.MessageArgs)
	}
}

func TestSubmitBookingChallengeBuildsContactLink(t *testing.T) {
	notifier := &recordingNotifier{}
	s, _ := newTestService(t, Deps{Notifier: notifier})
	guest := mustGuest(t, s, "jamie@example.com")

	out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 6})
	if err != nil || !out.Granted {
		t.Fatalf("Submit: out=%+v err=%v", out, err)
	}
	if !strings.HasPrefix(out.ContactLink, "mailto:allinpropertiesnash@gmail.com?subject=") {
		t.Fatalf("unexpected link %q", out.ContactLink)
	}
	if len(notifier.venues) != 1 || notifier.venues[0] != "Rowdy Party Bus" {
		t.Fatalf("expected staff notification, got %v", notifier.venues)
	}
}

func TestBookingRequestLinkEncoding(t *testing.T) {
	link := BookingRequestLink("events@example.com", "Rowdy Party Bus", "jamie")

	if strings.Contains(link, "+") {
		t.Fatalf("spaces must be %%20 encoded: %s", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("subject") != "AIP Booking Request - jamie" {
		t.Fatalf("unexpected subject %q", q.Get("subject"))
	}
	if !strings.Contains(q.Get("body"), "request a booking for the Rowdy Party Bus.") {
		t.Fatalf("unexpected body %q", q.Get("body"))
	}
}

func TestSubmitPhotoComparesWithReference(t *testing.T) {
	oracle := &fakeOracle{answer: "NO"}
	s, _ := newTestService(t, Deps{Oracle: oracle, References: fakeReferences{}})
	guest := mustGuest(t, s, "fan@example.com")

	out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 8, Media: photo})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Message != MsgPhotoMismatch {
		t.Fatalf("expected mismatch message, got %q", out.Message)
	}
	if !strings.HasPrefix(oracle.prompts[0], "Compare these two images") {
		t.Fatalf("expected comparison prompt, got %q", oracle.prompts[0])
	}
}

func TestSubmitPhotoReferenceFailureIsError(t *testing.T) {
	oracle := &fakeOracle{answer: "YES"}
	s, _ := newTestService(t, Deps{Oracle: oracle, References: fakeReferences{err: errors.New("404")}})
	guest := mustGuest(t, s, "fan@example.com")

	out, err := s.Submit(context.Background(), Submission{UserID: guest.ID, ChallengeID: 8, Media: photo})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.State != StateError || out.Granted || oracle.calls() != 0 {
		t.Fatalf("expected error without oracle call, got %+v (calls %d)", out, oracle.calls())
	}
}

func TestSubmitScavengerItems(t *testing.T) {
	oracle := &fakeOracle{answer: "YES"}
	s, _ := newTestService(t, Deps{Oracle: oracle})
	guest := mustGuest(t, s, "hunter@example.com")
	ctx := context.Background()

	if _, err := s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 10, ItemIndex: 5, Media: photo}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}

	var out Outcome
	for i := 0; i < 3; i++ {
		var err error
		out, err = s.Submit(ctx, Submission{UserID: guest.ID, ChallengeID: 10, ItemIndex: i, Media: photo})
		if err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
		if i < 2 && (out.Granted || out.Message != MsgItemFound || out.ItemsRemaining != 2-i) {
			t.Fatalf("item %d: unexpected outcome %+v", i, out)
		}
	}
	if !out.Granted || out.Message != MsgHuntComplete {
		t.Fatalf("expected hunt completion, got %+v", out)
	}
}
