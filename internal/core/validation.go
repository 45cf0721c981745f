package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidationState is the lifecycle state of one (user, challenge) validation
type ValidationState string

const (
	StateIdle       ValidationState = "IDLE"
	StateSubmitting ValidationState = "SUBMITTING"
	StateApproved   ValidationState = "APPROVED"
	StateRejected   ValidationState = "REJECTED"
	StateError      ValidationState = "ERROR"
)

// Message keys returned in an Outcome. They resolve through the locale files.
const (
	MsgCheckedIn        = "validation.checked_in"
	MsgVideoAccepted    = "validation.video_accepted"
	MsgBookingRequested = "validation.booking_requested"
	MsgQRApproved       = "validation.qr_approved"
	MsgQRRejected       = "validation.qr_rejected"
	MsgReceiptApproved  = "validation.receipt_approved"
	MsgReceiptRejected  = "validation.receipt_rejected"
	MsgSocialApproved   = "validation.social_approved"
	MsgSocialRejected   = "validation.social_rejected"
	MsgPhotoApproved    = "validation.photo_approved"
	MsgPhotoMismatch    = "validation.photo_mismatch"
	MsgPhotoRejected    = "validation.photo_rejected"
	MsgItemFound        = "validation.item_found"
	MsgItemRejected     = "validation.item_rejected"
	MsgHuntComplete     = "validation.hunt_complete"
	MsgAlreadyCompleted = "validation.already_completed"
	MsgOracleError      = "validation.error"
	MsgMisconfigured    = "validation.misconfigured"
)

const (
	receiptPrompt = `Analyze this receipt. Does it clearly show the name "%s" and a total amount greater than or equal to $%s? Respond with only 'YES' or 'NO'.`
	socialPrompt  = `Analyze this screenshot of a social media post. Does it contain the text '%s'? Respond with only 'YES' or 'NO'.`
	comparePrompt = `Compare these two images. Does the first image (the user's submission) depict the same primary subject or landmark as the second image (the reference)? The angle, lighting, and other people in the photo do not need to match perfectly, but the core subject must be the same. Respond with only 'YES' or 'NO'.`
	photoPrompt   = `Analyze this photo for a scavenger hunt. Does it appear to be a legitimate photo taken by a person at a real-world location (like a bar, venue, or landmark)? Respond with only 'YES' or 'NO'.`
	itemPrompt    = `Analyze this photo for a scavenger hunt. Does it clearly show the following item: "%s"? Respond with only 'YES' or 'NO'.`
)

// Submission is one guest attempt at a challenge
type Submission struct {
	UserID      int64
	ChallengeID int64
	Media       *Media
	// Payload is the decoded QR text for QR challenges
	Payload string
	// ItemIndex selects the scavenger item being photographed
	ItemIndex int
}

// Outcome is the result of a submission
type Outcome struct {
	ChallengeID    int64             `json:"challengeId"`
	State          ValidationState   `json:"state"`
	Granted        bool              `json:"granted"`
	Message        string            `json:"message"`
	MessageArgs    map[string]string `json:"messageArgs,omitempty"`
	ItemsRemaining int               `json:"itemsRemaining,omitempty"`
	ContactLink    string            `json:"contactLink,omitempty"`
}

type flightKey struct {
	userID      int64
	challengeID int64
}

type verdict int

const (
	verdictNo verdict = iota
	verdictYes
	verdictError
)

// IsAffirmative reports whether an oracle answer is an exact YES, ignoring
// surrounding whitespace and case. Anything else counts as a rejection.
func IsAffirmative(answer string) bool {
	return strings.ToUpper(strings.TrimSpace(answer)) == "YES"
}

// ValidationStatus reports whether a validation is running for the pair
func (s *Service) ValidationStatus(userID, challengeID int64) ValidationState {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if _, ok := s.inFlight[flightKey{userID, challengeID}]; ok {
		return StateSubmitting
	}
	return StateIdle
}

func (s *Service) acquire(key flightKey) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Service) release(key flightKey) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	delete(s.inFlight, key)
}

// Submit runs the validation rule of a challenge and grants its reward on
// approval. At most one submission per (user, challenge) runs at a time.
// When ctx is cancelled before the oracle answers, the answer is dropped
// and ctx's error is returned.
func (s *Service) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	ch, err := s.Challenge(sub.ChallengeID)
	if err != nil {
		return Outcome{}, err
	}
	user, err := s.User(sub.UserID)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{ChallengeID: ch.ID}
	if user.CompletedChallengeIDs.Has(ch.ID) {
		out.State = StateApproved
		out.Message = MsgAlreadyCompleted
		return out, nil
	}

	// Misconfigured challenges never reach the oracle
	if err := ch.Check(); err != nil {
		out.State = StateError
		out.Message = MsgMisconfigured
		return out, err
	}

	key := flightKey{sub.UserID, ch.ID}
	if !s.acquire(key) {
		return Outcome{ChallengeID: ch.ID, State: StateSubmitting}, ErrValidationInFlight
	}
	defer s.release(key)

	switch rules := ch.Rules.(type) {
	case GPSRules:
		return s.approve(ctx, user, ch, MsgCheckedIn, nil)

	case VideoRules:
		if sub.Media == nil {
			return out, ErrMediaRequired
		}
		return s.approve(ctx, user, ch, MsgVideoAccepted, nil)

	case BookingRules:
		res, err := s.approve(ctx, user, ch, MsgBookingRequested, nil)
		if err != nil {
			return res, err
		}
		res.ContactLink = BookingRequestLink(rules.BookingEmail, ch.VenueName, user.DisplayName())
		if res.Granted {
			s.notify(func(n Notifier) { n.NotifyChallengeBookingRequest(ch, *user) })
		}
		return res, nil

	case QRCodeRules:
		if sub.Payload != rules.ValidationData {
			out.State = StateRejected
			out.Message = MsgQRRejected
			return out, nil
		}
		return s.approve(ctx, user, ch, MsgQRApproved, map[string]string{"venue": ch.VenueName})

	case ReceiptRules:
		if sub.Media == nil {
			return out, ErrMediaRequired
		}
		prompt := fmt.Sprintf(receiptPrompt, ch.VenueName, formatAmount(rules.RequiredAmount))
		args := map[string]string{"venue": ch.VenueName}
		return s.judge(ctx, user, ch, prompt, []Media{*sub.Media}, MsgReceiptApproved, MsgReceiptRejected, args)

	case SocialRules:
		if sub.Media == nil {
			return out, ErrMediaRequired
		}
		prompt := fmt.Sprintf(socialPrompt, rules.ValidationTag)
		args := map[string]string{"tag": rules.ValidationTag}
		return s.judge(ctx, user, ch, prompt, []Media{*sub.Media}, MsgSocialApproved, MsgSocialRejected, args)

	case PhotoRules:
		if sub.Media == nil {
			return out, ErrMediaRequired
		}
		media := []Media{*sub.Media}
		if rules.ReferenceImageURL != "" && s.references != nil {
			ref, err := s.fetchReference(ctx, rules.ReferenceImageURL)
			if err != nil {
				if ctx.Err() != nil {
					return Outcome{}, ctx.Err()
				}
				log.WithError(err).WithField("challenge_id", ch.ID).Error("failed to fetch reference image")
				out.State = StateError
				out.Message = MsgOracleError
				return out, nil
			}
			media = append(media, ref)
			return s.judge(ctx, user, ch, comparePrompt, media, MsgPhotoApproved, MsgPhotoMismatch, nil)
		}
		return s.judge(ctx, user, ch, photoPrompt, media, MsgPhotoApproved, MsgPhotoRejected, nil)

	case ScavengerHuntRules:
		return s.submitScavengerItem(ctx, user, ch, rules, sub)
	}

	return out, fmt.Errorf("unsupported challenge type %q", ch.Type())
}

func (s *Service) submitScavengerItem(ctx context.Context, user *User, ch Challenge, rules ScavengerHuntRules, sub Submission) (Outcome, error) {
	out := Outcome{ChallengeID: ch.ID}
	if sub.ItemIndex < 0 || sub.ItemIndex >= len(rules.Items) {
		return out, ErrInvalidItem
	}
	if sub.Media == nil {
		return out, ErrMediaRequired
	}

	item := rules.Items[sub.ItemIndex]
	v, err := s.consult(ctx, fmt.Sprintf(itemPrompt, item), *sub.Media)
	if err != nil {
		return Outcome{}, err
	}
	args := map[string]string{"item": item}
	switch v {
	case verdictError:
		out.State = StateError
		out.Message = MsgOracleError
		return out, nil
	case verdictNo:
		out.State = StateRejected
		out.Message = MsgItemRejected
		out.MessageArgs = args
		return out, nil
	}

	result, err := s.RecordScavengerProgress(ctx, user.ID, ch.ID, sub.ItemIndex)
	if err != nil {
		return out, err
	}
	out.State = StateApproved
	out.Granted = result.Granted
	out.ItemsRemaining = result.ItemsRemaining
	out.Message = MsgItemFound
	out.MessageArgs = args
	if result.Completed {
		out.Message = MsgHuntComplete
	}
	return out, nil
}

// judge asks the oracle and grants on an affirmative answer
func (s *Service) judge(ctx context.Context, user *User, ch Challenge, prompt string, media []Media, okMsg, failMsg string, args map[string]string) (Outcome, error) {
	v, err := s.consult(ctx, prompt, media...)
	if err != nil {
		return Outcome{}, err
	}

	switch v {
	case verdictYes:
		return s.approve(ctx, user, ch, okMsg, args)
	case verdictNo:
		return Outcome{ChallengeID: ch.ID, State: StateRejected, Message: failMsg, MessageArgs: args}, nil
	default:
		return Outcome{ChallengeID: ch.ID, State: StateError, Message: MsgOracleError}, nil
	}
}

// consult asks the oracle within the configured timeout. Transport failures,
// timeouts and malformed answers all map to verdictError or verdictNo so no
// reward is granted on them. A non-nil error means the caller went away.
func (s *Service) consult(ctx context.Context, prompt string, media ...Media) (verdict, error) {
	if s.oracle == nil {
		log.Error("no oracle configured, validation cannot run")
		return verdictError, nil
	}

	octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	answer, err := s.oracle.Ask(octx, prompt, media...)
	if ctx.Err() != nil {
		log.WithError(ctx.Err()).Debug("dropping oracle answer for abandoned submission")
		return verdictError, ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.WithField("timeout", s.oracleTimeout).Warn("oracle timed out")
		} else {
			log.WithError(err).Error("oracle request failed")
		}
		return verdictError, nil
	}
	if IsAffirmative(answer) {
		return verdictYes, nil
	}
	return verdictNo, nil
}

func (s *Service) fetchReference(ctx context.Context, ref string) (Media, error) {
	fctx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()
	return s.references.Fetch(fctx, ref)
}

func (s *Service) approve(ctx context.Context, user *User, ch Challenge, msg string, args map[string]string) (Outcome, error) {
	granted, err := s.GrantReward(ctx, user.ID, ch.ID, ch.Points)
	if err != nil {
		return Outcome{ChallengeID: ch.ID, State: StateError, Message: MsgOracleError}, err
	}
	return Outcome{ChallengeID: ch.ID, State: StateApproved, Granted: granted, Message: msg, MessageArgs: args}, nil
}

// BookingRequestLink builds the mailto link a guest uses to request a booking
func BookingRequestLink(email, venue, guestName string) string {
	subject := "AIP Booking Request - " + guestName
	body := fmt.Sprintf("Hi,\n\nI'd like to request a booking for the %s.\n\nPlease let me know the available dates.\n\nThanks,\n%s", venue, guestName)
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", email, encodeComponent(subject), encodeComponent(body))
}

// encodeComponent escapes like a URI component, with spaces as %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d", int64(amount))
	}
	return fmt.Sprintf("%.2f", amount)
}
