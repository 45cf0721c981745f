package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"

	"rockstar-pass-monolith/internal/core"
	"rockstar-pass-monolith/internal/i18n"
)

const timeLayout = "Mon Jan 2 3:04 PM"

// sender is the part of tele.Bot used to deliver messages
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Bot relays booking activity to the staff chat and lets staff mark
// bookings as paid
type Bot struct {
	bot         *tele.Bot
	out         sender
	service     *core.Service
	staffChatID int64
	translator  *i18n.Translator
	lang        string
}

// NewBot creates a new Bot instance
func NewBot(token string, service *core.Service, staffChatID int64, translator *i18n.Translator) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	if staffChatID == 0 {
		log.Warn("⚠️ TELEGRAM_STAFF_CHAT_ID not set, staff notifications are disabled")
	} else {
		log.WithField("chat_id", staffChatID).Info("✅ staff chat configured")
	}

	bot := newBot(b, service, staffChatID, translator)
	bot.bot = b
	bot.setupHandlers()
	return bot, nil
}

func newBot(out sender, service *core.Service, staffChatID int64, translator *i18n.Translator) *Bot {
	if translator == nil {
		translator = i18n.NewFallback("en")
	}
	return &Bot{
		out:         out,
		service:     service,
		staffChatID: staffChatID,
		translator:  translator,
		lang:        "en",
	}
}

// Start starts the bot polling
func (b *Bot) Start() {
	log.Info("🤖 Telegram bot is now running...")
	b.bot.Start()
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.bot.Stop()
}

// setupHandlers configures all command and callback handlers
func (b *Bot) setupHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/bookings", b.handleBookings)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) t(key string) string {
	return b.translator.T(b.lang, key)
}

func (b *Bot) isStaff(c tele.Context) bool {
	return c.Chat() != nil && b.staffChatID != 0 && c.Chat().ID == b.staffChatID
}

// handleStart handles the /start command
func (b *Bot) handleStart(c tele.Context) error {
	if !b.isStaff(c) {
		return c.Send(b.t("bot.not_staff"))
	}
	return c.Send(b.t("bot.start"))
}

// handleBookings lists bookings awaiting payment, one message per booking
func (b *Bot) handleBookings(c tele.Context) error {
	if !b.isStaff(c) {
		return c.Send(b.t("bot.not_staff"))
	}

	pending := b.service.PendingBookings()
	if len(pending) == 0 {
		return c.Send(b.t("bot.no_pending"))
	}

	if err := c.Send(b.t("bot.pending_header")); err != nil {
		return err
	}
	for _, booking := range pending {
		vehicle, guest, ok := b.lookup(booking)
		if !ok {
			continue
		}
		if err := c.Send(b.bookingRequestText(booking, vehicle, guest), b.confirmMarkup(booking.ID)); err != nil {
			return err
		}
	}
	return nil
}

// handleCallback handles all inline button callbacks
func (b *Bot) handleCallback(c tele.Context) error {
	if !b.isStaff(c) {
		return c.Respond(&tele.CallbackResponse{Text: b.t("bot.not_staff")})
	}

	action, id, ok := parseCallback(c.Callback().Data)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
	}

	switch action {
	case "confirm":
		return b.handleConfirm(c, core.BookingID(id))
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown action"})
	}
}

// handleConfirm marks a booking as paid from the staff chat
func (b *Bot) handleConfirm(c tele.Context, bookingID core.BookingID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := b.service.ConfirmPaymentAsStaff(ctx, bookingID)
	switch {
	case errors.Is(err, core.ErrAlreadyConfirmed):
		return c.Respond(&tele.CallbackResponse{Text: b.t("bot.already_confirmed")})
	case errors.Is(err, core.ErrNotFound):
		return c.Respond(&tele.CallbackResponse{Text: b.t("bot.not_found")})
	case err != nil:
		log.WithError(err).WithField("booking_id", bookingID).Error("staff confirmation failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌"})
	}

	log.WithFields(log.Fields{
		"booking_id": bookingID,
		"staff":      c.Sender().Username,
	}).Info("✅ booking marked paid by staff")

	// Drop the button so the booking cannot be confirmed twice from the chat
	if msg := c.Message(); msg != nil {
		if _, err := c.Bot().EditReplyMarkup(msg, nil); err != nil {
			log.WithError(err).Debug("failed to remove confirm button")
		}
	}
	return c.Respond(&tele.CallbackResponse{Text: b.t("bot.confirmed")})
}

// parseCallback splits "action:id" callback data
func parseCallback(data string) (action, id string, ok bool) {
	action, id, ok = strings.Cut(data, ":")
	if !ok || action == "" || id == "" {
		return "", "", false
	}
	return action, id, true
}

func (b *Bot) lookup(booking core.Booking) (core.Vehicle, core.User, bool) {
	vehicle, err := b.service.Vehicle(booking.VehicleID)
	if err != nil {
		return core.Vehicle{}, core.User{}, false
	}
	guest, err := b.service.User(booking.UserID)
	if err != nil {
		return core.Vehicle{}, core.User{}, false
	}
	return vehicle, *guest, true
}

func (b *Bot) confirmMarkup(id core.BookingID) *tele.ReplyMarkup {
	btn := tele.InlineButton{Text: b.t("bot.confirm_button"), Data: "confirm:" + string(id)}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{btn}}}
}

func (b *Bot) bookingRequestText(booking core.Booking, vehicle core.Vehicle, guest core.User) string {
	return b.translator.Format(b.lang, "bot.booking_request", map[string]string{
		"guest":   guest.Identity,
		"vehicle": vehicle.Name,
		"type":    strings.ReplaceAll(string(booking.BookingType), "_", " "),
		"start":   booking.StartTime.Format(timeLayout),
		"end":     booking.EndTime.Format(timeLayout),
		"total":   fmt.Sprintf("%.2f", core.Fare(booking, vehicle)),
	})
}

// NotifyBookingRequest tells staff a booking is awaiting payment
func (b *Bot) NotifyBookingRequest(booking core.Booking, vehicle core.Vehicle, guest core.User) {
	b.sendAsync(b.bookingRequestText(booking, vehicle, guest), b.confirmMarkup(booking.ID))
}

// NotifyBookingConfirmed tells staff a booking was reported paid
func (b *Bot) NotifyBookingConfirmed(booking core.Booking, vehicle core.Vehicle, guest core.User) {
	b.sendAsync(b.translator.Format(b.lang, "bot.booking_confirmed", map[string]string{
		"guest":   guest.Identity,
		"vehicle": vehicle.Name,
		"start":   booking.StartTime.Format(timeLayout),
	}))
}

// NotifyChallengeBookingRequest tells staff a guest started a venue booking email
func (b *Bot) NotifyChallengeBookingRequest(challenge core.Challenge, guest core.User) {
	b.sendAsync(b.translator.Format(b.lang, "bot.challenge_booking", map[string]string{
		"guest": guest.Identity,
		"venue": challenge.VenueName,
	}))
}

// sendAsync delivers a message to the staff chat without blocking the caller
func (b *Bot) sendAsync(message string, opts ...interface{}) {
	if b.staffChatID == 0 {
		return
	}
	go func() {
		if err := b.SendNotification(message, opts...); err != nil {
			log.WithError(err).WithField("chat_id", b.staffChatID).Error("failed to notify staff")
		}
	}()
}

// SendNotification sends a message to the staff chat
func (b *Bot) SendNotification(message string, opts ...interface{}) error {
	_, err := b.out.Send(tele.ChatID(b.staffChatID), message, opts...)
	return err
}

var _ core.Notifier = (*Bot)(nil)
