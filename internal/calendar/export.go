package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/gosimple/slug"

	"rockstar-pass-monolith/internal/core"
)

const (
	ProductID       = "-//RockstarHospitalityPass//EN"
	DefaultLocation = "Nashville, TN"
	ContentType     = "text/calendar; charset=utf-8"
)

// Export renders a booking as a single-event iCalendar document
func Export(b core.Booking, v core.Vehicle, location string, now time.Time) []byte {
	if location == "" {
		location = DefaultLocation
	}

	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)

	event := cal.AddEvent(fmt.Sprintf("%s@rockstarpass.app", b.ID))
	event.SetDtStampTime(now.UTC())
	event.SetStartAt(b.StartTime.UTC())
	event.SetEndAt(b.EndTime.UTC())
	event.SetSummary("Rockstar Ride: " + v.Name)
	event.SetDescription(fmt.Sprintf("Your booking for the %s (%s) is confirmed.",
		v.Name, strings.ReplaceAll(string(b.BookingType), "_", " ")))
	event.SetLocation(location)

	return []byte(cal.Serialize())
}

// FileName returns the download name for an exported booking
func FileName(b core.Booking, v core.Vehicle) string {
	name := strings.ReplaceAll(slug.Make(v.Name), "-", "_")
	if name == "" {
		name = "vehicle"
	}
	return fmt.Sprintf("booking_%s_%s.ics", name, b.ID)
}
