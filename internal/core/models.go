package core

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Role represents the role of a user
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleGuest Role = "GUEST"
)

// IDSet is a finite set of ids. It is stored as a sorted JSON array.
type IDSet map[int64]struct{}

// NewIDSet creates a set holding the given ids
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set
func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

// Sorted returns the ids in ascending order
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Equal reports whether both sets hold the same ids
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of ids. Older payloads serialized the set
// as a plain object, which is accepted and yields its numeric keys.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	out := IDSet{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for key := range obj {
			if id, err := strconv.ParseInt(key, 10, 64); err == nil {
				out.Add(id)
			}
		}
	default:
		var ids []int64
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		for _, id := range ids {
			out.Add(id)
		}
	}
	*s = out
	return nil
}

// User represents a guest or administrator
type User struct {
	ID                    int64           `json:"id"`
	Identity              string          `json:"identity"`
	Credential            string          `json:"credential,omitempty"`
	Role                  Role            `json:"role"`
	Points                int             `json:"points"`
	CompletedChallengeIDs IDSet           `json:"completedChallengeIds"`
	ScavengerProgress     map[int64]IDSet `json:"scavengerProgress,omitempty"`
}

// UnmarshalJSON accepts the current shape as well as records written with
// username/email and password fields.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.Identity == "" {
		u.Identity = aux.Email
	}
	if u.Identity == "" {
		u.Identity = aux.Username
	}
	if u.Credential == "" {
		u.Credential = aux.Password
	}
	if u.CompletedChallengeIDs == nil {
		u.CompletedChallengeIDs = IDSet{}
	}
	if u.ScavengerProgress == nil {
		u.ScavengerProgress = make(map[int64]IDSet)
	}
	return nil
}

// DisplayName is the part of the identity shown on the pass
func (u *User) DisplayName() string {
	name, _, _ := strings.Cut(u.Identity, "@")
	return name
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	out := *u
	out.CompletedChallengeIDs = u.CompletedChallengeIDs.Clone()
	out.ScavengerProgress = make(map[int64]IDSet, len(u.ScavengerProgress))
	for id, items := range u.ScavengerProgress {
		out.ScavengerProgress[id] = items.Clone()
	}
	return &out
}

// LatLng is a [latitude, longitude] pair
type LatLng [2]float64

// Perk is a reward unlocked once a user holds enough points
type Perk struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name" validate:"required"`
	Description    string  `json:"description"`
	RequiredPoints int     `json:"requiredPoints" validate:"gte=0"`
	IconName       string  `json:"iconName,omitempty"`
	Position       *LatLng `json:"position,omitempty"`
}

// PartnerDeal is a partner discount redeemed by showing a code
type PartnerDeal struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	QRCodeData  string  `json:"qrCodeData" validate:"required"`
	IconName    string  `json:"iconName,omitempty"`
	ScanCount   int     `json:"scanCount" validate:"gte=0"`
	Position    *LatLng `json:"position,omitempty"`
}

// Vehicle is a bookable ride
type Vehicle struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name" validate:"required"`
	Description       string  `json:"description"`
	ImageURL          string  `json:"imageUrl,omitempty"`
	Capacity          int     `json:"capacity" validate:"gt=0"`
	Type              string  `json:"type" validate:"required"`
	ICalURL           string  `json:"iCalUrl"`
	QuickRideBaseFare float64 `json:"quickRideBaseFare" validate:"gte=0"`
	TourHourlyRate    float64 `json:"tourHourlyRate" validate:"gte=0"`
	PaymentLink       string  `json:"paymentLink"`
}

// UnmarshalJSON also reads the payment link from its older stripePaymentLink key
func (v *Vehicle) UnmarshalJSON(data []byte) error {
	type plain Vehicle
	aux := struct {
		*plain
		StripePaymentLink string `json:"stripePaymentLink"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if v.PaymentLink == "" {
		v.PaymentLink = aux.StripePaymentLink
	}
	return nil
}

// BookingType represents how a vehicle is booked
type BookingType string

const (
	BookingQuickRide BookingType = "QUICK_RIDE"
	BookingTour      BookingType = "TOUR"
)

// BookingStatus represents the payment state of a booking
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed      BookingStatus = "CONFIRMED"
)

// BookingID identifies a booking. Older records used numeric ids.
type BookingID string

// UnmarshalJSON accepts both string and numeric ids
func (id *BookingID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = BookingID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = BookingID(n.String())
	return nil
}

// Booking represents a vehicle reservation
type Booking struct {
	ID          BookingID     `json:"id"`
	VehicleID   int64         `json:"vehicleId"`
	UserID      int64         `json:"userId"`
	BookingType BookingType   `json:"bookingType"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Status      BookingStatus `json:"status"`
}

// ThemeSettings holds the admin-controlled look of the app
type ThemeSettings struct {
	HeaderText      string `json:"headerText"`
	SubHeaderText   string `json:"subHeaderText"`
	PrimaryColor    string `json:"primaryColor"`
	SecondaryColor  string `json:"secondaryColor"`
	FontFamily      string `json:"fontFamily"`
	BackgroundImage string `json:"backgroundImage"`
}

// AppConfig is the configuration aggregate edited by administrators.
// It is also the document produced by the export.
type AppConfig struct {
	Challenges []Challenge   `json:"challenges"`
	Perks      []Perk        `json:"perks"`
	Deals      []PartnerDeal `json:"deals"`
	Vehicles   []Vehicle     `json:"vehicles"`
	Theme      ThemeSettings `json:"theme"`
}

// Clone returns a deep copy of the configuration
func (c AppConfig) Clone() AppConfig {
	out := AppConfig{Theme: c.Theme}
	if c.Challenges != nil {
		out.Challenges = make([]Challenge, len(c.Challenges))
		for i, ch := range c.Challenges {
			out.Challenges[i] = ch.Clone()
		}
	}
	if c.Perks != nil {
		out.Perks = append([]Perk{}, c.Perks...)
	}
	if c.Deals != nil {
		out.Deals = append([]PartnerDeal{}, c.Deals...)
	}
	if c.Vehicles != nil {
		out.Vehicles = append([]Vehicle{}, c.Vehicles...)
	}
	return out
}

// FillMissing replaces sections absent from a decoded document with the
// given defaults. Present but empty sections are kept.
func (c *AppConfig) FillMissing(defaults AppConfig) {
	if c.Challenges == nil {
		c.Challenges = defaults.Clone().Challenges
	}
	if c.Perks == nil {
		c.Perks = append([]Perk{}, defaults.Perks...)
	}
	if c.Deals == nil {
		c.Deals = append([]PartnerDeal{}, defaults.Deals...)
	}
	if c.Vehicles == nil {
		c.Vehicles = append([]Vehicle{}, defaults.Vehicles...)
	}
	if c.Theme == (ThemeSettings{}) {
		c.Theme = defaults.Theme
	}
}

// Stripped returns a copy without embedded images, used when storage is full
func (c AppConfig) Stripped() any {
	out := c.Clone()
	out.Theme.BackgroundImage = ""
	for i := range out.Vehicles {
		if isDataURI(out.Vehicles[i].ImageURL) {
			out.Vehicles[i].ImageURL = ""
		}
	}
	for i := range out.Challenges {
		if photo, ok := out.Challenges[i].Rules.(PhotoRules); ok && isDataURI(photo.ReferenceImageURL) {
			out.Challenges[i].Rules = PhotoRules{}
		}
	}
	return out
}

func isDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Rank is a tier on the pass
type Rank struct {
	Name      string `json:"name"`
	MinPoints int    `json:"minPoints"`
	Color     string `json:"color"`
}
