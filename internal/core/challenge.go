package core

import (
	"encoding/json"
	"fmt"
)

// ChallengeType names the validation rule a challenge uses
type ChallengeType string

const (
	TypeGPS           ChallengeType = "GPS"
	TypePhoto         ChallengeType = "PHOTO"
	TypeReceipt       ChallengeType = "RECEIPT"
	TypeSocial        ChallengeType = "SOCIAL"
	TypeVideo         ChallengeType = "VIDEO"
	TypeBooking       ChallengeType = "BOOKING"
	TypeQRCode        ChallengeType = "QR_CODE"
	TypeScavengerHunt ChallengeType = "SCAVENGER_HUNT"
)

// ChallengeRules is the type-specific part of a challenge. Each variant
// carries only the fields its validation rule reads.
type ChallengeRules interface {
	Type() ChallengeType
	encode(w *challengeWire)
}

// GPSRules completes on check-in
type GPSRules struct{}

// PhotoRules asks the oracle to judge a photo, optionally against a reference
type PhotoRules struct {
	ReferenceImageURL string
}

// ReceiptRules asks the oracle to confirm a minimum spend on a receipt
type ReceiptRules struct {
	RequiredAmount float64
}

// SocialRules asks the oracle to find a tag in a social post screenshot
type SocialRules struct {
	ValidationTag string
	SocialURL     string
}

// VideoRules completes on any uploaded video
type VideoRules struct{}

// BookingRules completes once the guest is handed a booking request link
type BookingRules struct {
	BookingEmail string
}

// QRCodeRules completes when the scanned payload matches exactly
type QRCodeRules struct {
	ValidationData string
}

// ScavengerHuntRules completes once every item has been photographed
type ScavengerHuntRules struct {
	Items []string
}

func (GPSRules) Type() ChallengeType           { return TypeGPS }
func (PhotoRules) Type() ChallengeType         { return TypePhoto }
func (ReceiptRules) Type() ChallengeType       { return TypeReceipt }
func (SocialRules) Type() ChallengeType        { return TypeSocial }
func (VideoRules) Type() ChallengeType         { return TypeVideo }
func (BookingRules) Type() ChallengeType       { return TypeBooking }
func (QRCodeRules) Type() ChallengeType        { return TypeQRCode }
func (ScavengerHuntRules) Type() ChallengeType { return TypeScavengerHunt }

func (GPSRules) encode(*challengeWire)   {}
func (VideoRules) encode(*challengeWire) {}

func (r PhotoRules) encode(w *challengeWire)   { w.ReferenceImageURL = r.ReferenceImageURL }
func (r ReceiptRules) encode(w *challengeWire) { w.RequiredAmount = r.RequiredAmount }
func (r BookingRules) encode(w *challengeWire) { w.BookingEmail = r.BookingEmail }
func (r QRCodeRules) encode(w *challengeWire)  { w.QRValidationData = r.ValidationData }

func (r SocialRules) encode(w *challengeWire) {
	w.ValidationTag = r.ValidationTag
	w.SocialURL = r.SocialURL
}

func (r ScavengerHuntRules) encode(w *challengeWire) {
	w.ScavengerHuntItems = append([]string{}, r.Items...)
}

// Challenge is a task a guest completes for points
type Challenge struct {
	ID          int64  `validate:"gte=0"`
	VenueName   string `validate:"required"`
	Description string
	Points      int `validate:"gte=0"`
	IconName    string
	Position    *LatLng
	Rules       ChallengeRules `validate:"required"`
}

// Type returns the validation rule of the challenge
func (c Challenge) Type() ChallengeType {
	if c.Rules == nil {
		return ""
	}
	return c.Rules.Type()
}

// Clone returns a deep copy of the challenge
func (c Challenge) Clone() Challenge {
	if hunt, ok := c.Rules.(ScavengerHuntRules); ok {
		c.Rules = ScavengerHuntRules{Items: append([]string{}, hunt.Items...)}
	}
	if c.Position != nil {
		pos := *c.Position
		c.Position = &pos
	}
	return c
}

// Check reports a *ConfigError when the rule lacks the data it needs to run
func (c Challenge) Check() error {
	switch r := c.Rules.(type) {
	case nil:
		return &ConfigError{ChallengeID: c.ID, Reason: "missing challenge type"}
	case ReceiptRules:
		if r.RequiredAmount <= 0 {
			return &ConfigError{ChallengeID: c.ID, Reason: "receipt challenge has no required amount"}
		}
	case SocialRules:
		if r.ValidationTag == "" {
			return &ConfigError{ChallengeID: c.ID, Reason: "social challenge has no validation tag"}
		}
	case BookingRules:
		if r.BookingEmail == "" {
			return &ConfigError{ChallengeID: c.ID, Reason: "booking challenge has no booking email"}
		}
	case QRCodeRules:
		if r.ValidationData == "" {
			return &ConfigError{ChallengeID: c.ID, Reason: "QR challenge has no validation data"}
		}
	case ScavengerHuntRules:
		if len(r.Items) == 0 {
			return &ConfigError{ChallengeID: c.ID, Reason: "scavenger hunt has no items"}
		}
	}
	return nil
}

// challengeWire is the flat document form of a challenge
type challengeWire struct {
	ID                 int64         `json:"id"`
	VenueName          string        `json:"venueName"`
	Description        string        `json:"description"`
	Points             int           `json:"points"`
	Type               ChallengeType `json:"type"`
	IconName           string        `json:"iconName,omitempty"`
	Position           *LatLng       `json:"position,omitempty"`
	RequiredAmount     float64       `json:"requiredAmount,omitempty"`
	ValidationTag      string        `json:"validationTag,omitempty"`
	SocialURL          string        `json:"socialUrl,omitempty"`
	BookingEmail       string        `json:"bookingEmail,omitempty"`
	QRValidationData   string        `json:"qrValidationData,omitempty"`
	ReferenceImageURL  string        `json:"referenceImageUrl,omitempty"`
	ScavengerHuntItems []string      `json:"scavengerHuntItems,omitempty"`
}

// MarshalJSON writes the flat document form
func (c Challenge) MarshalJSON() ([]byte, error) {
	w := challengeWire{
		ID:          c.ID,
		VenueName:   c.VenueName,
		Description: c.Description,
		Points:      c.Points,
		IconName:    c.IconName,
		Position:    c.Position,
	}
	if c.Rules != nil {
		w.Type = c.Rules.Type()
		c.Rules.encode(&w)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat document form. Fields that do not belong to
// the declared type are dropped.
func (c *Challenge) UnmarshalJSON(data []byte) error {
	var w challengeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rules, err := rulesFromWire(w)
	if err != nil {
		return err
	}
	*c = Challenge{
		ID:          w.ID,
		VenueName:   w.VenueName,
		Description: w.Description,
		Points:      w.Points,
		IconName:    w.IconName,
		Position:    w.Position,
		Rules:       rules,
	}
	return nil
}

func rulesFromWire(w challengeWire) (ChallengeRules, error) {
	switch w.Type {
	case TypeGPS:
		return GPSRules{}, nil
	case TypePhoto:
		return PhotoRules{ReferenceImageURL: w.ReferenceImageURL}, nil
	case TypeReceipt:
		return ReceiptRules{RequiredAmount: w.RequiredAmount}, nil
	case TypeSocial:
		return SocialRules{ValidationTag: w.ValidationTag, SocialURL: w.SocialURL}, nil
	case TypeVideo:
		return VideoRules{}, nil
	case TypeBooking:
		return BookingRules{BookingEmail: w.BookingEmail}, nil
	case TypeQRCode:
		return QRCodeRules{ValidationData: w.QRValidationData}, nil
	case TypeScavengerHunt:
		return ScavengerHuntRules{Items: w.ScavengerHuntItems}, nil
	default:
		return nil, fmt.Errorf("unknown challenge type %q", w.Type)
	}
}
