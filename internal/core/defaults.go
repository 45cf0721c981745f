package core

func pos(lat, lng float64) *LatLng {
	return &LatLng{lat, lng}
}

// DefaultConfig returns a fresh copy of the catalog shipped with a new install
func DefaultConfig() AppConfig {
	return AppConfig{
		Challenges: []Challenge{
			{ID: 1, VenueName: "The Vinyl Tap", Description: "Check-in at the bar.", Points: 20, IconName: "MapPin", Position: pos(36.1613, -86.7785), Rules: GPSRules{}},
			{ID: 2, VenueName: "Miss Kelly’s Karaoke", Description: "Submit a video of you singing your heart out.", Points: 35, IconName: "VideoCamera", Position: pos(36.1633, -86.7801), Rules: VideoRules{}},
			{ID: 3, VenueName: "Rock Shop", Description: "Spend over $25 on some cool merch.", Points: 50, IconName: "Receipt", Position: pos(36.1623, -86.7779), Rules: ReceiptRules{RequiredAmount: 25}},
			{ID: 7, VenueName: "Secret Speakeasy", Description: "Find the hidden QR code inside the venue.", Points: 75, IconName: "ViewfinderCircle", Position: pos(36.1600, -86.7745), Rules: QRCodeRules{ValidationData: "NASH_ROCK_SUITE_SECRET_CODE"}},
			{ID: 4, VenueName: "The Echo Room", Description: "Check-in to the legendary music hall.", Points: 20, IconName: "MapPin", Position: pos(36.1645, -86.7815), Rules: GPSRules{}},
			{ID: 5, VenueName: "Skull’s Rainbow Room", Description: "Post an Instagram pic with their famous neon sign. Tag @skullsrainbowroom.", Points: 30, IconName: "AtSymbol", Position: pos(36.1628, -86.7767), Rules: SocialRules{ValidationTag: "@skullsrainbowroom", SocialURL: "https://www.instagram.com/skullsrainbowroom/"}},
			{ID: 6, VenueName: "Rowdy Party Bus", Description: "Request to book the party bus for your crew.", Points: 100, IconName: "CalendarDays", Position: pos(36.1658, -86.7844), Rules: BookingRules{BookingEmail: "allinpropertiesnash@gmail.com"}},
			{ID: 8, VenueName: "Guitars of the Stars", Description: "Take a photo of the iconic giant guitar outside the shop.", Points: 40, IconName: "Camera", Position: pos(36.1605, -86.7788), Rules: PhotoRules{ReferenceImageURL: "https://i.imgur.com/gG8P3Xy.jpg"}},
			{ID: 9, VenueName: "Skull’s Rainbow Room", Description: "Spend over $100 for VIP status.", Points: 100, IconName: "Receipt", Position: pos(36.1628, -86.7767), Rules: ReceiptRules{RequiredAmount: 100}},
			{ID: 10, VenueName: "Broadway Scavenger Hunt", Description: "Snap a photo of each landmark on the strip.", Points: 120, IconName: "Camera", Position: pos(36.1612, -86.7775), Rules: ScavengerHuntRules{Items: []string{"A neon cowboy boot sign", "A street performer with a guitar", "A pedal tavern rolling by"}}},
		},
		Perks: []Perk{
			{ID: 1, Name: "Exclusive Playlist", Description: "Get access to a curated Rockstar playlist.", RequiredPoints: 20, IconName: "MusicNote", Position: pos(36.1613, -86.7785)},
			{ID: 2, Name: "Free Drink", Description: "Enjoy a complimentary drink at The Vinyl Tap.", RequiredPoints: 50, IconName: "Ticket", Position: pos(36.1613, -86.7785)},
			{ID: 3, Name: "10% Off Merch", Description: "Receive 10% off at the Rock Shop.", RequiredPoints: 100, IconName: "Gift", Position: pos(36.1623, -86.7779)},
			{ID: 4, Name: "VIP Lounge Access", Description: "One-time access to the VIP lounge at The Echo Room.", RequiredPoints: 250, IconName: "Crown", Position: pos(36.1645, -86.7815)},
		},
		Deals: []PartnerDeal{
			{ID: 1, Name: "MJ Coffee", Description: "20% off your entire order.", QRCodeData: "MJCOFFEE_20_OFF", IconName: "Gift", Position: pos(36.1589, -86.7765)},
			{ID: 2, Name: "Coma Inducer", Description: "20% off any purchase.", QRCodeData: "COMA_INDUCER_20_OFF", IconName: "Gift", Position: pos(36.1601, -86.7789)},
			{ID: 3, Name: "Music City Wine", Description: "10% off all local wines.", QRCodeData: "MCW_10_PERCENT", IconName: "Ticket", Position: pos(36.1595, -86.7812)},
			{ID: 4, Name: "The Cellar", Description: "2 for 1 drinks until 7pm.", QRCodeData: "THE_CELLAR_BOGO_7PM", IconName: "Ticket", Position: pos(36.1618, -86.7758)},
			{ID: 5, Name: "Wild Beaver", Description: "One free mechanical bull ride.", QRCodeData: "WILD_BEAVER_FREE_RIDE", IconName: "Ticket", Position: pos(36.1630, -86.7795)},
		},
		Vehicles: []Vehicle{
			{
				ID:                1,
				Name:              "Cadillac Escalade",
				Description:       "Luxury SUV for comfortable city travel.",
				ImageURL:          "https://img.sm360.ca/ir/w600/images/newcar/ca/2023/cadillac/escalade/sport-platinum/suv/exteriorColors/2023_cadillac_escalade_sport-platinum_032.png",
				Capacity:          6,
				Type:              "SUV",
				ICalURL:           "https://calendar.google.com/calendar/ical/example%40gmail.com/public/basic.ics",
				QuickRideBaseFare: 75,
				TourHourlyRate:    150,
				PaymentLink:       "https://buy.stripe.com/test_7sI6r1c3v5J0e4g000",
			},
			{
				ID:                2,
				Name:              "The Rockstar Limo",
				Description:       "The ultimate party on wheels. Fully loaded.",
				ImageURL:          "https://www.crystalcoach.com/wp-content/uploads/2021/01/200-inch-white-cadillac-escalade-limo.png",
				Capacity:          14,
				Type:              "Party Bus",
				ICalURL:           "https://calendar.google.com/calendar/ical/example2%40gmail.com/public/basic.ics",
				QuickRideBaseFare: 200,
				TourHourlyRate:    300,
				PaymentLink:       "https://buy.stripe.com/test_7sI6r1c3v5J0e4g000",
			},
		},
		Theme: DefaultTheme(),
	}
}

// DefaultTheme returns the stock theme
func DefaultTheme() ThemeSettings {
	return ThemeSettings{
		HeaderText:     "Rockstar Pass",
		SubHeaderText:  "Your Backstage Pass to the City",
		PrimaryColor:   "#a855f7",
		SecondaryColor: "#22d3ee",
		FontFamily:     "'Inter', sans-serif",
	}
}

// SeedUsers returns the accounts present on a fresh install: one
// administrator plus a few demo guests when demo is set.
func SeedUsers(adminIdentity, adminCredential string, demo bool) []*User {
	users := []*User{
		{ID: 1, Identity: adminIdentity, Credential: adminCredential, Role: RoleAdmin, CompletedChallengeIDs: IDSet{}, ScavengerProgress: map[int64]IDSet{}},
	}
	if !demo {
		return users
	}
	guests := []struct {
		name      string
		points    int
		completed []int64
	}{
		{"Ariel", 70, []int64{1, 2}},
		{"Devon", 100, []int64{1, 3, 4}},
		{"Sabrina", 20, []int64{1}},
	}
	for i, g := range guests {
		users = append(users, &User{
			ID:                    int64(i + 2),
			Identity:              g.name,
			Role:                  RoleGuest,
			Points:                g.points,
			CompletedChallengeIDs: NewIDSet(g.completed...),
			ScavengerProgress:     map[int64]IDSet{},
		})
	}
	return users
}
