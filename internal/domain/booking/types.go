package booking

import "time"

// Stay is the requested stay: which hut, which nights, how many beds.
type Stay struct {
	HutName   string
	HutID     string
	CheckIn   time.Time
	CheckOut  time.Time
	PartySize int
	RoomType  string
	HalfBoard bool
}

// Nights returns the number of nights between check-in and check-out.
func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// Party carries the overnight-stay details the wizard asks for beyond the
// head count.
type Party struct {
	Children      int
	Guides        int
	Vegetarians   int
	LunchPackages int
	GroupName     string
	AccessRoute   string
	Allergies     string
	Comments      string
}

type Contact struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	AddressLine1 string
	City         string
	PostalCode   string
	Country      string
}

// Request is everything a gateway needs to submit one reservation.
type Request struct {
	Stay    Stay
	Party   Party
	Contact Contact
	Remarks string
}
