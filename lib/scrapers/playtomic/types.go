package playtomic

// UserAgent is presented on every request, browser or not. Playtomic
// serves a challenge page to anything that looks automated.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// SlotStatus is what the grid shows for an occupied range. The booking
// page only renders holes for taken slots, free time is just empty
// track.
const SlotStatus = "Booked"

type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

type Court struct {
	Name  string `json:"name"`
	Slots []Slot `json:"slots"`
}

// ClubAvailability is the per-club scrape artifact, also what gets
// written to the json artifact directory.
type ClubAvailability struct {
	ClubName        string  `json:"club_name"`
	BookingDate     string  `json:"booking_date"`
	ScrapeTimestamp string  `json:"scrape_timestamp"`
	Courts          []Court `json:"courts"`
}
