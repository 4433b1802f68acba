package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Dubai")
	if err != nil {
		panic(err)
	}
}

// force timezone to be where the clubs are because the slot grid is
// parsed into wall-clock times; a server that ends up in another
// region would shift booking dates based on <time.Time>.Year()/Month()/Day()
func Now() time.Time {
	return time.Now().In(Location)
}

// BookingDate formats a time the way the booking tables key their days.
func BookingDate(t time.Time) string {
	return t.In(Location).Format("2006-01-02")
}
