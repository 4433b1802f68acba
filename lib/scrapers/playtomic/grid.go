package playtomic

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"padelscout-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// GridSelector is the element the booking page renders the day's
// availability into, once it exists the page is scrapable.
const GridSelector = "#root .bbq2__grid"

var ErrNoGrid = errors.New("no availability grid in document")

// the grid draws slots on a pixel track: the track starts 350px into
// the grid and every hour is 39px wide
const (
	gridOffsetPx = 350.0
	pxPerHour    = 39.0
)

// CalibrationFor returns the hour offset to apply for a club. Playmore
// venues render their track shifted one hour early.
func CalibrationFor(clubName string) float64 {
	if strings.Contains(clubName, "Playmore") {
		return -1.0
	}
	return 0.0
}

var pxValue = regexp.MustCompile(`(-?[\d.]+)px`)

func styleProp(style, prop string) (float64, bool) {
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found || strings.TrimSpace(name) != prop {
			continue
		}
		m := pxValue.FindStringSubmatch(value)
		if m == nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// clockParts turns a fractional hour into (hour, minute), snapping
// minutes to :00/:30 on the half-hour boundary the way the grid is
// actually quantized.
func clockParts(hour float64) (int, int) {
	h := int(hour)
	m := 0
	if hour-math.Floor(hour) >= 0.5 {
		m = 30
	}
	return h, m
}

// ParseGrid extracts per-court booked slots out of the rendered grid
// html. calibration comes from CalibrationFor.
func ParseGrid(html string, calibration float64) ([]Court, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	grid := doc.Find(".bbq2__grid").First()
	if grid.Length() == 0 {
		// the caller may hand us the grid element itself
		if doc.Find(".bbq2__resource__label").Length() == 0 {
			return nil, ErrNoGrid
		}
		grid = doc.Selection
	}

	var labels []string
	grid.Find(".bbq2__resource__label").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			labels = append(labels, htmlutil.CleanText(htmlutil.GetText(n)))
		}
	})

	blocks := grid.Find(".bbq2__slots-resource")

	var courts []Court
	for idx, name := range labels {
		if idx >= blocks.Length() {
			break
		}
		court := Court{Name: name}

		blocks.Eq(idx).Find(".bbq2__hole").Each(func(_ int, hole *goquery.Selection) {
			style := hole.AttrOr("style", "")
			left, okLeft := styleProp(style, "left")
			width, okWidth := styleProp(style, "width")
			if !okLeft || !okWidth {
				return
			}

			x := left - gridOffsetPx

			startHour := x/pxPerHour + calibration
			sh, sm := clockParts(startHour)

			endHour := (x+width)/pxPerHour + calibration
			eh, em := clockParts(endHour)

			// a slot that "ends" at or before its start wraps past midnight
			if eh*60+em <= sh*60+sm {
				eh += 24
			}
			eh = eh % 24

			court.Slots = append(court.Slots, Slot{
				StartTime: fmt.Sprintf("%02d:%02d", sh, sm),
				EndTime:   fmt.Sprintf("%02d:%02d", eh, em),
				Status:    SlotStatus,
			})
		})

		courts = append(courts, court)
	}

	return courts, nil
}
