package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"padelscout-backend/lib/scrapers/playtomic"
	"padelscout-backend/lib/supabase"
	"padelscout-backend/services/availability/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func fetchWithBrowser(ctx context.Context, proxyUrl, clubUrl string) (string, []byte, error) {
	session, err := playtomic.NewSession(ctx, playtomic.SessionOptions{
		ProxyUrl: proxyUrl,
	})
	if err != nil {
		return "", nil, err
	}
	defer session.Close()
	return session.FetchGrid(ctx, clubUrl)
}

func (s Service) scrapeClub(ctx context.Context, club supabase.Club, scrapeId, bookingDate, scrapeTimestamp string) (int, error) {
	ctx, span := tracer.Start(ctx, "scrapeClub")
	defer span.End()
	span.SetAttributes(
		attribute.String("club", club.Name),
		attribute.String("scrape_id", scrapeId),
	)

	proxyUrl, proxied := s.proxies.Pick(ctx)
	if !proxied {
		slog.DebugContext(ctx, "scraping without a proxy", "club", club.Name)
	}

	html, screenshot, err := s.fetch(ctx, proxyUrl, club.Url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch grid")
		return 0, err
	}

	courts, err := playtomic.ParseGrid(html, playtomic.CalibrationFor(club.Name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse grid")
		return 0, err
	}

	availability := playtomic.ClubAvailability{
		ClubName:        club.Name,
		BookingDate:     bookingDate,
		ScrapeTimestamp: scrapeTimestamp,
		Courts:          courts,
	}
	s.writeArtifacts(ctx, club.Name, availability, screenshot)

	count, err := s.pushClub(ctx, club, scrapeId, availability)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to push slots")
		return count, err
	}

	span.SetAttributes(attribute.Int("slots", count))
	return count, nil
}

// pushClub uploads every parsed slot and mirrors it into the local
// archive. Overlap rejections are expected on reruns and skipped.
func (s Service) pushClub(ctx context.Context, club supabase.Club, scrapeId string, availability playtomic.ClubAvailability) (int, error) {
	existing, err := s.supabase.GetCourts(ctx, club.Id)
	if err != nil {
		return 0, err
	}
	index := newCourtIndex(existing)

	count := 0
	for _, court := range availability.Courts {
		courtId, err := s.ensureCourt(ctx, club.Id, court.Name, index)
		if err != nil {
			return count, err
		}

		for _, slot := range court.Slots {
			duration, err := durationMinutes(slot.StartTime, slot.EndTime)
			if err != nil {
				slog.WarnContext(ctx, "dropping malformed slot",
					"club", club.Name,
					"court", court.Name,
					"start", slot.StartTime,
					"end", slot.EndTime,
				)
				continue
			}

			err = s.supabase.InsertSlot(ctx, supabase.Slot{
				CourtId:         courtId,
				BookingDate:     availability.BookingDate,
				StartTime:       slot.StartTime,
				EndTime:         slot.EndTime,
				Availability:    false,
				DurationMinutes: duration,
				ScrapeId:        scrapeId,
				ScrapeTimestamp: availability.ScrapeTimestamp,
			})
			if errors.Is(err, supabase.ErrOverlap) {
				slog.DebugContext(ctx, "slot already recorded",
					"club", club.Name,
					"court", court.Name,
					"start", slot.StartTime,
				)
				continue
			}
			if err != nil {
				// one bad slot should not sink the rest of the club
				slog.WarnContext(ctx, "failed to insert slot",
					"club", club.Name,
					"court", court.Name,
					"start", slot.StartTime,
					"err", err,
				)
				continue
			}

			err = s.qry.CreateSlot(ctx, db.CreateSlotParams{
				ScrapeID:        scrapeId,
				ClubName:        club.Name,
				CourtName:       court.Name,
				BookingDate:     availability.BookingDate,
				StartTime:       slot.StartTime,
				EndTime:         slot.EndTime,
				DurationMinutes: int64(duration),
				ScrapeTimestamp: availability.ScrapeTimestamp,
			})
			if err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// durationMinutes computes the length of an HH:MM range, treating an
// end at or before the start as wrapping past midnight.
func durationMinutes(start, end string) (int, error) {
	sm, err := clockMinutes(start)
	if err != nil {
		return 0, err
	}
	em, err := clockMinutes(end)
	if err != nil {
		return 0, err
	}
	if em <= sm {
		em += 24 * 60
	}
	return em - sm, nil
}

func clockMinutes(clock string) (int, error) {
	h, m, found := strings.Cut(clock, ":")
	if !found {
		return 0, fmt.Errorf("malformed clock %q", clock)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q", clock)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q", clock)
	}
	return hour*60 + minute, nil
}
