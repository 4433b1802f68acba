package availability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"padelscout-backend/lib/proxy"
	"padelscout-backend/lib/supabase"
	"padelscout-backend/lib/telemetry"
	"padelscout-backend/lib/timezone"
	"padelscout-backend/services/availability/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("padelscout.services.availability")

const runNotes = "Automated scrape of playtomic courts"

type Options struct {
	// concurrent browser sessions, each worker owns its own
	Workers int `json:"workers"`
	// scrape only the first n clubs, 0 means all
	ClubLimit int `json:"club_limit"`
	// where per-club json artifacts go, empty disables them
	ArtifactsDir string `json:"artifacts_dir"`
	// where page screenshots go, empty disables them
	ScreenshotsDir string `json:"screenshots_dir"`
	// recorded on the scrape run row
	Source string       `json:"source"`
	Notify NotifyConfig `json:"notify"`
}

// gridFetcher retrieves the rendered booking grid for a club. The
// default launches a headless browser, tests swap in a canned page.
type gridFetcher func(ctx context.Context, proxyUrl, clubUrl string) (html string, screenshot []byte, err error)

type Service struct {
	supabase *supabase.Client
	proxies  *proxy.Pool
	db       *sql.DB
	qry      *db.Queries
	notifier Notifier
	options  Options
	fetch    gridFetcher
}

func NewService(database *sql.DB, client *supabase.Client, proxies *proxy.Pool, options Options) Service {
	if options.Workers <= 0 {
		options.Workers = 2
	}
	if options.Source == "" {
		options.Source = "playtomic"
	}
	return Service{
		supabase: client,
		proxies:  proxies,
		db:       database,
		qry:      db.New(database),
		notifier: NewNotifier(options.Notify),
		options:  options,
		fetch:    fetchWithBrowser,
	}
}

// Report summarizes one completed scrape run.
type Report struct {
	ScrapeId     string
	BookingDate  string
	SlotsScraped int
	ClubsCovered int
	Failures     int
}

// Run performs one full scrape: create the run row, scrape every club
// through the worker pool and close the run out. A club that fails is
// logged and contributes zero slots, only run bookkeeping failures
// abort the whole run.
func (s Service) Run(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	now := timezone.Now()
	bookingDate := timezone.BookingDate(now)
	scrapeTimestamp := now.UTC().Format(time.RFC3339)

	scrapeId, err := s.supabase.CreateScrapeRun(ctx, supabase.ScrapeRun{
		RunAt:        scrapeTimestamp,
		BookingDate:  bookingDate,
		Source:       s.options.Source,
		Notes:        runNotes,
		ScrapeStatus: "in_progress",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create scrape run")
		s.notifier.NotifyFailure(ctx, "", err)
		return Report{}, err
	}
	span.SetAttributes(attribute.String("scrape_id", scrapeId))

	err = s.qry.CreateScrapeRun(ctx, db.CreateScrapeRunParams{
		ID:           scrapeId,
		RunAt:        now.Unix(),
		BookingDate:  bookingDate,
		Source:       s.options.Source,
		Notes:        runNotes,
		ScrapeStatus: "in_progress",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive scrape run")
		s.notifier.NotifyFailure(ctx, scrapeId, err)
		return Report{}, err
	}

	clubs, err := s.supabase.GetClubs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch clubs")
		s.notifier.NotifyFailure(ctx, scrapeId, err)
		return Report{}, err
	}
	if s.options.ClubLimit > 0 && len(clubs) > s.options.ClubLimit {
		clubs = clubs[:s.options.ClubLimit]
	}
	slog.InfoContext(ctx, "starting scrape",
		"scrape_id", scrapeId,
		"booking_date", bookingDate,
		"clubs", len(clubs),
		"workers", s.options.Workers,
	)

	queue := make(chan supabase.Club)
	var wg sync.WaitGroup
	var mu sync.Mutex
	totalSlots := 0
	failures := 0

	for i := 0; i < s.options.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for club := range queue {
				count, err := s.scrapeClub(ctx, club, scrapeId, bookingDate, scrapeTimestamp)
				if err != nil {
					slog.WarnContext(ctx, "club scrape failed",
						"club", club.Name,
						"err", err,
					)
				}
				mu.Lock()
				totalSlots += count
				if err != nil {
					failures++
				}
				mu.Unlock()
			}
		}()
	}

	for _, club := range clubs {
		queue <- club
	}
	close(queue)
	wg.Wait()

	if len(clubs) > 0 && failures == len(clubs) {
		// the browser or proxy setup is almost certainly broken,
		// someone should hear about it
		s.notifier.NotifyFailure(ctx, scrapeId, fmt.Errorf("all %d clubs failed to scrape", len(clubs)))
	}

	err = s.supabase.UpdateScrapeRun(ctx, scrapeId, "completed", totalSlots, len(clubs))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to complete scrape run")
		s.notifier.NotifyFailure(ctx, scrapeId, err)
		return Report{}, err
	}
	err = s.qry.UpdateScrapeRun(ctx, db.UpdateScrapeRunParams{
		ScrapeStatus: "completed",
		SlotsScraped: int64(totalSlots),
		ClubsCovered: int64(len(clubs)),
		ID:           scrapeId,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive scrape run")
		return Report{}, err
	}

	report := Report{
		ScrapeId:     scrapeId,
		BookingDate:  bookingDate,
		SlotsScraped: totalSlots,
		ClubsCovered: len(clubs),
		Failures:     failures,
	}
	slog.InfoContext(ctx, "scrape complete",
		"scrape_id", scrapeId,
		"slots", totalSlots,
		"clubs", len(clubs),
		"failures", failures,
	)
	return report, nil
}

// ListRuns reads recent runs out of the local archive.
func (s Service) ListRuns(ctx context.Context, limit int64) ([]db.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.qry.ListScrapeRuns(ctx, limit)
}
