package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"padelscout-backend/lib/proxy"
	"padelscout-backend/lib/supabase"
	"padelscout-backend/lib/testutil"

	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed db/schema.sql
var schemaSql string

type runUpdate struct {
	Id     string
	Status string
	Slots  int
	Clubs  int
}

// fakeSupabase stands in for the PostgREST api, recording whatever the
// service writes.
type fakeSupabase struct {
	mu      sync.Mutex
	clubs   []supabase.Club
	courts  []supabase.Court
	slots   []supabase.Slot
	runs    []supabase.ScrapeRun
	updates []runUpdate
	// refuse to create scrape runs, exercises the abort path
	failRunCreate bool
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/rest/v1/clubs" && r.Method == http.MethodGet:
		writeJson(w, http.StatusOK, f.clubs)

	case r.URL.Path == "/rest/v1/scrape_runs" && r.Method == http.MethodPost:
		if f.failRunCreate {
			writeJson(w, http.StatusInternalServerError, map[string]string{"message": "nope"})
			return
		}
		var run supabase.ScrapeRun
		json.NewDecoder(r.Body).Decode(&run)
		run.Id = fmt.Sprintf("run-%d", len(f.runs)+1)
		f.runs = append(f.runs, run)
		writeJson(w, http.StatusCreated, []supabase.ScrapeRun{run})

	case r.URL.Path == "/rest/v1/scrape_runs" && r.Method == http.MethodPatch:
		var patch struct {
			ScrapeStatus string `json:"scrape_status"`
			SlotsScraped int    `json:"slots_scraped"`
			ClubsCovered int    `json:"clubs_covered"`
		}
		json.NewDecoder(r.Body).Decode(&patch)
		f.updates = append(f.updates, runUpdate{
			Id:     strings.TrimPrefix(r.URL.Query().Get("id"), "eq."),
			Status: patch.ScrapeStatus,
			Slots:  patch.SlotsScraped,
			Clubs:  patch.ClubsCovered,
		})
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == "/rest/v1/courts" && r.Method == http.MethodGet:
		clubId := strings.TrimPrefix(r.URL.Query().Get("club_id"), "eq.")
		matching := []supabase.Court{}
		for _, court := range f.courts {
			if court.ClubId == clubId {
				matching = append(matching, court)
			}
		}
		writeJson(w, http.StatusOK, matching)

	case r.URL.Path == "/rest/v1/courts" && r.Method == http.MethodPost:
		var court supabase.Court
		json.NewDecoder(r.Body).Decode(&court)
		court.Id = fmt.Sprintf("court-%d", len(f.courts)+1)
		f.courts = append(f.courts, court)
		writeJson(w, http.StatusCreated, []supabase.Court{court})

	case r.URL.Path == "/rest/v1/slots" && r.Method == http.MethodPost:
		var slot supabase.Slot
		json.NewDecoder(r.Body).Decode(&slot)
		for _, existing := range f.slots {
			if existing.CourtId == slot.CourtId &&
				existing.BookingDate == slot.BookingDate &&
				existing.StartTime == slot.StartTime {
				writeJson(w, http.StatusConflict, map[string]string{
					"message": "conflicting key value violates exclusion constraint: overlaps with existing",
				})
				return
			}
		}
		f.slots = append(f.slots, slot)
		w.WriteHeader(http.StatusCreated)

	default:
		http.NotFound(w, r)
	}
}

// the rendered booking grid for two courts: one booked 18:00-19:30,
// the other 23:00-01:00 wrapping past midnight
const gridPage = `<div id="root"><div class="bbq2__grid">
<div class="bbq2__resource__label">Court 1</div>
<div class="bbq2__resource__label">Court 2</div>
<div class="bbq2__slots-resource">
<div class="bbq2__hole" style="left: 1052px; width: 58.5px;"></div>
</div>
<div class="bbq2__slots-resource">
<div class="bbq2__hole" style="left: 1247px; width: 78px;"></div>
</div>
</div></div>`

func setup(t testing.TB, fake *fakeSupabase) (Service, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/availability",
		DbSchema: schemaSql,
	})

	server := httptest.NewServer(fake)
	client := supabase.NewClient(supabase.Config{
		Url:            server.URL,
		ServiceRoleKey: "test-key",
	})

	service := NewService(res.DB, client, proxy.NewPool(proxy.Config{}), Options{
		Workers:        2,
		ArtifactsDir:   t.TempDir(),
		ScreenshotsDir: t.TempDir(),
	})
	service.fetch = func(ctx context.Context, proxyUrl, clubUrl string) (string, []byte, error) {
		return gridPage, []byte("not actually a png"), nil
	}

	return service, func() {
		server.Close()
		cleanup()
	}
}

func TestRun(t *testing.T) {
	fake := &fakeSupabase{
		clubs: []supabase.Club{
			{Id: "club-1", Name: "Padel Park", Url: "https://playtomic.io/padel-park"},
			{Id: "club-2", Name: "Playmore Padel", Url: "https://playtomic.io/playmore"},
		},
	}
	service, cleanup := setup(t, fake)
	defer cleanup()

	report, err := service.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 4, report.SlotsScraped)
	require.Equal(t, 2, report.ClubsCovered)
	require.Equal(t, 0, report.Failures)

	require.Len(t, fake.runs, 1)
	require.Equal(t, "in_progress", fake.runs[0].ScrapeStatus)
	require.Len(t, fake.updates, 1)
	require.Equal(t, runUpdate{
		Id:     report.ScrapeId,
		Status: "completed",
		Slots:  4,
		Clubs:  2,
	}, fake.updates[0])

	require.Len(t, fake.courts, 4)
	require.Len(t, fake.slots, 4)
	for _, slot := range fake.slots {
		require.Equal(t, report.ScrapeId, slot.ScrapeId)
		require.False(t, slot.Availability)
	}

	runs, err := service.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "completed", runs[0].ScrapeStatus)
	require.Equal(t, int64(4), runs[0].SlotsScraped)

	archived, err := service.qry.CountSlotsForRun(context.Background(), report.ScrapeId)
	require.NoError(t, err)
	require.Equal(t, int64(4), archived)

	artifacts, err := os.ReadDir(service.options.ArtifactsDir)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	screenshots, err := os.ReadDir(service.options.ScreenshotsDir)
	require.NoError(t, err)
	require.Len(t, screenshots, 2)
}

func TestRunClubFailure(t *testing.T) {
	fake := &fakeSupabase{
		clubs: []supabase.Club{
			{Id: "club-1", Name: "Padel Park", Url: "https://playtomic.io/padel-park"},
			{Id: "club-2", Name: "Flaky Club", Url: "https://playtomic.io/flaky"},
		},
	}
	service, cleanup := setup(t, fake)
	defer cleanup()

	service.fetch = func(ctx context.Context, proxyUrl, clubUrl string) (string, []byte, error) {
		if strings.Contains(clubUrl, "flaky") {
			return "", nil, fmt.Errorf("browser crashed")
		}
		return gridPage, nil, nil
	}

	report, err := service.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.SlotsScraped)
	require.Equal(t, 2, report.ClubsCovered)
	require.Equal(t, 1, report.Failures)

	// the run still closes out as completed
	require.Len(t, fake.updates, 1)
	require.Equal(t, "completed", fake.updates[0].Status)
}

func TestRunCreateFailureAborts(t *testing.T) {
	fake := &fakeSupabase{
		clubs:         []supabase.Club{{Id: "club-1", Name: "Padel Park", Url: "https://playtomic.io/padel-park"}},
		failRunCreate: true,
	}
	service, cleanup := setup(t, fake)
	defer cleanup()

	_, err := service.Run(context.Background())
	require.Error(t, err)
	require.Empty(t, fake.slots)
	require.Empty(t, fake.updates)
}

func TestPushClubOverlapSkipped(t *testing.T) {
	fake := &fakeSupabase{
		clubs: []supabase.Club{
			{Id: "club-1", Name: "Padel Park", Url: "https://playtomic.io/padel-park"},
		},
	}
	service, cleanup := setup(t, fake)
	defer cleanup()

	report, err := service.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.SlotsScraped)

	// a rerun hits the exclusion constraint on every slot and skips
	// them without failing
	report, err = service.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.SlotsScraped)
	require.Len(t, fake.slots, 2)
	require.Len(t, fake.courts, 2)
}
