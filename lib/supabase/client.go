package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"padelscout-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/supabase")

// ErrOverlap is returned when the slots exclusion constraint rejects
// an insert because the time range collides with an existing row.
// Callers treat it as "already recorded".
var ErrOverlap = errors.New("slot overlaps with existing slot")

type Config struct {
	Url string `json:"url"`
	// the service role key, scrapers write to tables RLS would
	// otherwise protect
	ServiceRoleKey string `json:"service_role_key"`
}

// Client talks to the PostgREST API supabase exposes under /rest/v1.
type Client struct {
	http *resty.Client
}

func NewClient(config Config) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(config.Url, "/") + "/rest/v1")
	client.SetHeader("apikey", config.ServiceRoleKey)
	client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", config.ServiceRoleKey))
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, instrumentOutput)

	return &Client{http: client}
}

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables http message dumping for clients
// created afterwards.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

func statusError(res *resty.Response) error {
	return fmt.Errorf("supabase returned %d: %s", res.StatusCode(), res.String())
}

type Club struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Url  string `json:"url"`
}

func (c *Client) GetClubs(ctx context.Context) ([]Club, error) {
	ctx, span := tracer.Start(ctx, "GetClubs")
	defer span.End()

	var clubs []Club
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id,name,url").
		SetResult(&clubs).
		Get("/clubs")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch clubs")
		return nil, err
	}
	if res.IsError() {
		err = statusError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch clubs")
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(clubs)))
	return clubs, nil
}

type ScrapeRun struct {
	Id           string `json:"id,omitempty"`
	RunAt        string `json:"run_at"`
	BookingDate  string `json:"booking_date"`
	Source       string `json:"source"`
	Notes        string `json:"notes"`
	SlotsScraped int    `json:"slots_scraped"`
	ClubsCovered int    `json:"clubs_covered"`
	ScrapeStatus string `json:"scrape_status"`
}

func (c *Client) CreateScrapeRun(ctx context.Context, run ScrapeRun) (string, error) {
	ctx, span := tracer.Start(ctx, "CreateScrapeRun")
	defer span.End()

	var created []ScrapeRun
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(run).
		SetResult(&created).
		Post("/scrape_runs")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create scrape run")
		return "", err
	}
	if res.IsError() {
		err = statusError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create scrape run")
		return "", err
	}
	if len(created) == 0 {
		err = fmt.Errorf("scrape run insert returned no rows")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("scrape_id", created[0].Id))
	return created[0].Id, nil
}

func (c *Client) UpdateScrapeRun(ctx context.Context, id, status string, slots, clubs int) error {
	ctx, span := tracer.Start(ctx, "UpdateScrapeRun")
	defer span.End()
	span.SetAttributes(
		attribute.String("scrape_id", id),
		attribute.String("status", status),
	)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		SetBody(map[string]any{
			"scrape_status": status,
			"slots_scraped": slots,
			"clubs_covered": clubs,
		}).
		Patch("/scrape_runs")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update scrape run")
		return err
	}
	if res.IsError() {
		err = statusError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update scrape run")
		return err
	}
	return nil
}

type Court struct {
	Id        string `json:"id,omitempty"`
	ClubId    string `json:"club_id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (c *Client) GetCourts(ctx context.Context, clubId string) ([]Court, error) {
	ctx, span := tracer.Start(ctx, "GetCourts")
	defer span.End()
	span.SetAttributes(attribute.String("club_id", clubId))

	var courts []Court
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id,name").
		SetQueryParam("club_id", "eq."+clubId).
		SetResult(&courts).
		Get("/courts")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch courts")
		return nil, err
	}
	if res.IsError() {
		err = statusError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch courts")
		return nil, err
	}
	return courts, nil
}

func (c *Client) CreateCourt(ctx context.Context, clubId, name string) (string, error) {
	ctx, span := tracer.Start(ctx, "CreateCourt")
	defer span.End()
	span.SetAttributes(
		attribute.String("club_id", clubId),
		attribute.String("name", name),
	)

	var created []Court
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(Court{
			ClubId:    clubId,
			Name:      name,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}).
		SetResult(&created).
		Post("/courts")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create court")
		return "", err
	}
	if res.IsError() {
		err = statusError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create court")
		return "", err
	}
	if len(created) == 0 {
		err = fmt.Errorf("court insert returned no rows")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return created[0].Id, nil
}

type Slot struct {
	CourtId         string `json:"court_id"`
	BookingDate     string `json:"booking_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Availability    bool   `json:"availability"`
	DurationMinutes int    `json:"duration_minutes"`
	ScrapeId        string `json:"scrape_id"`
	ScrapeTimestamp string `json:"scrape_timestamp"`
}

func (c *Client) InsertSlot(ctx context.Context, slot Slot) error {
	ctx, span := tracer.Start(ctx, "InsertSlot")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(slot).
		Post("/slots")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert slot")
		return err
	}
	if res.IsError() {
		if strings.Contains(res.String(), "overlaps with existing") {
			return ErrOverlap
		}
		err = statusError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert slot")
		return err
	}
	return nil
}
