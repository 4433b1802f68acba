package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ScrapeRun struct {
	ID           string
	RunAt        int64
	BookingDate  string
	Source       string
	Notes        string
	SlotsScraped int64
	ClubsCovered int64
	ScrapeStatus string
}

const createScrapeRun = `
INSERT INTO scrape_runs (id, run_at, booking_date, source, notes, scrape_status)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateScrapeRunParams struct {
	ID           string
	RunAt        int64
	BookingDate  string
	Source       string
	Notes        string
	ScrapeStatus string
}

func (q *Queries) CreateScrapeRun(ctx context.Context, arg CreateScrapeRunParams) error {
	_, err := q.db.ExecContext(ctx, createScrapeRun,
		arg.ID,
		arg.RunAt,
		arg.BookingDate,
		arg.Source,
		arg.Notes,
		arg.ScrapeStatus,
	)
	return err
}

const updateScrapeRun = `
UPDATE scrape_runs
SET scrape_status = ?, slots_scraped = ?, clubs_covered = ?
WHERE id = ?
`

type UpdateScrapeRunParams struct {
	ScrapeStatus string
	SlotsScraped int64
	ClubsCovered int64
	ID           string
}

func (q *Queries) UpdateScrapeRun(ctx context.Context, arg UpdateScrapeRunParams) error {
	_, err := q.db.ExecContext(ctx, updateScrapeRun,
		arg.ScrapeStatus,
		arg.SlotsScraped,
		arg.ClubsCovered,
		arg.ID,
	)
	return err
}

const listScrapeRuns = `
SELECT id, run_at, booking_date, source, notes, slots_scraped, clubs_covered, scrape_status
FROM scrape_runs
ORDER BY run_at DESC
LIMIT ?
`

func (q *Queries) ListScrapeRuns(ctx context.Context, limit int64) ([]ScrapeRun, error) {
	rows, err := q.db.QueryContext(ctx, listScrapeRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScrapeRun
	for rows.Next() {
		var i ScrapeRun
		err := rows.Scan(
			&i.ID,
			&i.RunAt,
			&i.BookingDate,
			&i.Source,
			&i.Notes,
			&i.SlotsScraped,
			&i.ClubsCovered,
			&i.ScrapeStatus,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createSlot = `
INSERT INTO slots (scrape_id, club_name, court_name, booking_date, start_time, end_time, duration_minutes, scrape_timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateSlotParams struct {
	ScrapeID        string
	ClubName        string
	CourtName       string
	BookingDate     string
	StartTime       string
	EndTime         string
	DurationMinutes int64
	ScrapeTimestamp string
}

func (q *Queries) CreateSlot(ctx context.Context, arg CreateSlotParams) error {
	_, err := q.db.ExecContext(ctx, createSlot,
		arg.ScrapeID,
		arg.ClubName,
		arg.CourtName,
		arg.BookingDate,
		arg.StartTime,
		arg.EndTime,
		arg.DurationMinutes,
		arg.ScrapeTimestamp,
	)
	return err
}

const countSlotsForRun = `
SELECT COUNT(*) FROM slots WHERE scrape_id = ?
`

func (q *Queries) CountSlotsForRun(ctx context.Context, scrapeId string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSlotsForRun, scrapeId)
	var count int64
	err := row.Scan(&count)
	return count, err
}
