package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		Url:            server.URL,
		ServiceRoleKey: "service-role-key",
	})
}

func TestGetClubs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/clubs", r.URL.Path)
		require.Equal(t, "id,name,url", r.URL.Query().Get("select"))
		require.Equal(t, "service-role-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer service-role-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "c1", "name": "Playmore Al Quoz", "url": "https://playtomic.io/tenant/95ca4d9e"},
			{"id": "c2", "name": "Padel Park", "url": "https://playtomic.io/tenant/11f3c2aa"}
		]`))
	})

	clubs, err := client.GetClubs(context.Background())
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	require.Equal(t, "Playmore Al Quoz", clubs[0].Name)
}

func TestCreateScrapeRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/v1/scrape_runs", r.URL.Path)
		require.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var run ScrapeRun
		require.NoError(t, json.NewDecoder(r.Body).Decode(&run))
		require.Equal(t, "in_progress", run.ScrapeStatus)

		run.Id = "run-1"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]ScrapeRun{run})
	})

	id, err := client.CreateScrapeRun(context.Background(), ScrapeRun{
		Source:       "padelscout",
		ScrapeStatus: "in_progress",
	})
	require.NoError(t, err)
	require.Equal(t, "run-1", id)
}

func TestUpdateScrapeRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "eq.run-1", r.URL.Query().Get("id"))

		var patch map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.Equal(t, "completed", patch["scrape_status"])
		require.EqualValues(t, 42, patch["slots_scraped"])

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateScrapeRun(context.Background(), "run-1", "completed", 42, 5)
	require.NoError(t, err)
}

func TestInsertSlotOverlap(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "new row overlaps with existing slot for this court"}`))
	})

	err := client.InsertSlot(context.Background(), Slot{CourtId: "court-1"})
	require.ErrorIs(t, err, ErrOverlap)
}

func TestInsertSlotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "null value in column court_id"}`))
	})

	err := client.InsertSlot(context.Background(), Slot{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrOverlap)
}

func TestCreateCourt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var court Court
		require.NoError(t, json.NewDecoder(r.Body).Decode(&court))
		require.Equal(t, "c1", court.ClubId)
		require.NotEmpty(t, court.CreatedAt)

		court.Id = "court-9"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]Court{court})
	})

	id, err := client.CreateCourt(context.Background(), "c1", "Court 3")
	require.NoError(t, err)
	require.Equal(t, "court-9", id)
}
