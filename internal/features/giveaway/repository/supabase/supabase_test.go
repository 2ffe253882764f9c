package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
	"gtm-backend/internal/platform/supabase"
)

func newClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return supabase.NewClient(srv.URL, "KEY", time.Second, 0)
}

func TestResults_WriteOnceBulk(t *testing.T) {
	var got []models.WinnerRecord
	repo := NewResultsRepository(newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/giveaway_winners", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	recs := []models.WinnerRecord{{PlaceNumber: 1, WinnerTelegramID: 5}, {PlaceNumber: 2, WinnerTelegramID: 6}}
	require.NoError(t, repo.WriteOnce(context.Background(), 9, recs))
	require.Len(t, got, 2)
	assert.Equal(t, int64(9), got[0].GiveawayID)
	assert.Equal(t, int64(9), got[1].GiveawayID)
}

func TestResults_WriteOnceConflict(t *testing.T) {
	repo := NewResultsRepository(newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key"}`))
	}))

	err := repo.WriteOnce(context.Background(), 9, []models.WinnerRecord{{PlaceNumber: 1}})
	assert.ErrorIs(t, err, repository.ErrResultsExist)
}

func TestResults_ReadSorted(t *testing.T) {
	repo := NewResultsRepository(newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.3", r.URL.Query().Get("giveaway_id"))
		_, _ = w.Write([]byte(`[{"giveaway_id":3,"place_number":2},{"giveaway_id":3,"place_number":1}]`))
	}))

	got, err := repo.Read(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].PlaceNumber)
}

func TestResults_Clear(t *testing.T) {
	repo := NewResultsRepository(newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.3", r.URL.Query().Get("giveaway_id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	assert.NoError(t, repo.Clear(context.Background(), 3))
}

func TestLedger_GetGiveaway(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.1" {
			_, _ = w.Write([]byte(`[{"id":1,"manual_winner_telegram_id":777}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	l := NewLedger(client, nil)

	g, err := l.GetGiveaway(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, g.ManualWinnerID)
	assert.Equal(t, int64(777), *g.ManualWinnerID)

	_, err = l.GetGiveaway(context.Background(), 2)
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound)
}
