package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbot/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "listings.json"), filepath.Join(dir, "messages.json"))
	require.NoError(t, err)

	st.PutConversation(&store.Conversation{ID: "t1", Phase: store.PhaseNegotiating, OfferAmount: 280})
	st.PutConversation(&store.Conversation{ID: "t2", Phase: store.PhaseNeedsHumanHelp, OfferAmount: 300, CounterRounds: 2})
	st.PutConversation(&store.Conversation{ID: "t3", Phase: store.PhaseDealPending, OfferAmount: 280, FinalPrice: 290})
	st.UpsertListing(&store.Listing{ID: "l1", URL: "https://www.facebook.com/marketplace/item/1", Messaged: true})

	return New(st), st
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestStatsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalConversations)
	assert.Equal(t, 1, stats.DealsPending)
	assert.Equal(t, 1, stats.NeedsHumanHelp)
	assert.Equal(t, 290, stats.TotalCommitted)
}

func TestConversationListAndFilter(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/conversations")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []*store.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3)

	rec = doRequest(t, s, http.MethodGet, "/api/conversations?phase=needs_human_help")
	require.Equal(t, http.StatusOK, rec.Code)
	var flagged []*store.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flagged))
	require.Len(t, flagged, 1)
	assert.Equal(t, "t2", flagged[0].ID)
}

func TestConversationDetail(t *testing.T) {
	s, _ := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/conversations/t1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/conversations/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetEndpoint(t *testing.T) {
	s, st := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/conversations/t2/reset")
	require.Equal(t, http.StatusOK, rec.Code)

	c, ok := st.GetConversation("t2")
	require.True(t, ok)
	assert.Equal(t, store.PhaseNegotiating, c.Phase)
	assert.Zero(t, c.CounterRounds)

	//Resetting an active conversation is refused
	rec = doRequest(t, s, http.MethodPost, "/api/conversations/t1/reset")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/conversations/ghost/reset")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListingsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/listings")
	require.Equal(t, http.StatusOK, rec.Code)

	var listings []*store.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listings))
	require.Len(t, listings, 1)
	assert.True(t, listings[0].Messaged)
}
