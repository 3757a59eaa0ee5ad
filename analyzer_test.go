package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbot/store"
	"marketbot/tools"
)

func listingAt(product string, price int, daysAgo int) *store.Listing {
	return &store.Listing{
		ID:          fmt.Sprintf("%s-%d-%d", product, price, daysAgo),
		URL:         fmt.Sprintf("https://www.facebook.com/marketplace/item/%d%d", price, daysAgo),
		Product:     product,
		AskingPrice: price,
		ScrapedAt:   time.Now().AddDate(0, 0, -daysAgo),
	}
}

func TestComputePriceStatsGroupsAndFilters(t *testing.T) {
	listings := []*store.Listing{
		listingAt("iPhone 13", 300, 1),
		listingAt("iPhone 13", 320, 2),
		listingAt("iPhone 13 Pro Max", 450, 1),
		listingAt("iPhone 13", 310, 200), //outside the lookback window
		{URL: "u", Product: "iPhone 13", ScrapedAt: time.Now()}, //no price
	}

	grouped := ComputePriceStats(listings)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["iPhone 13"], 2)
	assert.Len(t, grouped["iPhone 13 Pro Max"], 1)
}

func TestFindUnderpriced(t *testing.T) {
	var listings []*store.Listing
	for i := 0; i < 10; i++ {
		listings = append(listings, listingAt("iPhone 13", 300+i, 1))
	}
	cheap := listingAt("iPhone 13", 150, 1)
	listings = append(listings, cheap)
	messagedCheap := listingAt("iPhone 13", 140, 2)
	messagedCheap.Messaged = true
	listings = append(listings, messagedCheap)

	stats := map[string]struct{ Mean, StdDev float64 }{
		"iPhone 13": {Mean: 300, StdDev: 40},
	}

	dips := FindUnderpriced(listings, stats)
	require.Len(t, dips, 1)
	assert.Equal(t, cheap.ID, dips[0].ID, "already-messaged listings are skipped")
}

func TestDailyMedianSeriesFillsGaps(t *testing.T) {
	listings := []*store.Listing{
		listingAt("iPhone 13", 300, 4),
		listingAt("iPhone 13", 320, 4),
		listingAt("iPhone 13", 280, 0), //three-day gap in between
	}

	series := dailyMedianSeries(listings, "iPhone 13")
	require.Len(t, series, 5)
	assert.InDelta(t, series[0], series[1], 0.001, "gap days carry the previous median")
	assert.InDelta(t, series[1], series[2], 0.001)
	assert.Equal(t, 280.0, series[4])
}

func TestDecomposeTrendNeedsTwoPeriods(t *testing.T) {
	short := make([]float64, 10)
	assert.Nil(t, decomposeTrend(short))
}

func TestPrioritizeListings(t *testing.T) {
	stats := map[string]tools.Stats{
		"iPhone 13": {Mean: 300, StdDev: 40, Count: 20},
	}

	typical := listingAt("iPhone 13", 300, 1)
	cheap := listingAt("iPhone 13", 180, 2) //z = -3
	fresh := listingAt("", 0, 0)            //not fetched yet, no product or price

	got := prioritizeListings([]*store.Listing{typical, fresh, cheap}, stats)
	require.Len(t, got, 3)
	assert.Equal(t, cheap.ID, got[0].ID, "underpriced listing jumps the queue")
	//Unranked listings keep their relative order
	assert.Equal(t, typical.ID, got[1].ID)
	assert.Equal(t, fresh.ID, got[2].ID)

	//No cached stats leaves the queue in scrape order
	same := prioritizeListings([]*store.Listing{typical, cheap}, map[string]tools.Stats{})
	assert.Equal(t, typical.ID, same[0].ID)
}

func TestBuildOfferMessage(t *testing.T) {
	assert.Equal(t, "Hi, is this still available? I can do $280 cash for it.", buildOfferMessage(280, false))
	assert.Contains(t, buildOfferMessage(180, true), "as-is")
	assert.Contains(t, buildOfferMessage(180, true), "$180")
}

func TestMatchListing(t *testing.T) {
	st := newMemStore(t)

	old := listingAt("iPhone 13", 300, 5)
	old.Messaged = true
	old.SellerName = "Sam Seller"
	old.Title = "Apple iPhone 13 64GB"
	oldAt := time.Now().AddDate(0, 0, -5)
	old.MessagedAt = &oldAt
	st.UpsertListing(old)

	fresh := listingAt("iPhone 13", 310, 1)
	fresh.Messaged = true
	fresh.SellerName = "Sam Seller"
	fresh.Title = "iPhone 13 great condition"
	freshAt := time.Now().AddDate(0, 0, -1)
	fresh.MessagedAt = &freshAt
	st.UpsertListing(fresh)

	unrelated := listingAt("iPhone 13", 305, 1)
	unrelated.SellerName = "Other Person"
	st.UpsertListing(unrelated)

	snap := &tools.ThreadSnapshot{SellerName: "Sam Seller", ProductName: "iPhone 13"}
	got := matchListing(st, snap)
	require.NotNil(t, got)
	assert.Equal(t, fresh.ID, got.ID, "most recently messaged match wins")

	assert.Nil(t, matchListing(st, &tools.ThreadSnapshot{SellerName: "Nobody", ProductName: "iPhone 13"}))
}

func newMemStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(dir+"/listings.json", dir+"/messages.json")
	require.NoError(t, err)
	return st
}
