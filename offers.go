package main

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"marketbot/config"
	"marketbot/negotiation"
	"marketbot/store"
	"marketbot/tools"
)

/*
The offer agent: scrapes marketplace search results for the configured product, prices
each new listing off the base-offer table, and sends the opening cash offer. Every
listing is keyed by normalized URL so the same post never gets messaged twice.
*/

//Builds the opening message for a listing
func buildOfferMessage(offer int, damaged bool) string {
	if damaged {
		return fmt.Sprintf("Hi, is this still available? Saw the condition notes, I can do $%d cash for it as-is.", offer)
	}
	return fmt.Sprintf("Hi, is this still available? I can do $%d cash for it.", offer)
}

//Scan search results and record any listings we haven't seen before
func scrapeNewListings(b *tools.Browser, st *store.Store, product string) (int, error) {
	urls, err := tools.CollectListingURLs(b, product, config.MaxOffersPerSession*3)
	if err != nil {
		return 0, err
	}

	found := 0
	for _, u := range urls {
		u = store.NormalizeListingURL(u)
		l := st.UpsertListing(&store.Listing{
			ID:        ulid.Make().String(),
			URL:       u,
			ScrapedAt: time.Now(),
		})
		if !l.Messaged && l.Title == "" {
			found++
		}
	}
	return found, st.Flush()
}

//Orders the offer queue so listings priced furthest below their product's market
//mean go first. Listings without cached stats (or without a known price yet)
//keep their scrape order behind the ranked ones.
func prioritizeListings(listings []*store.Listing, stats map[string]tools.Stats) []*store.Listing {
	z := func(l *store.Listing) float64 {
		s, ok := stats[l.Product]
		if !ok || s.StdDev == 0 || l.AskingPrice <= 0 {
			return 0
		}
		return findZScore(float64(l.AskingPrice), s.Mean, s.StdDev)
	}
	sort.SliceStable(listings, func(i, j int) bool { return z(listings[i]) < z(listings[j]) })
	return listings
}

//Driver for a single offer session
func RunOfferAgent(s *config.Settings, st *store.Store) error {
	b, err := tools.NewBrowser(s.SessionCookies, s.Headless)
	if err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}
	defer b.Close()

	found, err := scrapeNewListings(b, st, s.SearchProduct)
	if err != nil {
		return err
	}
	log.Info().Str("product", s.SearchProduct).Int("new", found).Msg("Search scrape complete")

	policy := negotiation.NewPolicy(s.PriceFlexibility)
	sent := 0
	skipped := 0

	//Stats cached by the analyzer rank known-underpriced listings first
	queue := prioritizeListings(st.UnmessagedListings(0), tools.RetrievePriceStats(config.StatsFile))
	for _, l := range queue {
		if sent >= config.MaxOffersPerSession {
			log.Info().Int("limit", config.MaxOffersPerSession).Msg("Session offer limit reached")
			break
		}

		details, err := tools.FetchListing(b, l.URL)
		if err != nil {
			log.Warn().Err(err).Str("url", l.URL).Msg("Could not fetch listing")
			continue
		}
		if details.Unavailable {
			st.UpdateListing(l.URL, func(x *store.Listing) { x.Unavailable = true })
			continue
		}

		st.UpdateListing(l.URL, func(x *store.Listing) {
			x.Title = details.Title
			x.Description = details.Description
			x.SellerName = details.SellerName
			x.AskingPrice = details.AskingPrice
		})

		//Price the listing off the 2x2 table; listings for products we don't
		//buy are marked irrelevant and never revisited
		prod, ok := s.FindProduct(details.Title)
		if !ok {
			st.UpdateListing(l.URL, func(x *store.Listing) { x.Irrelevant = true })
			skipped++
			continue
		}
		locked, damaged := negotiation.DetectCondition(details.Title, details.Description)
		offer, err := policy.BaseOffer(prod, locked, damaged)
		if err != nil {
			log.Error().Err(err).Str("url", l.URL).Msg("No price for listing, skipping")
			skipped++
			continue
		}

		message := buildOfferMessage(offer, damaged)
		if err := tools.SendListingMessage(b, l.URL, message); err != nil {
			log.Warn().Err(err).Str("url", l.URL).Msg("Could not send offer")
			continue
		}

		now := time.Now()
		st.UpdateListing(l.URL, func(x *store.Listing) {
			x.Messaged = true
			x.MessagedAt = &now
			x.OfferPrice = offer
			x.Product = prod.Name
		})
		tools.LogAction(config.ActionLogFile, fmt.Sprintf("OFFER $%d %s (%s, locked=%v damaged=%v)",
			offer, l.URL, prod.Name, locked, damaged))
		log.Info().Str("url", l.URL).Str("product", prod.Name).Int("offer", offer).
			Int("asking", details.AskingPrice).Msg("Sent offer")
		sent++

		if err := st.Flush(); err != nil {
			return err
		}

		//Yield between offers so the session doesn't look automated
		time.Sleep(time.Duration(config.OfferThrottle+rand.Intn(4000)) * time.Millisecond)
	}

	fmt.Printf("\n--- Offer Session ---\nNew listings: %d\nOffers sent: %d\nSkipped: %d\n", found, sent, skipped)
	return nil
}
