package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"marketbot/ai"
	"marketbot/config"
	"marketbot/negotiation"
	"marketbot/notify"
	"marketbot/store"
	"marketbot/tools"
)

/*
The conversation agent: walks the marketplace inbox, adopts replies to our offers as
conversation records, and runs each new seller message through the negotiation engine.
All state changes for a thread happen inside store.WithConversation, and the reply is
sent before the record persists, so a failed send is retried on the next pass.
*/

//Matches an inbox thread to the listing we offered on, by seller and product text
func matchListing(st *store.Store, snap *tools.ThreadSnapshot) *store.Listing {
	var best *store.Listing
	for _, l := range st.Listings() {
		if !l.Messaged {
			continue
		}
		if snap.SellerName != "" && !strings.EqualFold(l.SellerName, snap.SellerName) {
			continue
		}
		if snap.ProductName != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(snap.ProductName)) &&
			!strings.Contains(strings.ToLower(snap.ProductName), strings.ToLower(l.Product)) {
			continue
		}
		if best == nil || l.MessagedAt != nil && (best.MessagedAt == nil || l.MessagedAt.After(*best.MessagedAt)) {
			best = l
		}
	}
	return best
}

//Creates a conversation record for a thread that answered one of our offers
func adoptThread(st *store.Store, threadID, threadURL string, snap *tools.ThreadSnapshot) (*store.Conversation, bool) {
	l := matchListing(st, snap)
	if l == nil || l.OfferPrice <= 0 {
		log.Warn().Str("thread", threadID).Str("seller", snap.SellerName).
			Str("product", snap.ProductName).Msg("Thread has no matching offered listing, skipping")
		return nil, false
	}

	c := &store.Conversation{
		ID:              threadID,
		ConversationURL: threadURL,
		ListingID:       l.ID,
		ListingURL:      l.URL,
		SellerName:      snap.SellerName,
		ProductName:     l.Product,
		Phase:           store.PhaseOfferSent,
		OfferAmount:     l.OfferPrice,
		CurrentOffer:    l.OfferPrice,
	}
	c.Append("us", buildOfferMessage(l.OfferPrice, false))
	st.PutConversation(c)
	log.Info().Str("thread", threadID).Str("product", l.Product).
		Int("offer", l.OfferPrice).Msg("Adopted new conversation")
	return c, true
}

//Builds the negotiation engine from settings; the AI classifier backend is
//optional and the rule layer carries most traffic without it
func buildEngine(ctx context.Context, s *config.Settings) (*negotiation.Engine, func(), error) {
	script := negotiation.LoadScript(s.ScriptPath)
	if s.MeetupLocation != "" {
		script.MeetupLocation = s.MeetupLocation
	}

	var labeler negotiation.LabelService
	cleanup := func() {}
	if s.GeminiAPIKey != "" {
		g, err := ai.NewGemini(ctx, s.GeminiAPIKey, s.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini init failed: %w", err)
		}
		labeler = g
		cleanup = func() { g.Close() }
	} else {
		log.Warn().Msg("No Gemini API key; unmatched messages will be handed to a human")
	}

	engine := negotiation.NewEngine(
		negotiation.NewPolicy(s.PriceFlexibility),
		negotiation.NewClassifier(labeler),
		script,
		notify.FromSettings(s),
		config.CounterRetryLimit,
	)
	return engine, cleanup, nil
}

//runTurn processes one inbound seller message. The engine mutates a scratch copy
//of the record; the live record advances and persists only once the reply is
//actually out, so a failed send leaves the conversation exactly as it was and
//the next pass retries the same message.
func runTurn(ctx context.Context, st *store.Store, engine *negotiation.Engine, threadID, text string, send func(reply string) error) (string, error) {
	var reply string
	err := st.WithConversation(threadID, func(c *store.Conversation) error {
		draft := c.Clone()
		r, err := engine.HandleSellerMessage(ctx, draft, text)
		if err != nil {
			return err
		}
		if r != "" {
			if err := send(r); err != nil {
				return err
			}
		}
		reply = r
		*c = *draft
		return nil
	})
	return reply, err
}

//Driver for a single conversation session
func RunConversationAgent(ctx context.Context, s *config.Settings, st *store.Store) error {
	if !s.EnableNegotiation {
		log.Info().Msg("Negotiation disabled in settings, nothing to do")
		return nil
	}

	engine, cleanup, err := buildEngine(ctx, s)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := tools.NewBrowser(s.SessionCookies, s.Headless)
	if err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}
	defer b.Close()

	urls, err := tools.CollectThreadURLs(b, config.MaxConversationsPerSession)
	if err != nil {
		return err
	}
	log.Info().Int("threads", len(urls)).Msg("Inbox scan complete")

	handled := 0
	replied := 0
	for _, threadURL := range urls {
		threadID := store.ExtractThreadID(threadURL)
		if threadID == "" {
			continue
		}

		snap, err := tools.ReadThread(b, threadURL)
		if err != nil {
			log.Warn().Err(err).Str("thread", threadID).Msg("Could not read thread")
			continue
		}

		c, ok := st.GetConversation(threadID)
		if !ok {
			if c, ok = adoptThread(st, threadID, threadURL, snap); !ok {
				continue
			}
		}

		if !snap.FromSeller || snap.LastMessage == "" {
			continue
		}
		if snap.LastMessage == c.LastMessage {
			//Newest message is the one we already processed
			continue
		}

		handled++
		reply, err := runTurn(ctx, st, engine, threadID, snap.LastMessage, func(reply string) error {
			return tools.SendReply(b, threadURL, reply)
		})
		if errors.Is(err, negotiation.ErrConversationPaused) {
			log.Debug().Str("thread", threadID).Msg("Conversation paused, skipping")
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("thread", threadID).Msg("Conversation turn failed")
			continue
		}
		if reply != "" {
			tools.LogAction(config.ActionLogFile, fmt.Sprintf("REPLY %s %q", threadID, reply))
			replied++
		}

		time.Sleep(time.Duration(config.ConversationThrottle+rand.Intn(2000)) * time.Millisecond)
	}

	if err := st.Flush(); err != nil {
		return err
	}

	stats := st.ComputeStats()
	fmt.Printf("\n--- Conversation Session ---\nThreads scanned: %d\nMessages handled: %d\nReplies sent: %d\n", len(urls), handled, replied)
	fmt.Printf("Active: %d | Deals pending: %d | Declined: %d | Needs help: %d | Committed: $%d\n",
		stats.ActiveConversations, stats.DealsPending, stats.ClosedDeclined, stats.NeedsHumanHelp, stats.TotalCommitted)
	return nil
}
