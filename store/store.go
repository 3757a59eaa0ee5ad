package store

/*
JSON-file backed state for listings and conversations. The files match the layout the
dashboard reads (listings.json is a flat array, messages.json wraps the conversation
list). Updates to a single conversation are serialized through a per-conversation lock
so two inbound messages can never compute counters from stale state.
*/

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type messagesFile struct {
	Conversations []*Conversation `json:"conversations"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// Store owns the persisted bot state.
type Store struct {
	mu            sync.Mutex
	listingsPath  string
	messagesPath  string
	listings      map[string]*Listing      //keyed by normalized URL
	conversations map[string]*Conversation //keyed by thread id
	convLocks     map[string]*sync.Mutex
}

// Open loads both state files, creating empty ones when missing.
func Open(listingsPath, messagesPath string) (*Store, error) {
	s := &Store{
		listingsPath:  listingsPath,
		messagesPath:  messagesPath,
		listings:      make(map[string]*Listing),
		conversations: make(map[string]*Conversation),
		convLocks:     make(map[string]*sync.Mutex),
	}

	if raw, err := os.ReadFile(listingsPath); err == nil {
		var list []*Listing
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", listingsPath, err)
		}
		for _, l := range list {
			l.URL = NormalizeListingURL(l.URL)
			s.listings[l.URL] = l
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if raw, err := os.ReadFile(messagesPath); err == nil {
		var mf messagesFile
		if err := json.Unmarshal(raw, &mf); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", messagesPath, err)
		}
		for _, c := range mf.Conversations {
			if c.ID == "" {
				c.ID = ExtractThreadID(c.ConversationURL)
			}
			if c.ID == "" {
				log.Warn().Str("url", c.ConversationURL).Msg("Dropping conversation with no thread id")
				continue
			}
			//Keep the most recently updated record when the file carries duplicates
			if prev, ok := s.conversations[c.ID]; ok && prev.LastUpdated.After(c.LastUpdated) {
				continue
			}
			s.conversations[c.ID] = c
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Flush writes both files. Writes go through a temp file and rename so a crash
// mid-write never leaves a truncated state file.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	listings := make([]*Listing, 0, len(s.listings))
	for _, l := range s.listings {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ScrapedAt.Before(listings[j].ScrapedAt) })
	if err := writeJSON(s.listingsPath, listings); err != nil {
		return err
	}

	mf := messagesFile{LastUpdated: time.Now()}
	for _, c := range s.conversations {
		mf.Conversations = append(mf.Conversations, c)
	}
	sort.Slice(mf.Conversations, func(i, j int) bool { return mf.Conversations[i].ID < mf.Conversations[j].ID })
	return writeJSON(s.messagesPath, mf)
}

func writeJSON(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// UpsertListing adds or refreshes a listing, keyed by normalized URL.
// Returns the stored record.
func (s *Store) UpsertListing(l *Listing) *Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.URL = NormalizeListingURL(l.URL)
	if existing, ok := s.listings[l.URL]; ok {
		if l.Title != "" {
			existing.Title = l.Title
		}
		if l.Description != "" {
			existing.Description = l.Description
		}
		if l.SellerName != "" {
			existing.SellerName = l.SellerName
		}
		if l.AskingPrice != 0 {
			existing.AskingPrice = l.AskingPrice
		}
		return existing
	}
	if l.ScrapedAt.IsZero() {
		l.ScrapedAt = time.Now()
	}
	s.listings[l.URL] = l
	return l
}

// UpdateListing applies fn to the listing with the given URL, if present.
func (s *Store) UpdateListing(url string, fn func(*Listing)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[NormalizeListingURL(url)]
	if !ok {
		return false
	}
	fn(l)
	return true
}

// Listings returns a snapshot of all listings.
func (s *Store) Listings() []*Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScrapedAt.Before(out[j].ScrapedAt) })
	return out
}

// UnmessagedListings returns up to limit listings still waiting for an offer.
func (s *Store) UnmessagedListings(limit int) []*Listing {
	var out []*Listing
	for _, l := range s.Listings() {
		if l.Messaged || l.Unavailable || l.Irrelevant {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// GetConversation returns the conversation with the given thread id.
func (s *Store) GetConversation(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	return c, ok
}

// PutConversation inserts a new conversation record.
func (s *Store) PutConversation(c *Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.LastUpdated.IsZero() {
		c.LastUpdated = time.Now()
	}
	s.conversations[c.ID] = c
}

// Conversations returns a snapshot of all conversation records.
func (s *Store) Conversations() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out
}

// WithConversation runs fn with exclusive ownership of one conversation record
// and persists the result. This is the single-writer-per-conversation gate: the
// read-modify-write of counter state is atomic with respect to other callers.
func (s *Store) WithConversation(id string, fn func(*Conversation) error) error {
	s.mu.Lock()
	lock, ok := s.convLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.convLocks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	c, ok := s.conversations[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}

	if err := fn(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// ResetConversation moves a terminal conversation back to negotiating. This is
// the external human action required to resume automation (phase transitions
// are otherwise monotonic).
func (s *Store) ResetConversation(id string) error {
	return s.WithConversation(id, func(c *Conversation) error {
		if !c.Phase.Terminal() {
			return fmt.Errorf("conversation %s is not paused (phase %s)", id, c.Phase)
		}
		c.Phase = PhaseNegotiating
		c.CounterRounds = 0
		c.LastUpdated = time.Now()
		log.Info().Str("conversation", id).Msg("Conversation reset by operator")
		return nil
	})
}

// ComputeStats derives the run-wide counters from the conversation set.
func (s *Store) ComputeStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{}
	for _, c := range s.conversations {
		st.TotalConversations++
		st.OffersSent++
		switch c.Phase {
		case PhaseDealPending:
			st.DealsPending++
			if c.FinalPrice > 0 {
				st.TotalCommitted += c.FinalPrice
			} else {
				st.TotalCommitted += c.OfferAmount
			}
		case PhaseClosedDeclined:
			st.ClosedDeclined++
		case PhaseNeedsHumanHelp:
			st.NeedsHumanHelp++
		default:
			st.ActiveConversations++
		}
	}
	return st
}
