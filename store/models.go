package store

import (
	"regexp"
	"strings"
	"time"
)

// Phase is the negotiation state machine's current state for a conversation.
type Phase string

const (
	PhaseOfferSent      Phase = "offer_sent"
	PhaseNegotiating    Phase = "negotiating"
	PhaseDealPending    Phase = "deal_pending"
	PhaseClosedDeclined Phase = "closed_declined"
	PhaseNeedsHumanHelp Phase = "needs_human_help"
)

// Terminal reports whether the phase refuses further automatic replies.
// A terminal phase only changes through an explicit external reset.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseDealPending, PhaseClosedDeclined, PhaseNeedsHumanHelp:
		return true
	}
	return false
}

// Message is one entry in a conversation's history.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"` //"us" or "seller"
	Text      string    `json:"message"`
}

// Conversation is the chat thread tied to one listing offer.
type Conversation struct {
	ID               string    `json:"id"` //thread id extracted from the conversation URL
	ConversationURL  string    `json:"conversation_url"`
	ListingID        string    `json:"listing_id,omitempty"`
	ListingURL       string    `json:"listing_url,omitempty"`
	SellerName       string    `json:"seller_name,omitempty"`
	ProductName      string    `json:"product_name,omitempty"`
	Phase            Phase     `json:"phase"`
	OfferAmount      int       `json:"offer_amount"`
	CurrentOffer     int       `json:"current_offer"` //our standing offer, never above OfferAmount+flexibility
	LastCounterOffer *int      `json:"counter_offer,omitempty"` //seller's most recent counter
	FinalPrice       int       `json:"final_price,omitempty"`
	CounterRounds    int       `json:"counter_rounds"` //out-of-reach counters we responded to
	MessageCount     int       `json:"message_count"`
	LastMessage      string    `json:"last_message,omitempty"`
	LastUpdated      time.Time `json:"last_updated"`
	History          []Message `json:"message_history,omitempty"`
}

// Append records a message, bumping the count and timestamp.
func (c *Conversation) Append(from, text string) {
	now := time.Now()
	c.History = append(c.History, Message{Timestamp: now, From: from, Text: text})
	c.LastMessage = text
	c.MessageCount++
	c.LastUpdated = now
}

// Clone returns a deep copy that can be mutated without touching the original.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	if c.LastCounterOffer != nil {
		v := *c.LastCounterOffer
		cp.LastCounterOffer = &v
	}
	cp.History = append([]Message(nil), c.History...)
	return &cp
}

// LastSellerMessage returns the newest seller-authored message, if any.
func (c *Conversation) LastSellerMessage() string {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].From == "seller" {
			return c.History[i].Text
		}
	}
	return ""
}

// Listing is a marketplace post for a single item.
type Listing struct {
	ID          string     `json:"listing_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	SellerName  string     `json:"seller_name,omitempty"`
	AskingPrice int        `json:"asking_price,omitempty"`
	Product     string     `json:"product,omitempty"`
	Messaged    bool       `json:"messaged"`
	MessagedAt  *time.Time `json:"messaged_at,omitempty"`
	OfferPrice  int        `json:"offer_price,omitempty"`
	Unavailable bool       `json:"unavailable,omitempty"`
	Irrelevant  bool       `json:"irrelevant,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
}

// Stats is a read-only projection over the conversation set. It is computed on
// demand instead of maintained as live counters, so it cannot drift from the
// persisted records.
type Stats struct {
	TotalConversations  int `json:"total_conversations"`
	ActiveConversations int `json:"active_conversations"`
	DealsPending        int `json:"deals_pending"`
	ClosedDeclined      int `json:"closed_declined"`
	NeedsHumanHelp      int `json:"needs_human_help"`
	OffersSent          int `json:"offers_sent"`
	TotalCommitted      int `json:"total_committed"` //sum of agreed prices on pending deals
}

var (
	itemURLPattern   = regexp.MustCompile(`(?:facebook\.com)?/marketplace/item/(\d+)`)
	threadURLPattern = regexp.MustCompile(`facebook\.com/messages/t/([A-Za-z0-9]+)`)
)

// NormalizeListingURL strips tracking parameters and rebuilds marketplace item
// URLs into a canonical form so the same listing never gets messaged twice.
func NormalizeListingURL(url string) string {
	url = strings.TrimSpace(url)
	if m := itemURLPattern.FindStringSubmatch(url); m != nil {
		return "https://www.facebook.com/marketplace/item/" + m[1]
	}
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// ExtractThreadID pulls the message thread id out of a conversation URL.
// Agent output sometimes carries trailing newlines or marker text after the
// URL, so everything past the first whitespace is dropped first.
func ExtractThreadID(url string) string {
	url = strings.TrimSpace(url)
	if i := strings.IndexAny(url, " \n\\"); i >= 0 {
		url = url[:i]
	}
	if m := threadURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
