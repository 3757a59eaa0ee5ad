package negotiation

/*
The negotiation state machine. Consumes classifier output, consults the pricing policy
for counter math, picks the scripted reply, and owns every phase transition.

Phases move one way: offer_sent -> negotiating -> deal_pending | closed_declined |
needs_human_help. A conversation in a terminal phase is refused before classification,
so no automatic reply can ever pull it back; only the operator reset in the store can.
Notifications fire inside the transition edge, which makes them exactly-once per
transition by construction.
*/

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"marketbot/notify"
	"marketbot/store"
)

// ErrConversationPaused is returned for conversations in a terminal phase.
var ErrConversationPaused = errors.New("conversation paused pending human action")

// Engine drives one negotiation turn at a time. Safe for concurrent use across
// distinct conversations; the caller serializes turns for a single conversation
// (store.WithConversation).
type Engine struct {
	Policy     *Policy
	Classifier *Classifier
	Script     *Script
	Notifier   notify.Notifier

	//Out-of-reach counter rounds tolerated before handing off to a human
	RetryLimit int
}

// NewEngine wires the negotiation core together.
func NewEngine(policy *Policy, classifier *Classifier, script *Script, notifier notify.Notifier, retryLimit int) *Engine {
	if retryLimit <= 0 {
		retryLimit = 2
	}
	return &Engine{
		Policy:     policy,
		Classifier: classifier,
		Script:     script,
		Notifier:   notifier,
		RetryLimit: retryLimit,
	}
}

// HandleSellerMessage processes one inbound seller message and returns the
// reply to send, or "" when automation has nothing to say (handoff, paused).
// The conversation record is mutated in place; the caller persists it.
func (e *Engine) HandleSellerMessage(ctx context.Context, c *store.Conversation, text string) (string, error) {
	if c.Phase.Terminal() {
		return "", fmt.Errorf("%w: %s is %s", ErrConversationPaused, c.ID, c.Phase)
	}
	if c.CurrentOffer == 0 {
		c.CurrentOffer = c.OfferAmount
	}

	c.Append("seller", text)
	res := e.Classifier.Classify(ctx, text, c.Phase)

	log.Info().
		Str("conversation", c.ID).
		Str("phase", string(c.Phase)).
		Str("intent", string(res.Intent)).
		Int("amount", res.Amount).
		Msg("Classified seller message")

	var reply string
	switch res.Intent {
	case IntentAccept:
		reply = e.closeDeal(ctx, c, c.CurrentOffer)

	case IntentCounterOffer:
		reply = e.handleCounter(ctx, c, res.Amount)

	case IntentDecline:
		if c.LastCounterOffer != nil || c.CounterRounds > 0 {
			//They turned down our counter; walk away politely
			c.Phase = store.PhaseClosedDeclined
			reply = e.Script.PoliteDecline
		} else {
			c.Phase = store.PhaseNegotiating
			reply = e.Script.AskTheirPrice
		}

	case IntentAskLocation:
		reply = Render(e.Script.AskLocation, map[string]string{"location": e.Script.MeetupLocation})
	case IntentAskCondition:
		reply = e.Script.AskCondition
	case IntentAskPayment:
		reply = e.Script.AskPayment
	case IntentAskTiming:
		reply = e.Script.AskTiming
	case IntentOtherBuyer:
		reply = e.Script.OtherBuyers
	case IntentItemSold:
		reply = e.Script.ItemSold
	case IntentAskAboutUs:
		reply = e.Script.AskAboutUs

	case IntentUnclear:
		e.handoff(ctx, c, "Seller message could not be classified")

	default:
		e.handoff(ctx, c, "Classifier produced unknown intent "+string(res.Intent))
	}

	if reply != "" {
		c.Append("us", reply)
	} else {
		c.LastUpdated = time.Now()
	}
	return reply, nil
}

// handleCounter runs the pricing policy against a seller counter-offer.
func (e *Engine) handleCounter(ctx context.Context, c *store.Conversation, ask int) string {
	amount := ask
	c.LastCounterOffer = &amount

	counter, withinReach := e.Policy.Counter(c.OfferAmount, ask)

	//Cap invariant: we never stand above initial offer + flexibility
	if ceiling := e.Policy.Ceiling(c.OfferAmount); counter > ceiling {
		log.Error().Int("counter", counter).Int("ceiling", ceiling).Msg("Counter above ceiling, clamping")
		counter = ceiling
	}

	if withinReach {
		return e.closeDeal(ctx, c, counter)
	}

	if c.CounterRounds >= e.RetryLimit {
		//Seller keeps asking beyond our cap; stop going in circles
		e.handoff(ctx, c, fmt.Sprintf("Seller holding at $%d, above our $%d ceiling after %d rounds",
			ask, e.Policy.Ceiling(c.OfferAmount), c.CounterRounds))
		return ""
	}

	c.CounterRounds++
	c.CurrentOffer = counter
	c.Phase = store.PhaseNegotiating
	return Render(e.Script.Counter, map[string]string{
		"their_offer": strconv.Itoa(ask),
		"counter":     strconv.Itoa(counter),
	})
}

// closeDeal transitions into deal_pending at the agreed price and fires the
// deal-closed notification on the edge.
func (e *Engine) closeDeal(ctx context.Context, c *store.Conversation, price int) string {
	c.CurrentOffer = price
	c.FinalPrice = price
	c.Phase = store.PhaseDealPending

	e.notifyOnce(ctx, notify.KindDealClosed, c, "")

	if price != c.OfferAmount {
		return Render(e.Script.AcceptAtAsk, map[string]string{"price": strconv.Itoa(price)})
	}
	return Render(e.Script.Accept, map[string]string{"location": e.Script.MeetupLocation})
}

// handoff forces the conversation into needs_human_help and alerts the operator.
// No reply goes out; automation on this conversation stops until an external reset.
func (e *Engine) handoff(ctx context.Context, c *store.Conversation, issue string) {
	c.Phase = store.PhaseNeedsHumanHelp
	log.Warn().Str("conversation", c.ID).Str("issue", issue).Msg("Handing conversation to human")
	e.notifyOnce(ctx, notify.KindHelpNeeded, c, issue)
}

// notifyOnce runs on the transition edge, once per transition. A notification
// failure is logged and swallowed: the phase change already happened and the
// conversation record is the source of truth.
func (e *Engine) notifyOnce(ctx context.Context, kind notify.Kind, c *store.Conversation, issue string) {
	if e.Notifier == nil {
		return
	}
	price := c.FinalPrice
	if price == 0 {
		price = c.CurrentOffer
	}
	err := e.Notifier.Notify(ctx, kind, notify.Payload{
		ConversationID:  c.ID,
		ConversationURL: c.ConversationURL,
		ListingURL:      c.ListingURL,
		Product:         c.ProductName,
		SellerName:      c.SellerName,
		Price:           price,
		LastMessage:     c.LastSellerMessage(),
		Issue:           issue,
	})
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Str("conversation", c.ID).Msg("Notification failed")
	}
}
