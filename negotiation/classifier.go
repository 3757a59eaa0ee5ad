package negotiation

/*
Classifies an inbound seller message into one of the fixed negotiation intents.
Deterministic keyword and price-pattern rules run first; only text they cannot place is
handed to the AI labeling service. A failing or misbehaving AI call degrades to
IntentUnclear, never to a silent accept or decline.
*/

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"marketbot/store"
)

// Intent is one of the fixed set of seller-message classifications.
type Intent string

const (
	IntentAccept       Intent = "accept"
	IntentDecline      Intent = "decline"
	IntentCounterOffer Intent = "counter_offer"
	IntentAskLocation  Intent = "ask_location"
	IntentAskCondition Intent = "ask_condition"
	IntentAskPayment   Intent = "ask_payment"
	IntentAskTiming    Intent = "ask_timing"
	IntentOtherBuyer   Intent = "other_buyer"
	IntentItemSold     Intent = "item_sold"
	IntentAskAboutUs   Intent = "ask_about_us"
	IntentUnclear      Intent = "unclear"
)

// AllIntents is the label set offered to the AI fallback.
var AllIntents = []Intent{
	IntentAccept, IntentDecline, IntentCounterOffer,
	IntentAskLocation, IntentAskCondition, IntentAskPayment, IntentAskTiming,
	IntentOtherBuyer, IntentItemSold, IntentAskAboutUs, IntentUnclear,
}

// Result is a classified message: the intent plus the extracted counter amount
// when the intent is IntentCounterOffer.
type Result struct {
	Intent Intent
	Amount int
}

// LabelService is the pluggable text-classification dependency. Implementations
// return one label from the given set.
type LabelService interface {
	ClassifyText(ctx context.Context, text string, labels []string) (string, error)
}

// Classifier maps seller messages to intents.
type Classifier struct {
	AI      LabelService  //nil disables the generative fallback
	Timeout time.Duration //per-call timeout for the AI dependency
}

// NewClassifier builds a classifier around an optional AI fallback.
func NewClassifier(ai LabelService) *Classifier {
	return &Classifier{AI: ai, Timeout: 15 * time.Second}
}

var (
	soldPhrases = []string{
		"already sold", "is sold", "it's sold", "its sold", "sold it", "just sold",
		"no longer available", "not available anymore",
	}
	otherBuyerPhrases = []string{
		"other buyer", "another buyer", "someone else", "other people interested",
		"others interested", "lot of interest", "first come first serve",
	}
	acceptPhrases = []string{
		"deal", "i'll take", "ill take", "i will take", "sounds good", "works for me",
		"that works", "you got it", "let's do it", "lets do it", "see you there",
	}
	declinePhrases = []string{
		"no deal", "can't do", "cant do", "too low", "not enough", "no thanks",
		"lowball", "low ball", "no way", "have to pass", "i'll pass", "ill pass",
	}
	aboutUsPhrases = []string{
		"who are you", "are you a", "why do you", "reseller", "about you", "your business",
	}
	locationWords  = []string{"where", "location", "what area", "which area"}
	paymentWords   = []string{"cash", "venmo", "zelle", "paypal", "payment", "how are you paying"}
	timingWords    = []string{"when", "what time", "today", "tomorrow", "tonight", "this week", "weekend"}
	conditionWords = []string{"condition", "does it matter if", "need to be unlocked", "have to be"}
	weakAccepts    = []string{"ok", "okay", "yes", "sure", "yep", "yeah", "sounds good"}
)

// Classify labels a seller message. Pattern rules fire before any AI call, so
// classifying the same message in the same phase twice yields the same label.
func (c *Classifier) Classify(ctx context.Context, text string, phase store.Phase) Result {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Result{Intent: IntentUnclear}
	}

	if containsAny(t, soldPhrases) {
		return Result{Intent: IntentItemSold}
	}
	if containsAny(t, otherBuyerPhrases) {
		return Result{Intent: IntentOtherBuyer}
	}

	//Price talk beats everything below: "I'll take $250" is a counter, not an accept
	amount, ok, mentioned := extractAmount(t)
	if ok {
		return Result{Intent: IntentCounterOffer, Amount: amount}
	}
	if mentioned {
		//A price was mentioned but no unambiguous number could be parsed
		return Result{Intent: IntentUnclear}
	}

	if containsAny(t, declinePhrases) {
		return Result{Intent: IntentDecline}
	}
	if containsAny(t, acceptPhrases) {
		return Result{Intent: IntentAccept}
	}
	if containsAny(t, aboutUsPhrases) {
		return Result{Intent: IntentAskAboutUs}
	}
	if containsAny(t, locationWords) {
		return Result{Intent: IntentAskLocation}
	}
	if containsAny(t, conditionWords) {
		return Result{Intent: IntentAskCondition}
	}
	if containsAny(t, paymentWords) {
		return Result{Intent: IntentAskPayment}
	}
	if containsAny(t, timingWords) {
		return Result{Intent: IntentAskTiming}
	}

	//Bare agreement ("ok", "sure") only counts while we are the last to have offered
	if phase == store.PhaseOfferSent || phase == store.PhaseNegotiating {
		for _, w := range weakAccepts {
			if t == w || strings.HasPrefix(t, w+" ") || strings.HasPrefix(t, w+",") {
				return Result{Intent: IntentAccept}
			}
		}
	}

	return Result{Intent: c.aiFallback(ctx, text)}
}

// aiFallback asks the labeling service, retrying once. Errors, timeouts, and
// labels outside the fixed set all degrade to IntentUnclear.
func (c *Classifier) aiFallback(ctx context.Context, text string) Intent {
	if c.AI == nil {
		return IntentUnclear
	}
	labels := make([]string, len(AllIntents))
	for i, in := range AllIntents {
		labels[i] = string(in)
	}

	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		label, err := c.AI.ClassifyText(callCtx, text, labels)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("AI classification failed")
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		for _, in := range AllIntents {
			if string(in) == label {
				if in == IntentCounterOffer {
					//The rules above already failed to find a number for it
					return IntentUnclear
				}
				return in
			}
		}
		log.Warn().Str("label", label).Msg("AI returned a label outside the fixed set")
	}
	return IntentUnclear
}

var (
	dollarAmountPattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*)`)
	bareAmountPattern   = regexp.MustCompile(`\b([0-9][0-9,]{0,6})\b(\s*(?:dollars|bucks|usd))?`)
	priceContextPattern = regexp.MustCompile(`\b(do|take|need|want|give|asking|go|accept|pay|least|lowest|minimum|firm|how about|for it)\b`)
	timeLikePattern     = regexp.MustCompile(`\b[0-9]{1,2}\s*(:|am|pm)`)
	bareOnlyPattern     = regexp.MustCompile(`^[0-9][0-9,]*$`)
)

// extractAmount parses a seller-quoted price. Tolerates "$", commas, and
// trailing currency words. ok is true only when exactly one distinct amount is
// found; mentioned is true whenever price talk was detected at all, so the
// caller can distinguish "no price here" from "price I couldn't parse".
func extractAmount(t string) (amount int, ok bool, mentioned bool) {
	seen := map[int]bool{}
	add := func(raw string) {
		raw = strings.ReplaceAll(raw, ",", "")
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			seen[v] = true
		}
	}

	for _, m := range dollarAmountPattern.FindAllStringSubmatch(t, -1) {
		add(m[1])
	}
	mentioned = len(seen) > 0

	if len(seen) == 0 {
		//A message that is nothing but a number is a price
		if bare := strings.TrimSpace(t); bareOnlyPattern.MatchString(bare) {
			add(bare)
			mentioned = true
		} else if priceContextPattern.MatchString(t) && !timeLikePattern.MatchString(t) {
			for _, m := range bareAmountPattern.FindAllStringSubmatch(t, -1) {
				raw := strings.ReplaceAll(m[1], ",", "")
				v, err := strconv.Atoi(raw)
				if err != nil {
					continue
				}
				//Small bare numbers ("meet at 5") are not prices unless suffixed
				if m[2] == "" && v < 30 {
					continue
				}
				seen[v] = true
			}
			mentioned = len(seen) > 0
		}
	}

	if len(seen) != 1 {
		return 0, false, mentioned
	}
	for v := range seen {
		amount = v
	}
	return amount, true, mentioned
}

func containsAny(t string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
