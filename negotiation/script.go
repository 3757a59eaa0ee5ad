package negotiation

/*
The script table: fixed canned replies keyed by negotiation situation. Replies can be
overridden by a negotiation_script.md file using the section headings the operators
already maintain; compiled-in defaults cover a missing or partial file.
*/

import (
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Script holds the canned reply for every scripted branch plus the meetup location.
type Script struct {
	Accept         string //seller accepted our standing offer
	AcceptAtAsk    string //seller's counter was within our flexibility
	AskTheirPrice  string //seller declined with no counter
	Counter        string //seller's counter was out of reach, we propose our ceiling
	PoliteDecline  string //seller declined after our counter
	AskLocation    string
	AskCondition   string
	AskPayment     string
	AskTiming      string
	OtherBuyers    string
	ItemSold       string
	AskAboutUs     string
	MeetupLocation string
}

// DefaultScript returns the built-in reply table.
func DefaultScript() *Script {
	return &Script{
		Accept:         "Okay great. Can we meet at {location}?",
		AcceptAtAsk:    "I can do ${price}. When and where can we meet?",
		AskTheirPrice:  "How much were you looking to get for it?",
		Counter:        "Hmm ${their_offer} would be tough for me. I could do ${counter} though",
		PoliteDecline:  "No worries, thanks anyway. Good luck with the sale!",
		AskLocation:    "I'm located near {location}, we could meet there.",
		AskCondition:   "As long as it powers on and matches the listing we're good.",
		AskPayment:     "Cash on pickup.",
		AskTiming:      "I'm flexible, evenings usually work best. When's good for you?",
		OtherBuyers:    "I can meet today with cash in hand if that helps.",
		ItemSold:       "No problem, thanks for letting me know.",
		AskAboutUs:     "I buy and fix up phones locally. Quick cash meetup, nothing complicated.",
		MeetupLocation: "Wawa at 1860 S Collegeville Rd, Collegeville",
	}
}

// Render substitutes {placeholder} tokens in a canned reply.
func Render(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

var scriptSections = []struct {
	heading string
	assign  func(*Script, string)
}{
	{`### If Seller Accepts Our Initial Offer`, func(s *Script, v string) { s.Accept = v }},
	{`### If Seller Declines Initial Offer \(No Counter-Offer\)`, func(s *Script, v string) { s.AskTheirPrice = v }},
	{`### If Seller Makes Counter-Offer`, func(s *Script, v string) { s.Counter = v }},
	{`### If Seller Declines Our Counter-Offer`, func(s *Script, v string) { s.PoliteDecline = v }},
	{`### If Seller Asks About Location/Where We're Located`, func(s *Script, v string) { s.AskLocation = v }},
	{`### If Seller Asks Questions About Phone Condition`, func(s *Script, v string) { s.AskCondition = v }},
	{`### If Seller Asks About Payment Method`, func(s *Script, v string) { s.AskPayment = v }},
	{`### If Seller Asks About Timing/When to Meet`, func(s *Script, v string) { s.AskTiming = v }},
	{`### If Seller Mentions Other Interested Buyers`, func(s *Script, v string) { s.OtherBuyers = v }},
	{`### If Seller Says Item is Sold`, func(s *Script, v string) { s.ItemSold = v }},
	{`### If Seller Asks for More Details About Us`, func(s *Script, v string) { s.AskAboutUs = v }},
}

var locationPattern = regexp.MustCompile(`(?m)\*\*Standard Location\*\*:\s*(.+)$`)

// LoadScript reads reply overrides from a markdown script file. Sections it
// cannot find keep their defaults; a missing file is not an error.
func LoadScript(path string) *Script {
	s := DefaultScript()
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Could not read negotiation script, using defaults")
		}
		return s
	}
	content := string(raw)

	found := 0
	for _, sec := range scriptSections {
		re := regexp.MustCompile(sec.heading + `\s*\*\*Response\*\*:\s*"([^"]+)"`)
		if m := re.FindStringSubmatch(content); m != nil {
			sec.assign(s, m[1])
			found++
		}
	}
	if m := locationPattern.FindStringSubmatch(content); m != nil {
		s.MeetupLocation = strings.TrimSpace(m[1])
	}

	log.Info().Int("overrides", found).Str("path", path).Msg("Loaded negotiation script")
	return s
}
