package negotiation

/*
Keyword detection of lock status and damage from a listing's title and description.
Feeds the 2x2 base-offer lookup.
*/

import (
	"regexp"
	"strings"
)

//Word-bounded so "att" never fires on "battery"
var lockedPattern = regexp.MustCompile(`\b(locked|verizon|at&t|att|t-mobile|tmobile|sprint|boost|cricket)\b`)

var damagedPattern = regexp.MustCompile(`crack|damaged|broken|for parts|bad lcd|lines on screen|ink spots|won't turn on|wont turn on|doesn't turn on|no power|\bdead\b`)

// DetectCondition inspects listing text for carrier-lock and damage keywords.
// An explicit "unlocked" wins over any carrier mention.
func DetectCondition(title, description string) (locked, damaged bool) {
	text := strings.ToLower(title + " " + description)

	if !strings.Contains(text, "unlocked") {
		locked = lockedPattern.MatchString(text)
	}
	damaged = damagedPattern.MatchString(text)
	return locked, damaged
}
