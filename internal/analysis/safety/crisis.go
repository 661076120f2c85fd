// Package safety detects high-risk messages before they are forwarded to a language model.
package safety

import "strings"

// CrisisMessage is returned to the user instead of a model reply when a crisis phrase is found.
const CrisisMessage = "I'm really glad you told me this. That feeling is real, but you don't have to go through it alone."

// Helpline is one entry of the static helpline table.
type Helpline struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// crisisPhrases favours recall: a phrase quoted in an unrelated context still trips the filter.
var crisisPhrases = []string{
	"suicide",
	"kill myself",
	"hurt myself",
	"end it all",
	"want to die",
	"give up",
	"can't take it",
	"no point living",
}

var helplines = []Helpline{
	{Name: "AMICA", Phone: "1800-300-0019"},
	{Name: "iCall", Phone: "1800-389-5146"},
	{Name: "VANDREVALA", Phone: "1860-2662-345"},
}

// apostrophes folds typographic apostrophes so "can’t take it" matches like "can't take it".
var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// IsCrisis reports whether message contains any crisis phrase, case-insensitively.
func IsCrisis(message string) bool {
	normalized := apostrophes.Replace(strings.ToLower(message))
	if strings.TrimSpace(normalized) == "" {
		return false
	}

	for _, phrase := range crisisPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// Phrases returns a copy of the crisis phrase list.
func Phrases() []string {
	return append([]string(nil), crisisPhrases...)
}

// Helplines returns a copy of the helpline table in display order.
func Helplines() []Helpline {
	return append([]Helpline(nil), helplines...)
}

// HelplineMap renders the helpline table as name -> phone, the shape clients expect on the wire.
func HelplineMap() map[string]string {
	out := make(map[string]string, len(helplines))
	for _, h := range helplines {
		out[h.Name] = h.Phone
	}
	return out
}
