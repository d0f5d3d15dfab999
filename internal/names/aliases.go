package names

import (
	"sort"
	"strings"
	"unicode"
)

var suffixTokens = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
}

// Aliases generates deterministic normalized aliases for player-name
// matching: the normalized name itself plus a suffix-stripped variant
// ("Gary Payton II" also matches "garypayton").
func Aliases(name string) []string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return nil
	}
	set := map[string]bool{}
	if primary := Person(raw); primary != "" {
		set[primary] = true
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(raw))
	words := strings.Fields(cleaned)
	if len(words) > 0 && suffixTokens[words[len(words)-1]] {
		if norm := Person(strings.Join(words[:len(words)-1], " ")); norm != "" {
			set[norm] = true
		}
	}

	out := make([]string, 0, len(set))
	for alias := range set {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

var teamAbbrevs = map[string]string{
	"atlanta hawks":          "ATL",
	"boston celtics":         "BOS",
	"brooklyn nets":          "BKN",
	"charlotte hornets":      "CHA",
	"chicago bulls":          "CHI",
	"cleveland cavaliers":    "CLE",
	"dallas mavericks":       "DAL",
	"denver nuggets":         "DEN",
	"detroit pistons":        "DET",
	"golden state warriors":  "GSW",
	"houston rockets":        "HOU",
	"indiana pacers":         "IND",
	"los angeles clippers":   "LAC",
	"los angeles lakers":     "LAL",
	"memphis grizzlies":      "MEM",
	"miami heat":             "MIA",
	"milwaukee bucks":        "MIL",
	"minnesota timberwolves": "MIN",
	"new orleans pelicans":   "NOP",
	"new york knicks":        "NYK",
	"oklahoma city thunder":  "OKC",
	"orlando magic":          "ORL",
	"philadelphia 76ers":     "PHI",
	"phoenix suns":           "PHX",
	"portland trail blazers": "POR",
	"sacramento kings":       "SAC",
	"san antonio spurs":      "SAS",
	"toronto raptors":        "TOR",
	"utah jazz":              "UTA",
	"washington wizards":     "WAS",
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

// TeamAbbrev returns the short display label for a team. Unknown teams fall
// back to an existing short token or the first letters of the nickname.
func TeamAbbrev(name string) string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return ""
	}
	canonical := CanonicalTeam(raw)
	if abbrev, ok := teamAbbrevs[canonical]; ok {
		return abbrev
	}
	token := strings.TrimSpace(strings.ReplaceAll(raw, ".", ""))
	if len(token) >= 2 && len(token) <= 4 && isAlpha(token) {
		return strings.ToUpper(token)
	}
	words := strings.Fields(canonical)
	if len(words) > 0 {
		last := words[len(words)-1]
		if len(last) > 3 {
			last = last[:3]
		}
		return strings.ToUpper(last)
	}
	if len(raw) > 3 {
		raw = raw[:3]
	}
	return strings.ToUpper(raw)
}
