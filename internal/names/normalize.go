// Package names canonicalizes NBA player and team names so rows from
// different providers join on the same key.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// teamAliases maps lowercase abbreviations and city shorthands to full
// franchise names. Keys are already whitespace-collapsed lowercase.
var teamAliases = map[string]string{
	"atl": "atlanta hawks", "atlanta": "atlanta hawks",
	"bos": "boston celtics", "boston": "boston celtics",
	"bkn": "brooklyn nets", "brk": "brooklyn nets", "brooklyn": "brooklyn nets",
	"cha": "charlotte hornets", "cho": "charlotte hornets", "charlotte": "charlotte hornets",
	"chi": "chicago bulls", "chicago": "chicago bulls",
	"cle": "cleveland cavaliers", "cleveland": "cleveland cavaliers",
	"dal": "dallas mavericks", "dallas": "dallas mavericks",
	"den": "denver nuggets", "denver": "denver nuggets",
	"det": "detroit pistons", "detroit": "detroit pistons",
	"gs": "golden state warriors", "gsw": "golden state warriors", "golden state": "golden state warriors",
	"hou": "houston rockets", "houston": "houston rockets",
	"ind": "indiana pacers", "indiana": "indiana pacers",
	"lac": "los angeles clippers", "la clippers": "los angeles clippers",
	"lal": "los angeles lakers", "la lakers": "los angeles lakers",
	"mem": "memphis grizzlies", "memphis": "memphis grizzlies",
	"mia": "miami heat", "miami": "miami heat",
	"mil": "milwaukee bucks", "milwaukee": "milwaukee bucks",
	"min": "minnesota timberwolves", "minnesota": "minnesota timberwolves",
	"nop": "new orleans pelicans", "nor": "new orleans pelicans", "new orleans": "new orleans pelicans",
	"ny": "new york knicks", "nyk": "new york knicks", "new york": "new york knicks",
	"okc": "oklahoma city thunder", "oklahoma city": "oklahoma city thunder",
	"orl": "orlando magic", "orlando": "orlando magic",
	"phi": "philadelphia 76ers", "philadelphia": "philadelphia 76ers", "philadelphia sixers": "philadelphia 76ers",
	"phx": "phoenix suns", "pho": "phoenix suns", "phoenix": "phoenix suns",
	"por": "portland trail blazers", "portland": "portland trail blazers",
	"sac": "sacramento kings", "sacramento": "sacramento kings",
	"sa": "san antonio spurs", "sas": "san antonio spurs", "san antonio": "san antonio spurs",
	"tor": "toronto raptors", "toronto": "toronto raptors",
	"uta": "utah jazz", "utah": "utah jazz",
	"was": "washington wizards", "washington": "washington wizards",
}

// asciiFold strips diacritics: NFKD decomposition, drop combining marks,
// then drop anything still outside ASCII.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Person normalizes a player name for fuzzy joins: lowercase, fold accents
// to ASCII, keep only letters and digits. "Luka Dončić" and "luka doncic"
// collapse to the same key.
func Person(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	folded, _, err := transform.String(asciiFold, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalTeam canonicalizes a team name for matching, expanding known
// abbreviations to the full franchise name.
func CanonicalTeam(name string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if full, ok := teamAliases[normalized]; ok {
		return full
	}
	return normalized
}
