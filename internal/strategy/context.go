package strategy

import (
	"math"
	"sort"
	"strings"
	"time"

	"nba-props-engine/internal/mathutil"
	"nba-props-engine/internal/names"
)

// InjuryRow is one player entry from an injury feed.
type InjuryRow struct {
	Player     string `json:"player"`
	Team       string `json:"team"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
	DateUpdate string `json:"date_update,omitempty"`
}

// InjuryFeed is one source's injury payload with freshness metadata.
type InjuryFeed struct {
	Ready     bool
	FetchedAt time.Time
	Rows      []InjuryRow
}

// InjuryFeeds pairs the official league report with a secondary aggregator
// feed. The official feed is authoritative when both list a player.
type InjuryFeeds struct {
	Official  InjuryFeed
	Secondary InjuryFeed
}

// RosterTeam is one team's roster split.
type RosterTeam struct {
	Active   []string `json:"active"`
	Inactive []string `json:"inactive"`
	All      []string `json:"all"`
}

// RosterSnapshot maps canonical team names to rosters.
type RosterSnapshot struct {
	Ready     bool
	FetchedAt time.Time
	Teams     map[string]RosterTeam
}

// EventInfo is the schedule context for one event id.
type EventInfo struct {
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
}

// IdentityMap resolves alternate player spellings and known team history.
// Keys are normalized player names; values are normalized too.
type IdentityMap struct {
	Aliases map[string][]string
	Teams   map[string][]string
}

// GameLineRow is one game-odds quote used to derive spread/total context.
// Market is "spreads" or "totals"; Name is the team side for spreads.
type GameLineRow struct {
	EventID string
	Market  string
	Name    string
	Point   float64
}

// Injury status severity, most severe last. Unknown statuses rank below
// everything listed.
var injurySeverity = map[string]int{
	"unknown":        0,
	"available":      1,
	"day_to_day":     1,
	"probable":       2,
	"questionable":   3,
	"doubtful":       4,
	"out":            5,
	"out_for_season": 6,
}

// NormalizeInjuryStatus lowercases and maps feed spellings onto the
// canonical status set.
func NormalizeInjuryStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	switch s {
	case "gtd", "game_time_decision":
		return "questionable"
	case "dtd":
		return "day_to_day"
	case "":
		return "unknown"
	}
	if _, ok := injurySeverity[s]; ok {
		return s
	}
	return "unknown"
}

func severeEnoughToReplace(existing, candidate InjuryRow) bool {
	se := injurySeverity[NormalizeInjuryStatus(existing.Status)]
	sc := injurySeverity[NormalizeInjuryStatus(candidate.Status)]
	if sc != se {
		return sc > se
	}
	return candidate.DateUpdate > existing.DateUpdate
}

// MergeInjuries overlays the official feed onto the secondary feed and
// indexes by normalized player name. When a player appears in both, the
// more severe status wins; on equal severity the newer update wins. The
// secondary feed's team attribution is kept when the official row has none.
func MergeInjuries(feeds *InjuryFeeds) map[string]InjuryRow {
	index := map[string]InjuryRow{}
	if feeds == nil {
		return index
	}
	apply := func(rows []InjuryRow) {
		for _, row := range rows {
			key := names.Person(row.Player)
			if key == "" {
				continue
			}
			existing, ok := index[key]
			if !ok {
				index[key] = row
				continue
			}
			if severeEnoughToReplace(existing, row) {
				if row.Team == "" {
					row.Team = existing.Team
				}
				index[key] = row
			}
		}
	}
	apply(feeds.Secondary.Rows)
	apply(feeds.Official.Rows)
	return index
}

// InjuriesByTeam buckets a merged injury index by canonical team name.
func InjuriesByTeam(index map[string]InjuryRow) map[string][]InjuryRow {
	out := map[string][]InjuryRow{}
	for _, row := range index {
		team := names.CanonicalTeam(row.Team)
		if team == "" {
			continue
		}
		out[team] = append(out[team], row)
	}
	for team := range out {
		rows := out[team]
		sort.Slice(rows, func(i, j int) bool {
			return names.Person(rows[i].Player) < names.Person(rows[j].Player)
		})
		out[team] = rows
	}
	return out
}

// PlayerAliases expands a player name through suffix-stripped variants and
// the identity map.
func PlayerAliases(player string, identity *IdentityMap) map[string]bool {
	aliases := map[string]bool{}
	for _, alias := range names.Aliases(player) {
		aliases[alias] = true
	}
	if identity != nil {
		norm := names.Person(player)
		for _, alias := range identity.Aliases[norm] {
			if a := names.Person(alias); a != "" {
				aliases[a] = true
			}
		}
	}
	return aliases
}

// Roster status outcomes, from most to least certain.
const (
	RosterActive       = "active"
	RosterInactive     = "inactive"
	RosterRostered     = "rostered"
	RosterNotOnRoster  = "not_on_roster"
	RosterUnknownEvent = "unknown_event"
	RosterUnknown      = "unknown_roster"
)

func rosterListContains(list []string, aliases map[string]bool) bool {
	for _, name := range list {
		if aliases[names.Person(name)] {
			return true
		}
	}
	return false
}

// RosterStatus resolves a player's roster standing for one event. The
// lookup checks the inactive list first so two-way and suspended players do
// not read as active through the full-roster list.
func RosterStatus(player, eventID string, events map[string]EventInfo, roster *RosterSnapshot, identity *IdentityMap) string {
	if eventID == "" || len(events) == 0 {
		return RosterUnknownEvent
	}
	if roster == nil || len(roster.Teams) == 0 {
		return RosterUnknown
	}
	info, ok := events[eventID]
	if !ok || info.HomeTeam == "" || info.AwayTeam == "" {
		return RosterUnknownEvent
	}
	home := names.CanonicalTeam(info.HomeTeam)
	away := names.CanonicalTeam(info.AwayTeam)
	homeRoster, homeOK := roster.Teams[home]
	awayRoster, awayOK := roster.Teams[away]
	if !homeOK && !awayOK {
		return RosterUnknown
	}
	aliases := PlayerAliases(player, identity)
	for _, team := range []RosterTeam{homeRoster, awayRoster} {
		if rosterListContains(team.Inactive, aliases) {
			return RosterInactive
		}
	}
	for _, team := range []RosterTeam{homeRoster, awayRoster} {
		if rosterListContains(team.Active, aliases) {
			return RosterActive
		}
	}
	for _, team := range []RosterTeam{homeRoster, awayRoster} {
		if rosterListContains(team.All, aliases) {
			return RosterRostered
		}
	}
	return RosterNotOnRoster
}

// ResolvePlayerTeam names the player's team for one event: exact roster
// membership wins, then the injury feed's attribution when it matches a
// participating team, then the identity map's most recent known team.
func ResolvePlayerTeam(player, eventID string, events map[string]EventInfo, roster *RosterSnapshot, injuries map[string]InjuryRow, identity *IdentityMap) string {
	info, hasEvent := events[eventID]
	home := names.CanonicalTeam(info.HomeTeam)
	away := names.CanonicalTeam(info.AwayTeam)
	aliases := PlayerAliases(player, identity)

	if hasEvent && roster != nil {
		for _, team := range []string{home, away} {
			rt, ok := roster.Teams[team]
			if !ok {
				continue
			}
			if rosterListContains(rt.All, aliases) || rosterListContains(rt.Active, aliases) || rosterListContains(rt.Inactive, aliases) {
				return team
			}
		}
	}
	if row, ok := injuries[names.Person(player)]; ok {
		team := names.CanonicalTeam(row.Team)
		if team != "" && (team == home || team == away) {
			return team
		}
	}
	if identity != nil {
		for _, team := range identity.Teams[names.Person(player)] {
			canonical := names.CanonicalTeam(team)
			if canonical == home || canonical == away {
				return canonical
			}
		}
	}
	return ""
}

// CountTeamStatus tallies a team's absence-relevant injury statuses,
// excluding the candidate player themselves.
func CountTeamStatus(byTeam map[string][]InjuryRow, team, excludePlayer string) map[string]int {
	counts := map[string]int{}
	exclude := names.Person(excludePlayer)
	for _, row := range byTeam[names.CanonicalTeam(team)] {
		if names.Person(row.Player) == exclude {
			continue
		}
		switch status := NormalizeInjuryStatus(row.Status); status {
		case "out", "out_for_season", "doubtful", "questionable":
			counts[status]++
		}
	}
	return counts
}

// EventLines is the derived spread/total context for one event.
type EventLines struct {
	TotalMedian  *float64
	SpreadHome   *float64
	SpreadAbs    *float64
}

// BuildEventLineIndex computes per-event median totals and home spreads
// from game-odds rows. Spread quotes on the away side are negated so every
// observation is in home-team terms. Medians are rounded to one decimal.
func BuildEventLineIndex(rows []GameLineRow, events map[string]EventInfo) map[string]EventLines {
	totals := map[string][]float64{}
	spreads := map[string][]float64{}
	for _, row := range rows {
		switch strings.ToLower(row.Market) {
		case "totals":
			totals[row.EventID] = append(totals[row.EventID], row.Point)
		case "spreads":
			info, ok := events[row.EventID]
			if !ok {
				continue
			}
			side := names.CanonicalTeam(row.Name)
			switch side {
			case names.CanonicalTeam(info.HomeTeam):
				spreads[row.EventID] = append(spreads[row.EventID], row.Point)
			case names.CanonicalTeam(info.AwayTeam):
				spreads[row.EventID] = append(spreads[row.EventID], -row.Point)
			}
		}
	}
	index := map[string]EventLines{}
	for eventID := range events {
		var lines EventLines
		if m, ok := mathutil.Median(totals[eventID]); ok {
			rounded := mathutil.RoundTo(m, 1)
			lines.TotalMedian = &rounded
		}
		if m, ok := mathutil.Median(spreads[eventID]); ok {
			rounded := mathutil.RoundTo(m, 1)
			abs := math.Abs(rounded)
			lines.SpreadHome = &rounded
			lines.SpreadAbs = &abs
		}
		if lines.TotalMedian != nil || lines.SpreadHome != nil {
			index[eventID] = lines
		}
	}
	return index
}

// SynthesizeAvailable adds an implicit "available" injury row for every
// active or rostered player missing from a ready official report. The
// official report lists only players with a designation, so absence from it
// is itself a signal.
func SynthesizeAvailable(index map[string]InjuryRow, feeds *InjuryFeeds, player, team, rosterStatus string) {
	if feeds == nil || !feeds.Official.Ready {
		return
	}
	if rosterStatus != RosterActive && rosterStatus != RosterRostered {
		return
	}
	key := names.Person(player)
	if key == "" {
		return
	}
	officialNorms := map[string]bool{}
	for _, row := range feeds.Official.Rows {
		officialNorms[names.Person(row.Player)] = true
	}
	if officialNorms[key] {
		return
	}
	if existing, ok := index[key]; ok && NormalizeInjuryStatus(existing.Status) != "unknown" {
		return
	}
	index[key] = InjuryRow{
		Player: player,
		Team:   team,
		Status: "available",
		Note:   "Not listed on official NBA injury report.",
	}
}
