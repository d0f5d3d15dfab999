package names

import "testing"

func TestPerson(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "LeBron James", "lebronjames"},
		{"diacritics fold", "Luka Dončić", "lukadoncic"},
		{"accents fold", "Nikola Jokić", "nikolajokic"},
		{"punctuation dropped", "Shai Gilgeous-Alexander", "shaigilgeousalexander"},
		{"suffix kept as letters", "Jaren Jackson Jr.", "jarenjacksonjr"},
		{"whitespace trimmed", "  Trae Young  ", "traeyoung"},
		{"digits kept", "Player 2", "player2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Person(tt.in); got != tt.want {
				t.Errorf("Person(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalTeam(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LAL", "los angeles lakers"},
		{"la lakers", "los angeles lakers"},
		{"Golden State", "golden state warriors"},
		{"Boston Celtics", "boston celtics"},
		{"  New   York  ", "new york knicks"},
		{"philadelphia sixers", "philadelphia 76ers"},
		{"some g league team", "some g league team"},
	}

	for _, tt := range tests {
		if got := CanonicalTeam(tt.in); got != tt.want {
			t.Errorf("CanonicalTeam(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
