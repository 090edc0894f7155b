package odds

import "testing"

func market(name string) Market {
	return Market{Name: name, Values: []SelectionValue{
		{Label: "Home", Odd: 1.85},
		{Label: "Draw", Odd: 3.40},
		{Label: "Away", Odd: 4.20},
	}}
}

func TestSelectLive(t *testing.T) {
	sel := NewSelector([]string{"Bet365", "1xBet"})

	snap := sel.SelectLive(42, []Market{market("Match Winner")})
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if snap.Mode != ModeLive || snap.FixtureID != 42 {
		t.Errorf("got mode=%s fixture=%d", snap.Mode, snap.FixtureID)
	}
	if len(snap.Markets) != 1 {
		t.Errorf("markets must pass through unmodified, got %d", len(snap.Markets))
	}
}

func TestSelectLive_NoOddsMeansNoSnapshot(t *testing.T) {
	sel := NewSelector([]string{"Bet365"})
	if snap := sel.SelectLive(42, nil); snap != nil {
		t.Error("fixture without live odds must not yield a snapshot")
	}
}

func TestSelectUpcoming_BookmakerPriority(t *testing.T) {
	sel := NewSelector([]string{"Bet365", "1xBet"})

	tests := []struct {
		name    string
		offered []BookmakerOdds
		want    string // source esperado; "" = sem snapshot
	}{
		{
			name: "first choice present",
			offered: []BookmakerOdds{
				{Name: "X", Markets: []Market{market("1X2")}},
				{Name: "Bet365", Markets: []Market{market("Match Winner")}},
				{Name: "1xBet", Markets: []Market{market("Match Winner")}},
			},
			want: "Bet365",
		},
		{
			name: "fallback to second choice",
			offered: []BookmakerOdds{
				{Name: "X", Markets: []Market{market("1X2")}},
				{Name: "1xBet", Markets: []Market{market("Match Winner")}},
			},
			want: "1xBet",
		},
		{
			name: "no priority bookmaker present",
			offered: []BookmakerOdds{
				{Name: "X", Markets: []Market{market("1X2")}},
				{Name: "Y", Markets: []Market{market("1X2")}},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := sel.SelectUpcoming(7, tt.offered)
			if tt.want == "" {
				if snap != nil {
					t.Fatalf("expected no snapshot, got source %q", snap.Source)
				}
				return
			}
			if snap == nil {
				t.Fatal("expected snapshot")
			}
			if snap.Source != tt.want {
				t.Errorf("selected %q, want %q", snap.Source, tt.want)
			}
			if snap.Mode != ModeUpcoming {
				t.Errorf("mode = %s, want upcoming", snap.Mode)
			}
		})
	}
}

func TestIsBettableStatus(t *testing.T) {
	for _, code := range []string{"FT", "AET", "PEN", "CANC", "SUSP", "INT", "PST", "ABD"} {
		if IsBettableStatus(code) {
			t.Errorf("status %s must not be bettable", code)
		}
	}
	for _, code := range []string{"NS", "1H", "HT", "2H", "TBD"} {
		if !IsBettableStatus(code) {
			t.Errorf("status %s must be bettable", code)
		}
	}
}
