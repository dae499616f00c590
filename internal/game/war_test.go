package game

import "testing"

func TestCalculateWAR(t *testing.T) {
	tests := []struct {
		wealth, portfolio int64
		want              float64
	}{
		{50, 0, 0},
		{57, 100, 0.57},
		{1, 3, 0.333},
		{2, 3, 0.667},
		{300, 75, 4},
	}
	for _, tt := range tests {
		if got := CalculateWAR(tt.wealth, tt.portfolio); got != tt.want {
			t.Fatalf("WAR(%d, %d) got %v want %v", tt.wealth, tt.portfolio, got, tt.want)
		}
	}
}

func TestWARRatingAndTrend(t *testing.T) {
	ratings := map[float64]WARRating{
		0.05: WARPoor,
		0.1:  WARAverage,
		0.29: WARAverage,
		0.3:  WARGood,
		0.5:  WARExcellent,
		0.8:  WARLegendary,
		1.5:  WARLegendary,
	}
	for score, want := range ratings {
		if got := WARRatingFor(score); got != want {
			t.Fatalf("rating(%v) got %q want %q", score, got, want)
		}
	}

	trends := []struct {
		current, previous float64
		want              WARTrend
	}{
		{0.5, 0, WARRising},
		{0, 0, WARStable},
		{0.52, 0.5, WARStable},
		{0.53, 0.5, WARRising},
		{0.48, 0.5, WARStable},
		{0.47, 0.5, WARFalling},
	}
	for _, tt := range trends {
		if got := WARTrendFrom(tt.current, tt.previous); got != tt.want {
			t.Fatalf("trend(%v, %v) got %q want %q", tt.current, tt.previous, got, tt.want)
		}
	}
}

func TestUpdateWAR(t *testing.T) {
	e := NewEngine(nil, DefaultRules())
	p := ownedPlayer(WorkNovice, "consulting_firm", "marketing_agency")
	p.Wealth = 30

	e.UpdateWAR(&p, "purchase", t0)
	if p.WAR != (WARStats{Current: 0.4, Peak: 0.4, Trend: WARRising, Rating: WARGood}) {
		t.Fatalf("got %+v", p.WAR)
	}

	p.Wealth = 15
	e.UpdateWAR(&p, "ability", t0)
	if p.WAR != (WARStats{Current: 0.2, Peak: 0.4, Trend: WARFalling, Rating: WARAverage}) {
		t.Fatalf("got %+v", p.WAR)
	}
	if len(p.WARHistory) != 2 || p.WARHistory[1].Trigger != "ability" || p.WARHistory[1].PortfolioValue != 75 {
		t.Fatalf("got history %+v", p.WARHistory)
	}

	for i := 0; i < 40; i++ {
		e.UpdateWAR(&p, "tick", t0)
	}
	if len(p.WARHistory) != WARHistoryLimit || p.WARHistory[0].Trigger != "tick" {
		t.Fatalf("got %d history entries", len(p.WARHistory))
	}
}

func TestRankByWAR(t *testing.T) {
	rows := []LeaderboardRow{
		{PlayerID: "a", Score: 100, WAR: 0.2},
		{PlayerID: "b", Score: 50, WAR: 0.9},
		{PlayerID: "c", Score: 80, WAR: 0.2},
		{PlayerID: "d", Score: 80, WAR: 0.2},
	}
	got := RankByWAR(rows)
	want := []string{"b", "a", "c", "d"}
	for i, id := range want {
		if got[i].PlayerID != id || got[i].Rank != int64(i+1) {
			t.Fatalf("row %d got %+v want %s", i, got[i], id)
		}
	}
	if rows[0].Rank != 0 {
		t.Fatalf("input rows were modified")
	}
}
