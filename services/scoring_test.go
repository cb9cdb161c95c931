package services

import "testing"

func TestScoreNoRecordGivesFullReward(t *testing.T) {
	for _, elapsed := range []int64{0, 1, 5000, 3600000} {
		if got := Score(elapsed, nil, 100); got != 100 {
			t.Fatalf("Score(%d, nil, 100)=%d, want 100", elapsed, got)
		}
	}
}

func TestScoreBeatingRecordGivesFullReward(t *testing.T) {
	best := int64ptr(5000)
	for _, elapsed := range []int64{0, 1000, 4999} {
		if got := Score(elapsed, best, 100); got != 100 {
			t.Fatalf("Score(%d, 5000, 100)=%d, want 100", elapsed, got)
		}
	}
}

func TestScoreDecaysPastRecord(t *testing.T) {
	best := int64ptr(5000)

	cases := []struct {
		elapsed int64
		want    int64
	}{
		{5000, 100},  // exactly on record: 5000/5000 = 1.0
		{10000, 50},  // 0.5
		{20000, 25},  // 0.25
		{50000, 10},  // 0.1 exactly
		{500000, 10}, // clamped at the floor
	}
	for _, tc := range cases {
		if got := Score(tc.elapsed, best, 100); got != tc.want {
			t.Fatalf("Score(%d, 5000, 100)=%d, want %d", tc.elapsed, got, tc.want)
		}
	}
}

func TestScoreNonIncreasingAndFloored(t *testing.T) {
	best := int64ptr(7321)
	base := int64(250)
	floor := int64(25) // floor(0.1 * 250)

	last := base
	for elapsed := *best; elapsed < *best*100; elapsed += 997 {
		got := Score(elapsed, best, base)
		if got > last {
			t.Fatalf("score increased: Score(%d)=%d after %d", elapsed, got, last)
		}
		if got < floor {
			t.Fatalf("score below floor: Score(%d)=%d, floor %d", elapsed, got, floor)
		}
		last = got
	}
}

func TestScoreZeroBasePoints(t *testing.T) {
	if got := Score(1000, int64ptr(500), 0); got != 0 {
		t.Fatalf("Score with 0 base = %d, want 0", got)
	}
}

func TestScoreMultiplierBounds(t *testing.T) {
	if got := ScoreMultiplier(0, int64ptr(0)); got != MaxScoreMultiplier {
		t.Fatalf("ScoreMultiplier(0, 0)=%v, want %v", got, MaxScoreMultiplier)
	}
	if got := ScoreMultiplier(1000000, int64ptr(1)); got != MinScoreMultiplier {
		t.Fatalf("ScoreMultiplier far past record=%v, want %v", got, MinScoreMultiplier)
	}
}
