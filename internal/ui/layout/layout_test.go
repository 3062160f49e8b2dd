package layout

import (
	"strings"
	"testing"
)

func TestRenderHeaderShowsCodeAndStreak(t *testing.T) {
	h := RenderHeader("Problem 2", "ABC234", Streak{Progress: 60, Completions: 3}, 100)

	if !strings.Contains(h, "ABC234") {
		t.Error("header should show the session code")
	}
	if !strings.Contains(h, "★ 3") {
		t.Error("header should show completed streaks")
	}
	if got := strings.Count(h, "■"); got != streakCells {
		t.Errorf("streak bar has %d cells, want %d", got, streakCells)
	}
}

func TestRenderStreakClamps(t *testing.T) {
	for _, p := range []int{-20, 0, 100, 140} {
		if got := strings.Count(renderStreak(Streak{Progress: p}), "■"); got != streakCells {
			t.Errorf("progress %d: %d cells, want %d", p, got, streakCells)
		}
	}
}

func TestIsTooSmall(t *testing.T) {
	if !IsTooSmall(MinWidth-1, MinHeight) {
		t.Error("narrow terminal should be too small")
	}
	if IsTooSmall(MinWidth, MinHeight) {
		t.Error("minimum size should fit")
	}
}
