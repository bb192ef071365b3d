package domain_test

import (
	"math"
	"testing"

	"github.com/Rayzi0417/om-card/internal/domain"
)

func TestWeightedChoice_Boundaries(t *testing.T) {
	wc, err := domain.NewWeightedChoice([]string{"bright", "neutral", "dark"}, []int{40, 40, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		roll int
		want string
	}{
		{0, "bright"},
		{39, "bright"},
		{40, "neutral"},
		{79, "neutral"},
		{80, "dark"},
		{99, "dark"},
	}
	for _, tc := range cases {
		got := wc.Pick(&deterministicRNG{values: []int{tc.roll}})
		if got != tc.want {
			t.Errorf("roll %d: got %s, want %s", tc.roll, got, tc.want)
		}
	}
}

func TestWeightedChoice_Probability(t *testing.T) {
	wc, err := domain.NewWeightedChoice([]int{1, 2, 3}, []int{40, 40, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.4, 0.4, 0.2}
	for i, w := range want {
		if p := wc.Probability(i); math.Abs(p-w) > 1e-9 {
			t.Errorf("index %d: probability %.3f, want %.3f", i, p, w)
		}
	}
}

func TestWeightedChoice_ZeroWeightNeverPicked(t *testing.T) {
	wc, err := domain.NewWeightedChoice([]string{"a", "b"}, []int{0, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := seeded(3, 5)
	for range 500 {
		if got := wc.Pick(rng); got != "b" {
			t.Fatalf("picked zero-weight item %q", got)
		}
	}
}

func TestNewWeightedChoice_Invalid(t *testing.T) {
	if _, err := domain.NewWeightedChoice([]string{"a"}, []int{1, 2}); err == nil {
		t.Error("expected length mismatch error")
	}
	if _, err := domain.NewWeightedChoice([]string{"a"}, []int{-1}); err == nil {
		t.Error("expected negative weight error")
	}
	if _, err := domain.NewWeightedChoice([]string{"a", "b"}, []int{0, 0}); err == nil {
		t.Error("expected zero total error")
	}
	if _, err := domain.NewWeightedChoice([]string{}, []int{}); err == nil {
		t.Error("expected empty error")
	}
}

func TestParseDeckStyleAndMode(t *testing.T) {
	if s, err := domain.ParseDeckStyle(""); err != nil || s != domain.StyleAbstract {
		t.Errorf("empty style: %v %v", s, err)
	}
	if _, err := domain.ParseDeckStyle("oil"); err == nil {
		t.Error("expected invalid style")
	}
	if m, err := domain.ParseGameMode(""); err != nil || m != domain.ModeSingle {
		t.Errorf("empty mode: %v %v", m, err)
	}
	if _, err := domain.ParseGameMode("duel"); err == nil {
		t.Error("expected invalid mode")
	}
}
