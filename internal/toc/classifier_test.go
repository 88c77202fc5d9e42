package toc

import (
	"math"
	"testing"
)

func TestPosteriorAllFeaturesPresent(t *testing.T) {
	c := NewClassifier(DefaultParameters())
	obs := Observation{
		HasContentsKeyword: true,
		HasRomanNumerals:   true,
		HasIndexKeyword:    true,
		PageNumberCount:    20,
	}
	p := c.Posterior(obs)
	if p <= 0.05 {
		t.Fatalf("posterior = %v, want > 0.05 for a fully TOC-like page", p)
	}
	if !c.IsTOC(obs) {
		t.Fatalf("IsTOC = false for a fully TOC-like page")
	}
}

func TestPosteriorNoFeatures(t *testing.T) {
	c := NewClassifier(DefaultParameters())
	obs := Observation{}
	p := c.Posterior(obs)
	if p > 0.05 {
		t.Fatalf("posterior = %v, want <= 0.05 for a featureless page", p)
	}
	if c.IsTOC(obs) {
		t.Fatalf("IsTOC = true for a featureless page")
	}
}

func TestPosteriorsNormalized(t *testing.T) {
	c := NewClassifier(DefaultParameters())
	cases := []Observation{
		{},
		{HasContentsKeyword: true},
		{HasRomanNumerals: true, PageNumberCount: 7},
		{HasContentsKeyword: true, HasRomanNumerals: true, HasIndexKeyword: true, PageNumberCount: 20},
		{HasIndexKeyword: true, PageNumberCount: 300},
	}
	for _, obs := range cases {
		pTrue, pFalse := c.posteriors(obs)
		if diff := math.Abs(pTrue + pFalse - 1); diff > 1e-9 {
			t.Errorf("posteriors for %+v sum to %v, off by %v", obs, pTrue+pFalse, diff)
		}
	}
}

func TestPosteriorGrowsWithPageNumberCount(t *testing.T) {
	// With the binary features held fixed, the Poisson likelihood ratio
	// grows with the count up to the TOC-side mode (lambda 20). Past the
	// mode both class likelihoods sit on the epsilon floor's scale and the
	// posterior can dip slightly, so the sweep stops at 25.
	c := NewClassifier(DefaultParameters())
	counts := []int{0, 5, 10, 15, 20, 25}
	prev := -1.0
	for _, n := range counts {
		p := c.Posterior(Observation{PageNumberCount: n})
		if p < prev {
			t.Fatalf("posterior decreased at count %d: %v < %v", n, p, prev)
		}
		prev = p
	}

	// High counts still classify as TOC-like even where strict
	// monotonicity no longer holds.
	for _, n := range []int{30, 50} {
		if p := c.Posterior(Observation{PageNumberCount: n}); p <= 0.05 {
			t.Fatalf("posterior at count %d = %v, want > threshold", n, p)
		}
	}
}

func TestPosteriorFiniteAtExtremeCounts(t *testing.T) {
	// The epsilon inside the log keeps a vanishing Poisson mass from
	// producing -Inf and a NaN posterior.
	c := NewClassifier(DefaultParameters())
	for _, n := range []int{0, 1000, 100000} {
		p := c.Posterior(Observation{PageNumberCount: n})
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("posterior not finite at count %d: %v", n, p)
		}
		if p < 0 || p > 1 {
			t.Fatalf("posterior out of range at count %d: %v", n, p)
		}
	}
}

func TestContentsKeywordDominates(t *testing.T) {
	// The 0.90/0.0001 likelihood pair makes the contents keyword close to
	// decisive on its own.
	c := NewClassifier(DefaultParameters())
	with := c.Posterior(Observation{HasContentsKeyword: true, PageNumberCount: 10})
	without := c.Posterior(Observation{PageNumberCount: 10})
	if with <= without {
		t.Fatalf("contents keyword did not raise posterior: %v <= %v", with, without)
	}
	if with <= 0.05 {
		t.Fatalf("posterior with contents keyword = %v, want > threshold", with)
	}
}

func TestLogAddExp(t *testing.T) {
	cases := []struct {
		a, b, want float64
	}{
		{math.Log(0.3), math.Log(0.7), 0},
		{-1000, -1000, -1000 + math.Log(2)},
		{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
		{0, math.Inf(-1), 0},
	}
	for _, tc := range cases {
		got := logAddExp(tc.a, tc.b)
		if math.IsInf(tc.want, -1) {
			if !math.IsInf(got, -1) {
				t.Errorf("logAddExp(%v, %v) = %v, want -Inf", tc.a, tc.b, got)
			}
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("logAddExp(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPoissonPMF(t *testing.T) {
	// e^-5 * 5^3 / 3!
	want := math.Exp(-5) * 125 / 6
	got := poissonPMF(3, 5)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("poissonPMF(3, 5) = %v, want %v", got, want)
	}
	if got := poissonPMF(-1, 5); got != 0 {
		t.Errorf("poissonPMF(-1, 5) = %v, want 0", got)
	}
}
