package services

import (
	"math"
	"strings"
	"testing"
)

func TestChooseMode(t *testing.T) {
	if ChooseMode(10, 5) != ModeCut {
		t.Error("longer source should be cut")
	}
	if ChooseMode(2, 5) != ModeLoop {
		t.Error("shorter source should be looped")
	}
	if ChooseMode(5, 5) != ModeLoop {
		t.Error("exact match defaults to loop (a single play)")
	}
}

func TestLoopCount(t *testing.T) {
	// A 1.2s source looped to fill 5s needs 5 plays.
	if n := LoopCount(5, 1.2); n != 5 {
		t.Errorf("LoopCount(5, 1.2) = %d, want 5", n)
	}
	if n := LoopCount(6, 2); n != 3 {
		t.Errorf("LoopCount(6, 2) = %d, want 3", n)
	}
	if n := LoopCount(5, 5); n != 1 {
		t.Errorf("LoopCount(5, 5) = %d, want 1", n)
	}
	if n := LoopCount(5, 0); n != 1 {
		t.Errorf("LoopCount with zero source = %d, want 1", n)
	}
}

func TestTempoChainProduct(t *testing.T) {
	factors := []float64{0.25, 0.4, 0.5, 0.9, 1.0, 1.5, 2.0, 3.7, 5.0, 8.4}

	for _, factor := range factors {
		chain := TempoChain(factor)

		product := 1.0
		for _, stage := range chain {
			if stage < 0.5 || stage > 2.0 {
				t.Errorf("factor %v: stage %v outside atempo range [0.5, 2.0]", factor, stage)
			}
			product *= stage
		}

		if math.Abs(product-factor) > 1e-9 {
			t.Errorf("factor %v: chain product %v, chain %v", factor, product, chain)
		}
	}
}

func TestTempoChainDegenerate(t *testing.T) {
	chain := TempoChain(0)
	if len(chain) != 1 || chain[0] != 1.0 {
		t.Errorf("non-positive factor should yield identity chain, got %v", chain)
	}
}

func TestTempoFilter(t *testing.T) {
	filter := tempoFilter(4.0)
	if filter != "atempo=2.000000,atempo=2.000000" {
		t.Errorf("tempoFilter(4.0) = %q", filter)
	}

	if !strings.HasPrefix(tempoFilter(1.2), "atempo=1.2") {
		t.Errorf("tempoFilter(1.2) = %q", tempoFilter(1.2))
	}
}

func TestNeedsRecovery(t *testing.T) {
	th := DefaultRecoveryThresholds()

	// A 2s image clip measured at 1.0s: deviation 1.0 > 0.5,
	// 1.0 < 0.8*2, 1.0 < 2.0 — rebuild.
	if !th.NeedsRecovery(1.0, 2.0) {
		t.Error("expected recovery for 1.0s actual vs 2.0s target")
	}

	// Deviation within tolerance.
	if th.NeedsRecovery(1.8, 2.0) {
		t.Error("0.2s deviation should not trigger recovery")
	}

	// Short of target but not under the shortfall ratio.
	if th.NeedsRecovery(4.4, 5.0) {
		t.Error("88% of target should not trigger recovery")
	}

	// Far short of target but already a long clip.
	if th.NeedsRecovery(3.0, 10.0) {
		t.Error("clips over MaxActual are left alone")
	}
}

func TestScalePadFilterTargetsCanvas(t *testing.T) {
	filter := scalePadFilter()
	for _, want := range []string{"scale=854:480", "pad=854:480", "fps=30"} {
		if !strings.Contains(filter, want) {
			t.Errorf("filter %q missing %q", filter, want)
		}
	}
}

func TestIsSVG(t *testing.T) {
	if !IsSVG("image/svg+xml", "https://x.example/a") {
		t.Error("svg content type should be detected")
	}
	if !IsSVG("", "https://x.example/logo.SVG?size=big") {
		t.Error("svg extension should be detected despite query string")
	}
	if IsSVG("image/jpeg", "https://x.example/photo.jpg") {
		t.Error("jpeg should not be detected as svg")
	}
}
