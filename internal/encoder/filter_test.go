// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package encoder

import "testing"

func TestCountsAccumulatorWrap(t *testing.T) {
	acc := NewCountsAccumulator(1024)
	acc.Update(1000)
	if got := acc.Total(); got != 1000 {
		t.Fatalf("first update = %d, want 1000", got)
	}
	// wraps from 1000 down past 0 to 20: raw diff is -980, but the
	// physical motion is +44 counts forward across the wrap.
	got := acc.Update(20)
	if got != 1044 {
		t.Fatalf("after wrap = %d, want 1044", got)
	}
}

func TestCountsAccumulatorBackwardWrap(t *testing.T) {
	acc := NewCountsAccumulator(1024)
	acc.Update(20)
	got := acc.Update(1000)
	// the first update sets total to 20; the step from 20 back across
	// the wrap to 1000 is -44 counts, so total becomes 20-44.
	if got != -24 {
		t.Fatalf("after backward wrap = %d, want -24", got)
	}
}

func TestAntiSpikeFilter(t *testing.T) {
	f := NewAntiSpikeFilter(30)
	if !f.Accept(10) {
		t.Fatal("first sample should always be accepted")
	}
	if f.Accept(50) {
		t.Fatal("a 40deg jump should be rejected")
	}
	if !f.Accept(35) {
		t.Fatal("a 25deg jump should be accepted")
	}
}

func TestMedianFilterWarmupAndValue(t *testing.T) {
	m := NewMedianFilter(5, 3)
	if _, ok := m.Push(1); ok {
		t.Fatal("should not be ready after 1 sample")
	}
	if _, ok := m.Push(2); ok {
		t.Fatal("should not be ready after 2 samples")
	}
	med, ok := m.Push(3)
	if !ok || med != 2 {
		t.Fatalf("median of [1,2,3] = %v (ok=%v), want 2", med, ok)
	}
	med, ok = m.Push(100)
	if !ok || med != 2.5 {
		t.Fatalf("median of [1,2,3,100] = %v, want 2.5", med)
	}
}
