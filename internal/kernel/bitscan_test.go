// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "testing"

func TestFirstBitHigh(t *testing.T) {
	tests := []struct {
		x    uint32
		want int
	}{
		{0, notFound},
		{1, 0},
		{0b1010, 3},
		{0x80000000, 31},
		{0xFFFFFFFF, 31},
	}
	for _, tt := range tests {
		if got := firstBitHigh(tt.x); got != tt.want {
			t.Errorf("firstBitHigh(%#x) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestFirstBitLow(t *testing.T) {
	tests := []struct {
		x    uint32
		want int
	}{
		{0, notFound},
		{1, 0},
		{0b1010, 1},
		{0x80000000, 31},
		{0xFFFFFFFF, 0},
	}
	for _, tt := range tests {
		if got := firstBitLow(tt.x); got != tt.want {
			t.Errorf("firstBitLow(%#x) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestMasksAtWordWidth(t *testing.T) {
	if got := lowMask(0); got != 0 {
		t.Errorf("lowMask(0) = %#x, want 0", got)
	}
	if got := lowMask(5); got != 0x1F {
		t.Errorf("lowMask(5) = %#x, want 0x1f", got)
	}
	if got := lowMask(32); got != 0xFFFFFFFF {
		t.Errorf("lowMask(32) = %#x, want 0xffffffff", got)
	}
	if got := highMask(0); got != 0xFFFFFFFF {
		t.Errorf("highMask(0) = %#x, want 0xffffffff", got)
	}
	if got := highMask(31); got != 0x80000000 {
		t.Errorf("highMask(31) = %#x, want 0x80000000", got)
	}
	if got := highMask(32); got != 0 {
		t.Errorf("highMask(32) = %#x, want 0", got)
	}
}
