package utils

import "testing"

func TestFormatCoins(t *testing.T) {
	if got := FormatCoins(1200); got != "1,200 COIN" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := FormatCoins(7); got != "7 COIN" {
		t.Fatalf("unexpected format %q", got)
	}
}
