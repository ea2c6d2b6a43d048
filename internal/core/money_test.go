package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.5", true},
		{"5.", "5", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
		{"   ", "", false},
		{"١٢", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestParseSignedAmount(t *testing.T) {
	got, err := ParseSignedAmount("-2,5")
	if err != nil || !got.Equal(decimal.RequireFromString("-2.5")) {
		t.Fatalf("expected -2.5, got %s (err=%v)", got, err)
	}
	got, err = ParseSignedAmount("+3")
	if err != nil || !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3, got %s (err=%v)", got, err)
	}
	if _, err := ParseSignedAmount("--1"); err == nil {
		t.Fatalf("expected error for double sign")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("17.5")); got != "17.50" {
		t.Fatalf("expected 17.50, got %s", got)
	}
}
