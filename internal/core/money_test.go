package core

import "testing"

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{0, "$0"},
		{500, "$500"},
		{999, "$999"},
		{12.5, "$12.5"},
		{1000, "$1,000"},
		{1500, "$1,500"},
		{25000, "$25,000"},
		{1234000, "$1,234,000"},
		{1234.5, "$1,234.5"},
		{-500, "$-500"},
		{-1500, "$-1,500"},
		{-1000000, "$-1,000,000"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(tc.in); got != tc.out {
			t.Fatalf("FormatCurrency(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestFormatCurrencySuppressNegative(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{-1500, ""},
		{-1000, ""},
		{-999, "$-999"},
		{0, "$0"},
		{1500, "$1,500"},
	}
	for _, tc := range cases {
		if got := FormatCurrencySuppressNegative(tc.in); got != tc.out {
			t.Fatalf("FormatCurrencySuppressNegative(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestFormatPlain(t *testing.T) {
	if got := FormatPlain(2500); got != "2500" {
		t.Fatalf("expected 2500, got %q", got)
	}
	if got := FormatPlain(-0.0); got != "0" {
		t.Fatalf("expected 0 for negative zero, got %q", got)
	}
}
