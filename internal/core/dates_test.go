package core

import "testing"

func TestFormatMonthYear(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"2024-01-01", "Jan 2024", true},
		{"2024-12-31", "Dec 2024", true},
		{"2031-06", "Jun 2031", true},
		{"2024-03-01T00:00:00Z", "Mar 2024", true},
		{"2024-03-01T00:00:00+05:00", "Mar 2024", true},
		{" 2024-02-15 ", "Feb 2024", true},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := FormatMonthYear(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatMonthYearIsStable(t *testing.T) {
	first, err := FormatMonthYear("2025-07-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := FormatMonthYear("2025-07-04")
		if again != first {
			t.Fatalf("run %d produced %q, first was %q", i, again, first)
		}
	}
	if len(first) != 8 {
		t.Fatalf("expected three-letter month plus four-digit year, got %q", first)
	}
}
