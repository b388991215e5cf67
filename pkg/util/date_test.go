package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-01-05", "2024/01/05", "01/05/2024", "05-Jan-2024", " 2024-01-05 00:00:00 "} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("expected ok for %q", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: unexpected date %v", s, got)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "Dates", "NaN", "2024-13-45"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseWholeNumber(t *testing.T) {
	cases := map[string]struct {
		n  int
		ok bool
	}{
		"2023":   {2023, true},
		"2023.0": {2023, true},
		"2023.5": {0, false},
		"LTM":    {0, false},
		"":       {0, false},
	}
	for in, want := range cases {
		n, ok := ParseWholeNumber(in)
		if ok != want.ok || n != want.n {
			t.Fatalf("%q: got (%d, %v), want (%d, %v)", in, n, ok, want.n, want.ok)
		}
	}
}
