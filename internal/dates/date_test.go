package dates

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	d := New(2024, time.January, 8)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2024-01-08"` {
		t.Fatalf("marshaled = %s", data)
	}

	var parsed Date
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if !parsed.Equal(d) {
		t.Fatalf("parsed = %s, want %s", parsed, d)
	}
}

func TestMonthBounds(t *testing.T) {
	d := New(2024, time.February, 14)

	if got := d.MonthStart(); !got.Equal(New(2024, time.February, 1)) {
		t.Fatalf("month start = %s", got)
	}
	if got := d.MonthEnd(); !got.Equal(New(2024, time.February, 29)) {
		t.Fatalf("month end = %s", got)
	}
}

func TestFromTimeTruncates(t *testing.T) {
	ts := time.Date(2024, time.March, 3, 23, 59, 59, 0, time.UTC)
	if got := FromTime(ts); !got.Equal(New(2024, time.March, 3)) {
		t.Fatalf("from time = %s", got)
	}
}
