package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// ─── Date Tests ─────────────────────────────────────────────────────────────

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	got := DateOf(time.Date(2024, 1, 1, 23, 30, 0, 0, loc))
	if got.String() != "2024-01-01" {
		t.Errorf("DateOf = %s, want 2024-01-01", got)
	}
}

func TestDate_AddDaysAcrossMonth(t *testing.T) {
	d := NewDate(2024, 2, 28)
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("leap day: got %s", got)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("month rollover: got %s", got)
	}
}

func TestDate_Ordering(t *testing.T) {
	a := MustParseDate("2024-01-01")
	b := MustParseDate("2024-01-03")
	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After ordering wrong")
	}
	if !a.Equal(NewDate(2024, 1, 1)) {
		t.Error("Equal should match same day")
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2024-13-01", "01/02/2024", "2024-1-1"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q) should fail", in)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	type wrap struct {
		D *Date `json:"d"`
		V Date  `json:"v"`
	}

	d := MustParseDate("2024-05-06")
	b, err := json.Marshal(wrap{D: &d})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2024-05-06","v":null}` {
		t.Errorf("marshal = %s", b)
	}

	var w wrap
	if err := json.Unmarshal([]byte(`{"d":null,"v":"2024-05-07"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.D != nil {
		t.Errorf("null should leave pointer nil, got %v", w.D)
	}
	if w.V.String() != "2024-05-07" {
		t.Errorf("V = %s", w.V)
	}

	if err := json.Unmarshal([]byte(`{"v":"tomorrow"}`), &w); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:30", "09:30:00", false},
		{"09:30:15", "09:30:15", false},
		{" 23:59 ", "23:59:00", false},
		{"24:00", "", true},
		{"9am", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// ─── Task Tests ─────────────────────────────────────────────────────────────

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"", PriorityMedium},
		{"L", PriorityLow},
		{"low", PriorityLow},
		{"m", PriorityMedium},
		{"High", PriorityHigh},
		{"H", PriorityHigh},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if err != nil {
			t.Fatalf("ParsePriority(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestNormalizeTitle(t *testing.T) {
	got, err := NormalizeTitle("  Buy milk ")
	if err != nil || got != "Buy milk" {
		t.Errorf("NormalizeTitle = %q, %v", got, err)
	}
	if _, err := NormalizeTitle("   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank title: err = %v, want ErrInvalidInput", err)
	}
	if _, err := NormalizeTitle(strings.Repeat("x", MaxTitleLen+1)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("long title: err = %v, want ErrInvalidInput", err)
	}
}

func TestNewProfile_Defaults(t *testing.T) {
	p := NewProfile("u1")
	if p.XP != 0 || p.Level != 1 || p.CurrentStreak != 0 || p.LastCompletionDate != nil {
		t.Errorf("unexpected defaults: %+v", p)
	}
}
