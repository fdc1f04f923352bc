package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewDaySet(t *testing.T) {
	ds, err := NewDaySet([]int{0, 2, 4})
	if err != nil {
		t.Fatalf("new day set: %v", err)
	}

	for _, d := range []int{0, 2, 4} {
		if !ds.Has(d) {
			t.Errorf("expected day %d in set", d)
		}
	}
	for _, d := range []int{1, 3, 5, 6} {
		if ds.Has(d) {
			t.Errorf("unexpected day %d in set", d)
		}
	}
}

func TestNewDaySet_OutOfRange(t *testing.T) {
	for _, days := range [][]int{{7}, {-1}, {0, 1, 9}} {
		_, err := NewDaySet(days)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("days %v: expected ValidationError, got %v", days, err)
		}
	}
}

func TestDaySet_Duplicates(t *testing.T) {
	ds, err := NewDaySet([]int{1, 1, 1})
	if err != nil {
		t.Fatalf("new day set: %v", err)
	}
	if got := ds.Days(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected [1], got %v", got)
	}
}

func TestDaySet_JSONRoundTrip(t *testing.T) {
	ds, _ := NewDaySet([]int{4, 0, 2})

	data, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// 序列化始终是升序数组
	if string(data) != "[0,2,4]" {
		t.Fatalf("expected [0,2,4], got %s", data)
	}

	var back DaySet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != ds {
		t.Fatalf("round trip mismatch: %v != %v", back, ds)
	}
}

func TestWeekdayIndex(t *testing.T) {
	cases := map[time.Weekday]int{
		time.Monday:    0,
		time.Tuesday:   1,
		time.Wednesday: 2,
		time.Thursday:  3,
		time.Friday:    4,
		time.Saturday:  5,
		time.Sunday:    6,
	}
	for wd, want := range cases {
		if got := WeekdayIndex(wd); got != want {
			t.Errorf("WeekdayIndex(%v) = %d, want %d", wd, got, want)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tod.Hour != 8 || tod.Minute != 30 {
		t.Fatalf("expected 08:30, got %v", tod)
	}
	if tod.String() != "08:30" {
		t.Fatalf("string: expected 08:30, got %s", tod.String())
	}

	for _, s := range []string{"25:00", "8:3:1", "morning", "12:60", ""} {
		if _, err := ParseTimeOfDay(s); err == nil {
			t.Errorf("expected error parsing %q", s)
		}
	}
}

func TestTimeOfDay_Matches(t *testing.T) {
	tod := TimeOfDay{Hour: 9, Minute: 15}

	hit := time.Date(2026, 3, 2, 9, 15, 42, 0, time.Local)
	if !tod.Matches(hit) {
		t.Error("expected 09:15:42 to match 09:15")
	}

	miss := time.Date(2026, 3, 2, 9, 16, 0, 0, time.Local)
	if tod.Matches(miss) {
		t.Error("expected 09:16 not to match 09:15")
	}
}

func TestScheduleInput_Validate(t *testing.T) {
	valid := ScheduleInput{
		ReportType: ReportTypeDaily,
		Tone:       ToneProfessional,
		Days:       []int{0, 1, 2, 3, 4},
		Time:       "17:30",
	}

	days, tod, err := valid.Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if days.Empty() || !days.Has(4) || days.Has(5) {
		t.Fatalf("unexpected day set: %v", days.Days())
	}
	if tod.Hour != 17 || tod.Minute != 30 {
		t.Fatalf("unexpected time: %v", tod)
	}

	cases := []struct {
		name  string
		in    ScheduleInput
		field string
	}{
		{"bad report type", ScheduleInput{ReportType: "monthly", Tone: ToneCasual, Days: []int{0}, Time: "08:00"}, "report_type"},
		{"bad tone", ScheduleInput{ReportType: ReportTypeDaily, Tone: "angry", Days: []int{0}, Time: "08:00"}, "tone"},
		{"empty days", ScheduleInput{ReportType: ReportTypeDaily, Tone: ToneCasual, Days: nil, Time: "08:00"}, "days"},
		{"day out of range", ScheduleInput{ReportType: ReportTypeDaily, Tone: ToneCasual, Days: []int{8}, Time: "08:00"}, "days"},
		{"bad time", ScheduleInput{ReportType: ReportTypeDaily, Tone: ToneCasual, Days: []int{0}, Time: "8am"}, "time"},
	}
	for _, tc := range cases {
		_, _, err := tc.in.Validate()
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if vErr.Field != tc.field {
			t.Errorf("%s: expected field %q, got %q", tc.name, tc.field, vErr.Field)
		}
	}
}

func TestGenerationRequest_DefaultTone(t *testing.T) {
	req := GenerationRequest{ReportType: ReportTypeWeekly}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if req.Tone != ToneProfessional {
		t.Fatalf("expected default tone professional, got %q", req.Tone)
	}
}

func TestActivitySummary_TopAppsLine(t *testing.T) {
	empty := ActivitySummary{}
	if got := empty.TopAppsLine(); got != "No activity tracked yet" {
		t.Fatalf("empty summary: got %q", got)
	}

	s := ActivitySummary{TopApps: []AppUsage{
		{App: "Safari", Seconds: 1920},
		{App: "Xcode", Seconds: 1080},
	}}
	want := "Safari (32 min), Xcode (18 min)"
	if got := s.TopAppsLine(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
