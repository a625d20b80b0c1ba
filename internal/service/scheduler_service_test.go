package service

import (
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:30", "0 30 9 * * *", false},
		{" 23:59 ", "0 59 23 * * *", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
		{"1:2:3", "", true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("buildDailySpec(%q) err = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("buildDailySpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildIntervalSpec(t *testing.T) {
	if got, err := buildIntervalSpec(5 * time.Hour); err != nil || got != "@every 18000s" {
		t.Errorf("5h = (%q, %v)", got, err)
	}
	if got, err := buildIntervalSpec(200 * time.Millisecond); err != nil || got != "@every 1s" {
		t.Errorf("200ms = (%q, %v)", got, err)
	}
	if _, err := buildIntervalSpec(0); err == nil {
		t.Error("zero interval accepted")
	}
}

func TestScheduleReportPrefersDailyTime(t *testing.T) {
	loc := time.UTC
	s := NewSchedulerService(loc)
	id, err := s.ScheduleReport("07:15", time.Hour, func() {})
	if err != nil {
		t.Fatalf("ScheduleReport: %v", err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next(id)
	if next.IsZero() {
		t.Fatal("entry has no next run")
	}
	if next.In(loc).Hour() != 7 || next.In(loc).Minute() != 15 {
		t.Errorf("next run at %v, want 07:15", next)
	}
}
