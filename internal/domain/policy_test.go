package domain

import (
	"testing"
	"time"
)

func TestCanAwardReviewCredit(t *testing.T) {
	t.Parallel()

	if !CanAwardReviewCredit(0, DefaultWeeklyReviewCap) {
		t.Fatal("first review of the week should be eligible")
	}
	if !CanAwardReviewCredit(1, DefaultWeeklyReviewCap) {
		t.Fatal("second review of the week should be eligible")
	}
	if CanAwardReviewCredit(2, DefaultWeeklyReviewCap) {
		t.Fatal("third review of the week should hit the cap")
	}
}

func TestStartOfWeek(t *testing.T) {
	t.Parallel()

	wednesday := time.Date(2024, 7, 17, 15, 0, 0, 0, time.UTC)
	want := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	if got := StartOfWeek(wednesday); !got.Equal(want) {
		t.Fatalf("StartOfWeek(%v) = %v, want %v", wednesday, got, want)
	}

	monday := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	if got := StartOfWeek(monday); !got.Equal(monday) {
		t.Fatalf("StartOfWeek(monday midnight) = %v, want itself", got)
	}

	sunday := time.Date(2024, 7, 21, 23, 59, 0, 0, time.UTC)
	if got := StartOfWeek(sunday); !got.Equal(want) {
		t.Fatalf("StartOfWeek(sunday) = %v, want %v", got, want)
	}
}
