package domain

import "testing"

func TestCalculateEarnSubscriptionBulkOrder(t *testing.T) {
	t.Parallel()

	result := CalculateEarn(EarnInput{
		Subtotal:        144,
		CreditsRedeemed: 10,
		MealCount:       12,
		IsSubscription:  true,
		Multiplier:      1,
	})
	if result.Credits != 16.08 {
		t.Fatalf("credits = %v, want 16.08", result.Credits)
	}
	if result.Rate != 0.12 {
		t.Fatalf("rate = %v, want 0.12", result.Rate)
	}
	if result.Earnable != 134 {
		t.Fatalf("earnable = %v, want 134", result.Earnable)
	}
}

func TestCalculateEarnSmallOrderNoSubscription(t *testing.T) {
	t.Parallel()

	result := CalculateEarn(EarnInput{Subtotal: 50, MealCount: 3})
	if result.Rate != 0.04 {
		t.Fatalf("rate = %v, want 0.04", result.Rate)
	}
	if result.Credits != 2.00 {
		t.Fatalf("credits = %v, want 2.00", result.Credits)
	}
}

func TestCalculateEarnZeroMultiplierDefaultsToOne(t *testing.T) {
	t.Parallel()

	withZero := CalculateEarn(EarnInput{Subtotal: 100, MealCount: 5, Multiplier: 0})
	withOne := CalculateEarn(EarnInput{Subtotal: 100, MealCount: 5, Multiplier: 1})
	if withZero != withOne {
		t.Fatalf("zero multiplier %+v, want same as explicit one %+v", withZero, withOne)
	}
}

func TestCalculateEarnRedeemedExceedsSubtotal(t *testing.T) {
	t.Parallel()

	result := CalculateEarn(EarnInput{Subtotal: 20, CreditsRedeemed: 30, MealCount: 2})
	if result.Credits != 0 {
		t.Fatalf("credits = %v, want 0", result.Credits)
	}
	if result.Earnable != 0 {
		t.Fatalf("earnable = %v, want 0", result.Earnable)
	}
}

func TestCalculateEarnMultiplierScalesRate(t *testing.T) {
	t.Parallel()

	result := CalculateEarn(EarnInput{
		Subtotal:       100,
		MealCount:      10,
		IsSubscription: true,
		Multiplier:     1.05,
	})
	if result.Rate != 0.126 {
		t.Fatalf("rate = %v, want 0.126", result.Rate)
	}
	if result.Credits != 12.60 {
		t.Fatalf("credits = %v, want 12.60", result.Credits)
	}
}

func TestRoundCurrencyHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want float64
	}{
		{1.234, 1.23},
		{1.235, 1.24},
		{0.005, 0.01},
		{16.084, 16.08},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundCurrency(tc.in); got != tc.want {
			t.Fatalf("RoundCurrency(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
