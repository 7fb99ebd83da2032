package services

import (
	"testing"

	domain "github.com/parcelio/api/internal/domain"
)

func TestResolveCityTier(t *testing.T) {
	cases := []struct {
		city string
		want CityTier
	}{
		{"Cairo", TierCairo},
		{"Giza", TierCairo},
		{"Qalyubia", TierCairo},
		{"Alexandria", TierAlexandria},
		{"Matrouh", TierAlexandria},
		{"Port Said", TierDeltaCanal},
		{"Kafr el-Sheikh", TierDeltaCanal},
		{"Aswan", TierUpperRed},
		{"New Valley", TierUpperRed},
		{"Atlantis", TierCairo},
		{"", TierCairo},
	}
	for _, tc := range cases {
		if got := ResolveCityTier(tc.city); got != tc.want {
			t.Errorf("ResolveCityTier(%q) = %q, want %q", tc.city, got, tc.want)
		}
	}
}

func TestCalculateOrderFee(t *testing.T) {
	cases := []struct {
		name      string
		city      string
		orderType domain.OrderType
		isExpress bool
		want      int64
	}{
		{"cairo deliver", "Cairo", domain.OrderTypeDeliver, false, 80},
		{"cairo return", "Giza", domain.OrderTypeReturn, false, 70},
		{"cairo cash collection", "Qalyubia", domain.OrderTypeCashCollection, false, 70},
		{"cairo exchange", "Cairo", domain.OrderTypeExchange, false, 95},
		{"alexandria deliver", "Alexandria", domain.OrderTypeDeliver, false, 85},
		{"delta exchange", "Sharqia", domain.OrderTypeExchange, false, 106},
		{"upper deliver", "Luxor", domain.OrderTypeDeliver, false, 116},
		{"express doubles", "Cairo", domain.OrderTypeDeliver, true, 160},
		{"express upper exchange", "Aswan", domain.OrderTypeExchange, true, 262},
		{"unknown city falls back to cairo", "Nowhere", domain.OrderTypeDeliver, false, 80},
		{"unpriced type", "Cairo", domain.OrderTypeSignAndReturn, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculateOrderFee(tc.city, tc.orderType, tc.isExpress); got != tc.want {
				t.Errorf("CalculateOrderFee(%q, %q, %v) = %d, want %d", tc.city, tc.orderType, tc.isExpress, got, tc.want)
			}
		})
	}
}

func TestCalculatePickupFee(t *testing.T) {
	cases := []struct {
		name        string
		city        string
		pickedCount int
		want        int64
	}{
		{"cairo full run", "Cairo", 3, 50},
		{"cairo big run", "Giza", 10, 50},
		{"cairo small run surcharge", "Cairo", 2, 65},
		{"cairo empty run surcharge", "Cairo", 0, 65},
		{"alexandria small run rounds up", "Alexandria", 1, 72},
		{"delta small run", "Suez", 2, 78},
		{"upper small run", "Qena", 1, 104},
		{"upper full run", "Qena", 5, 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculatePickupFee(tc.city, tc.pickedCount); got != tc.want {
				t.Errorf("CalculatePickupFee(%q, %d) = %d, want %d", tc.city, tc.pickedCount, got, tc.want)
			}
		})
	}
}
