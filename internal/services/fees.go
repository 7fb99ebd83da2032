package services

import (
	"math"

	domain "github.com/parcelio/api/internal/domain"
)

// CityTier groups governorates into the four delivery pricing bands.
type CityTier string

const (
	TierCairo      CityTier = "Cairo"
	TierAlexandria CityTier = "Alexandria"
	TierDeltaCanal CityTier = "Delta-Canal"
	TierUpperRed   CityTier = "Upper-RedSea"
)

var tierCities = map[CityTier][]string{
	TierCairo:      {"Cairo", "Giza", "Qalyubia"},
	TierAlexandria: {"Alexandria", "Beheira", "Matrouh"},
	TierDeltaCanal: {"Dakahlia", "Sharqia", "Monufia", "Gharbia",
		"Kafr el-Sheikh", "Damietta", "Port Said", "Ismailia", "Suez"},
	TierUpperRed: {"Fayoum", "Beni Suef", "Minya", "Asyut",
		"Sohag", "Qena", "Luxor", "Aswan", "Red Sea",
		"North Sinai", "South Sinai", "New Valley"},
}

var orderBaseFees = map[CityTier]map[domain.OrderType]int64{
	TierCairo:      {domain.OrderTypeDeliver: 80, domain.OrderTypeReturn: 70, domain.OrderTypeCashCollection: 70, domain.OrderTypeExchange: 95},
	TierAlexandria: {domain.OrderTypeDeliver: 85, domain.OrderTypeReturn: 75, domain.OrderTypeCashCollection: 75, domain.OrderTypeExchange: 100},
	TierDeltaCanal: {domain.OrderTypeDeliver: 91, domain.OrderTypeReturn: 81, domain.OrderTypeCashCollection: 81, domain.OrderTypeExchange: 106},
	TierUpperRed:   {domain.OrderTypeDeliver: 116, domain.OrderTypeReturn: 106, domain.OrderTypeCashCollection: 106, domain.OrderTypeExchange: 131},
}

var pickupBaseFees = map[CityTier]int64{
	TierCairo:      50,
	TierAlexandria: 55,
	TierDeltaCanal: 60,
	TierUpperRed:   80,
}

// pickupSmallRunThreshold is the picked-order count below which the surcharge
// multiplier applies.
const (
	pickupSmallRunThreshold  = 3
	pickupSmallRunMultiplier = 1.3
	expressMultiplier        = 2
)

// ResolveCityTier maps a governorate to its pricing tier. Unknown cities fall
// back to the Cairo tier.
func ResolveCityTier(city string) CityTier {
	for tier, cities := range tierCities {
		for _, candidate := range cities {
			if candidate == city {
				return tier
			}
		}
	}
	return TierCairo
}

// CalculateOrderFee prices one order from its destination tier and type.
// Express shipping doubles the base fee. Unpriced order types cost zero.
func CalculateOrderFee(city string, orderType domain.OrderType, isExpress bool) int64 {
	fee := orderBaseFees[ResolveCityTier(city)][orderType]
	if isExpress {
		fee *= expressMultiplier
	}
	return fee
}

// CalculatePickupFee prices a pickup run. Runs below the small-run threshold
// pay a 1.3x surcharge, rounded to the nearest pound.
func CalculatePickupFee(city string, pickedCount int) int64 {
	base := pickupBaseFees[ResolveCityTier(city)]
	if pickedCount < pickupSmallRunThreshold {
		return int64(math.Round(float64(base) * pickupSmallRunMultiplier))
	}
	return base
}
