package canteen

// Published price table for hostel and staff flows, in minor units.
// Guest/walk-in bills accept arbitrary manually entered amounts; these values
// are the defaults upstream callers bill registered customers at and the rates
// statements estimate meal costs with.
const (
    PriceBreakfastMinor int64 = 2000
    PriceLunchMinor     int64 = 4000
    PriceDinnerMinor    int64 = 4000
)

// PriceMinor returns the published price for a meal type.
func PriceMinor(m MealType) int64 {
    switch m {
    case MealBreakfast:
        return PriceBreakfastMinor
    case MealLunch:
        return PriceLunchMinor
    case MealDinner:
        return PriceDinnerMinor
    }
    return 0
}
