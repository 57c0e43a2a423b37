package report

// Equivalency factors, in kg CO2e per unit of activity. To express an
// emission as an equivalency, divide by the factor.
//
// Source: EPA GHG Equivalencies Calculator (2024 edition), converted from
// miles to kilometres.
const (
	// CarKgPerKm is an average passenger car.
	CarKgPerKm = 0.192 / KmPerMile

	// HomeDayKg is one day of average household electricity.
	HomeDayKg = 18.3

	// TreeSeedlingKg is absorbed by one tree seedling grown for 10 years.
	TreeSeedlingKg = 60.0
)

// Unit conversions.
const (
	KmPerMile  = 1.609344
	KgPerTonne = 1000.0
)

// Display thresholds.
const (
	// MinEquivalencyKg is the smallest emission shown with equivalencies.
	MinEquivalencyKg = 1.0

	// LargeNumberThreshold switches to "~X.X million".
	LargeNumberThreshold = 1_000_000

	// BillionThreshold switches to "~X.X billion".
	BillionThreshold = 1_000_000_000

	// DefaultPrecision is the number of decimals shown for tonnes.
	DefaultPrecision = 1
)
