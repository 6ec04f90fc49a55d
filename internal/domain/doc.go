// Package domain models heat-illness risk for an enclosed vehicle cabin.
//
// # Heat Index
//
// The heat index (HI) is the apparent temperature that combines air temperature
// and relative humidity. All values are in degrees Fahrenheit; humidity is a
// percentage (0–100).
//
// Two regimes are used:
//
//	Simple:   HI = 0.5 * (T + 61 + (T - 68) * 1.2 + R * 0.094)
//	Steadman: HI = -42.379 + 2.04901523T + 10.14333127R - 0.22475541TR
//	               - 6.83783e-3T² - 5.481717e-2R² + 1.22874e-3T²R
//	               + 8.5282e-4TR² - 1.99e-6T²R²
//
// The simple value is returned when it is below 80°F; otherwise the full
// Steadman regression replaces it. The NWS low-humidity and high-humidity
// adjustment terms are not applied. Inputs are not validated: values outside
// the simulation range produce whatever the polynomial yields.
//
// # Risk Categories
//
// Derived from HI using the NWS heat index scale with inclusive lower bounds:
//
//	HI < 90          Caution
//	90 <= HI < 103   Extreme Caution
//	103 <= HI < 125  Danger
//	HI >= 125        Extreme Danger
//
// The enum order is the one-hot column order used by the classifier.
//
// # Features
//
// The classifier sees (T/120, R/100). The divisors are fixed constants, not
// fitted statistics, so the same scaling applies at training and scoring time.
//
// # Telemetry
//
// Cabin devices publish readings in Celsius with an optional timestamp that is
// either an RFC 3339 string or epoch milliseconds. Small integers are device
// uptime counters (millis() since boot) and cannot be placed on the wall clock;
// those readings fall back to the message timestamp. See [ParseReading].
package domain
