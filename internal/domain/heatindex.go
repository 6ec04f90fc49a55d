package domain

// simpleRegimeLimit is the simple-formula value at and above which the
// Steadman regression is used instead.
const simpleRegimeLimit = 80.0

// HeatIndex returns the apparent temperature in °F for an air temperature in °F
// and a relative humidity in percent.
func HeatIndex(tempF, humidity float64) float64 {
	hi := SimpleHeatIndex(tempF, humidity)
	if hi < simpleRegimeLimit {
		return hi
	}
	return SteadmanHeatIndex(tempF, humidity)
}

// SimpleHeatIndex is the linear approximation used below 80°F.
func SimpleHeatIndex(tempF, humidity float64) float64 {
	return 0.5 * (tempF + 61.0 + ((tempF - 68.0) * 1.2) + (humidity * 0.094))
}

// SteadmanHeatIndex is the nine-term Rothfusz/Steadman regression.
func SteadmanHeatIndex(tempF, humidity float64) float64 {
	t, r := tempF, humidity
	t2, r2 := t*t, r*r
	return -42.379 +
		2.04901523*t +
		10.14333127*r -
		0.22475541*t*r -
		6.83783e-3*t2 -
		5.481717e-2*r2 +
		1.22874e-3*t2*r +
		8.5282e-4*t*r2 -
		1.99e-6*t2*r2
}

// CelsiusToFahrenheit converts a cabin sensor temperature to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}
