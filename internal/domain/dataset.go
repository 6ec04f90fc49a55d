package domain

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Simulation ranges for synthetic cabin conditions.
const (
	MinTemperatureF = 70.0
	MaxTemperatureF = 110.0
	MinHumidity     = 30.0
	MaxHumidity     = 95.0
)

// Sample is one (temperature, humidity) observation.
type Sample struct {
	TemperatureF float64 `json:"temp_f"`
	Humidity     float64 `json:"humidity"`
}

// LabeledSample is a Sample with its derived heat index and risk category.
type LabeledSample struct {
	Sample
	HeatIndex float64      `json:"heat_index"`
	Category  RiskCategory `json:"category"`
}

// Label derives the heat index and category for s.
func Label(s Sample) LabeledSample {
	hi := HeatIndex(s.TemperatureF, s.Humidity)
	return LabeledSample{Sample: s, HeatIndex: hi, Category: Categorize(hi)}
}

// Dataset is an ordered collection of labeled samples. Treat it as immutable.
type Dataset []LabeledSample

// newSource returns a PCG source for seed. The stream constant keeps the
// generator, split and weight-init sequences independent for the same seed.
func newSource(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

const (
	generateStream uint64 = 0x6865617469647831 // "heatidx1"
	splitStream    uint64 = 0x73706c6974303031 // "split001"
)

// GenerateDataset draws n samples uniformly from the simulation ranges and
// labels them. All temperatures are drawn before all humidities, so the same
// seed always yields the same dataset.
func GenerateDataset(n int, seed uint64) Dataset {
	if n <= 0 {
		return Dataset{}
	}
	src := newSource(seed, generateStream)
	temps := distuv.Uniform{Min: MinTemperatureF, Max: MaxTemperatureF, Src: src}
	hums := distuv.Uniform{Min: MinHumidity, Max: MaxHumidity, Src: src}

	t := make([]float64, n)
	for i := range t {
		t[i] = temps.Rand()
	}
	ds := make(Dataset, n)
	for i := range ds {
		ds[i] = Label(Sample{TemperatureF: t[i], Humidity: hums.Rand()})
	}
	return ds
}

// Split shuffles the dataset with a seeded permutation and returns
// (train, test). The test set receives ceil(len*testFraction) samples.
func (d Dataset) Split(testFraction float64, seed uint64) (train, test Dataset) {
	n := len(d)
	if n == 0 {
		return Dataset{}, Dataset{}
	}
	nTest := int(math.Ceil(float64(n)*testFraction - 1e-9))
	nTest = max(0, min(nTest, n))

	perm := newSource(seed, splitStream).Perm(n)
	test = make(Dataset, 0, nTest)
	train = make(Dataset, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, d[idx])
		} else {
			train = append(train, d[idx])
		}
	}
	return train, test
}

// CategoryCounts tallies samples per risk category.
func (d Dataset) CategoryCounts() [NumCategories]int {
	var counts [NumCategories]int
	for i := range d {
		if d[i].Category.Valid() {
			counts[d[i].Category]++
		}
	}
	return counts
}

// Features returns the normalized feature rows for the classifier.
func (d Dataset) Features() [][]float64 {
	rows := make([][]float64, len(d))
	for i := range d {
		x := Normalize(d[i].Sample)
		rows[i] = x[:]
	}
	return rows
}

// Labels returns the one-hot encoded label rows for the classifier.
func (d Dataset) Labels() [][]float64 {
	rows := make([][]float64, len(d))
	for i := range d {
		y := OneHot(d[i].Category)
		rows[i] = y[:]
	}
	return rows
}
