// Command validate runs integrity checks over the heat-risk stack: the heat
// index labeler, the synthetic dataset generator, an optional exported dataset
// file, and a trained model file. It evaluates the model on a freshly
// generated dataset the model never saw.
//
// Usage:
//
//	go run ./cmd/validate -model prescriptive_model_nws.json
//	go run ./cmd/validate -model prescriptive_model_nws.json -dataset data/heat_risk_dataset.json -min-accuracy 0.8
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/model"
)

// scenario is a hand-checked heat index case.
type scenario struct {
	tempF, humidity float64
	heatIndex       float64
	category        domain.RiskCategory
}

var scenarios = []scenario{
	{tempF: 104, humidity: 70, heatIndex: 161.404, category: domain.ExtremeDanger},
	{tempF: 92, humidity: 50, heatIndex: 98.547, category: domain.ExtremeCaution},
	{tempF: 70, humidity: 30, heatIndex: 68.11, category: domain.Caution},
	{tempF: 90, humidity: 40, heatIndex: 90.680, category: domain.ExtremeCaution},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelPath := flag.String("model", "prescriptive_model_nws.json", "path to the trained model JSON")
	datasetPath := flag.String("dataset", "", "optional dataset JSON written by gendata")
	evalSeed := flag.Uint64("eval-seed", 4242, "seed of the held-out evaluation dataset")
	evalN := flag.Int("eval-n", 2000, "size of the held-out evaluation dataset")
	minAccuracy := flag.Float64("min-accuracy", 0.6, "minimum accuracy on the evaluation dataset")
	flag.Parse()

	if *modelPath == "" || *evalN <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*modelPath, *datasetPath, *evalSeed, *evalN, *minAccuracy))
}

func run(modelPath, datasetPath string, evalSeed uint64, evalN int, minAccuracy float64) int {
	fmt.Println("=== Heat Risk Model Validation ===")
	fmt.Println()

	net, err := model.LoadFile(modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load model: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateLabeler(),
		validateGenerator(),
	}
	if datasetPath != "" {
		phases = append(phases, validateDatasetFile(datasetPath))
	}
	eval := domain.GenerateDataset(evalN, evalSeed)
	phases = append(phases,
		validateModelShape(net),
		validateModelAccuracy(net, eval, minAccuracy),
	)

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for i, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  Phase %d: %-38s %s\n", i+1, p.name, status)
	}

	fmt.Println()
	meta := net.Metadata
	fmt.Printf("Model: %s (seed %d, %d epochs, trained %s)\n", modelPath, meta.Seed, meta.Epochs, meta.TrainedAt.Format("2006-01-02 15:04 MST"))
	fmt.Printf("Evaluation set: %d samples, seed %d\n", evalN, evalSeed)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase: Labeler ──
// Checks hand-computed scenarios, regime selection, and category bounds.

func validateLabeler() *phase {
	p := &phase{name: "Heat index labeler"}

	for _, s := range scenarios {
		hi := domain.HeatIndex(s.tempF, s.humidity)
		if math.Abs(hi-s.heatIndex) > 0.01 {
			p.errorf("HI(%g, %g) = %.3f, want %.3f", s.tempF, s.humidity, hi, s.heatIndex)
		}
		if c := domain.Categorize(hi); c != s.category {
			p.errorf("category(%g, %g) = %s, want %s", s.tempF, s.humidity, c, s.category)
		}
	}

	for t := 0.0; t <= 130; t += 0.5 {
		for r := 0.0; r <= 100; r += 2.5 {
			simple := domain.SimpleHeatIndex(t, r)
			hi := domain.HeatIndex(t, r)
			if simple < 80 && hi != simple {
				p.errorf("HI(%g, %g) = %g, want simple %g", t, r, hi, simple)
			}
			if simple >= 80 && hi != domain.SteadmanHeatIndex(t, r) {
				p.errorf("HI(%g, %g) = %g, want polynomial %g", t, r, hi, domain.SteadmanHeatIndex(t, r))
			}
		}
	}

	bounds := []struct {
		hi   float64
		want domain.RiskCategory
	}{
		{89.999, domain.Caution},
		{domain.ExtremeCautionThreshold, domain.ExtremeCaution},
		{domain.DangerThreshold, domain.Danger},
		{domain.ExtremeDangerThreshold, domain.ExtremeDanger},
	}
	for _, b := range bounds {
		if c := domain.Categorize(b.hi); c != b.want {
			p.errorf("category(%g) = %s, want %s", b.hi, c, b.want)
		}
	}

	prev := domain.Caution
	for hi := 60.0; hi <= 200; hi += 0.25 {
		c := domain.Categorize(hi)
		if c < prev {
			p.errorf("category not monotonic at HI %g: %s after %s", hi, c, prev)
			break
		}
		prev = c
	}
	return p
}

// ── Phase: Generator ──
// Checks determinism, ranges, labels, and split sizes.

func validateGenerator() *phase {
	p := &phase{name: "Dataset generator"}

	a := domain.GenerateDataset(1000, 42)
	b := domain.GenerateDataset(1000, 42)
	if !slices.Equal(a, b) {
		p.errorf("same seed produced different datasets")
	}
	if slices.Equal(a, domain.GenerateDataset(1000, 43)) {
		p.errorf("different seeds produced identical datasets")
	}
	checkSamples(p, a)

	train, test := a.Split(0.2, 42)
	if len(train) != 800 || len(test) != 200 {
		p.errorf("split sizes: train=%d test=%d, want 800/200", len(train), len(test))
	}
	return p
}

// ── Phase: Dataset file ──

func validateDatasetFile(path string) *phase {
	p := &phase{name: "Dataset file"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read: %v", err)
		return p
	}
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		p.errorf("decode: %v", err)
		return p
	}
	if len(ds) == 0 {
		p.errorf("dataset is empty")
	}
	checkSamples(p, ds)
	return p
}

func checkSamples(p *phase, ds domain.Dataset) {
	for i, s := range ds {
		if s.TemperatureF < domain.MinTemperatureF || s.TemperatureF >= domain.MaxTemperatureF {
			p.errorf("sample %d: temperature %g outside [%g, %g)", i, s.TemperatureF, domain.MinTemperatureF, domain.MaxTemperatureF)
		}
		if s.Humidity < domain.MinHumidity || s.Humidity >= domain.MaxHumidity {
			p.errorf("sample %d: humidity %g outside [%g, %g)", i, s.Humidity, domain.MinHumidity, domain.MaxHumidity)
		}
		want := domain.Label(s.Sample)
		if math.Abs(want.HeatIndex-s.HeatIndex) > 1e-9 || want.Category != s.Category {
			p.errorf("sample %d: label %s (HI %g), want %s (HI %g)", i, s.Category, s.HeatIndex, want.Category, want.HeatIndex)
		}
	}
}

// ── Phase: Model shape ──

func validateModelShape(net *model.Network) *phase {
	p := &phase{name: "Model structure"}

	if _, err := model.NewClassifier(net); err != nil {
		p.errorf("%v", err)
		return p
	}
	want := []string{"caution", "extreme_caution", "danger", "extreme_danger"}
	if c := net.Metadata.Classes; len(c) > 0 && !slices.Equal(c, want) {
		p.errorf("class order %v, want %v", c, want)
	}

	probe := domain.GenerateDataset(64, 1).Features()
	rows, err := net.Predict(probe)
	if err != nil {
		p.errorf("predict: %v", err)
		return p
	}
	for i, row := range rows {
		if sum := floats.Sum(row); math.Abs(sum-1) > 1e-6 {
			p.errorf("probe %d: probabilities sum to %g", i, sum)
		}
		for _, v := range row {
			if v < 0 || v > 1 || math.IsNaN(v) {
				p.errorf("probe %d: probability %g out of range", i, v)
				break
			}
		}
	}
	return p
}

// ── Phase: Model accuracy ──

func validateModelAccuracy(net *model.Network, eval domain.Dataset, minAccuracy float64) *phase {
	p := &phase{name: "Model accuracy (held-out)"}

	loss, acc, err := net.Evaluate(eval.Features(), eval.Labels())
	if err != nil {
		p.errorf("evaluate: %v", err)
		return p
	}
	fmt.Printf("Held-out loss %.4f, accuracy %.4f\n", loss, acc)
	if acc < minAccuracy {
		p.errorf("accuracy %.4f below minimum %.4f", acc, minAccuracy)
	}

	classifier, err := model.NewClassifier(net)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	// Extreme conditions must never be classified as plain caution.
	for _, s := range []domain.Sample{{TemperatureF: 109, Humidity: 94}, {TemperatureF: 108, Humidity: 85}} {
		if c := classifier.Predict(s).Category; c == domain.Caution {
			p.errorf("%gF/%g%% predicted %s", s.TemperatureF, s.Humidity, c)
		}
	}
	return p
}
