// Command gendata writes the synthetic heat-risk dataset used for training so
// it can be inspected or reused outside the trainer. It uses the same domain
// generator and labeler as training, so the output matches a training run with
// the same seed. With -publish it also replays the samples as cabin telemetry
// onto the source Kafka topic, which is handy for exercising riskscore.
//
// Usage:
//
//	go run ./cmd/gendata -out data/heat_risk_dataset.json
//	go run ./cmd/gendata -out data/heat_risk_dataset.csv -n 5000 -seed 7
//	KAFKA_BROKERS=localhost:9092 go run ./cmd/gendata -out /tmp/ds.json -publish -devices 5
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/config"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path; .csv writes CSV, anything else JSON")
	n := flag.Int("n", 1000, "number of samples")
	seed := flag.Uint64("seed", 42, "dataset seed")
	publish := flag.Bool("publish", false, "also publish samples as telemetry to KAFKA_SOURCE_TOPIC")
	devices := flag.Int("devices", 3, "number of simulated cabins when publishing")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *n <= 0 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}

	ds := domain.GenerateDataset(*n, *seed)
	log.Printf("generated %d samples (seed %d)", len(ds), *seed)

	var err error
	if strings.EqualFold(filepath.Ext(*out), ".csv") {
		err = writeCSV(*out, ds)
	} else {
		err = writeJSON(*out, ds)
	}
	if err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	log.Printf("wrote dataset: %s", *out)

	printStats(ds)

	if *publish {
		if *devices <= 0 {
			return fmt.Errorf("-devices must be positive, got %d", *devices)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := publishTelemetry(context.Background(), cfg, ds, *devices); err != nil {
			return fmt.Errorf("publishing telemetry: %w", err)
		}
		log.Printf("published %d readings to %s", len(ds), cfg.KafkaSourceTopic)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func writeCSV(path string, ds domain.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"temp_f", "humidity", "heat_index", "category"}); err != nil {
		return err
	}
	for _, s := range ds {
		if err := w.Write([]string{
			strconv.FormatFloat(s.TemperatureF, 'f', -1, 64),
			strconv.FormatFloat(s.Humidity, 'f', -1, 64),
			strconv.FormatFloat(s.HeatIndex, 'f', -1, 64),
			s.Category.String(),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// publishTelemetry replays samples round-robin across simulated cabins, one
// second apart, in the JSON shape cabin devices emit.
func publishTelemetry(ctx context.Context, cfg *config.Config, ds domain.Dataset, devices int) error {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSourceTopic,
		Balancer:               &kafkago.Hash{},
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	start := time.Now().UTC().Add(-time.Duration(len(ds)) * time.Second)
	msgs := make([]kafkago.Message, 0, len(ds))
	for i, s := range ds {
		deviceID := fmt.Sprintf("cabin-%03d", i%devices+1)
		payload, err := json.Marshal(map[string]any{
			"device_id": deviceID,
			"temp_c":    (s.TemperatureF - 32) * 5 / 9,
			"humidity":  s.Humidity,
			"timestamp": start.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{Key: []byte(deviceID), Value: payload})
	}
	return w.WriteMessages(ctx, msgs...)
}

func printStats(ds domain.Dataset) {
	counts := ds.CategoryCounts()

	fmt.Println("\n=== Dataset stats ===")
	fmt.Printf("Total: %d\n", len(ds))
	for _, c := range domain.Categories() {
		pct := 0.0
		if len(ds) > 0 {
			pct = 100 * float64(counts[c]) / float64(len(ds))
		}
		fmt.Printf("  %-28s %5d (%4.1f%%)\n", c.Label(), counts[c], pct)
	}

	if len(ds) == 0 {
		return
	}
	minHI, maxHI := ds[0].HeatIndex, ds[0].HeatIndex
	for _, s := range ds[1:] {
		minHI = min(minHI, s.HeatIndex)
		maxHI = max(maxHI, s.HeatIndex)
	}
	fmt.Printf("Heat index range: %.1fF .. %.1fF\n", minHI, maxHI)
}
