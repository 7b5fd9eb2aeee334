package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pitchctl/internal/control"
	"github.com/san-kum/pitchctl/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var csvHeader = []string{"time", "pitch", "pitch_rate", "pwm"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Controller string             `json:"controller"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Period     float64            `json:"period"`
	Duration   float64            `json:"duration"`
	Params     control.Params     `json:"params"`
	Metrics    map[string]float64 `json:"metrics"`
	Errors     []string           `json:"errors,omitempty"`
}

// Save writes meta and the per-tick series of result under a new run
// directory. ID and Timestamp are assigned here.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Controller, now.UnixNano())
	meta.Timestamp = now
	meta.Metrics = result.Metrics
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result); err != nil {
		return "", fmt.Errorf("write states: %w", err)
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStates(path string, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for j := 0; j < 2; j++ {
			val := 0.0
			if j < len(result.States[i]) {
				val = result.States[i][j]
			}
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		// The final state has no command after it; repeat the last one.
		pwm := ""
		if n := len(result.Controls); n > 0 {
			k := i
			if k >= n {
				k = n - 1
			}
			if len(result.Controls[k]) > 0 {
				pwm = strconv.Itoa(int(result.Controls[k][0]))
			}
		}
		row = append(row, pwm)

		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Sample is one row of a stored run.
type Sample struct {
	Time      float64 `json:"time"`
	Pitch     float64 `json:"pitch"`
	PitchRate float64 `json:"pitch_rate"`
	PWM       int     `json:"pwm"`
}

func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		var smp Sample
		if smp.Time, err = strconv.ParseFloat(record[0], 64); err != nil {
			continue
		}
		if smp.Pitch, err = strconv.ParseFloat(record[1], 64); err != nil {
			continue
		}
		if smp.PitchRate, err = strconv.ParseFloat(record[2], 64); err != nil {
			continue
		}
		if len(record) > 3 && record[3] != "" {
			if smp.PWM, err = strconv.Atoi(record[3]); err != nil {
				continue
			}
		}
		samples = append(samples, smp)
	}
	return samples, nil
}
