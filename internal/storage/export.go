package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/pitchctl/internal/control"
)

type ExportData struct {
	Run     RunMetadata `json:"run"`
	Samples []Sample    `json:"samples"`
}

// ExportJSON writes one run, metadata and samples, as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Samples: samples})
}

// ExportCSV writes the samples of one run with pitch also in degrees.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "pitch", "pitch_deg", "pitch_rate", "pwm"}); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			strconv.FormatFloat(smp.Time, 'f', 6, 64),
			strconv.FormatFloat(smp.Pitch, 'f', 6, 64),
			strconv.FormatFloat(control.RadiansToDegrees(smp.Pitch), 'f', 3, 64),
			strconv.FormatFloat(smp.PitchRate, 'f', 6, 64),
			strconv.Itoa(smp.PWM),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
