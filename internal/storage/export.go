package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/frictionlab/internal/experiment"
)

type ExportData struct {
	Run     RunMetadata         `json:"run"`
	Samples []experiment.Sample `json:"samples"`
}

// Export collects everything stored for a run.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: *meta, Samples: samples}, nil
}

// ExportJSON writes data to path, or to stdout when path is "-".
func ExportJSON(path string, data *ExportData) error {
	return withOutput(path, func(w io.Writer) error {
		return WriteJSON(w, data)
	})
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes the samples of data to path, or to stdout when path is "-".
func ExportCSV(path string, data *ExportData) error {
	return withOutput(path, func(w io.Writer) error {
		return WriteCSV(w, data.Samples)
	})
}

func WriteCSV(w io.Writer, samples []experiment.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(samplesHeader); err != nil {
		return err
	}
	return cw.WriteAll(sampleRows(samples))
}

func withOutput(path string, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(os.Stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
