package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/san-kum/frictionlab/internal/experiment"
)

const (
	metadataFile   = "metadata.json"
	samplesFile    = "samples.csv"
	trajectoryFile = "trajectory.csv"
	descriptorDir  = "descriptors"
)

var ErrRunNotFound = errors.New("storage: run not found")

var samplesHeader = []string{"index", "entity", "friction", "initial_x", "position_x", "linear_velocity_x", "displacement_x"}

var trajectoryHeader = []string{"step", "entity", "x", "y", "z", "vx", "vy", "vz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how a run was produced.
type RunInfo struct {
	Name  string
	World experiment.WorldOptions
}

type DescriptorMeta struct {
	Entity      string `json:"entity"`
	Fingerprint string `json:"fingerprint"`
	File        string `json:"file"`
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	Backend       string             `json:"backend"`
	Integrator    string             `json:"integrator"`
	StepSize      float64            `json:"step_size"`
	Steps         int                `json:"steps"`
	Mass          float64            `json:"mass"`
	Edge          float64            `json:"edge"`
	ForceDuration float64            `json:"force_duration"`
	Frictions     []float64          `json:"frictions"`
	Entities      []string           `json:"entities"`
	Descriptors   []DescriptorMeta   `json:"descriptors"`
	Metrics       map[string]float64 `json:"metrics"`
}

func (s *Store) Save(info RunInfo, cfg experiment.Config, result *experiment.Result) (string, error) {
	name := info.Name
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%d_%s", name, time.Now().Unix(), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(filepath.Join(runDir, descriptorDir), 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Name:          name,
		Timestamp:     time.Now(),
		Backend:       info.World.Backend,
		Integrator:    info.World.Integrator,
		StepSize:      info.World.StepSize,
		Steps:         result.Steps,
		Mass:          cfg.Mass,
		Edge:          cfg.Edge,
		ForceDuration: cfg.ForceDuration,
		Frictions:     cfg.Frictions(),
		Entities:      result.Entities,
		Metrics:       result.Metrics,
	}
	if err := writeRun(runDir, meta, result); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

// writeRun fills runDir. Metadata goes last so a run is listed only once
// its data is on disk.
func writeRun(runDir string, meta RunMetadata, result *experiment.Result) error {
	for _, d := range result.Descriptors {
		file := filepath.Join(descriptorDir, d.Entity+".urdf")
		if err := os.WriteFile(filepath.Join(runDir, file), d.Data, 0644); err != nil {
			return err
		}
		meta.Descriptors = append(meta.Descriptors, DescriptorMeta{
			Entity:      d.Entity,
			Fingerprint: d.Fingerprint,
			File:        file,
		})
	}

	if err := writeCSV(filepath.Join(runDir, samplesFile), samplesHeader, sampleRows(result.Samples)); err != nil {
		return err
	}
	if len(result.Trajectory) > 0 {
		if err := writeCSV(filepath.Join(runDir, trajectoryFile), trajectoryHeader, trajectoryRows(result.Trajectory)); err != nil {
			return err
		}
	}
	return writeJSON(filepath.Join(runDir, metadataFile), meta)
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

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sampleRows(samples []experiment.Sample) [][]string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			s.Entity,
			formatFloat(s.Friction),
			formatFloat(s.InitialX),
			formatFloat(s.PositionX),
			formatFloat(s.LinearVelocityX),
			formatFloat(s.DisplacementX),
		})
	}
	return rows
}

func trajectoryRows(snaps []experiment.Snapshot) [][]string {
	rows := make([][]string, 0, len(snaps)*5)
	for _, snap := range snaps {
		for i, name := range snap.Entities {
			p, v := snap.Positions[i], snap.Velocities[i]
			rows = append(rows, []string{
				strconv.Itoa(snap.Step),
				name,
				strconv.FormatFloat(p.X(), 'f', 6, 64),
				strconv.FormatFloat(p.Y(), 'f', 6, 64),
				strconv.FormatFloat(p.Z(), 'f', 6, 64),
				strconv.FormatFloat(v.X(), 'f', 6, 64),
				strconv.FormatFloat(v.Y(), 'f', 6, 64),
				strconv.FormatFloat(v.Z(), 'f', 6, 64),
			})
		}
	}
	return rows
}

// List returns the stored runs, newest first.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// Descriptor returns the stored descriptor document of entity.
func (s *Store) Descriptor(runID, entity string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, descriptorDir, entity+".urdf"))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, entity)
	}
	return data, err
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
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
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadSamples(runID string) ([]experiment.Sample, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	samples := make([]experiment.Sample, 0, len(records))
	for line, record := range records {
		if len(record) != len(samplesHeader) {
			return nil, fmt.Errorf("%s line %d: %d fields", samplesFile, line+2, len(record))
		}
		idx, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", samplesFile, line+2, err)
		}
		vals, err := parseFloats(record[2:])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", samplesFile, line+2, err)
		}
		samples = append(samples, experiment.Sample{
			Index:           idx,
			Entity:          record[1],
			Friction:        vals[0],
			InitialX:        vals[1],
			PositionX:       vals[2],
			LinearVelocityX: vals[3],
			DisplacementX:   vals[4],
		})
	}
	return samples, nil
}

// LoadTrajectory rebuilds the recorded snapshots. A run stored without a
// trajectory yields none.
func (s *Store) LoadTrajectory(runID string) ([]experiment.Snapshot, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snaps []experiment.Snapshot
	for line, record := range records {
		if len(record) != len(trajectoryHeader) {
			return nil, fmt.Errorf("%s line %d: %d fields", trajectoryFile, line+2, len(record))
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
		}
		vals, err := parseFloats(record[2:])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, err)
		}

		if len(snaps) == 0 || snaps[len(snaps)-1].Step != step {
			snaps = append(snaps, experiment.Snapshot{Step: step})
		}
		snap := &snaps[len(snaps)-1]
		snap.Entities = append(snap.Entities, record[1])
		snap.Positions = append(snap.Positions, mgl64.Vec3{vals[0], vals[1], vals[2]})
		snap.Velocities = append(snap.Velocities, mgl64.Vec3{vals[3], vals[4], vals[5]})
	}
	return snaps, nil
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
