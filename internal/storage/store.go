package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// ErrNotFound is returned when a snapshot or metadata file does not exist.
var ErrNotFound = errors.New("storage: not found")

const (
	varDir       = "var"
	metadataFile = "metadata.json"
	snapshotExt  = ".csv"
	labelPrefix  = "t="
)

// Store keeps snapshots under <baseDir>/var/<field>/t=<label>.csv, one value
// per row. Values are written with the shortest representation that parses
// back to the same float64.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(filepath.Join(s.baseDir, varDir), 0755)
}

// Path returns the file holding a snapshot.
func (s *Store) Path(field, label string) string {
	return filepath.Join(s.baseDir, varDir, field, labelPrefix+label+snapshotExt)
}

// checkLabel rejects labels that are not a time value, so a snapshot path
// always stays inside var/<field>/.
func checkLabel(label string) error {
	if label == "" || strings.ContainsAny(label, `/\`) || strings.Contains(label, "..") {
		return dynamo.ConfigErrorf("invalid snapshot label %q", label)
	}
	t, err := strconv.ParseFloat(label, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return dynamo.ConfigErrorf("snapshot label %q is not a time value", label)
	}
	return nil
}

// Save writes a snapshot, replacing any earlier one with the same label.
func (s *Store) Save(field, label string, u dynamo.State) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, varDir, field)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	for _, v := range u {
		if err := w.Write([]string{strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(field, label))
}

func (s *Store) Load(field, label string) (dynamo.State, error) {
	if err := checkLabel(label); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path(field, label))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s snapshot t=%s", ErrNotFound, field, label)
		}
		return nil, err
	}
	defer file.Close()
	return readSnapshot(file)
}

func readSnapshot(r io.Reader) (dynamo.State, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	u := make(dynamo.State, 0, len(records))
	for i, record := range records {
		v, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		u = append(u, v)
	}
	return u, nil
}

// Labels lists the stored labels of a field in increasing time order.
func (s *Store) Labels(field string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, varDir, field))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	type entry struct {
		label string
		t     float64
	}
	found := make([]entry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, labelPrefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		label := strings.TrimSuffix(strings.TrimPrefix(name, labelPrefix), snapshotExt)
		t, err := strconv.ParseFloat(label, 64)
		if err != nil {
			continue
		}
		found = append(found, entry{label, t})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].t < found[j].t })

	labels := make([]string, len(found))
	for i, e := range found {
		labels[i] = e.label
	}
	return labels, nil
}

// Latest returns the label with the largest time.
func (s *Store) Latest(field string) (string, error) {
	labels, err := s.Labels(field)
	if err != nil {
		return "", err
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("%w: no %s snapshots in %s", ErrNotFound, field, s.baseDir)
	}
	return labels[len(labels)-1], nil
}

// RunMetadata describes the configuration that produced the snapshots.
type RunMetadata struct {
	Model       string             `json:"model"`
	Timestamp   time.Time          `json:"timestamp"`
	N           int                `json:"N"`
	Dx          float64            `json:"Dx"`
	Dt          float64            `json:"Dt"`
	Precision   int                `json:"precision"`
	InitTime    int                `json:"inittime"`
	TimeSpan    int                `json:"timespan,omitempty"`
	Brank       int                `json:"brank,omitempty"`
	Params      map[string]float64 `json:"params"`
	InitialData map[string]any     `json:"initial_data,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

func (s *Store) SaveMetadata(meta *RunMetadata) error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	file, err := os.Create(filepath.Join(s.baseDir, metadataFile))
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) LoadMetadata() (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, metadataFile)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
