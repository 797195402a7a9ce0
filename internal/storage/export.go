package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Series is every stored snapshot of one field, in time order.
type Series struct {
	Field  string      `json:"field"`
	Labels []string    `json:"labels"`
	States [][]float64 `json:"states"`
}

// LoadSeries reads all snapshots of a field.
func (s *Store) LoadSeries(field string) (*Series, error) {
	labels, err := s.Labels(field)
	if err != nil {
		return nil, err
	}
	series := &Series{
		Field:  field,
		Labels: labels,
		States: make([][]float64, len(labels)),
	}
	for i, label := range labels {
		u, err := s.Load(field, label)
		if err != nil {
			return nil, err
		}
		series.States[i] = u
	}
	return series, nil
}

type ExportData struct {
	Meta   *RunMetadata `json:"metadata,omitempty"`
	Series []*Series    `json:"series"`
}

// ExportJSON writes the metadata and every snapshot of the given fields.
func (s *Store) ExportJSON(path string, fields ...string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.WriteJSON(file, fields...)
}

func (s *Store) WriteJSON(w io.Writer, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{dynamo.FieldU, dynamo.FieldRate}
	}

	data := ExportData{Series: make([]*Series, 0, len(fields))}
	if meta, err := s.LoadMetadata(); err == nil {
		data.Meta = meta
	}
	for _, field := range fields {
		series, err := s.LoadSeries(field)
		if err != nil {
			return err
		}
		data.Series = append(data.Series, series)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
