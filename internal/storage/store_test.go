package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/dvdm/internal/dynamo"
)

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	u := dynamo.State{0.1, 1.0 / 3.0, -2.5e-17, math.Pi, 0, 1e300}
	if err := st.Save(dynamo.FieldU, "0.5", u); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.Load(dynamo.FieldU, "0.5")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != len(u) {
		t.Fatalf("expected %d values, got %d", len(u), len(got))
	}
	for i := range u {
		if got[i] != u[i] {
			t.Errorf("value %d: expected %v, got %v", i, u[i], got[i])
		}
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Save(dynamo.FieldRate, "1.0", dynamo.State{1, 2}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	path := filepath.Join(tmpDir, "var", "dUdt", "t=1.0.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}
	if string(data) != "1\n2\n" {
		t.Errorf("unexpected file contents %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestStoreOverwrite(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Save(dynamo.FieldU, "0.0", dynamo.State{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(dynamo.FieldU, "0.0", dynamo.State{2}); err != nil {
		t.Fatal(err)
	}
	got, err := st.Load(dynamo.FieldU, "0.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected overwritten snapshot [2], got %v", got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load(dynamo.FieldU, "3.0")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = st.Latest(dynamo.FieldU)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Latest, got %v", err)
	}
}

func TestStoreLabelsSorted(t *testing.T) {
	st := New(t.TempDir())
	for _, label := range []string{"10.0", "2.0", "0.5", "1.0"} {
		if err := st.Save(dynamo.FieldU, label, dynamo.State{0}); err != nil {
			t.Fatal(err)
		}
	}

	labels, err := st.Labels(dynamo.FieldU)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"0.5", "1.0", "2.0", "10.0"}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, labels)
	}

	latest, err := st.Latest(dynamo.FieldU)
	if err != nil {
		t.Fatal(err)
	}
	if latest != "10.0" {
		t.Errorf("expected latest 10.0, got %s", latest)
	}

	empty, err := st.Labels("other")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no labels for unknown field, got %v (%v)", empty, err)
	}
}

func TestStoreRejectsUnsafeLabels(t *testing.T) {
	base := t.TempDir()
	st := New(filepath.Join(base, "run"))
	for _, label := range []string{"", "../../escape", "0.5/1", `0.5\1`, "..", "abc", "NaN", "Inf"} {
		if err := st.Save(dynamo.FieldU, label, dynamo.State{1}); !errors.Is(err, dynamo.ErrConfiguration) {
			t.Errorf("Save(%q): expected ErrConfiguration, got %v", label, err)
		}
		if _, err := st.Load(dynamo.FieldU, label); !errors.Is(err, dynamo.ErrConfiguration) {
			t.Errorf("Load(%q): expected ErrConfiguration, got %v", label, err)
		}
	}
	if _, err := os.Stat(filepath.Join(base, "run", "var", "escape.csv")); !os.IsNotExist(err) {
		t.Errorf("snapshot written outside its field directory: %v", err)
	}

	if err := st.Save(dynamo.FieldU, "-0.5", dynamo.State{1}); err != nil {
		t.Errorf("negative time labels are valid: %v", err)
	}
}

func TestStoreMetadata(t *testing.T) {
	st := New(t.TempDir())
	meta := &RunMetadata{
		Model:     "ch-dvdm",
		N:         10,
		Dx:        0.5,
		Dt:        0.5,
		Precision: 1,
		Params:    map[string]float64{"Gamma": 2, "const": 0.25},
	}
	if err := st.SaveMetadata(meta); err != nil {
		t.Fatalf("save metadata failed: %v", err)
	}

	got, err := st.LoadMetadata()
	if err != nil {
		t.Fatalf("load metadata failed: %v", err)
	}
	if got.Model != "ch-dvdm" || got.N != 10 || got.Params["const"] != 0.25 {
		t.Errorf("metadata mismatch: %+v", got)
	}

	_, err = New(t.TempDir()).LoadMetadata()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreWriteJSON(t *testing.T) {
	st := New(t.TempDir())
	_ = st.Save(dynamo.FieldU, "0.0", dynamo.State{1, 2})
	_ = st.Save(dynamo.FieldU, "0.5", dynamo.State{3, 4})

	var buf bytes.Buffer
	if err := st.WriteJSON(&buf, dynamo.FieldU); err != nil {
		t.Fatalf("write json failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(data.Series) != 1 || len(data.Series[0].States) != 2 {
		t.Fatalf("unexpected export %+v", data)
	}
	if data.Series[0].States[1][0] != 3 {
		t.Errorf("expected second snapshot first value 3, got %v", data.Series[0].States[1][0])
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	u := dynamo.State{1, 2, 3}
	if err := m.Save(dynamo.FieldU, "1.0", u); err != nil {
		t.Fatal(err)
	}
	u[0] = 99

	got, err := m.Load(dynamo.FieldU, "1.0")
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Errorf("store shares memory with caller: got %v", got)
	}

	_ = m.Save(dynamo.FieldU, "0.5", u)
	labels := m.Labels(dynamo.FieldU)
	if len(labels) != 2 || labels[0] != "0.5" {
		t.Errorf("expected sorted labels [0.5 1.0], got %v", labels)
	}

	if _, err := m.Load(dynamo.FieldRate, "1.0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
