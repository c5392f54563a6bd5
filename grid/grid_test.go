package grid

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goblimey/go-cssr/cssr"
)

func TestLoadFile(t *testing.T) {
	table, err := LoadFile("testdata/example.yaml")
	if err != nil {
		t.Fatal(err)
	}

	if table.Len() != 2 {
		t.Errorf("want 2 networks got %d", table.Len())
	}

	n, ok := table.Lookup(12)
	if !ok {
		t.Fatal("network 12 missing")
	}
	want := &Network{
		ID:     12,
		Name:   "Kanto",
		Points: []Point{{Lat: 35.6, Lon: 139.7, Height: 40}},
	}
	if diff := cmp.Diff(want, n); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, ok := table.Lookup(2); ok {
		t.Error("network 2 should not be there")
	}
}

func TestCheckCount(t *testing.T) {
	table, err := LoadFile("testdata/example.yaml")
	if err != nil {
		t.Fatal(err)
	}

	var testData = []struct {
		Network int
		Points  int
		Want    error
	}{
		{1, 3, nil},
		{1, 2, ErrCountMismatch},
		{12, 1, nil},
		{12, 0, ErrCountMismatch},
		{5, 3, ErrUnknownNetwork},
	}

	for _, td := range testData {
		err := table.CheckCount(td.Network, td.Points)
		if td.Want == nil {
			if err != nil {
				t.Errorf("%d/%d: %v", td.Network, td.Points, err)
			}
			continue
		}
		if !errors.Is(err, td.Want) {
			t.Errorf("%d/%d: want %v got %v", td.Network, td.Points, td.Want, err)
		}
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if table.Len() != 0 {
		t.Error("want 0 networks")
	}
	if err := table.CheckCount(1, 1); !errors.Is(err, ErrUnknownNetwork) {
		t.Errorf("want ErrUnknownNetwork got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	var testData = []struct {
		Description string
		YAML        string
	}{
		{"syntax", "networks: [\n"},
		{"range", "networks:\n  - id: 32\n"},
		{"zero", "networks:\n  - id: 0\n"},
		{"duplicate", "networks:\n  - id: 3\n  - id: 3\n"},
	}

	for _, td := range testData {
		if _, err := Load(strings.NewReader(td.YAML)); err == nil {
			t.Errorf("%s: want an error", td.Description)
		}
	}

	if _, err := LoadFile("testdata/no_such_file.yaml"); err == nil {
		t.Error("missing file: want an error")
	}
}

// TestGridChecker checks that a Table can be used to check the grid counts
// in the decoder.
func TestGridChecker(t *testing.T) {
	table, err := LoadFile("testdata/example.yaml")
	if err != nil {
		t.Fatal(err)
	}
	var checker cssr.GridChecker = table
	if err := checker.CheckCount(1, 3); err != nil {
		t.Error(err)
	}
}
