// The grid package holds the grid network table.  CSSR atmospheric
// corrections (ST9 and ST12) are given per grid point of a numbered
// network, and the message only says how many points there are.  The table
// says where they are, so the count in each message can be checked
// against it.
//
// No table is built in, so the check is opt-in: the decoder only checks
// grid counts when a table is loaded and set in cssr.Options.Grids (the
// "grid_file" config setting).  Without one, any count is accepted.
//
// The table is a YAML file:
//
//	networks:
//	  - id: 1
//	    name: Okinawa
//	    points:
//	      - {lat: 24.3, lon: 123.6, height: 0}
//	      - {lat: 24.3, lon: 124.2, height: 0}
package grid

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownNetwork means the table has no entry for a network ID.
	ErrUnknownNetwork = errors.New("unknown grid network")

	// ErrCountMismatch means a message has the wrong number of grid
	// points for its network.
	ErrCountMismatch = errors.New("grid point count mismatch")
)

// Point is one grid point, latitude and longitude in degrees and
// ellipsoidal height in metres.
type Point struct {
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
	Height float64 `yaml:"height"`
}

// Network is one grid network.
type Network struct {
	ID     int     `yaml:"id"`
	Name   string  `yaml:"name"`
	Points []Point `yaml:"points"`
}

// Table is the grid network table, indexed by network ID.  The methods can
// be called on a nil Table, which has no networks.
type Table struct {
	networks map[int]*Network
}

type file struct {
	Networks []Network `yaml:"networks"`
}

// Load reads a table in YAML form.
func Load(r io.Reader) (*Table, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("grid table: %w", err)
	}

	t := Table{networks: make(map[int]*Network)}
	for i := range f.Networks {
		n := &f.Networks[i]
		if n.ID < 1 || n.ID > 31 {
			return nil, fmt.Errorf("grid table: network ID %d out of range", n.ID)
		}
		if _, ok := t.networks[n.ID]; ok {
			return nil, fmt.Errorf("grid table: network %d defined twice", n.ID)
		}
		t.networks[n.ID] = n
	}
	return &t, nil
}

// LoadFile reads a table from a YAML file.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Lookup returns the network with the given ID.
func (t *Table) Lookup(networkID int) (*Network, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.networks[networkID]
	return n, ok
}

// Len returns the number of networks.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.networks)
}

// CheckCount checks that network networkID has the given number of grid
// points.
func (t *Table) CheckCount(networkID, points int) error {
	n, ok := t.Lookup(networkID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNetwork, networkID)
	}
	if len(n.Points) != points {
		return fmt.Errorf("%w: network %d has %d points, message has %d",
			ErrCountMismatch, networkID, len(n.Points), points)
	}
	return nil
}
