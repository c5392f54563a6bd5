package cssr

import (
	"strings"
)

const (
	satelliteMaskBits = 40
	signalMaskBits    = 16
	// systemMaskBits is the length of one system's entry in a mask message
	// without its cell mask: gnssid, satellite mask, signal mask and the
	// cell mask available flag.
	systemMaskBits = 4 + satelliteMaskBits + signalMaskBits + 1
)

// SystemMask holds the active satellites and signals of one satellite
// system.
type SystemMask struct {
	System System
	GNSSID uint8
	// SatelliteMask is the 40-bit satellite mask.  The most significant bit
	// is satellite 1.
	SatelliteMask uint64
	// SignalMask is the 16-bit signal mask.  The most significant bit is
	// signal 0.
	SignalMask uint16
	// CellMaskAvailable is set when the message carried a cell mask.  When
	// it doesn't, every cell is active.
	CellMaskAvailable bool
	// Satellites lists the active satellites in mask order, for example
	// "G01".
	Satellites []string
	// Signals lists the names of the active signals in mask order.
	Signals []string
	// Cells has one entry per satellite and signal, satellite major.
	Cells []bool
}

// Cell returns true if satellite sat carries signal sig.  Both are indices
// into Satellites and Signals.
func (s *SystemMask) Cell(sat, sig int) bool {
	return s.Cells[sat*len(s.Signals)+sig]
}

// ActiveCells returns the number of active satellite and signal pairs.
func (s *SystemMask) ActiveCells() int {
	n := 0
	for _, c := range s.Cells {
		if c {
			n++
		}
	}
	return n
}

// Mask is the satellite and signal context set up by an ST1 message and
// used to decode the messages that follow until the next ST1.
type Mask struct {
	Epoch   uint32
	IODSSR  uint8
	Systems []SystemMask
}

// Satellites returns all the active satellites in mask order.
func (m *Mask) Satellites() []string {
	var sats []string
	for i := range m.Systems {
		sats = append(sats, m.Systems[i].Satellites...)
	}
	return sats
}

// SatelliteCount returns the number of active satellites.
func (m *Mask) SatelliteCount() int {
	n := 0
	for i := range m.Systems {
		n += len(m.Systems[i].Satellites)
	}
	return n
}

// CellCount returns the size of the cell masks summed over all systems.
func (m *Mask) CellCount() int {
	n := 0
	for i := range m.Systems {
		n += len(m.Systems[i].Cells)
	}
	return n
}

// ActiveCells returns the number of active satellite and signal pairs.
func (m *Mask) ActiveCells() int {
	n := 0
	for i := range m.Systems {
		n += m.Systems[i].ActiveCells()
	}
	return n
}

// String lists each satellite with its active signals, one per line.
func (m *Mask) String() string {
	var sb strings.Builder
	for i := range m.Systems {
		sys := &m.Systems[i]
		for j, sat := range sys.Satellites {
			sb.WriteString(sat)
			for k, sig := range sys.Signals {
				if sys.Cell(j, k) {
					sb.WriteString(" ")
					sb.WriteString(sig)
				}
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// decodeMask reads the body of an ST1 message.
func decodeMask(r *reader, h *Header, beiDou3 bool) (*Mask, error) {
	if err := r.need(4); err != nil {
		return nil, err
	}
	ngnss := uint(r.u(4))
	if err := r.need(systemMaskBits * ngnss); err != nil {
		return nil, err
	}

	mask := Mask{Epoch: h.Epoch, IODSSR: h.IODSSR}
	for i := uint(0); i < ngnss; i++ {
		id := uint(r.u(4))
		system, err := SystemFromGNSSID(id)
		if err != nil {
			return nil, err
		}
		if system == BeiDou && beiDou3 {
			system = BeiDou3
		}

		sm := SystemMask{
			System:            system,
			GNSSID:            uint8(id),
			SatelliteMask:     r.u(satelliteMaskBits),
			SignalMask:        uint16(r.u(signalMaskBits)),
			CellMaskAvailable: r.flag(),
		}

		for bit := 0; bit < satelliteMaskBits; bit++ {
			if sm.SatelliteMask&(1<<(satelliteMaskBits-1-bit)) != 0 {
				sm.Satellites = append(sm.Satellites, system.SatelliteName(bit+1))
			}
		}
		for bit := 0; bit < signalMaskBits; bit++ {
			if sm.SignalMask&(1<<(signalMaskBits-1-bit)) != 0 {
				sm.Signals = append(sm.Signals, SignalName(system, bit))
			}
		}

		ncell := uint(len(sm.Satellites) * len(sm.Signals))
		sm.Cells = make([]bool, ncell)
		if sm.CellMaskAvailable {
			if err := r.need(ncell); err != nil {
				return nil, err
			}
			for c := range sm.Cells {
				sm.Cells[c] = r.flag()
			}
		} else {
			for c := range sm.Cells {
				sm.Cells[c] = true
			}
		}

		mask.Systems = append(mask.Systems, sm)
	}

	return &mask, r.err
}

// readSatelliteMasks reads the per-system satellite masks that select a
// subset of the active satellites (ST6, ST8, ST9, ST11 and ST12).  The
// result has one slice per system, parallel to the system's Satellites.
func readSatelliteMasks(r *reader, mask *Mask) ([][]bool, error) {
	result := make([][]bool, len(mask.Systems))
	for i := range mask.Systems {
		n := len(mask.Systems[i].Satellites)
		if err := r.need(uint(n)); err != nil {
			return nil, err
		}
		result[i] = make([]bool, n)
		for j := range result[i] {
			result[i][j] = r.flag()
		}
	}
	return result, r.err
}

// allSatellites returns satellite masks with every satellite selected.
func allSatellites(mask *Mask) [][]bool {
	result := make([][]bool, len(mask.Systems))
	for i := range mask.Systems {
		result[i] = make([]bool, len(mask.Systems[i].Satellites))
		for j := range result[i] {
			result[i][j] = true
		}
	}
	return result
}
