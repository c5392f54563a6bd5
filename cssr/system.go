package cssr

import "fmt"

// System is a satellite system.
type System int

const (
	GPS System = iota
	GLONASS
	Galileo
	BeiDou
	QZSS
	SBAS
	NavIC
	// BeiDou3 is BeiDou with the BDS-3 signal names.  Some network
	// correction sources use the upper signal mask bits of BeiDou for the
	// BDS-3 signals.  The wire gnssid is the same as BeiDou's, the decoder
	// chooses this system when its BeiDou3Signals option is set.
	BeiDou3
)

// numberOfSystems is the number of System values.
const numberOfSystems = int(BeiDou3) + 1

// systemLetters gives the letter used in satellite names ("G01" etc).
var systemLetters = [numberOfSystems]byte{
	GPS:     'G',
	GLONASS: 'R',
	Galileo: 'E',
	BeiDou:  'C',
	QZSS:    'J',
	SBAS:    'S',
	NavIC:   'I',
	BeiDou3: 'C',
}

var systemNames = [numberOfSystems]string{
	GPS:     "GPS",
	GLONASS: "GLONASS",
	Galileo: "Galileo",
	BeiDou:  "BeiDou",
	QZSS:    "QZSS",
	SBAS:    "SBAS",
	NavIC:   "NavIC",
	BeiDou3: "BeiDou-3",
}

// signalNames gives the signal name for each bit of the 16-bit signal mask,
// counting from the most significant bit.  An empty string is a reserved
// bit.
var signalNames = [numberOfSystems][16]string{
	GPS: {
		"L1 C/A", "L1 P", "L1 Z-tracking", "L1C(D)", "L1C(P)", "L1C(D+P)",
		"L2 CM", "L2 CL", "L2 CM+CL", "L2 P", "L2 Z-tracking",
		"L5 I", "L5 Q", "L5 I+Q", "", "",
	},
	GLONASS: {
		"G1 C/A", "G1 P", "G2 C/A", "G2 P",
		"G1a(D)", "G1a(P)", "G1a(D+P)", "G2a(D)", "G2a(P)", "G2a(D+P)",
		"G3 I", "G3 Q", "G3 I+Q", "", "", "",
	},
	Galileo: {
		"E1 B", "E1 C", "E1 B+C", "E5a I", "E5a Q", "E5a I+Q",
		"E5b I", "E5b Q", "E5b I+Q", "E5 I", "E5 Q", "E5 I+Q",
		"E6 B", "E6 C", "E6 B+C", "",
	},
	BeiDou: {
		"B1 I", "B1 Q", "B1 I+Q", "B3 I", "B3 Q", "B3 I+Q",
		"B2 I", "B2 Q", "B2 I+Q", "", "", "", "", "", "", "",
	},
	QZSS: {
		"L1 C/A", "L1 L1C(D)", "L1 L1C(P)", "L1 L1C(D+P)",
		"L2 L2C(M)", "L2 L2C(L)", "L2 L2C(M+L)",
		"L5 I", "L5 Q", "L5 I+Q", "", "", "", "", "", "",
	},
	SBAS: {
		"L1 C/A", "L5 I", "L5 Q", "L5 I+Q",
		"", "", "", "", "", "", "", "", "", "", "", "",
	},
	NavIC: {
		"L5 SPS", "L5 RS(D)", "L5 RS(P)", "L5 RS(D+P)",
		"S SPS", "S RS(D)", "S RS(P)", "S RS(D+P)",
		"L1 SPS", "", "", "", "", "", "", "",
	},
	BeiDou3: {
		"B1 I", "B1 Q", "B1 I+Q", "B3 I", "B3 Q", "B3 I+Q",
		"B2 I", "B2 Q", "B2 I+Q",
		"B1C(D)", "B1C(P)", "B1C(D+P)", "B2a(D)", "B2a(P)", "B2a(D+P)",
		"B2b I",
	},
}

// String returns the name of the system.
func (s System) String() string {
	if s < 0 || int(s) >= numberOfSystems {
		return fmt.Sprintf("system(%d)", int(s))
	}
	return systemNames[s]
}

// Letter returns the letter that starts the names of the system's
// satellites.
func (s System) Letter() byte {
	if s < 0 || int(s) >= numberOfSystems {
		return '?'
	}
	return systemLetters[s]
}

// SatelliteName returns the name of satellite number n (1-40), for example
// "G01".
func (s System) SatelliteName(n int) string {
	return fmt.Sprintf("%c%02d", s.Letter(), n)
}

// SystemFromGNSSID returns the satellite system given by the 4-bit GNSS ID
// in a mask message.
func SystemFromGNSSID(id uint) (System, error) {
	switch id {
	case 0:
		return GPS, nil
	case 1:
		return GLONASS, nil
	case 2:
		return Galileo, nil
	case 3:
		return BeiDou, nil
	case 4:
		return QZSS, nil
	case 5:
		return SBAS, nil
	case 6:
		return NavIC, nil
	default:
		return 0, fmt.Errorf("%w: gnssid %d", ErrUnknownSystem, id)
	}
}

// SignalName returns the name of the signal given by bit of the signal
// mask, counting from the most significant bit.  Reserved bits give an
// empty string.
func SignalName(system System, bit int) string {
	if system < 0 || int(system) >= numberOfSystems || bit < 0 || bit > 15 {
		return ""
	}
	return signalNames[system][bit]
}

// updateIntervals maps the 4-bit update interval code to seconds.
var updateIntervals = [16]int{
	1, 2, 5, 10, 15, 30, 60, 120, 240, 300, 600, 900, 1800, 3600, 7200, 10800,
}

// UpdateIntervalSeconds returns the update interval in seconds given by the
// 4-bit code in a message header.
func UpdateIntervalSeconds(code uint8) int {
	return updateIntervals[code&0xf]
}
