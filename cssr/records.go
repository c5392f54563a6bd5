package cssr

import (
	"fmt"
	"math"
)

// Value is a decoded correction value.  Each field on the wire has one raw
// code that means "no data".  A Value holding that code is not Valid and
// its V is zero, which is not the same as a valid zero correction.
type Value struct {
	Valid bool
	V     float64
}

// scaled returns raw times lsb, or an invalid Value if raw is the sentinel.
func scaled(raw, sentinel int64, lsb float64) Value {
	if raw == sentinel {
		return Value{}
	}
	return Value{Valid: true, V: float64(raw) * lsb}
}

// String returns the value with four decimal places, or "invalid".
func (v Value) String() string {
	if !v.Valid {
		return "invalid"
	}
	return fmt.Sprintf("%.4f", v.V)
}

// Record is the decoded body of a CSSR message.  Each subtype has its own
// record type.
type Record interface {
	// Subtype returns the CSSR subtype that the record came from.
	Subtype() int
}

// MaskRecord is the body of an ST1 mask message.
type MaskRecord struct {
	Mask *Mask
}

func (*MaskRecord) Subtype() int { return 1 }

// OrbitCorrection is the orbit correction for one satellite.  The radial,
// along track and cross track components are in metres.
type OrbitCorrection struct {
	Satellite string
	IODE      uint16
	Radial    Value
	Along     Value
	Cross     Value
}

// OrbitRecord is the body of an ST2 orbit correction message.
type OrbitRecord struct {
	Corrections []OrbitCorrection
}

func (*OrbitRecord) Subtype() int { return 2 }

// ClockCorrection is the clock correction for one satellite in metres.
type ClockCorrection struct {
	Satellite string
	C0        Value
}

// ClockRecord is the body of an ST3 clock correction message.
type ClockRecord struct {
	Corrections []ClockCorrection
}

func (*ClockRecord) Subtype() int { return 3 }

// CodeBias is the code bias of one signal in metres.
type CodeBias struct {
	Satellite string
	Signal    string
	Bias      Value
}

// CodeBiasRecord is the body of an ST4 code bias message.
type CodeBiasRecord struct {
	Biases []CodeBias
}

func (*CodeBiasRecord) Subtype() int { return 4 }

// PhaseBias is the phase bias of one signal in metres, with its
// discontinuity indicator.
type PhaseBias struct {
	Satellite     string
	Signal        string
	Bias          Value
	Discontinuity uint8
}

// PhaseBiasRecord is the body of an ST5 phase bias message.
type PhaseBiasRecord struct {
	Biases []PhaseBias
}

func (*PhaseBiasRecord) Subtype() int { return 5 }

// NetworkBias holds the biases of one signal in an ST6 message.  CodeBias
// is only set if the record's CodeBiasPresent flag is, and the phase bias
// fields are only set if PhaseBiasPresent is.
type NetworkBias struct {
	Satellite     string
	Signal        string
	CodeBias      Value
	PhaseBias     Value
	Discontinuity uint8
}

// NetworkBiasRecord is the body of an ST6 network bias message.
type NetworkBiasRecord struct {
	CodeBiasPresent    bool
	PhaseBiasPresent   bool
	NetworkBiasPresent bool
	// NetworkID is only set when NetworkBiasPresent is.
	NetworkID uint8
	Biases    []NetworkBias
}

func (*NetworkBiasRecord) Subtype() int { return 6 }

// URA is the user range accuracy of one satellite.  Class and ValueCode
// are the two parts of the 6-bit code, Accuracy is the decoded value in
// millimetres.
type URA struct {
	Satellite string
	Class     uint8
	ValueCode uint8
	Accuracy  Value
}

// URARecord is the body of an ST7 user range accuracy message.
type URARecord struct {
	Accuracies []URA
}

func (*URARecord) Subtype() int { return 7 }

// uraMillimetres decodes a 6-bit URA code.  0 means unknown and 63 means
// more than 5466.5 mm, neither has a value.
func uraMillimetres(code uint8) (class, value uint8, accuracy Value) {
	class = code >> 3
	value = code & 0x7
	if code == 0 || code == 63 {
		return class, value, Value{}
	}
	mm := math.Pow(3, float64(class))*(1+float64(value)/4) - 1
	return class, value, Value{Valid: true, V: mm}
}

// STECPolynomial is the polynomial slant TEC correction for one satellite
// in TECU.  Which coefficients are present depends on the correction type:
// C00 always, C01 and C10 from type 1, C11 from type 2, C02 and C20 from
// type 3.  Coefficients that aren't present are not Valid.
type STECPolynomial struct {
	Satellite string
	Quality   uint8
	C00       Value
	C01       Value
	C10       Value
	C11       Value
	C02       Value
	C20       Value
}

// STECRecord is the body of an ST8 slant TEC message.
type STECRecord struct {
	Type        uint8
	NetworkID   uint8
	Corrections []STECPolynomial
}

func (*STECRecord) Subtype() int { return 8 }

// SatelliteResidual is a slant TEC residual for one satellite at one grid
// point, in TECU.
type SatelliteResidual struct {
	Satellite string
	Residual  Value
}

// GridCorrection holds the corrections for one grid point in an ST9
// message.  The vertical delays are in metres.
type GridCorrection struct {
	Hydrostatic Value
	Wet         Value
	Residuals   []SatelliteResidual
}

// GriddedRecord is the body of an ST9 gridded correction message.
type GriddedRecord struct {
	TropoType uint8
	// WideRange is set when the residuals are 16 bits rather than 7.
	WideRange  bool
	NetworkID  uint8
	Quality    uint8
	GridPoints []GridCorrection
}

func (*GriddedRecord) Subtype() int { return 9 }

// ServiceInfoRecord is the body of an ST10 service information message.
// The content is not decoded, so the record is marked Unsupported.
type ServiceInfoRecord struct {
	Counter uint8
	Size    uint8
	// Data contains the (Size+1)*40 bits of auxiliary data.
	Data []byte
}

func (*ServiceInfoRecord) Subtype() int { return 10 }

// Unsupported returns true.  The service information content is carried
// but not interpreted.
func (*ServiceInfoRecord) Unsupported() bool { return true }

// NetworkSatelliteCorrection holds the ST11 corrections for one satellite.
// Orbit is nil unless the record's OrbitPresent flag is set and Clock is
// nil unless ClockPresent is.
type NetworkSatelliteCorrection struct {
	Satellite string
	Orbit     *OrbitCorrection
	Clock     *Value
}

// NetworkCorrectionRecord is the body of an ST11 network orbit and clock
// correction message.
type NetworkCorrectionRecord struct {
	OrbitPresent   bool
	ClockPresent   bool
	NetworkPresent bool
	// NetworkID and Corrections are only set when NetworkPresent is.
	NetworkID   uint8
	Corrections []NetworkSatelliteCorrection
}

func (*NetworkCorrectionRecord) Subtype() int { return 11 }

// TropoPolynomial is the troposphere polynomial of an ST12 message in
// metres (T00) and metres per degree (the rest).
type TropoPolynomial struct {
	Quality uint8
	Type    uint8
	T00     Value
	T01     Value
	T10     Value
	T11     Value
}

// TropoResiduals are the troposphere residuals of an ST12 message, one per
// grid point, in metres.
type TropoResiduals struct {
	// Offset in metres.
	Offset float64
	// Wide is set when the residuals are 8 bits rather than 6.
	Wide      bool
	Residuals []Value
}

// STECGrid is the ST12 slant TEC correction for one satellite: the
// polynomial and one residual per grid point, in TECU.
type STECGrid struct {
	STECPolynomial
	Type         uint8
	ResidualSize uint8
	Residuals    []Value
}

// CombinedRecord is the body of an ST12 network and troposphere correction
// message.
type CombinedRecord struct {
	// TropoFlags bit 1 (the first on the wire) means the polynomial is
	// present, bit 0 means the residuals are.
	TropoFlags uint8
	// STECFlags bit 1 means the slant TEC corrections are present.
	STECFlags     uint8
	NetworkID     uint8
	GridCount     int
	Tropo         *TropoPolynomial
	TropoResidual *TropoResiduals
	STEC          []STECGrid
}

func (*CombinedRecord) Subtype() int { return 12 }
