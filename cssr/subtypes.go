package cssr

import (
	"fmt"
)

// Field widths, scale factors and "no data" codes.
const (
	radialBits     = 15
	radialLSB      = 0.0016
	radialSentinel = -16384

	alongCrossBits     = 13
	alongCrossLSB      = 0.0064
	alongCrossSentinel = -4096

	clockBits     = 15
	clockLSB      = 0.0016
	clockSentinel = -16384

	codeBiasBits     = 11
	codeBiasLSB      = 0.02
	codeBiasSentinel = -1024

	phaseBiasBits     = 15
	phaseBiasLSB      = 0.001
	phaseBiasSentinel = -16384

	discontinuityBits = 2

	uraBits = 6

	networkIDBits = 5
	qualityBits   = 6
	gridCountBits = 6
)

// orbitBits returns the length of one satellite's orbit correction.
func orbitBits(system System) uint {
	return iodeBits(system) + radialBits + 2*alongCrossBits
}

// iodeBits returns the width of the issue of data ephemeris, which is
// longer for Galileo.
func iodeBits(system System) uint {
	if system == Galileo {
		return 10
	}
	return 8
}

// readOrbit reads one satellite's orbit correction.  The caller has
// checked the length.
func readOrbit(r *reader, system System, sat string) OrbitCorrection {
	return OrbitCorrection{
		Satellite: sat,
		IODE:      uint16(r.u(iodeBits(system))),
		Radial:    scaled(r.s(radialBits), radialSentinel, radialLSB),
		Along:     scaled(r.s(alongCrossBits), alongCrossSentinel, alongCrossLSB),
		Cross:     scaled(r.s(alongCrossBits), alongCrossSentinel, alongCrossLSB),
	}
}

// decodeOrbit reads the body of an ST2 orbit correction message.
func decodeOrbit(r *reader, mask *Mask) (Record, error) {
	var rec OrbitRecord
	for i := range mask.Systems {
		sys := &mask.Systems[i]
		for _, sat := range sys.Satellites {
			if err := r.need(orbitBits(sys.System)); err != nil {
				return nil, err
			}
			rec.Corrections = append(rec.Corrections, readOrbit(r, sys.System, sat))
		}
	}
	return &rec, r.err
}

// decodeClock reads the body of an ST3 clock correction message.
func decodeClock(r *reader, mask *Mask) (Record, error) {
	var rec ClockRecord
	for i := range mask.Systems {
		for _, sat := range mask.Systems[i].Satellites {
			if err := r.need(clockBits); err != nil {
				return nil, err
			}
			rec.Corrections = append(rec.Corrections, ClockCorrection{
				Satellite: sat,
				C0:        scaled(r.s(clockBits), clockSentinel, clockLSB),
			})
		}
	}
	return &rec, r.err
}

// decodeCodeBias reads the body of an ST4 code bias message.  The length of
// the whole body is known from the mask, so it's checked up front.
func decodeCodeBias(r *reader, mask *Mask) (Record, error) {
	if err := r.need(codeBiasBits * uint(mask.ActiveCells())); err != nil {
		return nil, err
	}
	var rec CodeBiasRecord
	for i := range mask.Systems {
		sys := &mask.Systems[i]
		for j, sat := range sys.Satellites {
			for k, sig := range sys.Signals {
				if !sys.Cell(j, k) {
					continue
				}
				rec.Biases = append(rec.Biases, CodeBias{
					Satellite: sat,
					Signal:    sig,
					Bias:      scaled(r.s(codeBiasBits), codeBiasSentinel, codeBiasLSB),
				})
			}
		}
	}
	return &rec, r.err
}

// decodePhaseBias reads the body of an ST5 phase bias message.
func decodePhaseBias(r *reader, mask *Mask) (Record, error) {
	var rec PhaseBiasRecord
	for i := range mask.Systems {
		sys := &mask.Systems[i]
		for j, sat := range sys.Satellites {
			for k, sig := range sys.Signals {
				if !sys.Cell(j, k) {
					continue
				}
				if err := r.need(phaseBiasBits + discontinuityBits); err != nil {
					return nil, err
				}
				rec.Biases = append(rec.Biases, PhaseBias{
					Satellite:     sat,
					Signal:        sig,
					Bias:          scaled(r.s(phaseBiasBits), phaseBiasSentinel, phaseBiasLSB),
					Discontinuity: uint8(r.u(discontinuityBits)),
				})
			}
		}
	}
	return &rec, r.err
}

// decodeNetworkBias reads the body of an ST6 network bias message.  Without
// the network bias flag there are no satellite masks and every active
// satellite is present.
func decodeNetworkBias(r *reader, mask *Mask) (Record, error) {
	if err := r.need(3); err != nil {
		return nil, err
	}
	rec := NetworkBiasRecord{
		CodeBiasPresent:    r.flag(),
		PhaseBiasPresent:   r.flag(),
		NetworkBiasPresent: r.flag(),
	}
	r.other += 3

	selected := allSatellites(mask)
	if rec.NetworkBiasPresent {
		if err := r.need(networkIDBits); err != nil {
			return nil, err
		}
		rec.NetworkID = uint8(r.u(networkIDBits))
		var err error
		if selected, err = readSatelliteMasks(r, mask); err != nil {
			return nil, err
		}
	}

	for i := range mask.Systems {
		sys := &mask.Systems[i]
		for j, sat := range sys.Satellites {
			if !selected[i][j] {
				continue
			}
			for k, sig := range sys.Signals {
				if !sys.Cell(j, k) {
					continue
				}
				bias := NetworkBias{Satellite: sat, Signal: sig}
				if rec.CodeBiasPresent {
					if err := r.need(codeBiasBits); err != nil {
						return nil, err
					}
					bias.CodeBias = scaled(r.s(codeBiasBits), codeBiasSentinel, codeBiasLSB)
				}
				if rec.PhaseBiasPresent {
					if err := r.need(phaseBiasBits + discontinuityBits); err != nil {
						return nil, err
					}
					bias.PhaseBias = scaled(r.s(phaseBiasBits), phaseBiasSentinel, phaseBiasLSB)
					bias.Discontinuity = uint8(r.u(discontinuityBits))
				}
				rec.Biases = append(rec.Biases, bias)
			}
		}
	}
	return &rec, r.err
}

// decodeURA reads the body of an ST7 user range accuracy message.
func decodeURA(r *reader, mask *Mask) (Record, error) {
	var rec URARecord
	for i := range mask.Systems {
		for _, sat := range mask.Systems[i].Satellites {
			if err := r.need(uraBits); err != nil {
				return nil, err
			}
			class, value, accuracy := uraMillimetres(uint8(r.u(uraBits)))
			rec.Accuracies = append(rec.Accuracies, URA{
				Satellite: sat,
				Class:     class,
				ValueCode: value,
				Accuracy:  accuracy,
			})
		}
	}
	return &rec, r.err
}

// readSTECPolynomial reads the slant TEC coefficients that follow the
// quality indicator (and, in ST12, the type).
func readSTECPolynomial(r *reader, p *STECPolynomial, stecType uint8) error {
	if err := r.need(14); err != nil {
		return err
	}
	p.C00 = scaled(r.s(14), -8192, 0.05)
	if stecType >= 1 {
		if err := r.need(12 + 12); err != nil {
			return err
		}
		p.C01 = scaled(r.s(12), -2048, 0.02)
		p.C10 = scaled(r.s(12), -2048, 0.02)
	}
	if stecType >= 2 {
		if err := r.need(10); err != nil {
			return err
		}
		p.C11 = scaled(r.s(10), -512, 0.02)
	}
	if stecType >= 3 {
		if err := r.need(8 + 8); err != nil {
			return err
		}
		p.C02 = scaled(r.s(8), -128, 0.005)
		p.C20 = scaled(r.s(8), -128, 0.005)
	}
	return r.err
}

// decodeSTEC reads the body of an ST8 slant TEC message.
func decodeSTEC(r *reader, mask *Mask) (Record, error) {
	if err := r.need(2 + networkIDBits); err != nil {
		return nil, err
	}
	rec := STECRecord{
		Type:      uint8(r.u(2)),
		NetworkID: uint8(r.u(networkIDBits)),
	}
	r.other += 2 + networkIDBits

	selected, err := readSatelliteMasks(r, mask)
	if err != nil {
		return nil, err
	}

	for i := range mask.Systems {
		for j, sat := range mask.Systems[i].Satellites {
			if !selected[i][j] {
				continue
			}
			if err := r.need(qualityBits); err != nil {
				return nil, err
			}
			p := STECPolynomial{Satellite: sat, Quality: uint8(r.u(qualityBits))}
			if err := readSTECPolynomial(r, &p, rec.Type); err != nil {
				return nil, err
			}
			rec.Corrections = append(rec.Corrections, p)
		}
	}
	return &rec, r.err
}

// decodeGridded reads the body of an ST9 gridded correction message.  A
// grid count that disagrees with the grid table is only reported once the
// whole message has been read, so the caller can skip it.
func decodeGridded(r *reader, mask *Mask, grids GridChecker) (Record, error) {
	start := r.pos()
	if err := r.need(2 + 1 + networkIDBits); err != nil {
		return nil, err
	}
	rec := GriddedRecord{
		TropoType: uint8(r.u(2)),
		WideRange: r.flag(),
		NetworkID: uint8(r.u(networkIDBits)),
	}

	residualBits := uint(7)
	residualSentinel := int64(-64)
	if rec.WideRange {
		residualBits = 16
		residualSentinel = -32767
	}

	selected, err := readSatelliteMasks(r, mask)
	if err != nil {
		return nil, err
	}

	if err := r.need(qualityBits + gridCountBits); err != nil {
		return nil, err
	}
	rec.Quality = uint8(r.u(qualityBits))
	ngrid := int(r.u(gridCountBits))
	gridErr := checkGrid(grids, rec.NetworkID, ngrid)

	for g := 0; g < ngrid; g++ {
		if err := r.need(9 + 8); err != nil {
			return nil, err
		}
		gc := GridCorrection{
			Hydrostatic: scaled(r.s(9), -256, 0.004),
			Wet:         scaled(r.s(8), -128, 0.004),
		}
		for i := range mask.Systems {
			for j, sat := range mask.Systems[i].Satellites {
				if !selected[i][j] {
					continue
				}
				if err := r.need(residualBits); err != nil {
					return nil, err
				}
				gc.Residuals = append(gc.Residuals, SatelliteResidual{
					Satellite: sat,
					Residual:  scaled(r.s(residualBits), residualSentinel, 0.04),
				})
			}
		}
		rec.GridPoints = append(rec.GridPoints, gc)
	}

	r.other += r.pos() - start
	if r.err != nil {
		return nil, r.err
	}
	if gridErr != nil {
		return nil, gridErr
	}
	return &rec, nil
}

// decodeServiceInfo reads the body of an ST10 service information message.
func decodeServiceInfo(r *reader) (Record, error) {
	start := r.pos()
	if err := r.need(3 + 2); err != nil {
		return nil, err
	}
	rec := ServiceInfoRecord{
		Counter: uint8(r.u(3)),
		Size:    uint8(r.u(2)),
	}
	n := (uint(rec.Size) + 1) * 40
	if err := r.need(n); err != nil {
		return nil, err
	}
	rec.Data = make([]byte, n/8)
	for i := range rec.Data {
		rec.Data[i] = byte(r.u(8))
	}
	r.other += r.pos() - start
	return &rec, r.err
}

// decodeNetworkCorrection reads the body of an ST11 network orbit and clock
// message.  The orbit and clock fields are only on the wire when their
// flags are set.
func decodeNetworkCorrection(r *reader, mask *Mask) (Record, error) {
	if err := r.need(3); err != nil {
		return nil, err
	}
	rec := NetworkCorrectionRecord{
		OrbitPresent:   r.flag(),
		ClockPresent:   r.flag(),
		NetworkPresent: r.flag(),
	}
	r.other += 3

	if !rec.NetworkPresent {
		return &rec, r.err
	}

	if err := r.need(networkIDBits); err != nil {
		return nil, err
	}
	rec.NetworkID = uint8(r.u(networkIDBits))
	r.other += networkIDBits

	selected, err := readSatelliteMasks(r, mask)
	if err != nil {
		return nil, err
	}

	for i := range mask.Systems {
		sys := &mask.Systems[i]
		for j, sat := range sys.Satellites {
			if !selected[i][j] {
				continue
			}
			nc := NetworkSatelliteCorrection{Satellite: sat}
			if rec.OrbitPresent {
				if err := r.need(orbitBits(sys.System)); err != nil {
					return nil, err
				}
				orbit := readOrbit(r, sys.System, sat)
				nc.Orbit = &orbit
			}
			if rec.ClockPresent {
				if err := r.need(clockBits); err != nil {
					return nil, err
				}
				clock := scaled(r.s(clockBits), clockSentinel, clockLSB)
				nc.Clock = &clock
			}
			rec.Corrections = append(rec.Corrections, nc)
		}
	}
	return &rec, r.err
}

// stecResidualBits, stecResidualLSB and stecResidualSentinel are indexed
// by the 2-bit ST12 slant TEC residual size code.
var (
	stecResidualBits     = [4]uint{4, 4, 5, 7}
	stecResidualLSB      = [4]float64{0.04, 0.12, 0.16, 0.24}
	stecResidualSentinel = [4]int64{-8, -8, -16, -64}
)

// decodeCombined reads the body of an ST12 network and troposphere
// correction message.
func decodeCombined(r *reader, mask *Mask, grids GridChecker) (Record, error) {
	start := r.pos()
	if err := r.need(2 + 2 + networkIDBits + gridCountBits); err != nil {
		return nil, err
	}
	rec := CombinedRecord{
		TropoFlags: uint8(r.u(2)),
		STECFlags:  uint8(r.u(2)),
		NetworkID:  uint8(r.u(networkIDBits)),
		GridCount:  int(r.u(gridCountBits)),
	}
	gridErr := checkGrid(grids, rec.NetworkID, rec.GridCount)

	if rec.TropoFlags&2 != 0 {
		if err := r.need(qualityBits + 2 + 9); err != nil {
			return nil, err
		}
		tp := TropoPolynomial{
			Quality: uint8(r.u(qualityBits)),
			Type:    uint8(r.u(2)),
			T00:     scaled(r.s(9), -256, 0.004),
		}
		if tp.Type >= 1 {
			if err := r.need(7 + 7); err != nil {
				return nil, err
			}
			tp.T01 = scaled(r.s(7), -64, 0.002)
			tp.T10 = scaled(r.s(7), -64, 0.002)
		}
		if tp.Type >= 2 {
			if err := r.need(7); err != nil {
				return nil, err
			}
			tp.T11 = scaled(r.s(7), -64, 0.001)
		}
		rec.Tropo = &tp
	}

	if rec.TropoFlags&1 != 0 {
		if err := r.need(1 + 4); err != nil {
			return nil, err
		}
		tr := TropoResiduals{Wide: r.flag()}
		tr.Offset = float64(r.u(4)) * 0.02
		bits := uint(6)
		sentinel := int64(-32)
		if tr.Wide {
			bits = 8
			sentinel = -128
		}
		if err := r.need(bits * uint(rec.GridCount)); err != nil {
			return nil, err
		}
		for g := 0; g < rec.GridCount; g++ {
			tr.Residuals = append(tr.Residuals, scaled(r.s(bits), sentinel, 0.004))
		}
		rec.TropoResidual = &tr
	}

	r.other += r.pos() - start

	if rec.STECFlags&2 != 0 {
		selected, err := readSatelliteMasks(r, mask)
		if err != nil {
			return nil, err
		}
		for i := range mask.Systems {
			for j, sat := range mask.Systems[i].Satellites {
				if !selected[i][j] {
					continue
				}
				if err := r.need(qualityBits + 2); err != nil {
					return nil, err
				}
				sg := STECGrid{STECPolynomial: STECPolynomial{
					Satellite: sat,
					Quality:   uint8(r.u(qualityBits)),
				}}
				sg.Type = uint8(r.u(2))
				if err := readSTECPolynomial(r, &sg.STECPolynomial, sg.Type); err != nil {
					return nil, err
				}
				if err := r.need(2); err != nil {
					return nil, err
				}
				sg.ResidualSize = uint8(r.u(2))
				bits := stecResidualBits[sg.ResidualSize]
				if err := r.need(bits * uint(rec.GridCount)); err != nil {
					return nil, err
				}
				for g := 0; g < rec.GridCount; g++ {
					sg.Residuals = append(sg.Residuals, scaled(r.s(bits),
						stecResidualSentinel[sg.ResidualSize], stecResidualLSB[sg.ResidualSize]))
				}
				rec.STEC = append(rec.STEC, sg)
			}
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	if gridErr != nil {
		return nil, gridErr
	}
	return &rec, nil
}

// GridChecker checks a grid point count against a grid network table.
// It's satisfied by *grid.Table.
type GridChecker interface {
	CheckCount(networkID, points int) error
}

// checkGrid checks the grid count of an ST9 or ST12 message.  With no table
// the count in the message is trusted.
func checkGrid(grids GridChecker, networkID uint8, points int) error {
	if grids == nil {
		return nil
	}
	if err := grids.CheckCount(int(networkID), points); err != nil {
		return fmt.Errorf("%w: %v", ErrGridCountMismatch, err)
	}
	return nil
}
