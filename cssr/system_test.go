package cssr

import (
	"errors"
	"testing"
)

func TestSystemFromGNSSID(t *testing.T) {
	var testData = []struct {
		ID         uint
		Want       System
		WantLetter byte
		WantErr    bool
	}{
		{0, GPS, 'G', false},
		{1, GLONASS, 'R', false},
		{2, Galileo, 'E', false},
		{3, BeiDou, 'C', false},
		{4, QZSS, 'J', false},
		{5, SBAS, 'S', false},
		{6, NavIC, 'I', false},
		{7, 0, 0, true},
		{15, 0, 0, true},
	}

	for _, td := range testData {
		got, err := SystemFromGNSSID(td.ID)
		if td.WantErr {
			if !errors.Is(err, ErrUnknownSystem) {
				t.Errorf("%d: want ErrUnknownSystem got %v", td.ID, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%d: %v", td.ID, err)
			continue
		}
		if got != td.Want {
			t.Errorf("%d: want %v got %v", td.ID, td.Want, got)
		}
		if got.Letter() != td.WantLetter {
			t.Errorf("%d: want letter %c got %c", td.ID, td.WantLetter, got.Letter())
		}
	}
}

func TestSatelliteName(t *testing.T) {
	if got := QZSS.SatelliteName(3); got != "J03" {
		t.Errorf("want J03 got %s", got)
	}
	if got := BeiDou3.SatelliteName(40); got != "C40" {
		t.Errorf("want C40 got %s", got)
	}
}

func TestSignalName(t *testing.T) {
	var testData = []struct {
		System System
		Bit    int
		Want   string
	}{
		{GPS, 0, "L1 C/A"},
		{GPS, 11, "L5 I"},
		{GPS, 15, ""},
		{Galileo, 13, "E6 C"},
		{BeiDou, 12, ""},
		{BeiDou3, 12, "B2a(D)"},
		{GPS, 16, ""},
		{System(42), 0, ""},
	}

	for _, td := range testData {
		if got := SignalName(td.System, td.Bit); got != td.Want {
			t.Errorf("%v bit %d: want %q got %q", td.System, td.Bit, td.Want, got)
		}
	}
}

func TestUpdateIntervalSeconds(t *testing.T) {
	var testData = []struct {
		Code uint8
		Want int
	}{
		{0, 1}, {3, 10}, {7, 120}, {12, 1800}, {15, 10800},
	}

	for _, td := range testData {
		if got := UpdateIntervalSeconds(td.Code); got != td.Want {
			t.Errorf("code %d: want %d got %d", td.Code, td.Want, got)
		}
	}
}
