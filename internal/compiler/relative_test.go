package compiler

import (
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/pulsegrid-core/internal/actiontable"
)

func floatPtr(v float64) *float64 { return &v }

func TestCompileRelativeRebasesToZero(t *testing.T) {
	table := actiontable.Table{
		{TimeMillis: 100, Handler: "camera", Digital: 0b01, Analog: [4]float64{1, 0, 0, 0}},
		{TimeMillis: 105, Handler: "laser", Digital: 0b11, Analog: [4]float64{2, 0, 0, 0}},
		{TimeMillis: 112, Handler: "camera", Digital: 0b01, Analog: [4]float64{2, 0, 0, 0}},
	}

	actions, err := CompileRelative(table, 0, 3, nil)
	if err != nil {
		t.Fatalf("CompileRelative() error = %v", err)
	}

	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}
	if actions[0].TimeMillis != 0 {
		t.Errorf("first action at t=%g, want 0", actions[0].TimeMillis)
	}
	wantTimes := []float64{0, 5, 12}
	for i, a := range actions {
		if a.TimeMillis != wantTimes[i] {
			t.Errorf("action %d at t=%g, want %g", i, a.TimeMillis, wantTimes[i])
		}
	}
	if actions[1].Digital != 0b11 {
		t.Errorf("action 1 digital = %#b, want 0b11", actions[1].Digital)
	}
}

func TestCompileRelativeSubRange(t *testing.T) {
	table := actiontable.Table{
		{TimeMillis: 0},
		{TimeMillis: 50},
		{TimeMillis: 60},
	}

	actions, err := CompileRelative(table, 1, 3, nil)
	if err != nil {
		t.Fatalf("CompileRelative() error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].TimeMillis != 0 || actions[1].TimeMillis != 10 {
		t.Errorf("times = [%g, %g], want [0, 10]", actions[0].TimeMillis, actions[1].TimeMillis)
	}
}

func TestCompileRelativeRepeatPadding(t *testing.T) {
	table := actiontable.Table{
		{TimeMillis: 0, Digital: 0b01},
		{TimeMillis: 8, Digital: 0b10, Analog: [4]float64{3, 0, 0, 0}},
	}

	tests := []struct {
		name        string
		repDuration *float64
		wantLen     int
	}{
		{name: "no repeats", repDuration: nil, wantLen: 2},
		{name: "rep beyond last action", repDuration: floatPtr(20), wantLen: 3},
		{name: "rep at last action", repDuration: floatPtr(8), wantLen: 2},
		{name: "rep before last action", repDuration: floatPtr(5), wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := CompileRelative(table, 0, 2, tt.repDuration)
			if err != nil {
				t.Fatalf("CompileRelative() error = %v", err)
			}
			if len(actions) != tt.wantLen {
				t.Fatalf("got %d actions, want %d", len(actions), tt.wantLen)
			}
			if tt.wantLen == 3 {
				pad := actions[2]
				if pad.TimeMillis != *tt.repDuration {
					t.Errorf("padding at t=%g, want %g", pad.TimeMillis, *tt.repDuration)
				}
				if pad.Digital != actions[1].Digital || pad.Analog != actions[1].Analog {
					t.Errorf("padding values %+v do not repeat last action %+v", pad, actions[1])
				}
			}
		})
	}
}

func TestCompileRelativeErrors(t *testing.T) {
	table := actiontable.Table{
		{TimeMillis: 0},
		{TimeMillis: 5},
	}

	_, err := CompileRelative(table, 1, 1, nil)
	if !errors.Is(err, actiontable.ErrEmptySelection) {
		t.Errorf("empty selection error = %v, want ErrEmptySelection", err)
	}

	for _, bad := range []float64{0, -3, math.NaN()} {
		_, err := CompileRelative(table, 0, 2, &bad)
		if !errors.Is(err, ErrInvalidRepDuration) {
			t.Errorf("repDuration=%g error = %v, want ErrInvalidRepDuration", bad, err)
		}
	}
}
