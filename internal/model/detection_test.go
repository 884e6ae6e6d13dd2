package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseGranularity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected Granularity
		wantErr  bool
	}{
		{"", GranularitySentence, false},
		{"sentence", GranularitySentence, false},
		{"LINE", GranularityLine, false},
		{" chunk ", GranularityChunk, false},
		{"paragraph", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseGranularity(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestNewVerdictClamps(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"in range", 0.25, 0.25},
		{"negative", -0.5, 0},
		{"above one", 1.5, 1},
		{"nan", math.NaN(), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := NewVerdict("m", tc.input)
			if v.AIProbability != tc.expected {
				t.Errorf("got %v, expected %v", v.AIProbability, tc.expected)
			}
			if v.AIProbability+v.HumanProbability != 1 {
				t.Errorf("probabilities do not sum to 1: %v + %v", v.AIProbability, v.HumanProbability)
			}
		})
	}
}

func TestDurationJSON(t *testing.T) {
	t.Parallel()

	d := Duration(1500 * time.Millisecond)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "1.5" {
		t.Errorf("got %s, expected 1.5", data)
	}

	var back Duration
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Std() != 1500*time.Millisecond {
		t.Errorf("got %v, expected 1.5s", back.Std())
	}
}

func TestRunStateTerminal(t *testing.T) {
	t.Parallel()

	if RunPending.Terminal() || RunRunning.Terminal() {
		t.Error("pending and running must not be terminal")
	}
	if !RunComplete.Terminal() || !RunAborted.Terminal() {
		t.Error("complete and aborted must be terminal")
	}
}
