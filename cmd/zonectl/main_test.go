package main

import "testing"

func TestParsePoint(t *testing.T) {
	tests := []struct {
		input   string
		x, y    float64
		wantErr bool
	}{
		{"0.5,0.5", 0.5, 0.5, false},
		{" 0.2 , 0.8 ", 0.2, 0.8, false},
		{"1,0", 1, 0, false},
		{"0.5", 0, 0, true},
		{"a,0.5", 0, 0, true},
		{"0.5,b", 0, 0, true},
		{"0.1,0.2,0.3", 0, 0, true},
	}

	for _, tt := range tests {
		p, err := parsePoint(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (p.X != tt.x || p.Y != tt.y) {
			t.Errorf("parsePoint(%q) = %+v, expected (%g, %g)", tt.input, p, tt.x, tt.y)
		}
	}
}
