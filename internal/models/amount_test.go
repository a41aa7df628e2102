package models

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string // scaled integer as string, "" means error expected
		wantErr bool
	}{
		{"100", "100000000000", false},
		{"99.50", "99500000000", false},
		{"0.000000001", "1", false},
		{" 5 ", "5000000000", false},
		{"0", "", true},
		{"0.0", "", true},
		{"-1", "", true},
		{"", "", true},
		{"1.2.3", "", true},
		{"abc", "", true},
		{"1.0000000001", "", true}, // too many decimal places
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%q) expected error, got %s", tt.input, v.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if v.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, v.String(), tt.want)
			}
		})
	}
}
