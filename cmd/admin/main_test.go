package main

import (
	"testing"

	"points/internal/domain/point"
)

func TestParseAccountIDs(t *testing.T) {
	tests := []struct {
		input   string
		want    []point.AccountID
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "1", want: []point.AccountID{1}},
		{input: "1, 2,,3", want: []point.AccountID{1, 2, 3}},
		{input: "1,x", wantErr: true},
		{input: "0", wantErr: true},
		{input: "-4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAccountIDs(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAccountIDs(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAccountIDs(%q) failed: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAccountIDs(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseAccountIDs(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}
