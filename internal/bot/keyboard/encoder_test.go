package keyboard_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Proton-105/rumor-bot/internal/bot/keyboard"
)

func TestEncodeCallback(t *testing.T) {
	tests := []struct {
		name      string
		unique    string
		data      string
		want      string
		wantError bool
	}{
		{
			name:   "with data",
			unique: "pb",
			data:   "2",
			want:   "pb:2",
		},
		{
			name:   "without data",
			unique: "noop",
			data:   "",
			want:   "noop",
		},
		{
			name:      "payload pushes past limit",
			unique:    "pb",
			data:      strings.Repeat("y", keyboard.CallbackDataLimitBytes-2),
			wantError: true,
		},
		{
			name:      "exceeds limit",
			unique:    strings.Repeat("x", keyboard.CallbackDataLimitBytes+1),
			data:      "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyboard.EncodeCallback(tt.unique, tt.data)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("EncodeCallback() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeCallback(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantUnique string
		wantData   string
		wantErr    bool
	}{
		{
			name:       "unique and data",
			input:      "pb:3",
			wantUnique: "pb",
			wantData:   "3",
		},
		{
			name:       "only unique",
			input:      "noop",
			wantUnique: "noop",
			wantData:   "",
		},
		{
			name:       "multiple separators",
			input:      "action:part1:part2",
			wantUnique: "action",
			wantData:   "part1:part2",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, data, err := keyboard.DecodeCallback(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if unique != tt.wantUnique || data != tt.wantData {
				t.Errorf("DecodeCallback() = (%q, %q), want (%q, %q)", unique, data, tt.wantUnique, tt.wantData)
			}
		})
	}
}

func TestPostbackRoundTrip(t *testing.T) {
	for _, payload := range []string{"y", "10", "0"} {
		data, err := keyboard.EncodePostback(payload)
		if err != nil {
			t.Fatalf("EncodePostback(%q): %v", payload, err)
		}

		got, err := keyboard.DecodePostback(data)
		if err != nil {
			t.Fatalf("DecodePostback(%q): %v", data, err)
		}
		if got != payload {
			t.Errorf("round trip = %q, want %q", got, payload)
		}
	}

	if _, err := keyboard.DecodePostback("\fsettings|lang"); !errors.Is(err, keyboard.ErrNotPostback) {
		t.Errorf("expected ErrNotPostback, got %v", err)
	}
}
