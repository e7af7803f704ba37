package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/rumor-bot/internal/state"
)

func TestChoice(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{input: "1", want: 1, wantOK: true},
		{input: " 2 ", want: 2, wantOK: true},
		{input: "0", want: 0, wantOK: true},
		{input: "-1"},
		{input: "one"},
		{input: ""},
		{input: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := choice(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToken(t *testing.T) {
	assert.Equal(t, "y", token(" Y "))
	assert.Equal(t, "r", token("r"))
	assert.Equal(t, "yes", token("YES"))
}

func TestNewRegistry_CoversEveryState(t *testing.T) {
	registry := NewRegistry(Deps{})

	for _, s := range state.States {
		assert.Contains(t, registry, s)
	}
	assert.Len(t, registry, len(state.States))
}
