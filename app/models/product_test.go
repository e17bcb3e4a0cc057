package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFeatureKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "pro_tier", want: "pro_tier"},
		{in: "  Pro Tier  ", want: "pro_tier"},
		{in: "API ACCESS", want: "api_access"},
		{in: "", want: ""},
		{in: "   ", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeFeatureKey(tt.in); got != tt.want {
			t.Fatalf("NormalizeFeatureKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizedFeatureKeysDeduplicates(t *testing.T) {
	p := &Product{FeatureKeys: []string{"Pro Tier", "pro_tier", "", "api access", "API Access"}}

	assert.Equal(t, []string{"pro_tier", "api_access"}, p.NormalizedFeatureKeys())
}

func TestActiveAssets(t *testing.T) {
	p := &Product{Assets: []DigitalAsset{
		{ID: 1, IsActive: true},
		{ID: 2, IsActive: false, IsPending: true},
		{ID: 3, IsActive: true},
	}}

	active := p.ActiveAssets()
	assert.Len(t, active, 2)
	assert.Equal(t, uint(1), active[0].ID)
	assert.Equal(t, uint(3), active[1].ID)
}
