package engine

import (
	"errors"
	"math"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero gain", func(c *Config) { c.GainWeight = 0 }, "gain_weight"},
		{"negative gain", func(c *Config) { c.GainWeight = -1 }, "gain_weight"},
		{"nan gain", func(c *Config) { c.GainWeight = math.NaN() }, "gain_weight"},
		{"infinite loss", func(c *Config) { c.LossWeight = math.Inf(1) }, "loss_weight"},
		{"zero loss", func(c *Config) { c.LossWeight = 0 }, "loss_weight"},
		{"negative transfer", func(c *Config) { c.TransferCost = -0.5 }, "transfer_cost"},
		{"nan transfer", func(c *Config) { c.TransferCost = math.NaN() }, "transfer_cost"},
		{"zero group bias", func(c *Config) { c.GroupBias = 0 }, "group_bias"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			var iwe *InvalidWeightError
			if !errors.As(err, &iwe) {
				t.Fatalf("got %v, want InvalidWeightError", err)
			}
			if iwe.Field != tc.field {
				t.Errorf("field = %q, want %q", iwe.Field, tc.field)
			}
		})
	}

	t.Run("bounds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TieCap = 0
		if cfg.Validate() == nil {
			t.Error("tie cap 0 accepted")
		}
		cfg = DefaultConfig()
		cfg.OriginThreshold = 0
		if cfg.Validate() == nil {
			t.Error("origin threshold 0 accepted")
		}
		cfg = DefaultConfig()
		cfg.Workers = -1
		if cfg.Validate() == nil {
			t.Error("negative workers accepted")
		}
	})

	t.Run("free transfer is fine", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TransferCost = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("zero transfer cost rejected: %v", err)
		}
	})
}
