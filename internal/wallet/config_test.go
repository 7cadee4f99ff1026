package wallet

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig(Mainnet)
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should validate, got %v", err)
	}
}

func TestConfigValidateRejectsWrongRingSize(t *testing.T) {
	cfg := DefaultConfig(Mainnet)
	cfg.RingSize = 5
	if err := cfg.Validate(); err != ErrInvalidConfig {
		t.Errorf("expected ErrInvalidConfig for a non-default ring size, got %v", err)
	}
}

func TestConfigValidateAllowsZeroRingSize(t *testing.T) {
	cfg := DefaultConfig(Mainnet)
	cfg.RingSize = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("a zero ring size means unset/default and should validate, got %v", err)
	}
}
