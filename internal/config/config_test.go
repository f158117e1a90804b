package config

import "testing"

func TestParseEnvDefaults(t *testing.T) {
	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.InventorySize != 46 || cfg.TrackableEnd != 44 {
		t.Fatalf("unexpected inventory defaults: %+v", cfg)
	}
	if cfg.VerificationHorizon != 5 {
		t.Fatalf("expected default horizon 5, got %d", cfg.VerificationHorizon)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DRIFTGUARD_ADDR", ":9000")
	t.Setenv("DRIFTGUARD_TICK_RATE", "10")

	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.TickRate != 10 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestParseEnvRejectsBadValues(t *testing.T) {
	t.Setenv("DRIFTGUARD_TICK_RATE", "0")
	if _, err := ParseEnv(); err == nil {
		t.Fatalf("expected error for zero tick rate")
	}
}

func TestParseEnvRejectsTrackableEndPastSize(t *testing.T) {
	t.Setenv("DRIFTGUARD_INVENTORY_SIZE", "10")
	t.Setenv("DRIFTGUARD_TRACKABLE_END", "10")
	if _, err := ParseEnv(); err == nil {
		t.Fatalf("expected error for trackable end past inventory size")
	}
}
