package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("CASH_ROUNDING", "")
	t.Setenv("PERSIST_SHIFT", "")
	t.Setenv("REQUIRE_OPEN_SHIFT", "")

	cfg := Load()
	if cfg.Port != "3030" {
		t.Fatalf("port = %q, want 3030", cfg.Port)
	}
	if cfg.TaxRatePercent != 16 {
		t.Fatalf("tax rate = %v, want 16", cfg.TaxRatePercent)
	}
	if cfg.CashRounding != "0.50" {
		t.Fatalf("cash rounding = %q, want 0.50", cfg.CashRounding)
	}
	if !cfg.PersistShift {
		t.Fatal("shift persistence should default on")
	}
	if cfg.RequireOpenShift {
		t.Fatal("open shift requirement should default off")
	}
}

func TestAddressIsLoopbackOnly(t *testing.T) {
	t.Setenv("PORT", "4545")
	cfg := Load()
	if cfg.Address() != "127.0.0.1:4545" {
		t.Fatalf("address = %q, want 127.0.0.1:4545", cfg.Address())
	}
}

func TestBoolEnvParsing(t *testing.T) {
	t.Setenv("REQUIRE_OPEN_SHIFT", "yes")
	if !Load().RequireOpenShift {
		t.Fatal("yes should enable the flag")
	}
	t.Setenv("REQUIRE_OPEN_SHIFT", "garbage")
	if Load().RequireOpenShift {
		t.Fatal("unparseable value should fall back to the default")
	}
	t.Setenv("PERSIST_SHIFT", "off")
	if Load().PersistShift {
		t.Fatal("off should disable persistence")
	}
}

func TestInvalidTaxRateFallsBack(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "-4")
	if got := Load().TaxRatePercent; got != 16 {
		t.Fatalf("tax rate = %v, want fallback 16", got)
	}
}
