package secrets_test

import (
	"errors"
	"testing"

	"github.com/avollmer/deskmux/internal/secrets"
)

func TestVaultInitialLoad(t *testing.T) {
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"LLM_API_KEY": "sk-test"}, nil
	})
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if got := v.Get("LLM_API_KEY"); got != "sk-test" {
		t.Fatalf("Get = %q, want sk-test", got)
	}
	if got := v.Get("MISSING"); got != "" {
		t.Fatalf("Get missing = %q, want empty", got)
	}
}

func TestVaultLoaderError(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVaultReload(t *testing.T) {
	calls := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		calls++
		if calls == 1 {
			return map[string]string{"LLM_API_KEY": "old"}, nil
		}
		return map[string]string{"LLM_API_KEY": "new"}, nil
	})

	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := v.Get("LLM_API_KEY"); got != "new" {
		t.Fatalf("Get after reload = %q, want new", got)
	}
}

func TestVaultReloadErrorPreservesValues(t *testing.T) {
	calls := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		calls++
		if calls == 1 {
			return map[string]string{"LLM_API_KEY": "original"}, nil
		}
		return nil, errors.New("vault unavailable")
	})

	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := v.Get("LLM_API_KEY"); got != "original" {
		t.Fatalf("Get = %q, want original preserved", got)
	}
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("DESKMUX_TEST_SECRET", "value")

	loader := secrets.EnvLoader("DESKMUX_TEST_SECRET", "DESKMUX_TEST_ABSENT")
	vals, err := loader()
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	if vals["DESKMUX_TEST_SECRET"] != "value" {
		t.Fatalf("vals = %v, want DESKMUX_TEST_SECRET=value", vals)
	}
	if _, ok := vals["DESKMUX_TEST_ABSENT"]; ok {
		t.Fatal("absent variable should be omitted")
	}
}
