package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "wiki")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	var s sample
	if err := Load(p, true, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "wiki" || s.Port != 9000 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoadOverridesBeforeValidate(t *testing.T) {
	p := writeConfig(t, "port: 9000\n")

	var s sample
	err := Load(p, true, &s, func(s *sample) { s.Name = "from-flag" })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-flag" {
		t.Errorf("override not applied: %+v", s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	s := sample{Name: "default", Port: 1}
	if err := Load(missing, false, &s); err != nil {
		t.Fatalf("optional missing file: %v", err)
	}
	if s.Port != 1 {
		t.Errorf("defaults changed: %+v", s)
	}

	if err := Load(missing, true, &s); err == nil {
		t.Error("required missing file should fail")
	}
}

func TestLoadValidationError(t *testing.T) {
	p := writeConfig(t, "port: 1\n")
	var s sample
	err := Load(p, true, &s)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("err = %v", err)
	}
}
