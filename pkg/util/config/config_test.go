package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Importing the package must not touch the config file; it is parsed
// on the first Get so packages under test can run without one.
func TestGetParsesLazily(t *testing.T) {
	dir := t.TempDir()
	raw := []byte(`{"evac":{"addr":"127.0.0.1"}}`)
	if err := os.WriteFile(filepath.Join(dir, configFile), raw, 0644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if got := Get("evac.addr"); got != "127.0.0.1" {
		t.Errorf("expected 127.0.0.1: got %s", got)
	}
}
