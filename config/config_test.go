package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := LoadConfig(path)
	if *cfg != Defaults() {
		t.Errorf("unexpected config %+v", *cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if GetConfigValue("blocksize").(int) != 20 {
		t.Errorf("blocksize = %v", GetConfigValue("blocksize"))
	}
	if GetConfigValue("tickrate").(float64) != 10 {
		t.Errorf("tickrate = %v", GetConfigValue("tickrate"))
	}
	if GetConfigValue("unknown") != "" {
		t.Errorf("unknown key should be empty")
	}
}
