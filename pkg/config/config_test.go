package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	viper.Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !cfg.NXDN.Enabled {
		t.Errorf("expected NXDN.Enabled default true")
	}
	if cfg.NXDN.RAN != 1 {
		t.Errorf("expected NXDN.RAN default 1, got %d", cfg.NXDN.RAN)
	}
	if cfg.DMR.ColorCode != 1 {
		t.Errorf("expected DMR.ColorCode default 1, got %d", cfg.DMR.ColorCode)
	}
	if cfg.Logging.Level == "" {
		t.Errorf("expected Logging.Level to be set (default info)")
	}
	if cfg.Metrics.Prometheus.Port != 9090 {
		t.Errorf("expected Prometheus.Port default 9090, got %d", cfg.Metrics.Prometheus.Port)
	}
	if cfg.NXDN.Timers.RFTimeout() != 3*time.Second {
		t.Errorf("expected NXDN RFTimeout default 3s, got %v", cfg.NXDN.Timers.RFTimeout())
	}
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	viper.Reset()

	fixture := map[string]any{
		"server": map[string]any{"name": "test-site"},
		"nxdn": map[string]any{
			"enabled": true,
			"ran":     42,
			"duplex":  true,
			"timers":  map[string]any{"rf_timeout_ms": 9000},
		},
		"aes": map[string]any{
			"enabled": true,
			"key_hex": "000102030405060708090a0b0c0d0e0f",
		},
		"peers": map[string]any{
			"site1": map[string]any{
				"enabled":    true,
				"fne_host":   "fne.example.net",
				"fne_port":   62031,
				"radio_id":   311001,
				"passphrase": "s3cret",
			},
		},
	}
	data, err := yaml.Marshal(fixture)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Name != "test-site" {
		t.Errorf("expected server name test-site, got %q", cfg.Server.Name)
	}
	if cfg.NXDN.RAN != 42 {
		t.Errorf("expected NXDN.RAN 42, got %d", cfg.NXDN.RAN)
	}
	if cfg.NXDN.Timers.RFTimeout() != 9*time.Second {
		t.Errorf("expected NXDN RFTimeout 9s, got %v", cfg.NXDN.Timers.RFTimeout())
	}
	if !cfg.AES.Enabled {
		t.Error("expected AES enabled")
	}
	if cfg.Peers["site1"].FNEHost != "fne.example.net" {
		t.Errorf("unexpected peer host %q", cfg.Peers["site1"].FNEHost)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Run("invalid prometheus port when enabled", func(t *testing.T) {
		cfg := &Config{Metrics: MetricsConfig{Enabled: true, Prometheus: PrometheusConfig{Enabled: true, Port: 70000}}}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for invalid prometheus port out of range")
		}
	})

	t.Run("invalid ACL syntax rejected", func(t *testing.T) {
		cfg := &Config{NXDN: NXDNConfig{Enabled: true, RIDACL: "ALLOW:1"}}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for ACL not starting with PERMIT: or DENY:")
		}
	})

	t.Run("peer missing fne_host", func(t *testing.T) {
		cfg := &Config{
			Peers: map[string]PeerConfig{
				"site1": {Enabled: true, FNEPort: 62031, RadioID: 1, Passphrase: "x"},
			},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for peer without fne_host")
		}
	})

	t.Run("bridge references unknown peer", func(t *testing.T) {
		cfg := &Config{
			Peers: map[string]PeerConfig{"site1": {Enabled: true, FNEHost: "a", FNEPort: 1234, RadioID: 1, Passphrase: "x"}},
			Bridges: map[string][]BridgeRule{
				"b1": {{System: "nope", TGID: 3100, Timeslot: 1}},
			},
		}
		if err := validate(cfg); err == nil {
			t.Fatal("expected error for bridge system not found")
		}
	})
}
