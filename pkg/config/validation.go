package config

import (
	"encoding/hex"
	"fmt"

	"github.com/openlmr/lmr-repeater/pkg/access"
)

// validate validates the configuration, checking ACL syntax the same
// way pkg/access.ParseACL does so a malformed rule is caught at load
// time rather than the first admission check.
func validate(cfg *Config) error {
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	checkACL := func(label, rule string) error {
		if rule == "" {
			return nil
		}
		if _, err := access.ParseACL(rule); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		return nil
	}

	if cfg.NXDN.Enabled {
		if err := checkACL("nxdn.rid_acl", cfg.NXDN.RIDACL); err != nil {
			return err
		}
		if err := checkACL("nxdn.tgid_acl", cfg.NXDN.TGIDACL); err != nil {
			return err
		}
	}
	if cfg.P25.Enabled {
		if err := checkACL("p25.rid_acl", cfg.P25.RIDACL); err != nil {
			return err
		}
		if err := checkACL("p25.tgid_acl", cfg.P25.TGIDACL); err != nil {
			return err
		}
	}
	if cfg.DMR.Enabled {
		if err := checkACL("dmr.rid_acl", cfg.DMR.RIDACL); err != nil {
			return err
		}
		if err := checkACL("dmr.tgid_acl", cfg.DMR.TGIDACL); err != nil {
			return err
		}
	}

	if cfg.AES.Enabled {
		key, err := hex.DecodeString(cfg.AES.KeyHex)
		if err != nil {
			return fmt.Errorf("aes.key_hex: %w", err)
		}
		if l := len(key); l != 16 && l != 24 && l != 32 {
			return fmt.Errorf("aes.key_hex must decode to 16, 24 or 32 bytes, got %d", l)
		}
		iv, err := hex.DecodeString(cfg.AES.IVHex)
		if err != nil {
			return fmt.Errorf("aes.iv_hex: %w", err)
		}
		if len(iv) != 16 {
			return fmt.Errorf("aes.iv_hex must decode to 16 bytes, got %d", len(iv))
		}
	}

	for name, peer := range cfg.Peers {
		if !peer.Enabled {
			continue
		}
		if peer.FNEHost == "" {
			return fmt.Errorf("peer %s: fne_host is required", name)
		}
		if peer.FNEPort <= 0 || peer.FNEPort > 65535 {
			return fmt.Errorf("peer %s: fne_port must be between 1 and 65535", name)
		}
		if peer.RadioID <= 0 {
			return fmt.Errorf("peer %s: radio_id is required", name)
		}
		if peer.Passphrase == "" {
			return fmt.Errorf("peer %s: passphrase is required", name)
		}
	}

	for bridgeName, rules := range cfg.Bridges {
		for i, rule := range rules {
			if rule.System == "" {
				return fmt.Errorf("bridge %s rule %d: system is required", bridgeName, i)
			}
			if _, exists := cfg.Peers[rule.System]; !exists {
				return fmt.Errorf("bridge %s rule %d: system %s not found", bridgeName, i, rule.System)
			}
			if rule.TGID <= 0 {
				return fmt.Errorf("bridge %s rule %d: tgid must be positive", bridgeName, i)
			}
			if rule.ToType != "" && rule.ToType != "ON" && rule.ToType != "OFF" {
				return fmt.Errorf("bridge %s rule %d: to_type must be ON or OFF", bridgeName, i)
			}
		}
	}

	return nil
}
