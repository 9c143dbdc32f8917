package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the repeater's top-level configuration: one or more FNE
// peer connections, the per-protocol air-interface parameters, the
// conference-bridge rules routing calls between peers, and the ambient
// logging/metrics stack.
type Config struct {
	Server  ServerConfig            `mapstructure:"server"`
	NXDN    NXDNConfig              `mapstructure:"nxdn"`
	P25     P25Config               `mapstructure:"p25"`
	DMR     DMRConfig               `mapstructure:"dmr"`
	AES     AESConfig               `mapstructure:"aes"`
	Peers   map[string]PeerConfig   `mapstructure:"peers"`
	Bridges map[string][]BridgeRule `mapstructure:"bridges"`
	Logging LoggingConfig           `mapstructure:"logging"`
	Metrics MetricsConfig           `mapstructure:"metrics"`
}

// ServerConfig identifies this repeater instance.
type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// TimersConfig is the six call-engine timer knobs, in
// milliseconds as configured; callengine.TimerConfig wants
// time.Duration, so the per-knob accessors below (CallHang, TGHang, ...)
// do the conversion rather than asking every caller to remember the unit.
type TimersConfig struct {
	CallHangMS    int `mapstructure:"call_hang_ms"`
	TGHangMS      int `mapstructure:"tg_hang_ms"`
	RFTimeoutMS   int `mapstructure:"rf_timeout_ms"`
	NetTimeoutMS  int `mapstructure:"net_timeout_ms"`
	RFModeHangMS  int `mapstructure:"rf_mode_hang_ms"`
	NetModeHangMS int `mapstructure:"net_mode_hang_ms"`
}

func (t TimersConfig) asMillis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// CallHang, TGHang, RFTimeout, NetTimeout, RFModeHang, and NetModeHang
// return the configured knob as a time.Duration.
func (t TimersConfig) CallHang() time.Duration    { return t.asMillis(t.CallHangMS) }
func (t TimersConfig) TGHang() time.Duration      { return t.asMillis(t.TGHangMS) }
func (t TimersConfig) RFTimeout() time.Duration   { return t.asMillis(t.RFTimeoutMS) }
func (t TimersConfig) NetTimeout() time.Duration  { return t.asMillis(t.NetTimeoutMS) }
func (t TimersConfig) RFModeHang() time.Duration  { return t.asMillis(t.RFModeHangMS) }
func (t TimersConfig) NetModeHang() time.Duration { return t.asMillis(t.NetModeHangMS) }

// NXDNConfig carries NXDN's RAN and access-control lists.
type NXDNConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	RAN     int          `mapstructure:"ran"`
	Duplex  bool         `mapstructure:"duplex"`
	RIDACL  string       `mapstructure:"rid_acl"`
	TGIDACL string       `mapstructure:"tgid_acl"`
	Timers  TimersConfig `mapstructure:"timers"`
}

// P25Config carries P25's NAC and access-control lists.
type P25Config struct {
	Enabled bool         `mapstructure:"enabled"`
	NAC     int          `mapstructure:"nac"`
	Duplex  bool         `mapstructure:"duplex"`
	RIDACL  string       `mapstructure:"rid_acl"`
	TGIDACL string       `mapstructure:"tgid_acl"`
	Timers  TimersConfig `mapstructure:"timers"`
}

// DMRConfig carries DMR's color code and access-control lists; both
// timeslots share one color code and one pair of ACLs.
type DMRConfig struct {
	Enabled   bool         `mapstructure:"enabled"`
	ColorCode int          `mapstructure:"color_code"`
	Duplex    bool         `mapstructure:"duplex"`
	RIDACL    string       `mapstructure:"rid_acl"`
	TGIDACL   string       `mapstructure:"tgid_acl"`
	Timers    TimersConfig `mapstructure:"timers"`
}

// AESConfig carries the shared site key and IV for AES link privacy on
// FNE traffic payloads.
type AESConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	KeyHex  string `mapstructure:"key_hex"`
	IVHex   string `mapstructure:"iv_hex"`
}

// PeerConfig is one FNE peer connection this repeater dials out to.
type PeerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	FNEHost    string `mapstructure:"fne_host"`
	FNEPort    int    `mapstructure:"fne_port"`
	LocalPort  int    `mapstructure:"local_port"`
	RadioID    int    `mapstructure:"radio_id"`
	Callsign   string `mapstructure:"callsign"`
	Passphrase string `mapstructure:"passphrase"`
}

// BridgeRule represents a conference bridge routing rule.
type BridgeRule struct {
	System   string `mapstructure:"system"`
	TGID     int    `mapstructure:"tgid"`
	Timeslot int    `mapstructure:"timeslot"`
	Active   bool   `mapstructure:"active"`
	On       []int  `mapstructure:"on"`
	Off      []int  `mapstructure:"off"`
	Timeout  int    `mapstructure:"timeout"`
	ToType   string `mapstructure:"to_type"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/lmr-repeater")
	}

	viper.SetEnvPrefix("LMR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// explicit file missing is also fine
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func defaultTimers(prefix string) {
	viper.SetDefault(prefix+".call_hang_ms", 1000)
	viper.SetDefault(prefix+".tg_hang_ms", 5000)
	viper.SetDefault(prefix+".rf_timeout_ms", 3000)
	viper.SetDefault(prefix+".net_timeout_ms", 3000)
	viper.SetDefault(prefix+".rf_mode_hang_ms", 2000)
	viper.SetDefault(prefix+".net_mode_hang_ms", 2000)
}

func setDefaults() {
	viper.SetDefault("server.name", "lmr-repeater")
	viper.SetDefault("server.description", "digital LMR repeater host")

	viper.SetDefault("nxdn.enabled", true)
	viper.SetDefault("nxdn.ran", 1)
	viper.SetDefault("nxdn.rid_acl", "PERMIT:ALL")
	viper.SetDefault("nxdn.tgid_acl", "PERMIT:ALL")
	defaultTimers("nxdn.timers")

	viper.SetDefault("p25.enabled", true)
	viper.SetDefault("p25.nac", 0x293)
	viper.SetDefault("p25.rid_acl", "PERMIT:ALL")
	viper.SetDefault("p25.tgid_acl", "PERMIT:ALL")
	defaultTimers("p25.timers")

	viper.SetDefault("dmr.enabled", true)
	viper.SetDefault("dmr.color_code", 1)
	viper.SetDefault("dmr.rid_acl", "PERMIT:ALL")
	viper.SetDefault("dmr.tgid_acl", "PERMIT:ALL")
	defaultTimers("dmr.timers")

	viper.SetDefault("aes.enabled", false)
	viper.SetDefault("aes.iv_hex", "00000000000000000000000000000000")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
