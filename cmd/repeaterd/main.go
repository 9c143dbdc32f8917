// Command repeaterd is the host process: it loads configuration, builds
// the logger/metrics/access-control ambient stack, wires one call
// pipeline per enabled protocol (NXDN, P25, two DMR timeslots) to their
// FNE peer connections, and runs until signalled to stop.
//
// The Modem FrameSink each Voice/Slot takes is left as a no-op sink
// here; a real deployment supplies one reading/writing the attached
// modem's byte stream.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/openlmr/lmr-repeater/pkg/access"
	"github.com/openlmr/lmr-repeater/pkg/bridge"
	"github.com/openlmr/lmr-repeater/pkg/callengine"
	"github.com/openlmr/lmr-repeater/pkg/config"
	"github.com/openlmr/lmr-repeater/pkg/dmr"
	"github.com/openlmr/lmr-repeater/pkg/logger"
	"github.com/openlmr/lmr-repeater/pkg/metrics"
	"github.com/openlmr/lmr-repeater/pkg/network"
	"github.com/openlmr/lmr-repeater/pkg/nxdn"
	"github.com/openlmr/lmr-repeater/pkg/p25"
)

// activityCapacity bounds the in-memory recent-call ledger every
// bridge.TransmissionLogger reports completed transmissions to.
const activityCapacity = 200

// buildBridgeRouter loads the configured conference-bridge rule sets
// into a bridge.Router, for the protocol engines' per-call routeCall
// hook to consult alongside the synthetic RF/NET rule it mints itself.
func buildBridgeRouter(cfg *config.Config) *bridge.Router {
	router := bridge.NewRouter()
	for name, rules := range cfg.Bridges {
		ruleSet := bridge.NewBridgeRuleSet(name)
		for _, rule := range rules {
			ruleSet.AddRule(&bridge.BridgeRule{
				System:   rule.System,
				TGID:     rule.TGID,
				Timeslot: rule.Timeslot,
				Active:   rule.Active,
				On:       rule.On,
				Off:      rule.Off,
				Timeout:  rule.Timeout,
			})
		}
		router.AddBridge(ruleSet)
	}
	return router
}

var (
	version   = "dev"
	gitCommit = "unknown"
)

// noopModem satisfies the NXDN/P25/DMR FrameSink contract for the
// modem side when this repeater is run simplex, or when no modem
// transport has been wired in for this deployment.
type noopModem struct{}

func (noopModem) Enqueue([]byte) {}
func (noopModem) Clear()         {}

// Per-protocol scrambler whitening sequences. These are placeholder
// keystreams, not the standardised air-interface scrambling sequence
// each protocol actually specifies. Wiring the real per-protocol LFSR
// polynomial is channel-codec leaf work alongside the CSBK/TSBK
// encoders.
var (
	nxdnScramblerKey = []byte{0x5A, 0xA5, 0x3C, 0xC3}
	p25ScramblerKey  = []byte{0xAA, 0x55}
	dmrScramblerKey  = []byte{0x7E, 0x81}
)

func timerConfig(t config.TimersConfig) callengine.TimerConfig {
	return callengine.TimerConfig{
		CallHang:    t.CallHang(),
		TGHang:      t.TGHang(),
		RFTimeout:   t.RFTimeout(),
		NetTimeout:  t.NetTimeout(),
		RFModeHang:  t.RFModeHang(),
		NetModeHang: t.NetModeHang(),
	}
}

func buildAccessControl(ridRule, tgidRule string) (*access.Control, error) {
	var ridACL, tgidACL *access.ACL
	if ridRule != "" {
		acl, err := access.ParseACL(ridRule)
		if err != nil {
			return nil, fmt.Errorf("rid acl: %w", err)
		}
		ridACL = acl
	}
	if tgidRule != "" {
		acl, err := access.ParseACL(tgidRule)
		if err != nil {
			return nil, fmt.Errorf("tgid acl: %w", err)
		}
		tgidACL = acl
	}
	return access.NewControl(ridACL, tgidACL), nil
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lmr-repeater %s (%s)\n", version, gitCommit)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})
	log.Info("starting lmr-repeater", "version", version, "commit", gitCommit)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *validateOnly {
		log.Info("configuration is valid")
		os.Exit(0)
	}

	log = logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Info("configuration loaded", "config_file", *configFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	collector := metrics.NewCollector()

	bridgeRouter := buildBridgeRouter(cfg)
	activityLog := logger.NewActivityLog(activityCapacity, log)
	var txLogs []*bridge.TransmissionLogger
	newTxLog := func(protocol string) *bridge.TransmissionLogger {
		tl := bridge.NewTransmissionLogger(protocol, activityLog, log)
		txLogs = append(txLogs, tl)
		return tl
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		srv := metrics.NewPrometheusServer(metrics.PrometheusConfig{
			Enabled: cfg.Metrics.Prometheus.Enabled,
			Port:    cfg.Metrics.Prometheus.Port,
			Path:    cfg.Metrics.Prometheus.Path,
		}, collector, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil && err != context.Canceled {
				log.Error("prometheus server error", "error", err)
			}
		}()
	}

	// Find the first enabled peer connection; a multi-peer repeater
	// would run one set of engines per peer, but a single FNE uplink is
	// the common case this entrypoint wires directly.
	var peerCfg config.PeerConfig
	var peerName string
	for name, p := range cfg.Peers {
		if p.Enabled {
			peerCfg, peerName = p, name
			break
		}
	}
	if peerName == "" {
		log.Warn("no enabled peer configured; protocol engines will run without an FNE uplink")
	}

	var nxdnVoice *nxdn.Voice
	var p25Voice *p25.Voice
	var dmrSlots [2]*dmr.Slot

	peer := network.NewPeer(network.Config{
		RepeaterID: uint32(peerCfg.RadioID),
		Callsign:   peerCfg.Callsign,
		Passphrase: peerCfg.Passphrase,
		LocalPort:  peerCfg.LocalPort,
		FNEHost:    peerCfg.FNEHost,
		FNEPort:    peerCfg.FNEPort,
	}, func(tag string, payload []byte) {
		dispatchNetworkFrame(log, tag, payload, nxdnVoice, p25Voice, dmrSlots)
	}, log.With("component", "network."+peerName))

	if cfg.AES.Enabled {
		key, _ := hex.DecodeString(cfg.AES.KeyHex)
		iv, _ := hex.DecodeString(cfg.AES.IVHex)
		privacy, err := network.NewPrivacy(key, iv)
		if err != nil {
			log.Error("aes link privacy", "error", err)
			os.Exit(1)
		}
		peer.SetPrivacy(privacy)
		log.Info("AES link privacy enabled", "key_bits", len(key)*8)
	}

	if cfg.NXDN.Enabled {
		ctl, err := buildAccessControl(cfg.NXDN.RIDACL, cfg.NXDN.TGIDACL)
		if err != nil {
			log.Error("nxdn access control", "error", err)
			os.Exit(1)
		}
		nxdnVoice = nxdn.NewVoice(uint8(cfg.NXDN.RAN), cfg.NXDN.Duplex, timerConfig(cfg.NXDN.Timers), ctl,
			nxdnScramblerKey, network.NXDNSink{Peer: peer}, noopModem{}, log)
		nxdnVoice.Engine.SetMetrics("NXDN", collector)
		nxdnVoice.Engine.SetBridge(bridgeRouter, newTxLog("NXDN"), "nxdn", 0)
		log.Info("NXDN engine ready", "ran", cfg.NXDN.RAN, "duplex", cfg.NXDN.Duplex)
	}

	if cfg.P25.Enabled {
		ctl, err := buildAccessControl(cfg.P25.RIDACL, cfg.P25.TGIDACL)
		if err != nil {
			log.Error("p25 access control", "error", err)
			os.Exit(1)
		}
		p25Voice = p25.NewVoice(uint16(cfg.P25.NAC), cfg.P25.Duplex, timerConfig(cfg.P25.Timers), ctl,
			p25ScramblerKey, network.P25Sink{Peer: peer}, noopModem{}, log)
		p25Voice.Engine.SetMetrics("P25", collector)
		p25Voice.Engine.SetBridge(bridgeRouter, newTxLog("P25"), "p25", 0)
		log.Info("P25 engine ready", "nac", cfg.P25.NAC, "duplex", cfg.P25.Duplex)
	}

	if cfg.DMR.Enabled {
		ctl, err := buildAccessControl(cfg.DMR.RIDACL, cfg.DMR.TGIDACL)
		if err != nil {
			log.Error("dmr access control", "error", err)
			os.Exit(1)
		}
		for i := range dmrSlots {
			dmrSlots[i] = dmr.NewSlot(i+1, byte(cfg.DMR.ColorCode), cfg.DMR.Duplex, timerConfig(cfg.DMR.Timers), ctl,
				dmrScramblerKey, network.DMRSink{Peer: peer}, noopModem{}, log)
			dmrSlots[i].Engine.SetMetrics("DMR", collector)
			systemName := fmt.Sprintf("dmr-ts%d", i+1)
			dmrSlots[i].Engine.SetBridge(bridgeRouter, newTxLog("DMR"), systemName, i+1)
		}
		log.Info("DMR engine ready", "color_code", cfg.DMR.ColorCode, "duplex", cfg.DMR.Duplex)
	}

	if peerName != "" {
		bridgeRouter.RegisterPeer(uint32(peerCfg.RadioID), peerName)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := peer.Run(ctx); err != nil && err != context.Canceled {
				log.Error("peer connection error", "peer", peerName, "error", err)
			}
		}()
		log.Info("connecting to FNE", "peer", peerName, "host", peerCfg.FNEHost, "port", peerCfg.FNEPort)
	}

	// Periodic bridge housekeeping: forget finished streams and close
	// out transmissions whose terminator never arrived.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bridgeRouter.CleanupStreams(5 * time.Minute)
				for _, tl := range txLogs {
					tl.CleanupStaleStreams(2 * time.Minute)
				}
			}
		}
	}()

	log.Info("lmr-repeater running", "server_name", cfg.Server.Name)

	sig := <-sigChan
	log.Info("received shutdown signal", "signal", sig.String())

	cancel()
	wg.Wait()
	bridgeRouter.Stop()

	log.Info("lmr-repeater stopped")
}

// carrierHeldByOther reports whether an engine outside `own` currently
// holds the shared carrier (active call or mode-hang window still open).
// A multimode repeater has one transmitter: while one protocol's engine
// is busy, frames for the others are dropped rather than flip-flopping
// the channel mid-over. DMR's two timeslots count as one mode.
func carrierHeldByOther(own []*callengine.Engine, all []*callengine.Engine) bool {
	for _, e := range all {
		if e == nil || !e.Busy() {
			continue
		}
		owned := false
		for _, o := range own {
			if e == o {
				owned = true
				break
			}
		}
		if !owned {
			return true
		}
	}
	return false
}

// dispatchNetworkFrame routes one decoded FNE payload to the matching
// protocol engine's NET-inbound path, based on its wire tag. Frames for
// a protocol whose carrier is held by another mode are dropped.
func dispatchNetworkFrame(log *slog.Logger, tag string, payload []byte, nxdnVoice *nxdn.Voice, p25Voice *p25.Voice, dmrSlots [2]*dmr.Slot) {
	engines := make([]*callengine.Engine, 0, 4)
	if nxdnVoice != nil {
		engines = append(engines, nxdnVoice.Engine)
	}
	if p25Voice != nil {
		engines = append(engines, p25Voice.Engine)
	}
	for _, s := range dmrSlots {
		if s != nil {
			engines = append(engines, s.Engine)
		}
	}

	switch tag {
	case network.PacketTypeNXDN:
		// NXDN network frames carry the same two-byte {tag, reserved}
		// prefix the modem uses, ahead of the 48-byte air payload.
		if nxdnVoice == nil || len(payload) < 2+nxdn.FrameBytes {
			return
		}
		if carrierHeldByOther([]*callengine.Engine{nxdnVoice.Engine}, engines) {
			log.Debug("dropping NXDN NET frame, carrier held by another mode")
			return
		}
		f := nxdn.Frame{Tag: nxdn.Tag(payload[0])}
		copy(f.Payload[:], payload[2:2+nxdn.FrameBytes])
		nxdnVoice.ProcessNetwork(&f)

	case network.PacketTypeP25:
		if p25Voice == nil || len(payload) < 2+p25.FrameBytes {
			return
		}
		if carrierHeldByOther([]*callengine.Engine{p25Voice.Engine}, engines) {
			log.Debug("dropping P25 NET frame, carrier held by another mode")
			return
		}
		nid := p25.DecodeNID(payload[:2])
		var f p25.Frame
		f.NID = nid
		copy(f.Payload[:], payload[2:2+p25.FrameBytes])
		switch nid.DUID {
		case p25.DUIDTerm:
			p25Voice.ProcessNetwork(&f, 0, 0, false, true)
		case p25.DUIDLDU1, p25.DUIDLDU2:
			// srcId/dstId live in the LDU's embedded link control,
			// which the TSBK/LC leaf codecs decode; without them this
			// host loop cannot run admission control, so P25 NET voice
			// frames are logged and not passed to the P25 pipeline.
			log.Debug("P25 NET voice frame received without link-control decode; admission skipped")
		}

	case network.PacketTypeDMRD:
		if len(payload) < dmr.BurstSize {
			return
		}
		burst, err := dmr.ParseBurst(payload[:dmr.BurstSize])
		if err != nil || burst.Timeslot < 1 || burst.Timeslot > 2 {
			return
		}
		slot := dmrSlots[burst.Timeslot-1]
		if slot == nil {
			return
		}
		own := make([]*callengine.Engine, 0, 2)
		for _, s := range dmrSlots {
			if s != nil {
				own = append(own, s.Engine)
			}
		}
		if carrierHeldByOther(own, engines) {
			log.Debug("dropping DMR NET burst, carrier held by another mode")
			return
		}
		slot.ProcessNetwork(burst)
	}
}
