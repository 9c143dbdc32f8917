package callengine

import (
	"fmt"
	"time"

	"github.com/openlmr/lmr-repeater/pkg/access"
	"github.com/openlmr/lmr-repeater/pkg/bridge"
	"github.com/openlmr/lmr-repeater/pkg/metrics"
	"github.com/openlmr/lmr-repeater/pkg/timer"
)

// TimerConfig carries the engine's six timer knobs in their natural Go
// duration form (config loading converts from the configured
// milliseconds).
type TimerConfig struct {
	CallHang    time.Duration
	TGHang      time.Duration
	RFTimeout   time.Duration
	NetTimeout  time.Duration
	RFModeHang  time.Duration
	NetModeHang time.Duration
}

// Engine is the shared RF/NET dual-FSM scaffolding a protocol's Voice
// pipeline (pkg/nxdn, pkg/p25, pkg/dmr) embeds and drives. It owns the
// two call contexts, the access-control check, and the RF- and NET-side
// super-frame accumulators; the protocol package owns channel-codec
// decode/encode and calls into the methods here from its own frame
// handlers.
type Engine struct {
	RF  *RFContext
	Net *NetContext

	Access *access.Control

	Super    *SuperFrame
	NetSuper *SuperFrame

	// RFModeHang/NetModeHang hold this engine's claim on the shared
	// carrier for a while after a call ends on the respective side, so a
	// multimode host doesn't flip the channel to another protocol
	// between overs. Polled via Busy.
	RFModeHang  *timer.Timer
	NetModeHang *timer.Timer

	metrics  *metrics.Collector
	protocol string

	bridgeRouter *bridge.Router
	txLog        *bridge.TransmissionLogger
	systemName   string
	timeslot     int
	streamSeq    uint32
}

// SetMetrics wires optional Prometheus instrumentation into this engine.
// A nil Collector (the zero value before this is called) makes every
// record* call below a no-op, so protocol packages can call them
// unconditionally.
func (e *Engine) SetMetrics(protocol string, m *metrics.Collector) {
	e.protocol = protocol
	e.metrics = m
}

// RecordCallEnded reports a finished call's bit-error-rate under the
// given side ("rf" or "net"), for the protocol package to call from its
// own end-of-transmission handler once it has computed BER.
func (e *Engine) RecordCallEnded(side string, berPercent float64) {
	if e.metrics != nil {
		e.metrics.CallEnded(e.protocol, side, berPercent)
	}
}

// RecordFEC reports one frame's worth of FEC-surveyed bits and corrected
// errors, for the protocol package to call from its regeneration path.
func (e *Engine) RecordFEC(bits, errs uint64) {
	if e.metrics != nil {
		e.metrics.FECRegenerated(e.protocol, bits, errs)
	}
}

// SetBridge wires optional cross-system conference bridging into this
// engine. systemName identifies this protocol/channel pair ("nxdn",
// "dmr-ts1", ...) to the router; timeslot is the DMR timeslot this
// engine governs (0 for NXDN/P25, which have none). A nil router (the
// zero value before this is called) makes routeCall always permit
// forwarding, matching the repeater's pre-bridging behaviour.
func (e *Engine) SetBridge(router *bridge.Router, txLog *bridge.TransmissionLogger, systemName string, timeslot int) {
	e.bridgeRouter = router
	e.txLog = txLog
	e.systemName = systemName
	e.timeslot = timeslot
}

// nextStreamID hands out a locally-unique, monotonically increasing
// stream identifier for a new call, for the benefit of bridge.Router's
// and bridge.TransmissionLogger's per-stream bookkeeping. This repeater
// doesn't expose a native call serial number on every protocol's air
// frame, so a synthetic counter stands in for one, minted once per call
// (at Admit) rather than once per frame.
func (e *Engine) nextStreamID() uint32 {
	e.streamSeq++
	return e.streamSeq
}

// routeCall runs bridge.Router.RoutePacket once for a newly admitted call
// on the given side ("rf" or "net"), caching the result on that side's
// ForwardAllowed so the protocol package's per-frame forwarding path
// never calls RoutePacket more than once per call (RoutePacket's
// stream-dedup bookkeeping expects exactly one call per stream per
// system, not one per audio frame). The routing rule itself is
// synthesised fresh each call: this repeater has one local RF side and
// one local NET side per protocol/timeslot, so the only meaningful
// routing question bridge.Router can answer here is "does this call's
// destination cross from one side to the other," which a single
// permissive rule keyed to the call's own TGID answers. Reusing the
// rule-set's name ("<system>:<side>") means each new call overwrites the
// previous one rather than accumulating state.
func (e *Engine) routeCall(side string, dstID uint32, streamID uint32) bool {
	if e.bridgeRouter == nil {
		return true
	}

	// A call to an On/Off control TGID toggles any configured bridge
	// rules listing it before the call itself is routed.
	e.bridgeRouter.ApplyControl(dstID)

	other := "net"
	if side == "net" {
		other = "rf"
	}

	ruleSet := bridge.NewBridgeRuleSet(fmt.Sprintf("%s:%s", e.systemName, side))
	ruleSet.AddRule(&bridge.BridgeRule{
		System:   fmt.Sprintf("%s:%s", e.systemName, other),
		TGID:     int(dstID),
		Timeslot: e.timeslot,
		Active:   true,
	})
	e.bridgeRouter.AddBridge(ruleSet)

	targets := e.bridgeRouter.RoutePacket(bridge.RoutablePacket{
		DestinationID: dstID,
		Timeslot:      e.timeslot,
		StreamID:      streamID,
		IsTerminator:  false,
	}, fmt.Sprintf("%s:%s", e.systemName, side))
	return len(targets) > 0
}

// RecordForward reports one forwarded frame to the wired
// bridge.TransmissionLogger, for the protocol package to call from its
// own per-frame forward path. A nil logger (the zero value before
// SetBridge is called) makes this a no-op.
func (e *Engine) RecordForward(side string, srcID, dstID uint32, isTerminator bool) {
	if e.txLog == nil {
		return
	}
	streamID := e.RF.StreamID
	if side == "net" {
		streamID = e.Net.StreamID
	}
	e.txLog.LogPacket(streamID, srcID, dstID, e.timeslot, isTerminator)
}

// NewEngine builds an Engine with RF/NET contexts configured from cfg and
// admission gated by ctl (nil permits everything).
func NewEngine(cfg TimerConfig, ctl *access.Control) *Engine {
	return &Engine{
		RF:          NewRFContext(cfg.RFTimeout, cfg.CallHang, cfg.TGHang),
		Net:         NewNetContext(cfg.NetTimeout, cfg.CallHang),
		Access:      ctl,
		Super:       NewSuperFrame(),
		NetSuper:    NewSuperFrame(),
		RFModeHang:  timer.New(cfg.RFModeHang),
		NetModeHang: timer.New(cfg.NetModeHang),
	}
}

// Busy reports whether this engine currently owns the shared carrier: a
// call in progress on either side, or a mode-hang window still open
// after the last one ended. A multimode host consults this before
// handing a frame to another protocol's engine.
func (e *Engine) Busy() bool {
	if e.RF.State == RFAudio || e.RF.State == RFData {
		return true
	}
	if e.Net.State == NetAudio || e.Net.State == NetData {
		return true
	}
	if e.RFModeHang.IsRunning() && !e.RFModeHang.HasExpired() {
		return true
	}
	if e.NetModeHang.IsRunning() && !e.NetModeHang.HasExpired() {
		return true
	}
	return false
}

// AdmitRF runs the full RF admission pipeline for a new VCALL: collision
// policy against the NET side first, then access control. On
// PreemptExisting the NET side is reset as a side effect. On Admit the RF
// side transitions to AUDIO and its per-call counters/watchdog are reset.
func (e *Engine) AdmitRF(srcID, dstID uint32, group bool) Decision {
	e.Net.ExpireLastCall()
	d := RFCollision(e.Net, srcID, dstID)
	switch d {
	case PreemptNew:
		if e.metrics != nil {
			e.metrics.Collision(e.protocol, "preempt_new")
		}
		return d
	case PreemptExisting:
		if e.metrics != nil {
			e.metrics.Collision(e.protocol, "preempt_existing")
		}
		e.Net.ResetCall()
		e.Net.ResetCounters()
	}

	if ad := ValidateCall(e.Access, srcID, dstID, group); ad != Admit {
		e.RF.RejectIDCache = srcID
		e.RF.State = RFRejected
		e.RF.TGHang.Stop()
		if e.metrics != nil {
			reason := "dst"
			if ad == RejectSrc {
				reason = "src"
			}
			e.metrics.CallRejected(e.protocol, reason)
		}
		return ad
	}

	e.RF.State = RFAudio
	e.RF.LastSrcID = srcID
	e.RF.LastDstID = dstID
	e.RF.Group = group
	e.RF.ResetCounters()
	e.RF.Timeout.Start()
	e.RF.StreamID = e.nextStreamID()
	e.RF.ForwardAllowed = e.routeCall("rf", dstID, e.RF.StreamID)
	if e.metrics != nil {
		e.metrics.CallStarted(e.protocol, "rf")
	}
	return Admit
}

// AdmitNET runs the NET admission pipeline: the NET-side collision policy
// against the RF side. Unlike AdmitRF, access control on the NET side is
// the peer FNE's responsibility, not this repeater's.
func (e *Engine) AdmitNET(srcID, dstID uint32, group bool) Decision {
	e.RF.ExpireLastCall()
	d := NETCollision(e.RF, srcID, dstID)
	if d != Admit {
		e.Net.NetLost++
		if e.metrics != nil && d == Drop {
			e.metrics.Collision(e.protocol, "drop")
		}
		return d
	}
	e.Net.State = NetAudio
	e.Net.LastSrcID = srcID
	e.Net.LastDstID = dstID
	e.Net.Group = group
	e.Net.ResetCounters()
	e.Net.Timeout.Start()
	e.Net.StreamID = e.nextStreamID()
	e.Net.ForwardAllowed = e.routeCall("net", dstID, e.Net.StreamID)
	if e.metrics != nil {
		e.metrics.CallStarted(e.protocol, "net")
	}
	return Admit
}

// EndRF transitions the RF side from AUDIO back to LISTENING on TX_REL
// or watchdog expiry. The TGID-hang timer keeps channel affinity for the
// call's talk-group, the call-hang timer bounds how long the last-call
// identity persists, and the mode-hang timer holds this engine's claim
// on the carrier.
func (e *Engine) EndRF() {
	e.RF.State = RFListening
	e.RF.Timeout.Stop()
	e.RF.CallHang.Start()
	e.RF.TGHang.Start()
	e.RFModeHang.Start()
}

// EndNET transitions the NET side from AUDIO back to IDLE on TX_REL or
// watchdog expiry.
func (e *Engine) EndNET() {
	e.Net.State = NetIdle
	e.Net.Timeout.Stop()
	e.Net.CallHang.Start()
	e.NetModeHang.Start()
}

// RFTimedOut reports whether the RF watchdog has expired while AUDIO is
// active.
func (e *Engine) RFTimedOut() bool {
	return e.RF.State == RFAudio && e.RF.Timeout.IsRunning() && e.RF.Timeout.HasExpired()
}

// NetTimedOut reports whether the NET watchdog has expired while AUDIO is
// active.
func (e *Engine) NetTimedOut() bool {
	return e.Net.State == NetAudio && e.Net.Timeout.IsRunning() && e.Net.Timeout.HasExpired()
}

// ClearQueue discards any still-pending outbound frames and resets both
// sides' counters, run whenever a new NET session starts from IDLE so
// stale audio from the previous call never trails into the new one.
func (e *Engine) ClearQueue(sink FrameSink) {
	if sink != nil {
		sink.Clear()
	}
	e.RF.ResetCounters()
	e.Net.ResetCounters()
}

// FrameSink is the outbound modem/network queue the engine clears on a
// fresh NET session, kept as a narrow interface so callengine never
// depends on pkg/network directly.
type FrameSink interface {
	Clear()
}
