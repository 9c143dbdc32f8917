package callengine

import (
	"time"

	"github.com/openlmr/lmr-repeater/pkg/timer"
)

// RFContext is the RF side's per-protocol call state: current state,
// last-call identity, BER counters, RSSI statistics, the reject-log
// dedup cache, and the three polled timers (watchdog, call hang, TGID
// hang). Partially reassembled Layer-3 lives in the engine's SuperFrame
// accumulators, not here.
type RFContext struct {
	State RFState

	LastSrcID uint32
	LastDstID uint32
	Group     bool

	Frames        uint64
	Bits          uint64
	Errs          uint64
	UndecodableLC uint64

	// RSSI statistics for the current call, as positive dBm magnitudes
	// (a reading of 70 is -70 dBm). AveRSSI accumulates the sum;
	// divide by RSSICount for the average.
	MinRSSI, MaxRSSI, AveRSSI int
	RSSICount                 int

	RejectIDCache uint32

	// StreamID and ForwardAllowed are set once per call by Engine's
	// bridge-routing hook (see Engine.SetBridge): StreamID identifies the
	// call to bridge.TransmissionLogger/bridge.Router, and ForwardAllowed
	// caches whether bridge.Router.RoutePacket admitted this call across
	// to the other side, so the protocol package's per-frame forward path
	// doesn't re-invoke routing (and its stream-dedup bookkeeping) once
	// per audio frame.
	StreamID       uint32
	ForwardAllowed bool

	Timeout  *timer.Timer
	CallHang *timer.Timer
	TGHang   *timer.Timer
}

// NewRFContext builds an RF context with its watchdog, call-hang and
// TGID-hang timers configured from the given durations, all initially
// stopped.
func NewRFContext(rfTimeout, callHang, tgHang time.Duration) *RFContext {
	return &RFContext{
		State:    RFListening,
		Timeout:  timer.New(rfTimeout),
		CallHang: timer.New(callHang),
		TGHang:   timer.New(tgHang),
	}
}

// ResetCounters zeroes the per-call BER/RSSI accounting. Bits starts at 1
// so an immediately-terminated call still yields a finite BER.
func (c *RFContext) ResetCounters() {
	c.Frames = 0
	c.Errs = 0
	c.Bits = 1
	c.UndecodableLC = 0
	c.MinRSSI, c.MaxRSSI, c.AveRSSI, c.RSSICount = 0, 0, 0, 0
}

// RecordRSSI folds one frame's RSSI reading into the current call's
// statistics. A reading of 0 means the modem supplied none.
func (c *RFContext) RecordRSSI(rssi int) {
	if rssi == 0 {
		return
	}
	if c.RSSICount == 0 || rssi < c.MinRSSI {
		c.MinRSSI = rssi
	}
	if rssi > c.MaxRSSI {
		c.MaxRSSI = rssi
	}
	c.AveRSSI += rssi
	c.RSSICount++
}

// ResetCall returns the RF side to LISTENING and stops the watchdog.
func (c *RFContext) ResetCall() {
	c.State = RFListening
	c.Timeout.Stop()
}

// ExpireLastCall clears the last-call identity once its hang windows
// have passed. LastSrcID/LastDstID persist briefly past end of
// transmission so duplicate-suppression and talk-group-affinity checks
// can still see them; the call-hang and TGID-hang timers bound
// "briefly".
func (c *RFContext) ExpireLastCall() {
	if c.State != RFListening {
		return
	}
	if c.CallHang.IsRunning() && !c.CallHang.HasExpired() {
		return
	}
	if c.TGHang.IsRunning() && !c.TGHang.HasExpired() {
		return
	}
	c.LastSrcID, c.LastDstID = 0, 0
	c.CallHang.Stop()
	c.TGHang.Stop()
}

// NetContext is the NET-side analogue. NetLost counts network calls the
// collision policy refused at AdmitNET since the counters were last reset.
type NetContext struct {
	State NetState

	LastSrcID uint32
	LastDstID uint32
	Group     bool

	Frames        uint64
	Bits          uint64
	Errs          uint64
	UndecodableLC uint64
	NetLost       uint64

	// StreamID and ForwardAllowed mirror RFContext's fields for the NET
	// side; see RFContext's doc comment.
	StreamID       uint32
	ForwardAllowed bool

	Timeout  *timer.Timer
	CallHang *timer.Timer
}

// NewNetContext builds a NET context with its watchdog and call-hang
// timers configured from the given durations, both initially stopped.
func NewNetContext(netTimeout, callHang time.Duration) *NetContext {
	return &NetContext{
		State:    NetIdle,
		Timeout:  timer.New(netTimeout),
		CallHang: timer.New(callHang),
	}
}

// ResetCounters zeroes per-call BER accounting. Bits starts at 1 so an
// immediately-terminated call still yields a finite BER.
func (c *NetContext) ResetCounters() {
	c.Frames = 0
	c.Errs = 0
	c.Bits = 1
	c.UndecodableLC = 0
	c.NetLost = 0
}

// ResetCall returns the NET side to IDLE and stops the watchdog.
func (c *NetContext) ResetCall() {
	c.State = NetIdle
	c.Timeout.Stop()
}

// ExpireLastCall is RFContext.ExpireLastCall's NET-side mirror; the NET
// side has no TGID-hang timer, so only the call-hang window applies.
func (c *NetContext) ExpireLastCall() {
	if c.State != NetIdle {
		return
	}
	if c.CallHang.IsRunning() && !c.CallHang.HasExpired() {
		return
	}
	c.LastSrcID, c.LastDstID = 0, 0
	c.CallHang.Stop()
}
