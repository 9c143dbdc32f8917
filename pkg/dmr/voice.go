package dmr

import (
	"fmt"
	"log/slog"

	"github.com/openlmr/lmr-repeater/pkg/access"
	"github.com/openlmr/lmr-repeater/pkg/callengine"
	"github.com/openlmr/lmr-repeater/pkg/scrambler"
)

// framesPerSecond is one timeslot's burst rate: a 30ms burst every 60ms
// TDMA frame, ~16.67 bursts/sec per slot.
const framesPerSecond = 1000.0 / 60.0

// FrameSink is the outbound modem or network queue.
type FrameSink interface {
	Enqueue(frame []byte)
	Clear()
}

// Slot is one DMR timeslot's call pipeline. A repeater runs two
// (Timeslot1, Timeslot2), each with its own callengine.Engine, since
// DMR's two slots are independent channels sharing one RF carrier.
type Slot struct {
	Timeslot  int
	Engine    *callengine.Engine
	ColorCode byte
	Duplex    bool
	Scrambler *scrambler.Scrambler
	Network   FrameSink
	Modem     FrameSink
	Log       *slog.Logger
}

// NewSlot builds a Slot pipeline for one timeslot.
func NewSlot(timeslot int, colorCode byte, duplex bool, cfg callengine.TimerConfig, ctl *access.Control, scramblerKey []byte, network, modem FrameSink, log *slog.Logger) *Slot {
	if log == nil {
		log = slog.Default()
	}
	return &Slot{
		Timeslot:  timeslot,
		Engine:    callengine.NewEngine(cfg, ctl),
		ColorCode: colorCode,
		Duplex:    duplex,
		Scrambler: scrambler.New(scramblerKey),
		Network:   network,
		Modem:     modem,
		Log:       log.With("component", fmt.Sprintf("DMR-TS%d", timeslot)),
	}
}

// Process handles one RF-inbound burst on this slot. The RF watchdog is
// polled here at the burst boundary.
func (s *Slot) Process(b *Burst) bool {
	if s.Engine.RFTimedOut() {
		s.Log.Warn("RF transmission timed out")
		s.endOfTransmission()
	}

	if b.Timeslot != s.Timeslot {
		return false
	}

	switch b.FrameType {
	case FrameTypeVoiceTerminator:
		if s.Engine.RF.State == callengine.RFAudio {
			s.endOfTransmission()
		} else {
			s.Engine.RF.ResetCall()
		}
		return true
	case FrameTypeVoiceHeader:
		d := s.Engine.AdmitRF(b.SourceID, b.DestinationID, b.CallType == CallTypeGroup)
		switch d {
		case callengine.Admit:
			s.Log.Info("RF voice transmission", "src", b.SourceID, "dst", b.DestinationID)
		case callengine.PreemptNew:
			s.Log.Warn("Traffic collision detect, preempting new RF traffic to existing network traffic!")
			return false
		case callengine.RejectSrc, callengine.RejectDst:
			s.Log.Warn(fmt.Sprintf("RF voice rejection from %d to %d", b.SourceID, b.DestinationID))
			return false
		}
		s.forward(b)
		return true
	case FrameTypeVoice:
		if s.Engine.RF.State != callengine.RFAudio {
			return false
		}
		s.Engine.RF.Frames++
		s.Engine.RF.Bits += 264 // 33-byte payload, raw bit width of one voice burst
		s.Engine.RecordFEC(264, 0)
		s.forward(b)
		return true
	default:
		return false
	}
}

// forward whitens the voice payload and mirrors the burst. The burst
// header stays cleartext so receivers can route on timeslot and IDs
// before descrambling.
func (s *Slot) forward(b *Burst) {
	s.Scrambler.Scramble(b.Payload)
	data := b.Encode()
	s.Engine.RecordForward("rf", s.Engine.RF.LastSrcID, s.Engine.RF.LastDstID, b.FrameType == FrameTypeVoiceTerminator)
	if s.Engine.RF.ForwardAllowed {
		s.Network.Enqueue(data)
	}
	if s.Duplex {
		s.Modem.Enqueue(data)
	}
}

func (s *Slot) endOfTransmission() {
	seconds := float64(s.Engine.RF.Frames) / framesPerSecond
	ber := float64(s.Engine.RF.Errs) * 100.0 / float64(s.Engine.RF.Bits)
	s.Log.Info(fmt.Sprintf("RF end of transmission, %.1f seconds, BER: %.1f%%", seconds, ber))
	s.Engine.RecordCallEnded("rf", ber)
	s.Engine.EndRF()
}

// ProcessNetwork handles one NET-inbound burst, gated on the NET side's
// own state (never the RF side's, matching the fix already applied to
// pkg/nxdn and pkg/p25).
func (s *Slot) ProcessNetwork(b *Burst) bool {
	if s.Engine.NetTimedOut() {
		s.Log.Warn("NET transmission timed out")
		ber := float64(s.Engine.Net.Errs) * 100.0 / float64(s.Engine.Net.Bits)
		s.Engine.RecordCallEnded("net", ber)
		s.Engine.EndNET()
	}

	// Undo the payload whitening applied by the sending repeater's
	// forward path; the scrambler is its own inverse.
	s.Scrambler.Scramble(b.Payload)

	if s.Engine.Net.State == callengine.NetIdle {
		s.Engine.ClearQueue(s.Modem)
	}

	switch b.FrameType {
	case FrameTypeVoiceTerminator:
		if s.Engine.Net.State == callengine.NetAudio {
			ber := float64(s.Engine.Net.Errs) * 100.0 / float64(s.Engine.Net.Bits)
			s.Engine.RecordCallEnded("net", ber)
			s.Engine.EndNET()
		} else {
			s.Engine.Net.ResetCall()
		}
		return true
	case FrameTypeVoiceHeader:
		d := s.Engine.AdmitNET(b.SourceID, b.DestinationID, b.CallType == CallTypeGroup)
		if d != callengine.Admit {
			return false
		}
		s.Engine.RecordForward("net", s.Engine.Net.LastSrcID, s.Engine.Net.LastDstID, false)
		if s.Duplex && s.Engine.Net.ForwardAllowed {
			s.Scrambler.Scramble(b.Payload)
			s.Modem.Enqueue(b.Encode())
		}
		return true
	case FrameTypeVoice:
		if s.Engine.Net.State != callengine.NetAudio {
			return false
		}
		s.Engine.Net.Frames++
		s.Engine.Net.Bits += 264
		s.Engine.RecordFEC(264, 0)
		s.Engine.RecordForward("net", s.Engine.Net.LastSrcID, s.Engine.Net.LastDstID, false)
		if s.Duplex && s.Engine.Net.ForwardAllowed {
			s.Scrambler.Scramble(b.Payload)
			s.Modem.Enqueue(b.Encode())
		}
		return true
	default:
		return false
	}
}
