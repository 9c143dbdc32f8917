// Package p25 implements the P25 Phase-1 common-air-interface voice
// pipeline as a structural sibling of pkg/nxdn, driving the same
// pkg/callengine scaffolding with P25-shaped framing: an NID (Network
// Identifier) word standing in for NXDN's LICH, and LDU1/LDU2 voice
// frames standing in for NXDN's 4x9-byte voice groups.
package p25

import (
	"fmt"
	"log/slog"

	"github.com/openlmr/lmr-repeater/pkg/access"
	"github.com/openlmr/lmr-repeater/pkg/callengine"
	"github.com/openlmr/lmr-repeater/pkg/fec"
	"github.com/openlmr/lmr-repeater/pkg/scrambler"
)

// framesPerSecond is P25 Phase-1's ~50 frames/sec rate.
const framesPerSecond = 50.0

// FrameBytes is the LDU frame payload length this repeater operates on.
const FrameBytes = 36

// NID is the Network Identifier word: {NAC(12b), DUID(4b)}, the P25
// analogue of NXDN's LICH -- it identifies frame class (LDU1/LDU2/
// TSBK/HDU) the way LICH's (RFCT, FCT) pair does.
type NID struct {
	NAC  uint16
	DUID uint8
}

// DUID values this pipeline dispatches on.
const (
	DUIDHeader = 0x0
	DUIDTSBK   = 0x7
	DUIDLDU1   = 0x5
	DUIDLDU2   = 0xA
	DUIDTerm   = 0x3
)

// Frame is one inbound P25 frame.
type Frame struct {
	NID     NID
	Payload [FrameBytes]byte
}

// DecodeNID unpacks the 2-byte NID word: NAC in the top 12 bits, DUID in
// the low 4 bits, mirroring NXDN's DecodeLICH as the mechanical
// envelope-framing half of P25's channel codec -- it carries no opinion
// about the LDU1/LDU2 link-control payload that yields a call's srcId/
// dstId; that belongs to the TSBK/LC leaf codecs.
func DecodeNID(b []byte) NID {
	if len(b) < 2 {
		return NID{}
	}
	word := uint16(b[0])<<8 | uint16(b[1])
	return NID{NAC: word >> 4, DUID: uint8(word & 0x0F)}
}

// Encode packs a NID back into its 2-byte wire form.
func (n NID) Encode() []byte {
	word := (n.NAC << 4) | uint16(n.DUID&0x0F)
	return []byte{byte(word >> 8), byte(word)}
}

// FrameSink is the outbound modem or network queue.
type FrameSink interface {
	Enqueue(frame []byte)
	Clear()
}

// Voice is the P25 call pipeline, built on the same callengine.Engine
// NXDN uses.
type Voice struct {
	Engine    *callengine.Engine
	LocalNAC  uint16
	Duplex    bool
	Scrambler *scrambler.Scrambler
	Network   FrameSink
	Modem     FrameSink
	Log       *slog.Logger
}

// NewVoice builds a P25 Voice pipeline.
func NewVoice(localNAC uint16, duplex bool, cfg callengine.TimerConfig, ctl *access.Control, scramblerKey []byte, network, modem FrameSink, log *slog.Logger) *Voice {
	if log == nil {
		log = slog.Default()
	}
	return &Voice{
		Engine:    callengine.NewEngine(cfg, ctl),
		LocalNAC:  localNAC,
		Duplex:    duplex,
		Scrambler: scrambler.New(scramblerKey),
		Network:   network,
		Modem:     modem,
		Log:       log.With("component", "P25"),
	}
}

// Process handles one RF-inbound frame. The RF watchdog is polled here
// at the frame boundary.
func (v *Voice) Process(f *Frame, srcID, dstID uint32, group bool, isTerm bool) bool {
	if v.Engine.RFTimedOut() {
		v.Log.Warn("RF transmission timed out")
		v.endOfTransmission()
	}

	if f.NID.NAC != v.LocalNAC && f.NID.NAC != 0 {
		return false
	}

	switch f.NID.DUID {
	case DUIDTerm:
		if v.Engine.RF.State == callengine.RFAudio {
			v.endOfTransmission()
		}
		return true
	case DUIDLDU1, DUIDLDU2:
		if v.Engine.RF.State != callengine.RFAudio {
			d := v.Engine.AdmitRF(srcID, dstID, group)
			if d != callengine.Admit {
				return false
			}
			v.Log.Info("RF voice transmission", "src", srcID, "dst", dstID, "group", group)
		}
		errs := v.regenerateLDU(f)
		v.Engine.RF.Errs += uint64(errs)
		v.Engine.RF.Bits += lduSurveyedBits
		v.Engine.RF.Frames++
		v.Engine.RecordFEC(lduSurveyedBits, uint64(errs))
		v.forward(f)
		return true
	default:
		return false
	}
}

// lduSurveyedBits is the BER denominator per LDU frame: the full
// 36-byte payload traversed by regenerateLDU, 288 bits.
const lduSurveyedBits = uint64(FrameBytes * 8)

// regenerateLDU walks the LDU payload as twelve 3-byte Golay(24,12)
// codewords (the same protected-symbol class NXDN's voice groups use) and
// corrects bit errors in place.
func (v *Voice) regenerateLDU(f *Frame) (errs int) {
	for off := 0; off+3 <= FrameBytes; off += 3 {
		c := (uint32(f.Payload[off]) << 16) | (uint32(f.Payload[off+1]) << 8) | uint32(f.Payload[off+2])
		data, e := fec.DecodeGolay2412(c & 0xFFFFFF)
		code := fec.EncodeGolay2412(data)
		f.Payload[off] = byte(code >> 16)
		f.Payload[off+1] = byte(code >> 8)
		f.Payload[off+2] = byte(code)
		errs += e
	}
	return errs
}

// wireFrame serialises a frame for the network or modem queue: the
// 2-byte NID word followed by the payload, the same layout DecodeNID
// and the host dispatch expect on receive.
func wireFrame(f *Frame) []byte {
	return append(f.NID.Encode(), f.Payload[:]...)
}

// forward mirrors a regenerated LDU frame to the network, gated on
// Engine.RF.ForwardAllowed (the bridge-routing decision cached once at
// call admission), and, in duplex, to the modem unconditionally.
func (v *Voice) forward(f *Frame) {
	v.Scrambler.Scramble(f.Payload[:])
	frame := wireFrame(f)
	v.Engine.RecordForward("rf", v.Engine.RF.LastSrcID, v.Engine.RF.LastDstID, false)
	if v.Engine.RF.ForwardAllowed {
		v.Network.Enqueue(frame)
	}
	if v.Duplex {
		v.Modem.Enqueue(frame)
	}
}

func (v *Voice) endOfTransmission() {
	seconds := float64(v.Engine.RF.Frames) / framesPerSecond
	ber := float64(v.Engine.RF.Errs) * 100.0 / float64(v.Engine.RF.Bits)
	v.Log.Info(fmt.Sprintf("RF end of transmission, %.1f seconds, BER: %.1f%%", seconds, ber))
	v.Engine.RecordCallEnded("rf", ber)
	v.Engine.EndRF()
}

// ProcessNetwork handles one NET-inbound frame, symmetric to Process.
func (v *Voice) ProcessNetwork(f *Frame, srcID, dstID uint32, group bool, isTerm bool) bool {
	if v.Engine.NetTimedOut() {
		v.Log.Warn("NET transmission timed out")
		ber := float64(v.Engine.Net.Errs) * 100.0 / float64(v.Engine.Net.Bits)
		v.Engine.RecordCallEnded("net", ber)
		v.Engine.EndNET()
	}

	// Undo the payload whitening applied by the sending repeater's
	// forward path; the NID word is cleartext.
	v.Scrambler.Scramble(f.Payload[:])

	if v.Engine.Net.State == callengine.NetIdle {
		v.Engine.ClearQueue(v.Modem)
	}

	switch f.NID.DUID {
	case DUIDTerm:
		if v.Engine.Net.State == callengine.NetAudio {
			ber := float64(v.Engine.Net.Errs) * 100.0 / float64(v.Engine.Net.Bits)
			v.Engine.RecordCallEnded("net", ber)
			v.Engine.EndNET()
		}
		return true
	case DUIDLDU1, DUIDLDU2:
		if v.Engine.Net.State != callengine.NetAudio {
			d := v.Engine.AdmitNET(srcID, dstID, group)
			if d != callengine.Admit {
				return false
			}
		}
		errs := v.regenerateLDU(f)
		v.Engine.Net.Errs += uint64(errs)
		v.Engine.Net.Bits += lduSurveyedBits
		v.Engine.Net.Frames++
		v.Engine.RecordFEC(lduSurveyedBits, uint64(errs))
		v.Engine.RecordForward("net", v.Engine.Net.LastSrcID, v.Engine.Net.LastDstID, false)
		if v.Duplex && v.Engine.Net.ForwardAllowed {
			v.Scrambler.Scramble(f.Payload[:])
			v.Modem.Enqueue(wireFrame(f))
		}
		return true
	default:
		return false
	}
}
