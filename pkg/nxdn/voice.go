package nxdn

import (
	"fmt"
	"log/slog"

	"github.com/openlmr/lmr-repeater/pkg/access"
	"github.com/openlmr/lmr-repeater/pkg/callengine"
	"github.com/openlmr/lmr-repeater/pkg/nxdn/ambefec"
	"github.com/openlmr/lmr-repeater/pkg/nxdn/channel"
	"github.com/openlmr/lmr-repeater/pkg/nxdn/layer3"
	"github.com/openlmr/lmr-repeater/pkg/scrambler"
)

// framesPerSecond converts a frame count to call duration: NXDN's 80ms
// frame rate gives 12.5 frames/sec.
const framesPerSecond = 12.5

// Voice is the NXDN call pipeline: RF and NET frame processing sharing
// one callengine.Engine, a local RAN filter, a scrambler, and an
// AMBE-FEC regenerator.
type Voice struct {
	Engine    *callengine.Engine
	LocalRAN  uint8
	Duplex    bool
	Scrambler *scrambler.Scrambler
	FEC       *ambefec.Regenerator
	Network   FrameSink
	Modem     FrameSink
	Log       *slog.Logger
}

// NewVoice builds a Voice pipeline with the given access-control lists
// and timer configuration.
func NewVoice(localRAN uint8, duplex bool, cfg callengine.TimerConfig, ctl *access.Control, scramblerKey []byte, network, modem FrameSink, log *slog.Logger) *Voice {
	if log == nil {
		log = slog.Default()
	}
	return &Voice{
		Engine:    callengine.NewEngine(cfg, ctl),
		LocalRAN:  localRAN,
		Duplex:    duplex,
		Scrambler: scrambler.New(scramblerKey),
		FEC:       ambefec.New(),
		Network:   network,
		Modem:     modem,
		Log:       log.With("component", "NXDN"),
	}
}

// Process handles one RF-inbound frame. Timers are polled, not
// callback-driven, so watchdog expiry is checked here at the frame
// boundary before the frame itself is considered.
func (v *Voice) Process(f *Frame, usc channel.Usc, option channel.Option) bool {
	if v.Engine.RFTimedOut() {
		v.Log.Warn("RF transmission timed out")
		v.endOfTransmission(f)
	}

	sacch, sacchValid, _ := channel.DecodeSACCH(f.Payload[SACCHOffset : SACCHOffset+SACCHBytes])

	if sacchValid && sacch.RAN != v.LocalRAN && sacch.RAN != 0 {
		return false // RAN mismatch, not our site
	}
	if !sacchValid && v.Engine.RF.State == callengine.RFListening {
		return false
	}

	switch usc {
	case channel.SacchNS:
		return v.processNonSuperblock(f, sacch, sacchValid)
	default:
		return v.processSuperblock(f, sacch, sacchValid, option)
	}
}

func (v *Voice) processNonSuperblock(f *Frame, sacch channel.SACCH, sacchValid bool) bool {
	msg, ok := v.decodeFACCH1Pair(f)
	if !ok {
		return false
	}

	tag := TagData
	switch msg.Type {
	case layer3.TypeTXREL:
		tag = TagEOT
		if v.Engine.RF.State == callengine.RFAudio {
			v.endOfTransmission(f)
		} else {
			v.Engine.RF.ResetCall()
		}
	case layer3.TypeVCALL:
		prevReject := v.Engine.RF.RejectIDCache
		d := v.Engine.AdmitRF(msg.SrcID, msg.DstID, msg.Group)
		switch d {
		case callengine.Admit:
			v.Engine.RF.RecordRSSI(f.RSSI)
			v.Log.Info("RF voice transmission", "src", msg.SrcID, "dst", msg.DstID, "group", msg.Group)
		case callengine.PreemptExisting:
			v.Log.Warn("Traffic collision detect, preempting existing network traffic!")
			v.Engine.RF.RecordRSSI(f.RSSI)
			v.Log.Info("RF voice transmission", "src", msg.SrcID, "dst", msg.DstID, "group", msg.Group)
		case callengine.PreemptNew:
			v.Log.Warn("Traffic collision detect, preempting new RF traffic to existing network traffic!")
			return false
		case callengine.RejectSrc, callengine.RejectDst:
			if prevReject != msg.SrcID {
				v.Log.Warn(fmt.Sprintf("RF voice rejection from %d to %s%d", msg.SrcID, groupTag(msg.Group), msg.DstID))
			}
			return false
		}
	default:
		return false
	}

	v.regenerateAndForward(f, sacch, sacchValid, tag)
	return true
}

func (v *Voice) processSuperblock(f *Frame, sacch channel.SACCH, sacchValid bool, option channel.Option) bool {
	if v.Engine.RF.State == callengine.RFListening {
		if !v.tryLateEntry(f, option) && sacchValid {
			v.accumulateFragment(sacch)
		}
		// The frame that completed admission (stolen FACCH1 or final
		// fragment) is itself a voice superblock; fall through so it is
		// regenerated and rebroadcast like any other.
		if v.Engine.RF.State != callengine.RFAudio {
			return false
		}
	}

	if v.Engine.RF.State == callengine.RFAudio {
		errs, bits := v.regenerateVoice(f, option)
		v.Engine.RF.Errs += uint64(errs)
		v.Engine.RF.Bits += uint64(bits)
		v.Engine.RF.Frames++
		v.Engine.RF.RecordRSSI(f.RSSI)
		if errs > v.FEC.SilenceThreshold {
			v.Engine.RF.UndecodableLC++
		}
		v.Engine.RecordFEC(uint64(bits), uint64(errs))
		v.regenerateAndForward(f, sacch, sacchValid, TagData)
		return true
	}
	return false
}

// tryLateEntry attempts FACCH1-based late entry per the option field,
// falling back to nothing (the caller accumulates SACCH fragments
// instead) when no stolen slot decodes to a VCALL.
func (v *Voice) tryLateEntry(f *Frame, option channel.Option) bool {
	var candidates [][]byte
	switch option {
	case channel.StealFACCH:
		candidates = [][]byte{f.Payload[FACCH1AOffset : FACCH1AOffset+FACCH1Bytes], f.Payload[FACCH1BOffset : FACCH1BOffset+FACCH1Bytes]}
	case channel.StealFACCH1_1:
		candidates = [][]byte{f.Payload[FACCH1AOffset : FACCH1AOffset+FACCH1Bytes]}
	case channel.StealFACCH1_2:
		candidates = [][]byte{f.Payload[FACCH1BOffset : FACCH1BOffset+FACCH1Bytes]}
	default:
		return false
	}

	for _, payload := range candidates {
		raw, _, ok := channel.DecodeFACCH1(payload)
		if !ok {
			continue
		}
		msg, ok := layer3.Decode(raw)
		if !ok || msg.Type != layer3.TypeVCALL {
			continue
		}
		return v.admitLateEntry(f, msg)
	}
	return false
}

// accumulateFragment folds one SACCH-carried super-frame fragment into
// the pending reassembly buffer.
func (v *Voice) accumulateFragment(sacch channel.SACCH) {
	switch sacch.Structure {
	case channel.Structure1of4:
		if layer3.PartialType(sacch.Data) == layer3.TypeVCALL {
			v.Engine.Super.Seed(1, sacch.Data)
		} else {
			v.Engine.Super.Reset()
		}
	case channel.Structure2of4:
		v.Engine.Super.WriteFragment(2, sacch.Data)
	case channel.Structure3of4:
		v.Engine.Super.WriteFragment(3, sacch.Data)
	case channel.Structure4of4:
		v.Engine.Super.WriteFragment(4, sacch.Data)
	}

	if v.Engine.Super.Complete() {
		msg, ok := layer3.Decode(v.Engine.Super.Bytes())
		if ok && msg.Type == layer3.TypeVCALL {
			v.admitLateEntryReassembled(msg)
		}
		v.Engine.Super.Reset()
	}
}

func (v *Voice) admitLateEntry(f *Frame, msg layer3.Message) bool {
	d := v.Engine.AdmitRF(msg.SrcID, msg.DstID, msg.Group)
	if d != callengine.Admit {
		return false
	}
	v.Engine.RF.RecordRSSI(f.RSSI)
	v.Log.Info(fmt.Sprintf("RF late entry from %d to %s%d", msg.SrcID, groupTag(msg.Group), msg.DstID))
	v.broadcastSyntheticSetup(msg)
	return true
}

func (v *Voice) admitLateEntryReassembled(msg layer3.Message) {
	d := v.Engine.AdmitRF(msg.SrcID, msg.DstID, msg.Group)
	if d != callengine.Admit {
		return
	}
	v.Log.Info(fmt.Sprintf("RF late entry from %d to %s%d", msg.SrcID, groupTag(msg.Group), msg.DstID))
	v.broadcastSyntheticSetup(msg)
}

// buildSetupFrame synthesises a whole non-superblock setup frame for a
// reassembled call: LICH, idle SACCH carrying the local RAN, and both
// FACCH1 slots carrying the reconstructed Layer-3, scrambled and
// tag-prefixed.
func (v *Voice) buildSetupFrame(msg layer3.Message) []byte {
	var f Frame
	dir := channel.Inbound
	if v.Duplex {
		dir = channel.Outbound
	}
	lich := channel.LICH{FCT: uint8(channel.SacchNS), Option: channel.StealNone, Direction: dir}
	f.Payload[LICHOffset] = lich.Encode()
	copy(f.Payload[SACCHOffset:SACCHOffset+SACCHBytes], channel.SACCH{RAN: v.LocalRAN}.Encode())
	coded := channel.EncodeFACCH1(layer3.Encode(msg))
	copy(f.Payload[FACCH1AOffset:FACCH1AOffset+FACCH1Bytes], coded)
	copy(f.Payload[FACCH1BOffset:FACCH1BOffset+FACCH1Bytes], coded)
	v.Scrambler.Scramble(f.Payload[:])
	return tagged(TagHeader, f.Payload[:])
}

// broadcastSyntheticSetup mirrors a locally-synthesised setup frame so
// late-joining peers can admit too.
func (v *Voice) broadcastSyntheticSetup(msg layer3.Message) {
	frame := v.buildSetupFrame(msg)
	v.Network.Enqueue(frame)
	if v.Duplex {
		v.Modem.Enqueue(frame)
	}
}

// tagged prepends the two-byte {tag, reserved} modem/network frame
// prefix to payload.
func tagged(tag Tag, payload []byte) []byte {
	frame := make([]byte, 2+len(payload))
	frame[0] = byte(tag)
	copy(frame[2:], payload)
	return frame
}

func groupTag(group bool) string {
	if group {
		return "TG "
	}
	return ""
}

// decodeFACCH1Pair tries both FACCH1 offsets within a non-superblock
// frame, returning the first that decodes to a valid whole Layer-3
// message.
func (v *Voice) decodeFACCH1Pair(f *Frame) (layer3.Message, bool) {
	for _, off := range []int{FACCH1AOffset, FACCH1BOffset} {
		raw, _, ok := channel.DecodeFACCH1(f.Payload[off : off+FACCH1Bytes])
		if !ok {
			continue
		}
		if msg, ok := layer3.Decode(raw); ok {
			return msg, true
		}
	}
	return layer3.Message{}, false
}

func (v *Voice) regenerateVoice(f *Frame, option channel.Option) (errs, bits int) {
	var groups [][]byte
	switch option {
	case channel.StealFACCH1_1:
		groups = [][]byte{f.VoiceGroup(2), f.VoiceGroup(3)}
	case channel.StealFACCH1_2:
		groups = [][]byte{f.VoiceGroup(0), f.VoiceGroup(1)}
	case channel.StealFACCH:
		groups = nil
	default:
		groups = [][]byte{f.VoiceGroup(0), f.VoiceGroup(1), f.VoiceGroup(2), f.VoiceGroup(3)}
	}
	if len(groups) == 0 {
		// Both FACCH1 slots stole the full frame: no voice groups remain
		// to survey, so neither bits nor errors accrue.
		return 0, 0
	}
	return v.FEC.RegenerateFrame(groups)
}

// regenerateFrame re-encodes SACCH with local RAN identity and re-applies
// the scrambler, in place, so the rebroadcast copy carries this site's
// identity.
func (v *Voice) regenerateFrame(f *Frame, sacch channel.SACCH, sacchValid bool) {
	if sacchValid {
		sacch.RAN = v.LocalRAN
		copy(f.Payload[SACCHOffset:SACCHOffset+SACCHBytes], sacch.Encode())
	}
	v.Scrambler.Scramble(f.Payload[:])
}

// regenerateAndForward regenerates f and mirrors it, tag-prefixed, to the
// network and, in duplex, the modem. Used for RF-originated frames, which
// both leave the repeater toward the FNE and loop back to the local
// transmitter. Network forwarding is gated on Engine.RF.ForwardAllowed,
// the bridge-routing decision cached once at call admission.
func (v *Voice) regenerateAndForward(f *Frame, sacch channel.SACCH, sacchValid bool, tag Tag) {
	v.regenerateFrame(f, sacch, sacchValid)
	frame := tagged(tag, f.Payload[:])
	v.Engine.RecordForward("rf", v.Engine.RF.LastSrcID, v.Engine.RF.LastDstID, tag == TagEOT)
	if v.Engine.RF.ForwardAllowed {
		v.Network.Enqueue(frame)
	}
	if v.Duplex {
		v.Modem.Enqueue(frame)
	}
}

// regenerateAndForwardToModem regenerates f and, in duplex, mirrors it
// tag-prefixed to the modem only. Used for NET-originated frames, which
// must reach the local transmitter but never echo back to the FNE they
// arrived from. Modem forwarding is additionally gated on
// Engine.Net.ForwardAllowed, the bridge-routing decision cached once at
// call admission.
func (v *Voice) regenerateAndForwardToModem(f *Frame, sacch channel.SACCH, sacchValid bool, tag Tag) {
	v.regenerateFrame(f, sacch, sacchValid)
	v.Engine.RecordForward("net", v.Engine.Net.LastSrcID, v.Engine.Net.LastDstID, tag == TagEOT)
	if v.Duplex && v.Engine.Net.ForwardAllowed {
		v.Modem.Enqueue(tagged(tag, f.Payload[:]))
	}
}

// endOfTransmission finalises an RF call on TX_REL or watchdog expiry.
// The summary line includes min/max/average RSSI when the modem supplied
// any readings during the call.
func (v *Voice) endOfTransmission(f *Frame) {
	rf := v.Engine.RF
	rf.RecordRSSI(f.RSSI)

	seconds := float64(rf.Frames) / framesPerSecond
	ber := float64(rf.Errs) * 100.0 / float64(rf.Bits)

	if rf.RSSICount > 0 {
		ave := rf.AveRSSI / rf.RSSICount
		v.Log.Info(fmt.Sprintf("RF end of transmission, %.1f seconds, BER: %.1f%%, RSSI: -%d / -%d / -%d dBm",
			seconds, ber, rf.MinRSSI, rf.MaxRSSI, ave))
	} else {
		v.Log.Info(fmt.Sprintf("RF end of transmission, %.1f seconds, BER: %.1f%%", seconds, ber))
	}
	v.Engine.RecordCallEnded("rf", ber)
	v.Engine.EndRF()
}

// ProcessNetwork handles one NET-inbound frame, mirroring Process's
// structure for the network side: audio regeneration gates on the NET
// state (not RF's), and NET-side super-frame late entry reassembles and
// admits from the NET side's own accumulator (Engine.NetSuper), never
// RF's, so a synthetic setup frame mirrored to the modem always reflects
// the call the FNE actually sent.
//
// Network frames arrive in air-ready (scrambled) form; the scrambler's
// involution descrambles them here before the LICH is read. Frame
// classification is this method's own job, unlike Process, where the
// modem has already classified the frame.
func (v *Voice) ProcessNetwork(f *Frame) bool {
	if v.Engine.NetTimedOut() {
		v.Log.Warn("NET transmission timed out")
		ber := float64(v.Engine.Net.Errs) * 100.0 / float64(v.Engine.Net.Bits)
		v.Engine.RecordCallEnded("net", ber)
		v.Engine.EndNET()
	}

	v.Scrambler.Scramble(f.Payload[:])
	lich, ok := channel.DecodeLICH(f.Payload[LICHOffset])
	if !ok {
		return false
	}

	if v.Engine.Net.State == callengine.NetIdle {
		v.Engine.ClearQueue(v.Modem)
	}

	sacch, sacchValid, _ := channel.DecodeSACCH(f.Payload[SACCHOffset : SACCHOffset+SACCHBytes])

	switch channel.Usc(lich.FCT) {
	case channel.SacchNS:
		return v.processNetworkNonSuperblock(f, sacch, sacchValid)
	default:
		return v.processNetworkSuperblock(f, sacch, sacchValid, lich.Option)
	}
}

func (v *Voice) processNetworkNonSuperblock(f *Frame, sacch channel.SACCH, sacchValid bool) bool {
	msg, ok := v.decodeFACCH1Pair(f)
	if !ok {
		return false
	}

	tag := TagData
	switch msg.Type {
	case layer3.TypeTXREL:
		tag = TagEOT
		if v.Engine.Net.State == callengine.NetAudio {
			ber := float64(v.Engine.Net.Errs) * 100.0 / float64(v.Engine.Net.Bits)
			v.Engine.RecordCallEnded("net", ber)
			v.Engine.EndNET()
		} else {
			v.Engine.Net.ResetCall()
		}
	case layer3.TypeVCALL:
		d := v.Engine.AdmitNET(msg.SrcID, msg.DstID, msg.Group)
		if d != callengine.Admit {
			return false
		}
	default:
		return false
	}

	v.regenerateAndForwardToModem(f, sacch, sacchValid, tag)
	return true
}

// processNetworkSuperblock mirrors processSuperblock for the NET side:
// while idle it attempts FACCH1-based late entry and, failing that,
// accumulates SACCH super-frame fragments toward NET's own reassembly
// buffer, using Engine.NetSuper rather than RF's Engine.Super so neither
// side's partial reassembly can leak into the other's late-entry setup.
func (v *Voice) processNetworkSuperblock(f *Frame, sacch channel.SACCH, sacchValid bool, option channel.Option) bool {
	if v.Engine.Net.State == callengine.NetIdle {
		if !v.tryNetLateEntry(f, option) && sacchValid {
			v.accumulateNetFragment(sacch)
		}
		if v.Engine.Net.State != callengine.NetAudio {
			return false
		}
	}

	if v.Engine.Net.State == callengine.NetAudio {
		errs, bits := v.regenerateVoice(f, option)
		v.Engine.Net.Errs += uint64(errs)
		v.Engine.Net.Bits += uint64(bits)
		v.Engine.Net.Frames++
		if errs > v.FEC.SilenceThreshold {
			v.Engine.Net.UndecodableLC++
		}
		v.Engine.RecordFEC(uint64(bits), uint64(errs))
		v.regenerateAndForwardToModem(f, sacch, sacchValid, TagData)
		return true
	}
	return false
}

// tryNetLateEntry is tryLateEntry's NET-side mirror: it decodes the same
// FACCH1 slots the option field names, admitting via Engine.AdmitNET
// instead of Engine.AdmitRF.
func (v *Voice) tryNetLateEntry(f *Frame, option channel.Option) bool {
	var candidates [][]byte
	switch option {
	case channel.StealFACCH:
		candidates = [][]byte{f.Payload[FACCH1AOffset : FACCH1AOffset+FACCH1Bytes], f.Payload[FACCH1BOffset : FACCH1BOffset+FACCH1Bytes]}
	case channel.StealFACCH1_1:
		candidates = [][]byte{f.Payload[FACCH1AOffset : FACCH1AOffset+FACCH1Bytes]}
	case channel.StealFACCH1_2:
		candidates = [][]byte{f.Payload[FACCH1BOffset : FACCH1BOffset+FACCH1Bytes]}
	default:
		return false
	}

	for _, payload := range candidates {
		raw, _, ok := channel.DecodeFACCH1(payload)
		if !ok {
			continue
		}
		msg, ok := layer3.Decode(raw)
		if !ok || msg.Type != layer3.TypeVCALL {
			continue
		}
		return v.admitNetLateEntry(msg)
	}
	return false
}

// accumulateNetFragment is accumulateFragment's NET-side mirror, folding
// fragments into Engine.NetSuper instead of Engine.Super.
func (v *Voice) accumulateNetFragment(sacch channel.SACCH) {
	switch sacch.Structure {
	case channel.Structure1of4:
		if layer3.PartialType(sacch.Data) == layer3.TypeVCALL {
			v.Engine.NetSuper.Seed(1, sacch.Data)
		} else {
			v.Engine.NetSuper.Reset()
		}
	case channel.Structure2of4:
		v.Engine.NetSuper.WriteFragment(2, sacch.Data)
	case channel.Structure3of4:
		v.Engine.NetSuper.WriteFragment(3, sacch.Data)
	case channel.Structure4of4:
		v.Engine.NetSuper.WriteFragment(4, sacch.Data)
	}

	if v.Engine.NetSuper.Complete() {
		msg, ok := layer3.Decode(v.Engine.NetSuper.Bytes())
		if ok && msg.Type == layer3.TypeVCALL {
			v.admitNetLateEntryReassembled(msg)
		}
		v.Engine.NetSuper.Reset()
	}
}

func (v *Voice) admitNetLateEntry(msg layer3.Message) bool {
	d := v.Engine.AdmitNET(msg.SrcID, msg.DstID, msg.Group)
	if d != callengine.Admit {
		return false
	}
	v.Log.Info(fmt.Sprintf("NET late entry from %d to %s%d", msg.SrcID, groupTag(msg.Group), msg.DstID))
	v.broadcastNetSyntheticSetup(msg)
	return true
}

func (v *Voice) admitNetLateEntryReassembled(msg layer3.Message) {
	d := v.Engine.AdmitNET(msg.SrcID, msg.DstID, msg.Group)
	if d != callengine.Admit {
		return
	}
	v.Log.Info(fmt.Sprintf("NET late entry from %d to %s%d", msg.SrcID, groupTag(msg.Group), msg.DstID))
	v.broadcastNetSyntheticSetup(msg)
}

// broadcastNetSyntheticSetup is broadcastSyntheticSetup's NET-side
// mirror: it mirrors only to the local modem, never back to the network
// the setup was reassembled from.
func (v *Voice) broadcastNetSyntheticSetup(msg layer3.Message) {
	if v.Duplex {
		v.Modem.Enqueue(v.buildSetupFrame(msg))
	}
}
