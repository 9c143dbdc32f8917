package dmr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openlmr/lmr-repeater/pkg/access"
	"github.com/openlmr/lmr-repeater/pkg/callengine"
)

type fakeSink struct {
	frames  [][]byte
	cleared int
}

func (s *fakeSink) Enqueue(frame []byte) {
	cp := append([]byte{}, frame...)
	s.frames = append(s.frames, cp)
}

func (s *fakeSink) Clear() {
	s.cleared++
	s.frames = nil
}

func testTimers() callengine.TimerConfig {
	return callengine.TimerConfig{
		CallHang:    100 * time.Millisecond,
		TGHang:      50 * time.Millisecond,
		RFTimeout:   time.Second,
		NetTimeout:  time.Second,
		RFModeHang:  50 * time.Millisecond,
		NetModeHang: 50 * time.Millisecond,
	}
}

func newTestSlot(ctl *access.Control) (*Slot, *fakeSink, *fakeSink) {
	net := &fakeSink{}
	modem := &fakeSink{}
	s := NewSlot(Timeslot1, 1, true, testTimers(), ctl, []byte{0x5A, 0xA5}, net, modem, nil)
	return s, net, modem
}

func header(src, dst uint32) *Burst {
	return &Burst{Timeslot: Timeslot1, FrameType: FrameTypeVoiceHeader, SourceID: src, DestinationID: dst, CallType: CallTypeGroup, Payload: make([]byte, PayloadSize)}
}

func voiceFrame() *Burst {
	return &Burst{Timeslot: Timeslot1, FrameType: FrameTypeVoice, Payload: make([]byte, PayloadSize)}
}

func terminator() *Burst {
	return &Burst{Timeslot: Timeslot1, FrameType: FrameTypeVoiceTerminator, Payload: make([]byte, PayloadSize)}
}

func TestVoiceHeaderAdmitsRFCall(t *testing.T) {
	s, net, _ := newTestSlot(nil)

	ok := s.Process(header(100, 200))

	require.True(t, ok)
	require.Equal(t, callengine.RFAudio, s.Engine.RF.State)
	require.NotEmpty(t, net.frames)
}

func TestWrongTimeslotIgnored(t *testing.T) {
	s, _, _ := newTestSlot(nil)
	b := header(100, 200)
	b.Timeslot = Timeslot2

	require.False(t, s.Process(b))
	require.Equal(t, callengine.RFListening, s.Engine.RF.State)
}

func TestTerminatorEndsCall(t *testing.T) {
	s, _, _ := newTestSlot(nil)
	require.True(t, s.Process(header(100, 200)))

	require.True(t, s.Process(terminator()))
	require.Equal(t, callengine.RFListening, s.Engine.RF.State)
	require.True(t, s.Engine.RF.TGHang.IsRunning())
}

func TestVoiceFrameRequiresActiveCall(t *testing.T) {
	s, _, _ := newTestSlot(nil)
	require.False(t, s.Process(voiceFrame()))
}

func TestRejectedSourceDoesNotAdmit(t *testing.T) {
	ridACL, err := access.ParseACL("DENY:9999")
	require.NoError(t, err)
	ctl := access.NewControl(ridACL, nil)
	s, _, _ := newTestSlot(ctl)

	ok := s.Process(header(9999, 200))

	require.False(t, ok)
	require.Equal(t, callengine.RFRejected, s.Engine.RF.State)
}

func TestNetworkSideAdmitsIndependentlyOfRFState(t *testing.T) {
	s, _, modem := newTestSlot(nil)

	b := header(1, 999)
	ok := s.ProcessNetwork(b)

	require.True(t, ok)
	require.Equal(t, callengine.NetAudio, s.Engine.Net.State)
	require.Equal(t, callengine.RFListening, s.Engine.RF.State)
	require.NotEmpty(t, modem.frames)
}

func TestClearQueueOnFreshNetSession(t *testing.T) {
	s, _, modem := newTestSlot(nil)
	modem.frames = [][]byte{{0x01}}

	s.ProcessNetwork(header(1, 999))

	require.Equal(t, 1, modem.cleared)
}
