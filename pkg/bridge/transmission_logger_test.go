package bridge

import (
	"testing"
	"time"

	"github.com/openlmr/lmr-repeater/pkg/logger"
)

func newTestActivityLog() *logger.ActivityLog {
	return logger.NewActivityLog(10, logger.New(logger.Config{Level: "error"}))
}

func TestTransmissionLogger_LogPacket(t *testing.T) {
	activity := newTestActivityLog()
	txLogger := NewTransmissionLogger("NXDN", activity, nil)

	streamID := uint32(12345)
	radioID := uint32(1234567)
	talkgroupID := uint32(91)
	timeslot := 0

	txLogger.LogPacket(streamID, radioID, talkgroupID, timeslot, false)

	if count := txLogger.GetActiveStreamCount(); count != 1 {
		t.Errorf("expected 1 active stream, got %d", count)
	}

	time.Sleep(200 * time.Millisecond)
	txLogger.LogPacket(streamID, radioID, talkgroupID, timeslot, false)
	time.Sleep(200 * time.Millisecond)
	txLogger.LogPacket(streamID, radioID, talkgroupID, timeslot, false)

	time.Sleep(200 * time.Millisecond)
	txLogger.LogPacket(streamID, radioID, talkgroupID, timeslot, true)

	if count := txLogger.GetActiveStreamCount(); count != 0 {
		t.Errorf("expected 0 active streams after terminator, got %d", count)
	}

	recent := activity.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 activity record, got %d", len(recent))
	}

	rec := recent[0]
	if rec.SourceID != radioID {
		t.Errorf("expected source id %d, got %d", radioID, rec.SourceID)
	}
	if rec.DestID != talkgroupID {
		t.Errorf("expected dest id %d, got %d", talkgroupID, rec.DestID)
	}
	if rec.Timeslot != timeslot {
		t.Errorf("expected timeslot %d, got %d", timeslot, rec.Timeslot)
	}
	if rec.StreamID != streamID {
		t.Errorf("expected stream id %d, got %d", streamID, rec.StreamID)
	}
	if rec.PacketCount != 4 {
		t.Errorf("expected packet count 4, got %d", rec.PacketCount)
	}
	if rec.Duration() <= 0 {
		t.Errorf("expected positive duration, got %v", rec.Duration())
	}
}

func TestTransmissionLogger_MultipleStreams(t *testing.T) {
	activity := newTestActivityLog()
	txLogger := NewTransmissionLogger("P25", activity, nil)

	stream1 := uint32(11111)
	stream2 := uint32(22222)

	txLogger.LogPacket(stream1, 1000001, 91, 1, false)
	txLogger.LogPacket(stream2, 1000002, 92, 2, false)

	if count := txLogger.GetActiveStreamCount(); count != 2 {
		t.Errorf("expected 2 active streams, got %d", count)
	}

	time.Sleep(600 * time.Millisecond)

	txLogger.LogPacket(stream1, 1000001, 91, 1, true)
	if count := txLogger.GetActiveStreamCount(); count != 1 {
		t.Errorf("expected 1 active stream after ending first, got %d", count)
	}

	txLogger.LogPacket(stream2, 1000002, 92, 2, true)
	if count := txLogger.GetActiveStreamCount(); count != 0 {
		t.Errorf("expected 0 active streams after ending both, got %d", count)
	}

	recent := activity.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected 2 activity records, got %d", len(recent))
	}
}

func TestTransmissionLogger_CleanupStaleStreams(t *testing.T) {
	activity := newTestActivityLog()
	txLogger := NewTransmissionLogger("DMR", activity, nil)

	streamID := uint32(99999)
	txLogger.LogPacket(streamID, 1000001, 91, 1, false)

	if count := txLogger.GetActiveStreamCount(); count != 1 {
		t.Errorf("expected 1 active stream, got %d", count)
	}

	time.Sleep(600 * time.Millisecond)
	txLogger.LogPacket(streamID, 1000001, 91, 1, false)

	time.Sleep(100 * time.Millisecond)
	txLogger.CleanupStaleStreams(10 * time.Millisecond)

	if count := txLogger.GetActiveStreamCount(); count != 0 {
		t.Errorf("expected 0 active streams after cleanup, got %d", count)
	}

	recent := activity.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 activity record after cleanup, got %d", len(recent))
	}
}

func TestTransmissionLogger_ShortTransmissionSkipped(t *testing.T) {
	activity := newTestActivityLog()
	txLogger := NewTransmissionLogger("NXDN", activity, nil)

	streamID := uint32(5555)
	txLogger.LogPacket(streamID, 1000001, 91, 1, false)
	txLogger.LogPacket(streamID, 1000001, 91, 1, true)

	recent := activity.Recent(10)
	if len(recent) != 0 {
		t.Fatalf("expected short transmission to be skipped, got %d records", len(recent))
	}
}
