package bridge

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openlmr/lmr-repeater/pkg/logger"
)

// TransmissionLogger tracks in-progress bridge transmissions and
// reports each completed one to an ActivityLog once its terminator
// arrives. It carries no database: persistence of call history belongs
// to whatever process embeds this module, not to the bridge itself.
type TransmissionLogger struct {
	protocol      string
	activity      *logger.ActivityLog
	log           *slog.Logger
	activeStreams map[uint32]*activeStream
	mu            sync.RWMutex
}

// activeStream tracks an ongoing transmission
type activeStream struct {
	streamID    uint32
	radioID     uint32
	talkgroupID uint32
	timeslot    int
	startTime   time.Time
	lastSeen    time.Time
	packetCount int
}

// NewTransmissionLogger creates a transmission logger that reports
// completed calls for the given protocol label ("NXDN", "P25", "DMR")
// to activity.
func NewTransmissionLogger(protocol string, activity *logger.ActivityLog, log *slog.Logger) *TransmissionLogger {
	if log == nil {
		log = slog.Default()
	}
	return &TransmissionLogger{
		protocol:      protocol,
		activity:      activity,
		log:           logger.WithComponent(log, "bridge.txlog"),
		activeStreams: make(map[uint32]*activeStream),
	}
}

// LogPacket records one packet of a bridged transmission, tracking
// streams and reporting to the activity log on the terminator.
func (tl *TransmissionLogger) LogPacket(streamID, radioID, talkgroupID uint32, timeslot int, isTerminator bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	now := time.Now()

	stream, exists := tl.activeStreams[streamID]
	if !exists {
		stream = &activeStream{
			streamID:    streamID,
			radioID:     radioID,
			talkgroupID: talkgroupID,
			timeslot:    timeslot,
			startTime:   now,
			lastSeen:    now,
			packetCount: 1,
		}
		tl.activeStreams[streamID] = stream
		tl.log.Debug("started tracking stream", "stream_id", streamID, "radio_id", radioID, "talkgroup_id", talkgroupID)
	} else {
		stream.lastSeen = now
		stream.packetCount++
	}

	if isTerminator {
		tl.finish(streamID, stream)
	}
}

// minLoggableDuration filters out spurious header/terminator pairs
// with nothing logged between them.
const minLoggableDuration = 500 * time.Millisecond

func (tl *TransmissionLogger) finish(streamID uint32, stream *activeStream) {
	duration := stream.lastSeen.Sub(stream.startTime)
	if duration >= minLoggableDuration && tl.activity != nil {
		tl.activity.Record(logger.ActivityRecord{
			Protocol:    tl.protocol,
			SourceID:    stream.radioID,
			DestID:      stream.talkgroupID,
			Timeslot:    stream.timeslot,
			StreamID:    stream.streamID,
			StartedAt:   stream.startTime,
			EndedAt:     stream.lastSeen,
			PacketCount: stream.packetCount,
		})
	} else {
		tl.log.Debug("skipped very short transmission", "stream_id", streamID, "duration", duration)
	}

	delete(tl.activeStreams, streamID)
}

// CleanupStaleStreams removes streams that haven't seen activity
// recently, reporting them to the activity log first if they meet the
// minimum duration. Call periodically.
func (tl *TransmissionLogger) CleanupStaleStreams(maxAge time.Duration) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	now := time.Now()
	for streamID, stream := range tl.activeStreams {
		if now.Sub(stream.lastSeen) > maxAge {
			tl.finish(streamID, stream)
		}
	}
}

// GetActiveStreamCount returns the number of currently active streams
func (tl *TransmissionLogger) GetActiveStreamCount() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.activeStreams)
}
