package dmr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoiceLCHeaderRoundTrip(t *testing.T) {
	lc := LC{FLCO: FLCOGroup, SrcID: 3121212, DstID: 3100}

	payload := BuildVoiceLCHeader(lc)
	require.Len(t, payload, PayloadSize)

	got, ok := ParseVoiceLCHeader(payload)
	require.True(t, ok)
	require.Equal(t, lc, got)
}

func TestVoiceTerminatorMatchesHeaderLayout(t *testing.T) {
	lc := LC{FLCO: FLCOUnitToUnit, SrcID: 100, DstID: 200}
	require.Equal(t, BuildVoiceLCHeader(lc), BuildVoiceTerminatorPayload(lc))
}

func TestParseVoiceLCHeaderRejectsShortPayload(t *testing.T) {
	_, ok := ParseVoiceLCHeader(make([]byte, 4))
	require.False(t, ok)
}
