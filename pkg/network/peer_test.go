package network

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeFNE is a minimal loopback UDP peer that ACKs the three login
// handshake packets, standing in for a real FNE.
func fakeFNE(t *testing.T, repeaterID uint32) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	go func() {
		buf := make([]byte, 4096)
		for i := 0; i < 3; i++ {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_ = n
			ack := make([]byte, RPTACKPacketSize)
			copy(ack[0:6], []byte(PacketTypeRPTACK))
			binary.BigEndian.PutUint32(ack[6:10], repeaterID)
			conn.WriteToUDP(ack, addr)
		}
	}()

	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func TestPeerCompletesLoginHandshake(t *testing.T) {
	fne, port := fakeFNE(t, 312000)
	defer fne.Close()

	var received []byte
	p := NewPeer(Config{
		RepeaterID: 312000,
		Callsign:   "W1AW",
		Passphrase: "secret",
		FNEHost:    "127.0.0.1",
		FNEPort:    port,
		PingPeriod: 50 * time.Millisecond,
	}, func(tag string, payload []byte) {
		received = append([]byte{}, payload...)
		_ = tag
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StateConnected, p.State())
	_ = received
}
