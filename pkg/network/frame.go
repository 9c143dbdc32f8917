// Package network frames this repeater's traffic onto the FNE peer
// byte-stream: the HBP-shaped login/keepalive handshake plus
// per-protocol tagged payload framing. This repeater is always a peer
// dialing out to a fixed FNE, never a hub accepting inbound
// registrations.
package network

// Packet type signatures from the HBP wire format, so the handshake
// interoperates with any FNE speaking the same protocol.
const (
	PacketTypeDMRD    = "DMRD"
	PacketTypeNXDN    = "NXDD"
	PacketTypeP25     = "P25D"
	PacketTypeRPTL    = "RPTL"
	PacketTypeRPTK    = "RPTK"
	PacketTypeRPTC    = "RPTC"
	PacketTypeRPTCL   = "RPTCL"
	PacketTypeRPTACK  = "RPTACK"
	PacketTypeRPTPING = "RPTPING"
	PacketTypeMSTPONG = "MSTPONG"
	PacketTypeMSTNAK  = "MSTNAK"
	PacketTypeMSTCL   = "MSTCL"
)

const (
	RPTLPacketSize    = 8
	RPTKPacketSize    = 40
	RPTCPacketSize    = 302
	RPTCLPacketSize   = 9
	RPTACKPacketSize  = 10
	RPTPINGPacketSize = 11
	MSTPONGPacketSize = 11
	MSTCLPacketSize   = 9

	SaltLength      = 4
	ChallengeLength = 32
)

// tagSize is the 4-byte ASCII tag every per-protocol payload frame
// carries ahead of the raw bytes a Voice pipeline produces.
const tagSize = 4

// wrapTagged prefixes payload with a 4-byte protocol tag, the framing
// WriteNXDN/WriteP25/WriteDMR apply before handing bytes to the UDP
// socket.
func wrapTagged(tag string, payload []byte) []byte {
	out := make([]byte, tagSize+len(payload))
	copy(out[0:tagSize], tag)
	copy(out[tagSize:], payload)
	return out
}

// unwrapTagged splits a received datagram into its protocol tag and
// payload. ok is false if the datagram is shorter than one tag.
func unwrapTagged(data []byte) (tag string, payload []byte, ok bool) {
	if len(data) < tagSize {
		return "", nil, false
	}
	return string(data[0:tagSize]), data[tagSize:], true
}
