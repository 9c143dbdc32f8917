package network

import (
	"encoding/binary"
	"fmt"
)

// RPTLPacket is a login request: RepeaterID only.
type RPTLPacket struct {
	RepeaterID uint32
}

func (p *RPTLPacket) Encode() []byte {
	data := make([]byte, RPTLPacketSize)
	copy(data[0:4], []byte(PacketTypeRPTL))
	binary.BigEndian.PutUint32(data[4:8], p.RepeaterID)
	return data
}

// RPTKPacket carries the SHA-256(salt || passphrase) challenge response.
type RPTKPacket struct {
	RepeaterID uint32
	Challenge  []byte
}

func (p *RPTKPacket) Encode() []byte {
	data := make([]byte, RPTKPacketSize)
	copy(data[0:4], []byte(PacketTypeRPTK))
	binary.BigEndian.PutUint32(data[4:8], p.RepeaterID)
	if len(p.Challenge) >= ChallengeLength {
		copy(data[8:8+ChallengeLength], p.Challenge[:ChallengeLength])
	} else {
		copy(data[8:], p.Challenge)
	}
	return data
}

// RPTCPacket is the repeater's configuration announcement.
type RPTCPacket struct {
	RepeaterID  uint32
	Callsign    string
	RXFreq      string
	TXFreq      string
	TXPower     string
	ColorCode   string
	Latitude    string
	Longitude   string
	Height      string
	Location    string
	Description string
	Slots       string
	URL         string
	SoftwareID  string
	PackageID   string
}

func (p *RPTCPacket) Encode() []byte {
	data := make([]byte, RPTCPacketSize)
	copy(data[0:4], []byte(PacketTypeRPTC))
	binary.BigEndian.PutUint32(data[4:8], p.RepeaterID)

	copyField := func(dst []byte, src string) {
		for i := range dst {
			if i < len(src) {
				dst[i] = src[i]
			} else {
				dst[i] = ' '
			}
		}
	}

	copyField(data[8:16], p.Callsign)
	copyField(data[16:25], p.RXFreq)
	copyField(data[25:34], p.TXFreq)
	copyField(data[34:36], p.TXPower)
	copyField(data[36:38], p.ColorCode)
	copyField(data[38:46], p.Latitude)
	copyField(data[46:55], p.Longitude)
	copyField(data[55:58], p.Height)
	copyField(data[58:78], p.Location)
	copyField(data[78:97], p.Description)
	copyField(data[97:98], p.Slots)
	copyField(data[98:222], p.URL)
	copyField(data[222:262], p.SoftwareID)
	copyField(data[262:302], p.PackageID)
	return data
}

// ParseRPTACK validates a received RPTACK datagram for the given repeater ID.
func ParseRPTACK(data []byte, repeaterID uint32) error {
	if len(data) < RPTACKPacketSize || string(data[0:6]) != PacketTypeRPTACK {
		return fmt.Errorf("unexpected response, want RPTACK: %q", string(data))
	}
	got := binary.BigEndian.Uint32(data[6:10])
	if got != repeaterID {
		return fmt.Errorf("RPTACK repeater ID mismatch: got %d, want %d", got, repeaterID)
	}
	return nil
}

// RPTPINGPacket is the peer's keepalive ping.
type RPTPINGPacket struct {
	RepeaterID uint32
}

func (p *RPTPINGPacket) Encode() []byte {
	data := make([]byte, RPTPINGPacketSize)
	copy(data[0:7], []byte(PacketTypeRPTPING))
	binary.BigEndian.PutUint32(data[7:11], p.RepeaterID)
	return data
}

// IsMSTPONG reports whether data is a keepalive pong from the FNE.
func IsMSTPONG(data []byte) bool {
	return len(data) >= MSTPONGPacketSize && string(data[0:7]) == PacketTypeMSTPONG
}

// IsMSTCL reports whether data is a disconnect notice from the FNE.
func IsMSTCL(data []byte) bool {
	return len(data) >= MSTCLPacketSize && string(data[0:5]) == PacketTypeMSTCL
}
