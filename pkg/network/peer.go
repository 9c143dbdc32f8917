package network

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionState is the peer login handshake's progress.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateRPTLSent
	StateAuthenticated
	StateConfigSent
	StateConnected
)

// Config carries what Peer needs to reach and authenticate to one FNE.
type Config struct {
	RepeaterID uint32
	Callsign   string
	Passphrase string
	LocalPort  int
	FNEHost    string
	FNEPort    int
	PingPeriod time.Duration
}

// Handler receives a tagged payload decoded off the wire, keyed by its
// 4-byte protocol tag (PacketTypeNXDN/PacketTypeP25/PacketTypeDMRD).
type Handler func(tag string, payload []byte)

// Peer is a single outbound connection to one FNE peer site: the login
// handshake, keepalive loop, and the WriteNXDN/WriteP25/WriteDMR
// framing methods a protocol Voice pipeline's FrameSink implementation
// calls into.
type Peer struct {
	cfg       Config
	log       *slog.Logger
	conn      *net.UDPConn
	fne       *net.UDPAddr
	sessionID uuid.UUID

	stateMu sync.RWMutex
	state   ConnectionState

	privacy *Privacy
	handler Handler
}

// NewPeer builds a Peer. log may be nil.
func NewPeer(cfg Config, handler Handler, log *slog.Logger) *Peer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PingPeriod == 0 {
		cfg.PingPeriod = 5 * time.Second
	}
	return &Peer{cfg: cfg, handler: handler, sessionID: uuid.New(), log: log.With("component", "network.peer")}
}

// SessionID identifies this peer connection's lifetime, for correlating
// log lines across reconnects.
func (p *Peer) SessionID() uuid.UUID {
	return p.sessionID
}

// SetPrivacy enables AES link privacy on traffic payloads. Must be
// called before Run.
func (p *Peer) SetPrivacy(privacy *Privacy) {
	p.privacy = privacy
}

func (p *Peer) setState(s ConnectionState) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// State reports the current handshake state.
func (p *Peer) State() ConnectionState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Run dials the FNE, performs the login handshake, then services the
// receive and keepalive loops until ctx is cancelled.
func (p *Peer) Run(ctx context.Context) error {
	fne, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", p.cfg.FNEHost, p.cfg.FNEPort))
	if err != nil {
		return fmt.Errorf("resolve FNE address: %w", err)
	}
	p.fne = fne

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: p.cfg.LocalPort})
	if err != nil {
		return fmt.Errorf("listen UDP: %w", err)
	}
	p.conn = conn
	defer conn.Close()

	if err := p.authenticate(); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- p.receiveLoop(ctx) }()
	go func() { errCh <- p.keepaliveLoop(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// authenticate runs the RPTL -> RPTK -> RPTC login/challenge sequence
// against the FNE.
func (p *Peer) authenticate() error {
	send := func(data []byte) error {
		_, err := p.conn.WriteToUDP(data, p.fne)
		return err
	}
	awaitACK := func() error {
		p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		buf := make([]byte, 1024)
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		return ParseRPTACK(buf[:n], p.cfg.RepeaterID)
	}

	rptl := &RPTLPacket{RepeaterID: p.cfg.RepeaterID}
	if err := send(rptl.Encode()); err != nil {
		return fmt.Errorf("send RPTL: %w", err)
	}
	p.setState(StateRPTLSent)
	if err := awaitACK(); err != nil {
		return fmt.Errorf("RPTL ack: %w", err)
	}

	salt := make([]byte, SaltLength)
	for i := range salt {
		salt[i] = byte(time.Now().UnixNano() >> uint(i*8))
	}
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(p.cfg.Passphrase))

	rptk := &RPTKPacket{RepeaterID: p.cfg.RepeaterID, Challenge: h.Sum(nil)}
	if err := send(rptk.Encode()); err != nil {
		return fmt.Errorf("send RPTK: %w", err)
	}
	p.setState(StateAuthenticated)
	if err := awaitACK(); err != nil {
		return fmt.Errorf("RPTK ack: %w", err)
	}

	rptc := &RPTCPacket{RepeaterID: p.cfg.RepeaterID, Callsign: p.cfg.Callsign}
	if err := send(rptc.Encode()); err != nil {
		return fmt.Errorf("send RPTC: %w", err)
	}
	p.setState(StateConfigSent)
	if err := awaitACK(); err != nil {
		return fmt.Errorf("RPTC ack: %w", err)
	}

	p.setState(StateConnected)
	p.conn.SetReadDeadline(time.Time{})
	p.log.Info("connected to FNE", "fne", p.fne.String(), "session", p.sessionID.String())
	return nil
}

func (p *Peer) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		p.handleDatagram(buf[:n])
	}
}

func (p *Peer) handleDatagram(data []byte) {
	if IsMSTPONG(data) || IsMSTCL(data) {
		return
	}
	tag, payload, ok := unwrapTagged(data)
	if !ok || p.handler == nil {
		return
	}
	if p.privacy != nil {
		switch tag {
		case PacketTypeDMRD, PacketTypeNXDN, PacketTypeP25:
			payload, ok = p.privacy.Open(payload)
			if !ok {
				p.log.Warn("dropping traffic payload that failed link-privacy decryption", "tag", tag)
				return
			}
		}
	}
	p.handler(tag, payload)
}

func (p *Peer) keepaliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PingPeriod)
	defer ticker.Stop()
	ping := &RPTPINGPacket{RepeaterID: p.cfg.RepeaterID}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.conn.WriteToUDP(ping.Encode(), p.fne); err != nil {
				return err
			}
		}
	}
}

func (p *Peer) seal(payload []byte) []byte {
	if p.privacy == nil {
		return payload
	}
	return p.privacy.Seal(payload)
}

// WriteNXDN frames and sends one NXDN payload to the FNE.
func (p *Peer) WriteNXDN(payload []byte) error {
	_, err := p.conn.WriteToUDP(wrapTagged(PacketTypeNXDN, p.seal(payload)), p.fne)
	return err
}

// WriteP25 frames and sends one P25 payload to the FNE.
func (p *Peer) WriteP25(payload []byte) error {
	_, err := p.conn.WriteToUDP(wrapTagged(PacketTypeP25, p.seal(payload)), p.fne)
	return err
}

// WriteDMR frames and sends one DMR burst to the FNE.
func (p *Peer) WriteDMR(payload []byte) error {
	_, err := p.conn.WriteToUDP(wrapTagged(PacketTypeDMRD, p.seal(payload)), p.fne)
	return err
}

// Clear is a no-op satisfying the callengine.FrameSink/protocol
// FrameSink contract -- a live UDP peer has no queued frames to drop,
// unlike the modem side's jitter buffer.
func (p *Peer) Clear() {}

// NXDNSink, P25Sink, and DMRSink adapt Peer's per-protocol Write
// methods to the narrow Enqueue/Clear FrameSink contract each
// protocol's Voice pipeline expects of its Network collaborator.
type NXDNSink struct{ Peer *Peer }

func (s NXDNSink) Enqueue(frame []byte) { _ = s.Peer.WriteNXDN(frame) }
func (s NXDNSink) Clear()               { s.Peer.Clear() }

type P25Sink struct{ Peer *Peer }

func (s P25Sink) Enqueue(frame []byte) { _ = s.Peer.WriteP25(frame) }
func (s P25Sink) Clear()               { s.Peer.Clear() }

type DMRSink struct{ Peer *Peer }

func (s DMRSink) Enqueue(frame []byte) { _ = s.Peer.WriteDMR(frame) }
func (s DMRSink) Clear()               { s.Peer.Clear() }
