// Package callengine implements the protocol-agnostic half of the
// per-protocol call pipeline: RF/NET call contexts, the traffic-collision
// policy between them, access-control admission, hang/timeout timer
// wiring and super-frame (SACCH fragment) reassembly. NXDN, P25 and DMR
// each drive an Engine with their own channel-codec and Layer-3 glue,
// rather than reimplementing this state machine three times.
package callengine

// RFState is the RF-side call context's state.
type RFState int

const (
	RFListening RFState = iota
	RFAudio
	RFData
	RFRejected
)

func (s RFState) String() string {
	switch s {
	case RFListening:
		return "LISTENING"
	case RFAudio:
		return "AUDIO"
	case RFData:
		return "DATA"
	case RFRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// NetState is the NET-side call context's state.
type NetState int

const (
	NetIdle NetState = iota
	NetAudio
	NetData
)

func (s NetState) String() string {
	switch s {
	case NetIdle:
		return "IDLE"
	case NetAudio:
		return "AUDIO"
	case NetData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// Decision is the outcome of an admission or collision check.
type Decision int

const (
	Admit Decision = iota
	RejectSrc
	RejectDst
	PreemptNew
	PreemptExisting
	Drop
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "ADMIT"
	case RejectSrc:
		return "REJECT_SRC"
	case RejectDst:
		return "REJECT_DST"
	case PreemptNew:
		return "PREEMPT_NEW"
	case PreemptExisting:
		return "PREEMPT_EXISTING"
	case Drop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}
