package callengine

// RFCollision decides how to admit a new RF VCALL given the NET side's
// current state. A NET session already holding the new call's destination
// wins (the RF call is assumed to be a voting duplicate or an echo);
// anything else the RF side preempts.
func RFCollision(net *NetContext, srcRF, dstRF uint32) Decision {
	if net.State == NetIdle {
		return Admit
	}
	if dstRF == net.LastDstID {
		return PreemptNew
	}
	if net.LastSrcID == srcRF && net.LastDstID == dstRF {
		return PreemptNew
	}
	return PreemptExisting
}

// NETCollision decides how to admit a new NET VCALL (or drop it) given
// the RF side's current state and TGID-hang timer. While the hang timer
// runs the channel still belongs to the last RF talk-group: a NET call to
// a different destination is dropped, a matching one refreshes the timer.
//
// The TGID-hang refresh is a side effect on rf.TGHang, not a decision by
// itself; the RF-state checks below it still apply.
func NETCollision(rf *RFContext, srcNET, dstNET uint32) Decision {
	if rf.LastDstID != 0 && dstNET != rf.LastDstID && rf.TGHang.IsRunning() && !rf.TGHang.HasExpired() {
		return Drop
	}
	if dstNET == rf.LastDstID && rf.TGHang.IsRunning() {
		rf.TGHang.Start()
	}
	if rf.State != RFListening && rf.LastSrcID == srcNET && rf.LastDstID == dstNET {
		return Drop
	}
	if rf.State != RFListening {
		return Drop
	}
	return Admit
}
