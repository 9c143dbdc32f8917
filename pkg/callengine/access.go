package callengine

import "github.com/openlmr/lmr-repeater/pkg/access"

// ValidateCall runs the access-control admission check for a new call.
// The originating RID is checked first. Group calls then validate the
// destination TGID; individual calls validate the destination RID against
// the same source-ID lists.
func ValidateCall(ctl *access.Control, srcID, dstID uint32, group bool) Decision {
	if ctl == nil {
		return Admit
	}
	if !ctl.ValidateSrcID(srcID) {
		return RejectSrc
	}
	if group {
		if !ctl.ValidateTGID(dstID) {
			return RejectDst
		}
	} else {
		if !ctl.ValidateSrcID(dstID) {
			return RejectDst
		}
	}
	return Admit
}
