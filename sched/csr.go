package sched

// mstatus bit layout, reproduced from original_source's include/csr.h so
// Bootstrap computes the same bit pattern a real RV32 trap prologue would
// leave in the saved frame. Bootstrap (core, spec.md §4.3) is the only
// user of these constants in this module; simhw does not reference them.
const (
	MstatusMIE  uint32 = 1 << 3 // global interrupt enable
	MstatusMPIE uint32 = 1 << 7 // prior interrupt-enable, restored into MIE by mret

	MstatusMPPShift uint32 = 11
	MstatusMPPMask  uint32 = 3 << MstatusMPPShift
	MstatusMPPM     uint32 = 3 << MstatusMPPShift // M-mode

	MIEMTIE uint32 = 1 << 7 // machine timer interrupt enable, in mie (not mstatus)
)
