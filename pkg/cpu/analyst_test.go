package cpu

import "testing"

func TestAnalystFindsSimpleBlockEnd(t *testing.T) {
	c := createTestCPU(t)
	load(c, 0x0200,
		0xA9, 0x01, // LDA #1
		0x85, 0x10, // STA $10
		0x60, // RTS
	)

	analysis := NewAnalyst(c).Analyze(0x0200)
	if analysis.EntryPoint != 0x0200 {
		t.Errorf("Expected entry $0200, got $%04X", analysis.EntryPoint)
	}
	if analysis.ExitPoint != 0x0204 {
		t.Errorf("Expected exit $0204, got $%04X", analysis.ExitPoint)
	}
	if len(analysis.Instructions) != 3 {
		t.Errorf("Expected 3 instructions, got %d", len(analysis.Instructions))
	}
}

func TestAnalystExtendsThroughForwardBranch(t *testing.T) {
	c := createTestCPU(t)
	load(c, 0x0200,
		0xD0, 0x01, // BNE +1 -> $0203
		0x60,       // RTS (inside the block: the branch jumps past it)
		0xA9, 0x05, // $0203: LDA #5
		0x60, // RTS
	)

	analysis := NewAnalyst(c).Analyze(0x0200)
	if analysis.ExitPoint != 0x0205 {
		t.Errorf("Expected exit $0205, got $%04X", analysis.ExitPoint)
	}

	target := analysis.Instructions[0x0203]
	if target == nil || !target.IsBranchTarget {
		t.Error("The forward branch target must be marked")
	}
}

func TestAnalystStopsAtJMP(t *testing.T) {
	c := createTestCPU(t)
	load(c, 0x0200,
		0xA2, 0x00, // LDX #0
		0x4C, 0x00, 0x03, // JMP $0300
		0xEA, // unreachable
	)

	analysis := NewAnalyst(c).Analyze(0x0200)
	if analysis.ExitPoint != 0x0204 {
		t.Errorf("Expected exit $0204, got $%04X", analysis.ExitPoint)
	}
	if _, ok := analysis.Instructions[0x0205]; ok {
		t.Error("Instructions past the exit must not be recorded")
	}
}

func TestAnalystFlagLiveness(t *testing.T) {
	c := createTestCPU(t)
	load(c, 0x0200,
		0xA9, 0x00, // LDA #0: S/Z immediately overwritten
		0xA9, 0x01, // LDA #1
		0x60, // RTS
	)

	analysis := NewAnalyst(c).Analyze(0x0200)

	first := analysis.Instructions[0x0200]
	if first.LiveFlags&(analysisS|analysisZ) != 0 {
		t.Errorf("S/Z must be dead after the first LDA, live=%02X", first.LiveFlags)
	}
	if first.LiveFlags&analysisC == 0 {
		t.Error("Carry is untouched downstream and must stay live")
	}

	second := analysis.Instructions[0x0202]
	if second.LiveFlags != analysisAll {
		t.Errorf("All flags are live before a block exit, got %02X", second.LiveFlags)
	}
}

func TestAnalystBranchKeepsConsumedFlagLive(t *testing.T) {
	c := createTestCPU(t)
	load(c, 0x0200,
		0x18,       // CLC
		0x90, 0x00, // BCC +0
		0x60, // RTS
	)

	analysis := NewAnalyst(c).Analyze(0x0200)
	clc := analysis.Instructions[0x0200]
	if clc.LiveFlags&analysisC == 0 {
		t.Error("The branch consumes carry; it must be live after CLC")
	}
}
