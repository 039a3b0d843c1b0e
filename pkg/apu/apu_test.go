package apu

import (
	"testing"

	"github.com/famigo/pkg/audio"
)

func newTestAPU() *APU {
	return New(&audio.Dummy{})
}

// loadPulse1Length enables pulse 1 and loads its length counter.
func loadPulse1Length(a *APU, index uint8) {
	a.Write(0x15, 0x01)
	a.Write(0x03, index<<3)
}

func TestStatusReflectsLengthCounters(t *testing.T) {
	a := newTestAPU()

	_, status := a.ReadStatus(2)
	if status&0x0F != 0 {
		t.Errorf("All length counters should start at zero, status=%02X", status)
	}

	loadPulse1Length(a, 1) // length table entry 1 = 0xFE
	_, status = a.ReadStatus(4)
	if status&0x01 != 1 {
		t.Error("Pulse 1 length counter should read as active")
	}
}

func TestDisableForcesLengthToZero(t *testing.T) {
	a := newTestAPU()

	loadPulse1Length(a, 1)
	a.Write(0x15, 0x00)
	_, status := a.ReadStatus(4)
	if status&0x01 != 0 {
		t.Error("Clearing the enable bit must force the counter to zero")
	}

	// Reloads are ignored while disabled.
	a.Write(0x03, 1<<3)
	_, status = a.ReadStatus(8)
	if status&0x01 != 0 {
		t.Error("Length reloads must be ignored while the channel is disabled")
	}
}

func TestLengthRetainedUntilLengthTick(t *testing.T) {
	a := newTestAPU()

	loadPulse1Length(a, 1)
	// Ticks 1 (7459) and 2 (7459+7456) bracket the first length tick.
	a.RunTo(7459 + 100)
	if !a.Pulse1.Length.Audible() {
		t.Error("Length should survive the first (envelope-only) tick")
	}
}

func TestHaltedLengthNeverDecrements(t *testing.T) {
	a := newTestAPU()

	a.Write(0x15, 0x01)
	a.Write(0x00, 1<<5) // halt bit for pulse channels
	a.Write(0x03, 3<<3) // length entry 3 = 0x02

	// Run across several length ticks.
	a.RunTo(60000)
	if !a.Pulse1.Length.Audible() {
		t.Error("A halted length counter must not decrement")
	}
}

func TestUnhaltedLengthExpires(t *testing.T) {
	a := newTestAPU()

	a.Write(0x15, 0x01)
	a.Write(0x03, 3<<3) // length entry 3 = 0x02: expires after two length ticks

	a.RunTo(60000)
	if a.Pulse1.Length.Audible() {
		t.Error("Length counter should have expired")
	}
}

func TestFourStepModeRaisesIRQ(t *testing.T) {
	a := newTestAPU()

	// Tick 4 lands at 7459+7456+7458+7458 = 29831.
	if irq := a.RunTo(29830); irq {
		t.Error("IRQ must not fire before tick 4")
	}
	if irq := a.RunTo(29832); !irq {
		t.Error("4-step tick 4 must raise the frame IRQ")
	}

	_, status := a.ReadStatus(29840)
	if status&0x40 == 0 {
		t.Error("Status bit 6 should report the pending frame IRQ")
	}
	_, status = a.ReadStatus(29850)
	if status&0x40 != 0 {
		t.Error("Reading status must clear the frame IRQ")
	}
}

func TestSuppressBitBlocksAndClearsIRQ(t *testing.T) {
	a := newTestAPU()

	a.RunTo(29832) // IRQ pending
	a.Write(0x17, frameSuppressIRQ)
	_, status := a.ReadStatus(29840)
	if status&0x40 != 0 {
		t.Error("Setting the suppress bit must clear the pending IRQ")
	}

	if irq := a.RunTo(80000); irq {
		t.Error("No IRQ may fire while suppressed")
	}
}

func TestFiveStepModeClocksImmediately(t *testing.T) {
	a := newTestAPU()

	loadPulse1Length(a, 3) // length entry 3 = 0x02
	a.Write(0x17, frameMode)

	// The leading 1-cycle dummy tick clocks lengths immediately.
	a.RunTo(a.globalCyc + 2)
	if a.Pulse1.Length.remaining != 0x01 {
		t.Errorf("5-step select must clock the length once, remaining=%d",
			a.Pulse1.Length.remaining)
	}
}

func TestFourStepModeDoesNotClockImmediately(t *testing.T) {
	a := newTestAPU()

	loadPulse1Length(a, 3)
	a.Write(0x17, 0x00)

	a.RunTo(a.globalCyc + 2)
	if a.Pulse1.Length.remaining != 0x02 {
		t.Errorf("4-step select must not clock the length, remaining=%d",
			a.Pulse1.Length.remaining)
	}
}

func TestFiveStepModeNeverRaisesIRQ(t *testing.T) {
	a := newTestAPU()

	a.Write(0x17, frameMode)
	if irq := a.RunTo(120000); irq {
		t.Error("5-step mode must not raise the frame IRQ")
	}
}

func TestFrameWriteOnOddCycleIsDelayed(t *testing.T) {
	a := newTestAPU()

	a.RunTo(101) // odd cycle
	a.Write(0x17, frameMode)
	if a.frame&frameMode != 0 {
		t.Error("Odd-cycle $4017 writes must be delayed one cycle")
	}
	a.RunTo(103)
	if a.frame&frameMode == 0 {
		t.Error("Delayed $4017 write never landed")
	}
}

func TestRequestedRunCycleTracksNextTick(t *testing.T) {
	a := newTestAPU()

	if a.RequestedRunCycle() != 7459 {
		t.Errorf("Expected 7459, got %d", a.RequestedRunCycle())
	}
	a.RunTo(7460)
	if a.RequestedRunCycle() != 7459+7456 {
		t.Errorf("Expected %d, got %d", 7459+7456, a.RequestedRunCycle())
	}
}

func TestLFSRSequence(t *testing.T) {
	l := LFSR{value: 1}

	// value=1: bit0=1, bit1=0 -> new bit 1 inserted at bit 14.
	l.Shift()
	if l.value != 0x4000 {
		t.Errorf("Expected $4000, got $%04X", l.value)
	}

	// bit0=0, bit1=0 -> shift in 0.
	l.Shift()
	if l.value != 0x2000 {
		t.Errorf("Expected $2000, got $%04X", l.value)
	}
}

func TestLFSRMode1UsesBit6(t *testing.T) {
	l := LFSR{value: 0x0040, mode: 1}

	// bit0=0, bit6=1 -> new bit 1.
	l.Shift()
	if l.value != 0x4020 {
		t.Errorf("Expected $4020, got $%04X", l.value)
	}
}

func TestNoisePeriodTableLookup(t *testing.T) {
	n := NewNoise(NewWaveform(NewSampleBuffer(44100), volumeMult))
	n.Write(2, 0x8F)
	if n.timer.Period() != 0x0FE4 {
		t.Errorf("Expected $0FE4, got $%04X", n.timer.Period())
	}
	if n.shifter.mode != 1 {
		t.Error("Mode bit not latched")
	}
}

func TestSweepNegateCorrection(t *testing.T) {
	var timer1, timer2 Timer
	timer1.SetPeriod(0x100)
	timer2.SetPeriod(0x100)

	s1 := Sweep{negate: true, shift: 2}
	s2 := Sweep{negate: true, shift: 2, isPulse2: true}

	// Pulse 1 negation: -(period >> shift); pulse 2 adds one.
	if got := s1.periodShift(&timer1); got != -0x40 {
		t.Errorf("Pulse 1 shift: expected %d, got %d", -0x40, got)
	}
	if got := s2.periodShift(&timer2); got != -0x3F {
		t.Errorf("Pulse 2 shift: expected %d, got %d", -0x3F, got)
	}
}

func TestEnvelopeConstantVsDecaying(t *testing.T) {
	var e Envelope

	e.Write(0x50 | 0x05) // constant volume mode, n=5
	if e.Volume() != 5 {
		t.Errorf("Constant volume: expected 5, got %d", e.Volume())
	}

	e.Write(0x05) // decaying, n=5: counter seeds at 15
	if e.Volume() != 15 {
		t.Errorf("Decay start: expected 15, got %d", e.Volume())
	}
	// Divider counts n+1 ticks per counter step.
	for i := 0; i < 6; i++ {
		e.Tick()
	}
	if e.Volume() != 14 {
		t.Errorf("After one envelope period: expected 14, got %d", e.Volume())
	}
}
