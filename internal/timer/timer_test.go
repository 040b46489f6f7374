package timer

import (
	"testing"

	"github.com/lowbyte-dev/dmg-core/internal/interrupt"
)

func TestTimer_DIVReadIsUpperByte(t *testing.T) {
	tm := New()
	var irq interrupt.Bus
	tm.Tick(0x0200, &irq)
	if got := tm.Read(0xFF04); got != 0x02 {
		t.Fatalf("DIV got %02X want 02", got)
	}
}

func TestTimer_BasicRW(t *testing.T) {
	tm := New()
	var irq interrupt.Bus
	tm.Write(0xFF05, 0x77, &irq)
	if got := tm.Read(0xFF05); got != 0x77 {
		t.Fatalf("TIMA got %02X want 77", got)
	}
	tm.Write(0xFF06, 0x88, &irq)
	if got := tm.Read(0xFF06); got != 0x88 {
		t.Fatalf("TMA got %02X want 88", got)
	}
	tm.Write(0xFF07, 0xFD, &irq)
	if want := byte(0xF8 | (0xFD & 0x07)); tm.Read(0xFF07) != want {
		t.Fatalf("TAC got %02X want %02X", tm.Read(0xFF07), want)
	}
}

func TestTimer_DIVWriteResetsAndCanFallingEdgeIncrement(t *testing.T) {
	tm := New()
	var irq interrupt.Bus
	tm.Write(0xFF07, 0x05, &irq) // enable, select bit3
	tm.div = 0x0008              // bit3=1 -> input true
	tm.tima = 0x10
	tm.Write(0xFF04, 0x00, &irq) // reset -> input false -> falling edge
	if tm.tima != 0x11 {
		t.Fatalf("TIMA not incremented on DIV falling edge: got %02X want 11", tm.tima)
	}
	if got := tm.Read(0xFF04); got != 0x00 {
		t.Fatalf("DIV after write got %02X want 00", got)
	}
}

func TestTimer_TACWriteFallingEdgeIncrement(t *testing.T) {
	tm := New()
	var irq interrupt.Bus
	tm.div = 0x0008 // bit3=1, bit5=0
	tm.tac = 0x05   // enabled, select bit3 (currently true)
	tm.tima = 0x20
	tm.Write(0xFF07, 0x06, &irq) // switch to bit5 (currently false) -> falling edge
	if tm.tima != 0x21 {
		t.Fatalf("TIMA not incremented on TAC falling edge: got %02X want 21", tm.tima)
	}
}

func TestTimer_OverflowReloadsImmediatelyAndRequestsInterrupt(t *testing.T) {
	tm := New()
	var irq interrupt.Bus
	irq.SetIE(0x1F) // enable all sources so Highest() reports the request
	tm.tac = 0x05   // enabled, bit3
	tm.tma = 0xAB
	tm.tima = 0xFF
	tm.div = 0x000F // next tick flips bit3 1->0: falling edge
	tm.Tick(1, &irq)
	if tm.tima != 0xAB {
		t.Fatalf("TIMA after overflow got %02X want AB (immediate reload)", tm.tima)
	}
	if _, pending := irq.Highest(); !pending {
		t.Fatalf("timer interrupt not requested on overflow")
	}
	k, _ := irq.Highest()
	if k != interrupt.Timer {
		t.Fatalf("wrong interrupt kind requested: %v", k)
	}
}

func TestTimer_DisabledNeverIncrements(t *testing.T) {
	tm := New()
	var irq interrupt.Bus
	tm.tac = 0x00 // disabled
	tm.tima = 0x00
	tm.Tick(10000, &irq)
	if tm.tima != 0x00 {
		t.Fatalf("TIMA incremented while timer disabled: got %02X", tm.tima)
	}
}
