package lineio

import swd "github.com/kcuzner/swdadaptor"

// Target is a configurable stand-in for a real SWD target, driven bit by
// bit through Loopback. It only ever needs to answer two questions --
// "what is your Nth driven bit" and "here is the master's Nth driven
// bit" -- because Loopback hands it a freshly zeroed bit index every
// time the master flips direction; the target itself never needs to
// know which SWD phase (ACK, DATA, parity) it is in.
type Target struct {
	// Ack is the 3-bit acknowledgement (LSB-first) presented on every
	// transaction's ACK phase. Tests set it per Target to choose the
	// response, e.g. WAIT for spec.md §8 scenario 2.
	Ack uint8
	// ReadData is presented, LSB-first, after the ACK phase on a READ
	// that decoded OK, followed by its even-parity bit.
	ReadData uint32

	// LastRequest is the captured 8-bit request header (see captureBit).
	LastRequest uint8
	// LastWriteData is the captured WRITE data word (see captureBit).
	LastWriteData uint32
}

func (t *Target) driveBit(index int) swd.Level {
	switch {
	case index < 3:
		return swd.Level((t.Ack>>uint(index))&1 == 1)
	case index < 3+32:
		return swd.Level((t.ReadData>>uint(index-3))&1 == 1)
	default:
		return swd.Level(parity32(t.ReadData) == 1)
	}
}

func parity32(v uint32) uint8 {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	return uint8((uint32(0x6996) >> (v & 0xf)) & 1)
}

// captureBit records one bit the master drove while dir==out. The last
// 8 bits of the first output run are kept as the request header (that
// run opens with the INIT preamble, so the header is what the master
// drove just before releasing SWDIO); the first 32 bits of the second
// run are the data word, captured only when that header has RnW=0
// (WRITE). Runs are counted from NewLoopback and never reset, so only
// the first transaction after NewLoopback is captured.
func (t *Target) captureBit(run, index int, level swd.Level) {
	bit := uint32(0)
	if level == swd.High {
		bit = 1
	}
	switch run {
	case 1:
		t.LastRequest = t.LastRequest>>1 | uint8(bit<<7)
	case 2:
		if index < 32 && t.LastRequest&0x04 == 0 {
			t.LastWriteData = (t.LastWriteData &^ (1 << uint(index))) | (bit << uint(index))
		}
	}
}

// Loopback implements swd.LineDriver entirely in memory, wiring a
// single master against a single Target with no real GPIO involved. It
// is meant to be driven by exactly one goroutine (the Adaptor's Run
// loop), the same single-writer assumption the real Bit Engine makes of
// its hardware pins.
type Loopback struct {
	Target *Target

	clk swd.Level
	dir swd.Direction

	// driveIdx counts ReadDio calls since the master last switched to
	// DirIn; captureIdx does the same for SetDio calls since the master
	// last switched to DirOut, and outRun counts switches to DirOut.
	driveIdx   int
	captureIdx int
	outRun     int
}

// NewLoopback returns a Loopback wired to the given Target.
func NewLoopback(target *Target) *Loopback {
	return &Loopback{Target: target, dir: swd.DirIn}
}

func (l *Loopback) SetClk(level swd.Level) {
	l.clk = level
}

func (l *Loopback) SetDioDirection(dir swd.Direction) {
	if dir == l.dir {
		return
	}
	l.dir = dir
	if dir == swd.DirIn {
		l.driveIdx = 0
	} else {
		l.captureIdx = 0
		l.outRun++
	}
}

func (l *Loopback) SetDio(level swd.Level) {
	if l.dir != swd.DirOut {
		return
	}
	l.Target.captureBit(l.outRun, l.captureIdx, level)
	l.captureIdx++
}

func (l *Loopback) ReadDio() swd.Level {
	if l.dir != swd.DirIn {
		// Released, unterminated line: pulled high.
		return swd.High
	}
	bit := l.Target.driveBit(l.driveIdx)
	l.driveIdx++
	return bit
}
