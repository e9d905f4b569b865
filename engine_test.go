package swd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeLine is a minimal LineDriver that feeds a preprogrammed bit
// sequence to ReadDio and records everything driven through SetDio, for
// testing the Engine in isolation from the Bus Controller.
type fakeLine struct {
	in       []Level
	inIdx    int
	out      []Level
	dir      Direction
	dirTrace []Direction
	clk      Level
}

func (f *fakeLine) SetClk(level Level) {
	f.clk = level
}

func (f *fakeLine) SetDioDirection(d Direction) {
	f.dir = d
	f.dirTrace = append(f.dirTrace, d)
}

func (f *fakeLine) SetDio(level Level) {
	f.out = append(f.out, level)
}

func (f *fakeLine) ReadDio() Level {
	if f.inIdx >= len(f.in) {
		return High
	}
	l := f.in[f.inIdx]
	f.inIdx++
	return l
}

func levelsFromBits(bits uint8, n int) []Level {
	out := make([]Level, n)
	for i := 0; i < n; i++ {
		out[i] = bitLevel(bits, i)
	}
	return out
}

func levelsFromWord(v uint32, n int) []Level {
	out := make([]Level, n)
	for i := 0; i < n; i++ {
		out[i] = bitLevel32(v, i)
	}
	return out
}

func TestEngineReadOK(t *testing.T) {
	const dataWord = uint32(0xDEADBEEF)
	in := append([]Level{}, levelsFromBits(uint8(ackOK), 3)...)
	in = append(in, levelsFromWord(dataWord, 32)...)
	in = append(in, Level(parity(dataWord) == 1))
	line := &fakeLine{in: in}

	e := Engine{}
	cmd := NewReadCommand(0xA5, 0)

	var done bool
	var status StatusCode
	var data uint32
	for i := 0; i < cycleCount; i++ {
		done, status, data = e.Step(&cmd, line)
		if done {
			break
		}
	}
	assert.True(t, done)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, dataWord, data)
}

func TestEngineReadWait(t *testing.T) {
	in := levelsFromBits(uint8(ackWait), 3)
	line := &fakeLine{in: in}

	e := Engine{}
	cmd := NewReadCommand(0xA5, 0)

	var done bool
	var status StatusCode
	for i := 0; i < cycleCount; i++ {
		done, status, _ = e.Step(&cmd, line)
		if done {
			break
		}
	}
	assert.True(t, done)
	assert.Equal(t, StatusBusy, status)
}

func TestEngineReadParityMismatchAborts(t *testing.T) {
	const dataWord = uint32(0x00000001)
	in := append([]Level{}, levelsFromBits(uint8(ackOK), 3)...)
	in = append(in, levelsFromWord(dataWord, 32)...)
	in = append(in, Level(parity(dataWord) != 1)) // deliberately wrong
	line := &fakeLine{in: in}

	e := Engine{VerifyReadParity: true}
	cmd := NewReadCommand(0xA5, 0)

	var done bool
	var status StatusCode
	for i := 0; i < cycleCount; i++ {
		done, status, _ = e.Step(&cmd, line)
		if done {
			break
		}
	}
	assert.True(t, done)
	assert.Equal(t, StatusBus, status)
}

func TestEngineWriteOK(t *testing.T) {
	in := levelsFromBits(uint8(ackOK), 3)
	line := &fakeLine{in: in}

	e := Engine{}
	const dataWord = uint32(0x12345678)
	cmd := NewWriteCommand(0x81, dataWord, 3)

	var done bool
	var status StatusCode
	for i := 0; i < cycleCount; i++ {
		done, status, _ = e.Step(&cmd, line)
		if done {
			break
		}
	}
	assert.True(t, done)
	assert.Equal(t, StatusOK, status)

	// 8 REQ bits then 32 DATA bits then 1 parity bit were driven.
	assert.Len(t, line.out, 8+32+1)
	for i := 0; i < 8; i++ {
		assert.Equal(t, bitLevel(cmd.Request, i), line.out[i], "REQ bit %d", i)
	}
	for i := 0; i < 32; i++ {
		assert.Equal(t, bitLevel32(dataWord, i), line.out[8+i], "DATA bit %d", i)
	}
	assert.Equal(t, Level(parity(dataWord) == 1), line.out[40])
}

func TestEngineWriteFaultAbortsBeforeData(t *testing.T) {
	in := levelsFromBits(uint8(ackFault), 3)
	line := &fakeLine{in: in}

	e := Engine{}
	cmd := NewWriteCommand(0x81, 0xFFFFFFFF, 0)

	var done bool
	var status StatusCode
	for i := 0; i < cycleCount; i++ {
		done, status, _ = e.Step(&cmd, line)
		if done {
			break
		}
	}
	assert.True(t, done)
	assert.Equal(t, StatusFault, status)
	// Only the 8 REQ bits were ever driven; no DATA/parity followed.
	assert.Len(t, line.out, 8)
}

func TestParityFoldXor(t *testing.T) {
	assert.EqualValues(t, 0, parity(0))
	assert.EqualValues(t, 1, parity(1))
	assert.EqualValues(t, 0, parity(3))
	assert.EqualValues(t, 1, parity(0x80000000))
}
