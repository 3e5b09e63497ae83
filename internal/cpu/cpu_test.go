package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/internal/types"
)

type write2 struct {
	address       uint16
	first, second uint8
}

// testBus is 64 KiB of flat memory that counts cycles.
type testBus struct {
	mem    [0x10000]uint8
	cycles int

	writes2 []write2

	// onCycle is called after every cycle
	onCycle func(cycle int)
}

func (b *testBus) tick() {
	b.cycles++
	if b.onCycle != nil {
		b.onCycle(b.cycles)
	}
}

func (b *testBus) CpuReadData(address uint16) uint8 {
	b.tick()
	return b.mem[address]
}

func (b *testBus) CpuReadZeroPage(address uint16) uint8 {
	b.tick()
	return b.mem[address]
}

func (b *testBus) CpuReadProgramData(address uint16) uint8 {
	b.tick()
	return b.mem[address]
}

func (b *testBus) CpuDummyRead(uint16) { b.tick() }

func (b *testBus) CpuWrite(address uint16, value uint8) {
	b.tick()
	b.mem[address] = value
}

func (b *testBus) CpuWriteZeroPage(address uint16, value uint8) {
	b.tick()
	b.mem[address] = value
}

func (b *testBus) CpuWrite2(address uint16, first, second uint8) {
	b.writes2 = append(b.writes2, write2{address, first, second})
	b.tick()
	b.mem[address] = first
	b.tick()
	b.mem[address] = second
}

// newTestCPU returns a CPU that has been reset into a program at 0x8000.
func newTestCPU(program ...uint8) (*CPU, *testBus) {
	b := &testBus{}
	copy(b.mem[0x8000:], program)
	b.mem[ResetVector] = 0x00
	b.mem[ResetVector+1] = 0x80
	c := New(b)
	c.PowerOn()
	b.cycles = 0
	return c, b
}

// run executes n instructions and returns the cycles they took.
func run(c *CPU, b *testBus, n int) int {
	start := b.cycles
	for i := 0; i < n; i++ {
		c.RunInstruction()
	}
	return b.cycles - start
}

func TestCPU_PowerOn(t *testing.T) {
	b := &testBus{}
	b.mem[ResetVector] = 0x34
	b.mem[ResetVector+1] = 0x12
	b.mem[0x1ff] = 0xaa
	c := New(b)
	c.PowerOn()

	assert.Equal(t, 7, b.cycles)
	r := c.Registers()
	assert.Equal(t, uint16(0x1234), r.PC)
	assert.Equal(t, uint8(0xfd), r.S)
	assert.Equal(t, uint8(0x24), r.P)
	assert.Equal(t, uint8(0xaa), b.mem[0x1ff], "reset doesn't write the stack")
}

// TestInstruction_Timing runs every opcode with all registers and memory
// at zero, so that no page is crossed. With P clear, BPL, BVC, BCC and
// BNE are taken.
func TestInstruction_Timing(t *testing.T) {
	timings := []int{
		7, 6, 0, 8, 3, 3, 5, 5, 3, 2, 2, 2, 4, 4, 6, 6,
		3, 5, 0, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
		6, 6, 0, 8, 3, 3, 5, 5, 4, 2, 2, 2, 4, 4, 6, 6,
		2, 5, 0, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
		6, 6, 0, 8, 3, 3, 5, 5, 3, 2, 2, 2, 3, 4, 6, 6,
		3, 5, 0, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
		6, 6, 0, 8, 3, 3, 5, 5, 4, 2, 2, 2, 5, 4, 6, 6,
		2, 5, 0, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
		2, 6, 2, 6, 3, 3, 3, 3, 2, 2, 2, 2, 4, 4, 4, 4,
		3, 6, 0, 6, 4, 4, 4, 4, 2, 5, 2, 5, 5, 5, 5, 5,
		2, 6, 2, 6, 3, 3, 3, 3, 2, 2, 2, 2, 4, 4, 4, 4,
		2, 5, 0, 5, 4, 4, 4, 4, 2, 4, 2, 4, 4, 4, 4, 4,
		2, 6, 2, 8, 3, 3, 5, 5, 2, 2, 2, 2, 4, 4, 6, 6,
		3, 5, 0, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
		2, 6, 2, 8, 3, 3, 5, 5, 2, 2, 2, 2, 4, 4, 6, 6,
		2, 5, 0, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	}
	for i, timing := range timings {
		if timing == 0 {
			continue
		}
		opcode := uint8(i)
		t.Run(InstructionSet[opcode].Name(), func(t *testing.T) {
			c, b := newTestCPU(opcode)
			c.SetRegisters(Registers{S: 0xfd, PC: 0x8000})
			if cycles := run(c, b, 1); cycles != timing {
				t.Errorf("opcode %02X: expected %d cycles, got %d", opcode, timing, cycles)
			}
		})
	}
}

func TestInstruction_Defined(t *testing.T) {
	for i, instr := range InstructionSet {
		if instr.fn == nil || instr.name == "" {
			t.Errorf("opcode %02X is not defined", i)
		}
	}
}

func TestInstruction_PageCross(t *testing.T) {
	for _, tt := range []struct {
		name    string
		program []uint8
		x, y    uint8
		cycles  int
	}{
		{"LDA abs,X", []uint8{0xbd, 0x80, 0x12}, 0x7f, 0, 4},
		{"LDA abs,X crossing", []uint8{0xbd, 0x80, 0x12}, 0x80, 0, 5},
		{"LDA abs,Y crossing", []uint8{0xb9, 0xff, 0x12}, 0, 1, 5},
		{"STA abs,X crossing", []uint8{0x9d, 0x80, 0x12}, 0x80, 0, 5},
		{"LDA (zp),Y crossing", []uint8{0xb1, 0x10}, 0, 0xff, 6},
		{"NOP abs,X crossing", []uint8{0xfc, 0xff, 0x00}, 1, 0, 5},
		{"INC abs,X crossing", []uint8{0xfe, 0xff, 0x00}, 1, 0, 7},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestCPU(tt.program...)
			b.mem[0x10] = 0x01
			c.X, c.Y = tt.x, tt.y
			assert.Equal(t, tt.cycles, run(c, b, 1))
		})
	}
}

func TestInstruction_Branch(t *testing.T) {
	for _, tt := range []struct {
		name   string
		p      uint8
		offset uint8
		cycles int
		pc     uint16
	}{
		{"not taken", 0x02, 0x10, 2, 0x8002},
		{"taken", 0x00, 0x10, 3, 0x8012},
		{"taken backwards", 0x00, 0xfe, 3, 0x8000},
		{"taken across a page", 0x00, 0xfc, 4, 0x7ffe},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestCPU(0xd0, tt.offset) // BNE
			c.P = tt.p
			assert.Equal(t, tt.cycles, run(c, b, 1))
			assert.Equal(t, tt.pc, c.PC)
		})
	}

	t.Run("page cross", func(t *testing.T) {
		c, b := newTestCPU()
		b.mem[0x80f0] = 0x90 // BCC
		b.mem[0x80f1] = 0x20
		c.PC = 0x80f0
		assert.Equal(t, 4, run(c, b, 1))
		assert.Equal(t, uint16(0x8112), c.PC)
	})
}

func TestInstruction_Arithmetic(t *testing.T) {
	for _, tt := range []struct {
		name    string
		opcode  uint8
		a, v, p uint8
		want    uint8
		flags   uint8
	}{
		{"ADC", 0x69, 0x10, 0x20, 0x00, 0x30, 0x00},
		{"ADC carry in", 0x69, 0x10, 0x20, 0x01, 0x31, 0x00},
		{"ADC carry out", 0x69, 0xff, 0x01, 0x00, 0x00, 0x03},
		{"ADC overflow", 0x69, 0x7f, 0x01, 0x00, 0x80, 0xc0},
		{"SBC", 0xe9, 0x50, 0x10, 0x01, 0x40, 0x01},
		{"SBC borrow", 0xe9, 0x10, 0x20, 0x01, 0xf0, 0x80},
		{"SBC overflow", 0xe9, 0x80, 0x01, 0x01, 0x7f, 0x41},
		{"SBC undocumented", 0xeb, 0x50, 0x10, 0x01, 0x40, 0x01},
		{"AND", 0x29, 0xf0, 0x0f, 0x00, 0x00, 0x02},
		{"ORA", 0x09, 0xf0, 0x0f, 0x00, 0xff, 0x80},
		{"EOR", 0x49, 0xff, 0x0f, 0x00, 0xf0, 0x80},
		{"CMP equal", 0xc9, 0x40, 0x40, 0x00, 0x40, 0x03},
		{"CMP less", 0xc9, 0x40, 0x41, 0x00, 0x40, 0x80},
		{"ANC", 0x0b, 0x80, 0xff, 0x00, 0x80, 0x81},
		{"ALR", 0x4b, 0x03, 0xff, 0x00, 0x01, 0x01},
		{"ARR", 0x6b, 0xff, 0xff, 0x01, 0xff, 0x81},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestCPU(tt.opcode, tt.v)
			c.A, c.P = tt.a, tt.p
			run(c, b, 1)
			assert.Equal(t, tt.want, c.A)
			assert.Equal(t, tt.flags, c.P&^(1<<FlagInterrupt), "flags")
		})
	}
}

func TestInstruction_ReadModifyWrite(t *testing.T) {
	c, b := newTestCPU(
		0xee, 0x00, 0x03, // INC $0300
		0x06, 0x10, // ASL $10
		0xc7, 0x11, // DCP $11
	)
	b.mem[0x300] = 0x41
	b.mem[0x10] = 0x81
	b.mem[0x11] = 0x05
	c.A = 0x04

	run(c, b, 3)
	require.Len(t, b.writes2, 3)
	assert.Equal(t, write2{0x300, 0x41, 0x42}, b.writes2[0])
	assert.Equal(t, write2{0x10, 0x81, 0x02}, b.writes2[1])
	assert.True(t, c.isFlagSet(FlagCarry))
	assert.Equal(t, uint8(0x04), b.mem[0x11])
	assert.True(t, c.isFlagSet(FlagZero), "DCP compares A with the result")
}

func TestInstruction_Stack(t *testing.T) {
	c, b := newTestCPU(
		0x20, 0x00, 0x90, // JSR $9000
		0xe8, // INX
	)
	copy(b.mem[0x9000:], []uint8{
		0xa9, 0x42, // LDA #$42
		0x48,       // PHA
		0xa9, 0x00, // LDA #$00
		0x68, // PLA
		0x60, // RTS
	})

	assert.Equal(t, 6, run(c, b, 1))
	assert.Equal(t, uint16(0x9000), c.PC)
	assert.Equal(t, uint8(0xfb), c.S)
	assert.Equal(t, uint8(0x80), b.mem[0x1fd])
	assert.Equal(t, uint8(0x02), b.mem[0x1fc])

	run(c, b, 5)
	assert.Equal(t, uint8(0x42), c.A)
	assert.Equal(t, uint16(0x8003), c.PC)
	run(c, b, 1)
	assert.Equal(t, uint8(1), c.X)
}

func TestInstruction_JmpIndirect(t *testing.T) {
	c, b := newTestCPU(0x6c, 0xff, 0x02)
	b.mem[0x2ff] = 0x34
	b.mem[0x300] = 0x56
	b.mem[0x200] = 0x12

	assert.Equal(t, 5, run(c, b, 1))
	assert.Equal(t, uint16(0x1234), c.PC, "the pointer wraps within its page")
}

func TestInstruction_Undocumented(t *testing.T) {
	c, b := newTestCPU(
		0xa7, 0x10, // LAX $10
		0x87, 0x11, // SAX $11
		0xcb, 0x01, // AXS #$01
	)
	b.mem[0x10] = 0xf3
	run(c, b, 1)
	assert.Equal(t, uint8(0xf3), c.A)
	assert.Equal(t, uint8(0xf3), c.X)

	c.X = 0x0f
	run(c, b, 1)
	assert.Equal(t, uint8(0x03), b.mem[0x11])

	run(c, b, 1)
	assert.Equal(t, uint8(0x02), c.X)
	assert.True(t, c.isFlagSet(FlagCarry))
}

func TestCPU_Jam(t *testing.T) {
	c, b := newTestCPU(0x02, 0xe8)
	run(c, b, 1)
	assert.True(t, c.Jammed())

	pc := c.PC
	assert.Equal(t, 3, run(c, b, 3))
	assert.Equal(t, pc, c.PC)
	assert.Equal(t, uint8(0), c.X)

	c.Reset()
	assert.False(t, c.Jammed())
}

func TestCPU_Irq(t *testing.T) {
	c, b := newTestCPU(0xea, 0xea)
	b.mem[IrqVector] = 0x00
	b.mem[IrqVector+1] = 0x90
	b.mem[0x9000] = 0xea
	c.SetRegisters(Registers{S: 0xfd, PC: 0x8000})

	c.SetIrq(true)
	assert.Equal(t, 7, run(c, b, 1))
	assert.Equal(t, uint16(0x9000), c.PC)
	assert.True(t, c.isFlagSet(FlagInterrupt))
	assert.Equal(t, uint8(0x20), b.mem[0x1fb], "IRQ pushes P without B")
	assert.Equal(t, uint8(0x00), b.mem[0x1fc])
	assert.Equal(t, uint8(0x80), b.mem[0x1fd])

	// the line is masked now
	assert.Equal(t, 2, run(c, b, 1))
}

func TestCPU_IrqMasked(t *testing.T) {
	c, b := newTestCPU(0xea)
	c.SetIrq(true)
	assert.Equal(t, 2, run(c, b, 1))
	assert.Equal(t, uint16(0x8001), c.PC)
}

func TestCPU_CliDelay(t *testing.T) {
	c, b := newTestCPU(
		0x58, // CLI
		0xe8, // INX
		0xe8, // INX
	)
	b.mem[IrqVector+1] = 0x90
	c.SetIrq(true)

	run(c, b, 2)
	assert.Equal(t, uint8(1), c.X, "the instruction after CLI runs first")
	assert.Equal(t, 7, run(c, b, 1))
	assert.Equal(t, uint16(0x9000), c.PC)
}

func TestCPU_SeiDelay(t *testing.T) {
	c, b := newTestCPU(0x78, 0xe8) // SEI, INX
	b.mem[IrqVector+1] = 0x90
	c.SetRegisters(Registers{S: 0xfd, PC: 0x8000})

	run(c, b, 1)
	c.SetIrq(true)
	assert.Equal(t, 7, run(c, b, 1), "the poll after SEI still sees I clear")
	assert.Equal(t, uint8(0x24), b.mem[0x1fb], "I is set in the pushed status")
}

func TestCPU_Nmi(t *testing.T) {
	c, b := newTestCPU(0xea)
	b.mem[NmiVector] = 0x00
	b.mem[NmiVector+1] = 0xa0

	c.Nmi()
	assert.Equal(t, 7, run(c, b, 1))
	assert.Equal(t, uint16(0xa000), c.PC)
}

func TestCPU_NmiHijack(t *testing.T) {
	for _, tt := range []struct {
		name   string
		cycle  int
		vector uint16
	}{
		{"during push", 4, 0xa000},
		{"during vector fetch", 6, 0x9000},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, b := newTestCPU(0x00, 0x00) // BRK
			b.mem[IrqVector+1] = 0x90
			b.mem[NmiVector+1] = 0xa0
			b.onCycle = func(cycle int) {
				if cycle == tt.cycle {
					c.Nmi()
				}
			}

			run(c, b, 1)
			assert.Equal(t, tt.vector, c.PC)
			assert.Equal(t, uint8(0x34), b.mem[0x1fb], "BRK pushes B and I")
		})
	}
}

func TestCPU_State(t *testing.T) {
	c, b := newTestCPU(0xa9, 0x12, 0xaa, 0xe8)
	run(c, b, 2)
	c.SetIrq(true)

	s := types.NewState()
	c.Save(s)
	want := c.Registers()

	run(c, b, 1)
	s.ResetPosition()
	c.Load(s)
	require.NoError(t, s.Err())
	assert.Equal(t, want, c.Registers())
	assert.Equal(t, "A:12 X:12 Y:00 P:24 SP:FD PC:8003", c.Registers().String())
}
