package cpu

// Block is one compiled basic block with its invalidation bit.
type Block struct {
	dirty bool
	code  *ExecutableBlock
}

// Dispatcher maps 6502 program-counter values to compiled native
// blocks. PRG bank switches invalidate every block; the next jump to an
// invalidated address recompiles it.
type Dispatcher struct {
	table []*Block
}

// NewDispatcher builds an empty 64K-entry dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{table: make([]*Block, 0x10000)}
}

// Jump runs the block at the CPU's PC, compiling it first if needed.
// On hosts without a recompiler it falls back to the interpreter.
func (d *Dispatcher) Jump(c *CPU) {
	block := d.block(c.PC, c)
	if block == nil {
		c.interpretOne()
		return
	}
	block.code.Call(c)
}

func (d *Dispatcher) block(addr uint16, c *CPU) *Block {
	if b := d.table[addr]; b != nil && !b.dirty && b.code != nil {
		return b
	}

	c.disasmFunction(addr)
	code := CompileBlock(addr, c)
	if code == nil {
		return nil
	}
	b := &Block{code: code}
	d.table[addr] = b
	return b
}

// InvalidateAll marks every compiled block dirty. Mapper bank-change
// hooks call it when the PRG ROM mapping moves under compiled code.
func (d *Dispatcher) InvalidateAll() {
	for _, b := range d.table {
		if b != nil {
			b.dirty = true
		}
	}
}
