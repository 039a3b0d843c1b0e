//go:build !(amd64 && (linux || darwin))

package cpu

// ExecutableBlock is unavailable on this host; the dispatcher falls
// back to the interpreter.
type ExecutableBlock struct{}

// Call never runs on hosts without a recompiler.
func (b *ExecutableBlock) Call(c *CPU) {}

// CompileBlock reports that no recompiler exists by returning nil.
func CompileBlock(addr uint16, c *CPU) *ExecutableBlock {
	return nil
}
