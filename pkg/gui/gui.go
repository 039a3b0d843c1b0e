package gui

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/famigo/pkg/input"
	"github.com/famigo/pkg/screen"
)

const (
	windowScale = 3
	windowTitle = "famigo"
)

// nesPalette expands the 64 6-bit palette indices to RGB.
var nesPalette = [64]uint32{
	0x7C7C7C, 0x0000FC, 0x0000BC, 0x4428BC, 0x940084, 0xA80020, 0xA81000, 0x881400,
	0x503000, 0x007800, 0x006800, 0x005800, 0x004058, 0x000000, 0x000000, 0x000000,
	0xBCBCBC, 0x0078F8, 0x0058F8, 0x6844FC, 0xD800CC, 0xE40058, 0xF83800, 0xE45C10,
	0xAC7C00, 0x00B800, 0x00A800, 0x00A844, 0x008888, 0x000000, 0x000000, 0x000000,
	0xF8F8F8, 0x3CBCFC, 0x6888FC, 0x9878F8, 0xF878F8, 0xF85898, 0xF87858, 0xFCA044,
	0xF8B800, 0xB8F818, 0x58D854, 0x58F898, 0x00E8D8, 0x787878, 0x000000, 0x000000,
	0xFCFCFC, 0xA4E4FC, 0xB8B8F8, 0xD8B8F8, 0xF8B8F8, 0xF8A4C0, 0xF0D0B0, 0xFCE0A8,
	0xF8D878, 0xD8F878, 0xB8F8B8, 0xB8F8D8, 0x00FCFC, 0xF8D8F8, 0x000000, 0x000000,
}

// GUI is the SDL window, renderer and streaming texture the emulator
// draws into.
type GUI struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixels   [screen.BufferSize]uint32
}

// New creates the window. SDL must already be initialized.
func New() (*GUI, error) {
	window, err := sdl.CreateWindow(
		windowTitle,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		screen.Width*windowScale, screen.Height*windowScale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create window")
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		return nil, errors.Wrap(err, "failed to create renderer")
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		screen.Width, screen.Height,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, errors.Wrap(err, "failed to create texture")
	}

	return &GUI{window: window, renderer: renderer, texture: texture}, nil
}

// Draw expands the 6-bit frame to RGB and presents it.
func (g *GUI) Draw(buffer *[screen.BufferSize]screen.Color) {
	for i, c := range buffer {
		g.pixels[i] = nesPalette[c.Bits()&0x3F]
	}

	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&g.pixels[0])), len(g.pixels)*4)
	g.texture.Update(nil, bytes, screen.Width*4)
	g.renderer.Clear()
	g.renderer.Copy(g.texture, nil, nil)
	g.renderer.Present()
}

// PumpEvents drains the SDL event queue; it reports true when the user
// asked to quit.
func (g *GUI) PumpEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return true
		case *sdl.KeyboardEvent:
			if e.Keysym.Sym == sdl.K_ESCAPE {
				return true
			}
		}
	}
	return false
}

// Destroy tears the window down.
func (g *GUI) Destroy() {
	g.texture.Destroy()
	g.renderer.Destroy()
	g.window.Destroy()
}

// KeyboardIO maps the keyboard onto controller 1:
// Z/X = A/B, Backspace = Select, Return = Start, arrows = D-pad.
type KeyboardIO struct {
	controller1 input.ShiftRegister8
	controller2 input.ShiftRegister8
}

// NewKeyboardIO builds the keyboard controller source.
func NewKeyboardIO() *KeyboardIO {
	return &KeyboardIO{}
}

// Read shifts out controller state OR'd with the open-bus constant.
func (k *KeyboardIO) Read(addr uint16) uint8 {
	switch addr {
	case 0x4016:
		return input.OpenBus | k.controller1.Shift()
	case 0x4017:
		return input.OpenBus | k.controller2.Shift()
	}
	return 0
}

// Write does nothing; the strobe is handled by Poll.
func (k *KeyboardIO) Write(addr uint16, value uint8) {}

// Poll latches the current keyboard state into controller 1.
func (k *KeyboardIO) Poll() {
	state := sdl.GetKeyboardState()

	var c1 uint8
	c1 |= pressed(state, sdl.SCANCODE_Z, input.ButtonA)
	c1 |= pressed(state, sdl.SCANCODE_X, input.ButtonB)
	c1 |= pressed(state, sdl.SCANCODE_BACKSPACE, input.ButtonSelect)
	c1 |= pressed(state, sdl.SCANCODE_RETURN, input.ButtonStart)
	c1 |= pressed(state, sdl.SCANCODE_UP, input.ButtonUp)
	c1 |= pressed(state, sdl.SCANCODE_DOWN, input.ButtonDown)
	c1 |= pressed(state, sdl.SCANCODE_LEFT, input.ButtonLeft)
	c1 |= pressed(state, sdl.SCANCODE_RIGHT, input.ButtonRight)
	k.controller1.Load(c1)
}

func pressed(state []uint8, scancode sdl.Scancode, button uint8) uint8 {
	if state[scancode] != 0 {
		return button
	}
	return 0
}
