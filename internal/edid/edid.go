// Package edid rewrites monitor identity descriptors so a guest
// graphics driver accepts them on a virtual port. The ports have no
// clock generator and no real panel behind them, so the descriptor has
// to be stripped of capabilities the guest would otherwise try to
// exercise.
package edid

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// BaseBlockSize is the size of the mandatory first EDID block.
	// Everything the patcher touches lives in the base block; an
	// optional extension block after it is left alone.
	BaseBlockSize = 128

	videoInputOffset = 20
	featureOffset    = 24
	checksumOffset   = 0x7f

	timingOffset = 54
	timingSize   = 18
	timingCount  = 4

	// maxPixelClock is the largest pixel clock the guest driver
	// accepts on a virtual port, in 10 kHz units (160 MHz). Found
	// empirically; the real limit is meaningless since no clock is
	// ever configured.
	maxPixelClock = 16000

	digitalInputBit = 0x80

	// byte 24 bits 3-4 encode the display color type; the analog
	// encoding is RGB color, the digital one RGB 4:4:4 (zero).
	colorTypeMask   = 0x18
	colorTypeAnalog = 0x08

	// byte 24 bits 5-7 advertise DPMS power management, which a
	// clockless port cannot honor without leaving stale images.
	powerManagementMask = 0xe0
)

// ErrShortBuffer is returned for descriptors smaller than the base
// block.
var ErrShortBuffer = errors.New("descriptor shorter than EDID base block")

// baseBlock gives typed access to the first 128 bytes. All mutation
// goes through set, which compensates the checksum byte so the block
// keeps summing to 0 mod 256.
type baseBlock []byte

func (b baseBlock) set(off int, v byte) {
	old := b[off]
	if old == v {
		return
	}
	b[checksumOffset] += old - v
	b[off] = v
}

func (b baseBlock) isDigital() bool {
	return b[videoInputOffset]&digitalInputBit != 0
}

// Patch rewrites buf in place for a virtual port carrying the given
// signal type. buf must hold at least the 128-byte base block; if it
// entered with a valid checksum it leaves with one.
func Patch(buf []byte, analog bool) error {
	if len(buf) < BaseBlockSize {
		return fmt.Errorf("patch edid (%d bytes): %w", len(buf), ErrShortBuffer)
	}

	b := baseBlock(buf[:BaseBlockSize])
	b.setSignalType(analog)
	b.clearPowerManagement()
	b.capPixelClocks()

	return nil
}

// setSignalType forces the analog/digital input bit to match the port
// and rewrites the color-support bits to the matching encoding. A
// descriptor already carrying the right signal type is left untouched.
func (b baseBlock) setSignalType(analog bool) {
	switch {
	case analog && b.isDigital():
		b.set(videoInputOffset, b[videoInputOffset]&^digitalInputBit)
		b.set(featureOffset, (b[featureOffset]&^colorTypeMask)|colorTypeAnalog)
	case !analog && !b.isDigital():
		b.set(videoInputOffset, b[videoInputOffset]|digitalInputBit)
		b.set(featureOffset, b[featureOffset]&^colorTypeMask)
	}
}

func (b baseBlock) clearPowerManagement() {
	b.set(featureOffset, b[featureOffset]&^powerManagementMask)
}

// capPixelClocks walks the four 18-byte detailed timing descriptors
// and caps each pixel clock at maxPixelClock. The first two bytes of a
// descriptor hold the clock, little endian, in 10 kHz units.
func (b baseBlock) capPixelClocks() {
	for i := 0; i < timingCount; i++ {
		off := timingOffset + timingSize*i
		clock := binary.LittleEndian.Uint16(b[off : off+2])
		if clock > maxPixelClock {
			b.set(off, maxPixelClock&0xff)
			b.set(off+1, maxPixelClock>>8)
		}
	}
}
