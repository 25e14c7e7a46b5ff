// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucmd records GPU register writes into a command list.
//
// Each write is two words: the value, then a header holding the register
// number in bits 0..15 and the byte-enable mask in bits 16..19. Only the
// registers touched by resource binding are named here.
package gpucmd

import "fmt"

// Register is a GPU register number.
type Register uint16

// Registers used when binding textures and buffers.
const (
	RegTexUnit0BorderColor Register = 0x081
	RegTexUnit0Dim         Register = 0x082
	RegTexUnit0Param       Register = 0x083
	RegTexUnit0LOD         Register = 0x084
	RegTexUnit0Addr1       Register = 0x085
	RegTexUnit0Type        Register = 0x08E
	RegAttribBuffersLoc    Register = 0x200
	RegAttribBuffer0Offset Register = 0x203
	RegIndexBufferConfig   Register = 0x227
)

var registerNames = map[Register]string{
	RegTexUnit0BorderColor: "TEXUNIT0_BORDER_COLOR",
	RegTexUnit0Dim:         "TEXUNIT0_DIM",
	RegTexUnit0Param:       "TEXUNIT0_PARAM",
	RegTexUnit0LOD:         "TEXUNIT0_LOD",
	RegTexUnit0Addr1:       "TEXUNIT0_ADDR1",
	RegTexUnit0Type:        "TEXUNIT0_TYPE",
	RegAttribBuffersLoc:    "ATTRIBBUFFERS_LOC",
	RegAttribBuffer0Offset: "ATTRIBBUFFER0_OFFSET",
	RegIndexBufferConfig:   "INDEXBUFFER_CONFIG",
}

// String returns the register name.
func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REG_%03X", uint16(r))
}

// MaskAll enables all four bytes of a register write.
const MaskAll = 0xF

// Write is one decoded register write.
type Write struct {
	Reg   Register
	Mask  uint8
	Value uint32
}

// List is an append-only command list. The zero value is ready to use.
type List struct {
	words []uint32
}

// AddWrite appends a full-mask write of value to reg.
func (l *List) AddWrite(reg Register, value uint32) {
	l.AddMaskedWrite(reg, MaskAll, value)
}

// AddMaskedWrite appends a write of value to reg with the given byte mask.
func (l *List) AddMaskedWrite(reg Register, mask uint8, value uint32) {
	l.words = append(l.words, value, uint32(reg)|uint32(mask&0xF)<<16)
}

// Len returns the number of writes recorded.
func (l *List) Len() int { return len(l.words) / 2 }

// Words returns the encoded command words. The slice aliases the list.
func (l *List) Words() []uint32 { return l.words }

// Writes decodes the list.
func (l *List) Writes() []Write {
	out := make([]Write, 0, l.Len())
	for i := 0; i+1 < len(l.words); i += 2 {
		hdr := l.words[i+1]
		out = append(out, Write{
			Reg:   Register(hdr & 0xFFFF), //nolint:gosec // G115: masked
			Mask:  uint8((hdr >> 16) & 0xF),
			Value: l.words[i],
		})
	}
	return out
}

// Last returns the most recent write to reg.
func (l *List) Last(reg Register) (uint32, bool) {
	for i := len(l.words) - 2; i >= 0; i -= 2 {
		if Register(l.words[i+1]&0xFFFF) == reg { //nolint:gosec // G115: masked
			return l.words[i], true
		}
	}
	return 0, false
}

// Reset empties the list, keeping its capacity.
func (l *List) Reset() { l.words = l.words[:0] }
