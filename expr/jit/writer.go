/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package jit

import (
	"syscall"
	"unsafe"
)

// JITWriter is the platform-independent code emitter scaffold.
// Architecture-specific emit helpers live in amd64.go/arm64.go.
type JITWriter struct {
	Ptr   unsafe.Pointer // current write position
	Start unsafe.Pointer // buffer start, for relative position math
	End   unsafe.Pointer // buffer end minus a safety reserve

	buf []byte // backing RW mapping, kept alive until Finalize

	Labels    [32]int32
	LabelNext uint8

	Fixups    [64]JITFixup
	FixupNext uint8
}

// newWriter allocates a writable scratch buffer sized for one compiled
// function. The buffer is not executable yet — Finalize mprotects it to
// RX once code generation is complete, mirroring the teacher's
// allocExec/makeRX split (scm/jit.go) so the writable and executable
// windows of the page's lifetime never overlap.
func newWriter(capacity int) (*JITWriter, error) {
	page := syscall.Getpagesize()
	n := (capacity + page - 1) &^ (page - 1)
	b, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, err
	}
	start := unsafe.Pointer(&b[0])
	return &JITWriter{
		Ptr:   start,
		Start: start,
		End:   unsafe.Add(start, n-64),
		buf:   b,
	}, nil
}

// size returns the number of bytes written so far.
func (w *JITWriter) size() int {
	return int(uintptr(w.Ptr) - uintptr(w.Start))
}

// finalize mprotects the buffer RX and returns a pointer to its start.
// The buffer is never munmapped: the mapping stays for the rest of the
// process, also after the cache evicts the Entry that refers to it.
func (w *JITWriter) finalize() (unsafe.Pointer, error) {
	n := len(w.buf)
	if err := syscall.Mprotect(w.buf, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		return nil, err
	}
	_ = n
	return w.Start, nil
}

func (w *JITWriter) emitByte(b byte) {
	*(*byte)(w.Ptr) = b
	w.Ptr = unsafe.Add(w.Ptr, 1)
}

func (w *JITWriter) emitBytes(bs ...byte) {
	for _, b := range bs {
		w.emitByte(b)
	}
}

func (w *JITWriter) emitU32(v uint32) {
	*(*uint32)(w.Ptr) = v
	w.Ptr = unsafe.Add(w.Ptr, 4)
}

func (w *JITWriter) emitU64(v uint64) {
	*(*uint64)(w.Ptr) = v
	w.Ptr = unsafe.Add(w.Ptr, 8)
}

// DefineLabel marks the current write position as a label's target.
func (w *JITWriter) DefineLabel() uint8 {
	id := w.LabelNext
	w.LabelNext++
	w.Labels[id] = int32(w.size())
	return id
}

// ReserveLabel allocates a label id whose position is set later via
// MarkLabel, for forward references.
func (w *JITWriter) ReserveLabel() uint8 {
	id := w.LabelNext
	w.LabelNext++
	w.Labels[id] = -1
	return id
}

// MarkLabel sets a previously reserved label's position to here.
func (w *JITWriter) MarkLabel(id uint8) {
	w.Labels[id] = int32(w.size())
}

// AddFixup records a forward reference to label id that ResolveFixups
// must patch once every label is known.
func (w *JITWriter) AddFixup(labelID uint8, size uint8, relative bool) {
	w.Fixups[w.FixupNext] = JITFixup{
		CodePos:  int32(w.size()),
		LabelID:  labelID,
		Size:     size,
		Relative: relative,
	}
	w.FixupNext++
}

// ResolveFixups patches every recorded forward reference.
func (w *JITWriter) ResolveFixups() {
	for i := uint8(0); i < w.FixupNext; i++ {
		f := &w.Fixups[i]
		target := w.Labels[f.LabelID]
		if target < 0 {
			panic("jit: undefined label")
		}
		patchAddr := unsafe.Add(w.Start, int(f.CodePos))
		if f.Relative {
			offset := target - (f.CodePos + int32(f.Size))
			*(*int32)(patchAddr) = offset
		} else {
			*(*int32)(patchAddr) = target
		}
	}
}
