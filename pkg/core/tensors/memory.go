// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"unsafe"
)

// DefaultAlignment in bytes of buffers allocated by New and FromFlat.
//
// It covers the alignment required by every registered micro-kernel.
const DefaultAlignment = 64

// AlignedBytes returns a zeroed slice of size bytes whose first element address is a multiple
// of alignment.
//
// The Go garbage collector doesn't move heap objects, so the alignment holds for the
// lifetime of the slice.
func AlignedBytes(size, alignment int) []byte {
	if alignment <= 1 {
		return make([]byte, size)
	}
	buf := make([]byte, size+alignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	pad := int((uintptr(alignment) - addr%uintptr(alignment)) % uintptr(alignment))
	return buf[pad : pad+size : pad+size]
}

// IsAligned returns whether the first byte of data is aligned to alignment.
// Empty slices are considered aligned.
func IsAligned(data []byte, alignment int) bool {
	if len(data) == 0 || alignment <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(data)))%uintptr(alignment) == 0
}

// Load reads a value of type T stored at byteOffset in data.
//
// It panics (index out of range) if the value doesn't fit entirely in data.
func Load[T any](data []byte, byteOffset int) T {
	var zero T
	_ = data[byteOffset+int(unsafe.Sizeof(zero))-1]
	return *(*T)(unsafe.Pointer(&data[byteOffset]))
}

// Store writes value at byteOffset in data.
//
// It panics (index out of range) if the value doesn't fit entirely in data.
func Store[T any](data []byte, byteOffset int, value T) {
	_ = data[byteOffset+int(unsafe.Sizeof(value))-1]
	*(*T)(unsafe.Pointer(&data[byteOffset])) = value
}

// Elements reinterprets data as a slice of T, truncating any trailing partial element.
// The returned slice shares the memory with data.
func Elements[T any](data []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(data) < size {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/size)
}

// AsBytes reinterprets the flat slice as bytes. The returned slice shares the memory with flat.
func AsBytes[T any](flat []T) []byte {
	if len(flat) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(flat))), len(flat)*int(unsafe.Sizeof(zero)))
}
