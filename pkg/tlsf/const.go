package tlsf

import "unsafe"

// Word and size-class parameters.
//
// Unlike the C original, which needs a 32-bit and a 64-bit build variant
// selected by a preprocessor macro, every value below is a genuine Go
// constant expression over unsafe.Sizeof(uintptr(0)), so the same source
// serves both GOARCH widths without build tags: ALIGN is the pointer
// width, and FL_INDEX_MAX grows from 29 to 33 exactly as wordSize grows
// from 4 to 8.
const (
	wordSize = unsafe.Sizeof(uintptr(0)) // ALIGN: 4 on 32-bit targets, 8 on 64-bit
	wordBits = wordSize * 8

	slIndexCountShift = 5
	slIndexCount      = 1 << slIndexCountShift // 32 second-level slots per class

	alignShift   = int(wordSize/4 + 1) // log2(wordSize): 2 (32-bit) or 3 (64-bit)
	flIndexShift = slIndexCountShift + alignShift
	flIndexMax   = 25 + int(wordSize) // 29 (32-bit) or 33 (64-bit)
	flIndexCount = flIndexMax - flIndexShift + 1

	smallBlockSize = uintptr(1) << flIndexShift
	blockSizeMax   = uintptr(1) << flIndexMax
)

// Block header bit layout: the size occupies the low wordBits-3 bits, the
// three status flags occupy the top 3 bits. Every block size is a multiple
// of wordSize, so this is a straightforward reinterpretation of the
// C union-of-bitfields header as a single masked word -- see DESIGN.md
// for the rationale.
const (
	sizeBits     = wordBits - 3
	sizeMask     = uintptr(1)<<sizeBits - 1
	flagFree     = uintptr(1) << sizeBits
	flagPrevFree = uintptr(1) << (sizeBits + 1)
	flagPool     = uintptr(1) << (sizeBits + 2)
)
