package trap

import "unsafe"

func bytesAt(addr uintptr, n uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
