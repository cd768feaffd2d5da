//go:build cgo

package hostbridge

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"
)

// called by the host to get the version of the extension
//
//export CompassVersion
func CompassVersion(output *C.char, outputsize C.size_t) {
	reply(Default.Version(), output, outputsize)
}

// called by the host with "COMMAND" or "COMMAND|argument"
//
//export CompassCall
func CompassCall(output *C.char, outputsize C.size_t, input *C.char) {
	reply(Default.Call(C.GoString(input)), output, outputsize)
}

// called by the host with a command and an argument array
//
//export CompassCallArgs
func CompassCallArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	reply(Default.CallArgs(C.GoString(input), parseArgsFromC(argv, argc)), output, outputsize)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	var data []string
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// reply copies the response into the host's buffer, truncating if needed.
func reply(response string, output *C.char, outputsize C.size_t) {
	if outputsize == 0 {
		return
	}
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
	*(*C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(output)) + uintptr(size-1))) = 0
}
