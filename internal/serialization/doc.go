// Package serialization reads and writes state dicts as safetensors files.
//
// Layout:
//
//	[8 bytes: header size N (uint64 LE)]
//	[N bytes: JSON header]
//	[tensor data: raw little-endian bytes]
//
// The JSON header maps each tensor name to {"dtype", "shape", "data_offsets"},
// offsets being relative to the start of the data section, plus an optional
// "__metadata__" object of string pairs. Only F32 and I32 tensors are supported.
//
// Example:
//
//	if err := serialization.WriteFile("model.safetensors", m.StateDict(), meta); err != nil {
//	    return err
//	}
//	state, meta, err := serialization.ReadFile("model.safetensors")
package serialization
