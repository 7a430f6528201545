// Package checkpoint saves and restores graph parameters (and optimizer state) in the
// SafeTensors layout.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name → {dtype, shape, data_offsets}, plus "__metadata__"]
//	  [Tensor data: float64 little-endian, tensors in name order]
//
// Only the F64 dtype is written and accepted. The metadata always carries the format name and the
// SHA-256 of the data section, which Load verifies.
//
// Example usage:
//
//	if err := checkpoint.Save("mlp.safetensors", model.Graph(), map[string]string{"epochs": "100"}); err != nil {
//	    return err
//	}
//	meta, err := checkpoint.Load("mlp.safetensors", clone.Graph())
package checkpoint
