// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

// CalculateCRC8 computes the CRC-8 (polynomial 0x07, MSB first) for the given data
func CalculateCRC8(data []byte) uint8 {
	crc := uint8(CRC8_INITIAL)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ CRC8_POLYNOMIAL
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
