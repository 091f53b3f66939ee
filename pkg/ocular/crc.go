// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ocular

// CalculateCRC computes CRC-16-CCITT checksum for the given data
func CalculateCRC(data []byte) uint16 {
	return updateCRC(crcInitial, data)
}

// frameCRC computes the CRC carried by a frame: length bytes followed by payload.
// The header is not covered.
func frameCRC(payload []byte) uint16 {
	n := len(payload)
	crc := updateCRC(crcInitial, []byte{byte(n), byte(n >> 8)})
	return updateCRC(crc, payload)
}

func updateCRC(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
