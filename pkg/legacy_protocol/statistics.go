// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package legacy_protocol

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks status message statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalMessages   uint64
	ValidMessages   uint64
	ChecksumErrors  uint64
	OtherErrors     uint64
	AnomalousValues uint64
	InProgress      uint64
	DeviceChecksum  uint64 // messages reporting CMD_CHECKSUM_ERROR
	DeviceFailures  uint64 // messages reporting CMD_INVALID or CMD_EXECUTION_ERROR

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a status message and its errors
func (s *Statistics) Update(r *Response, decodeErr error, validationErrors []ValidationError) {
	s.TotalMessages++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		var csErr *ChecksumError
		if errors.As(decodeErr, &csErr) {
			s.ChecksumErrors++
		} else {
			s.OtherErrors++
		}
		return
	}

	if r != nil {
		switch r.Status {
		case IN_PROGRESS:
			s.InProgress++
		case CMD_CHECKSUM_ERROR:
			s.DeviceChecksum++
		case CMD_INVALID, CMD_EXECUTION_ERROR:
			s.DeviceFailures++
		}
	}

	if len(validationErrors) > 0 {
		s.AnomalousValues += uint64(len(validationErrors))
		return
	}
	s.ValidMessages++
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.TotalMessages) / elapsed
		s.ErrorRate = float64(s.ChecksumErrors+s.OtherErrors+s.AnomalousValues) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.TotalMessages > 0 {
		validPercent = float64(s.ValidMessages) * 100.0 / float64(s.TotalMessages)
	}

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", time.Since(s.StartTime).Seconds())
	result += fmt.Sprintf("Total Messages:  %8d\n", s.TotalMessages)
	result += fmt.Sprintf("Valid Messages:  %8d (%.1f%%)\n", s.ValidMessages, validPercent)
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.OtherErrors > 0 {
		result += fmt.Sprintf("Other Errors:    %8d\n", s.OtherErrors)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.AnomalousValues)
	}
	result += fmt.Sprintf("In Progress:     %8d\n", s.InProgress)
	if s.DeviceChecksum > 0 {
		result += fmt.Sprintf("Device CRC Errs: %8d\n", s.DeviceChecksum)
	}
	if s.DeviceFailures > 0 {
		result += fmt.Sprintf("Device Failures: %8d\n", s.DeviceFailures)
	}
	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"
	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
