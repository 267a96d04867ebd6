// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks stream frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	ChecksumErrors  uint64
	DecodeErrors    uint64
	AnomalousFrames uint64 // frames with at least one anomaly
	AnomalousValues uint64 // individual anomalies
	UnknownEnums    uint64
	InvalidVoltage  uint64
	InvalidTemp     uint64
	InvalidVelocity uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a decoded frame and its errors
func (s *Statistics) Update(snap *Snapshot, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		if errors.Is(decodeErr, ErrChecksum) {
			s.ChecksumErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		return
	}

	s.AnomalousFrames++
	for _, err := range validationErrors {
		s.AnomalousValues++
		switch err.Type {
		case AnomalyUnknownEnum:
			s.UnknownEnums++
		case AnomalyInvalidVoltage, AnomalyChargeAboveCapacity:
			s.InvalidVoltage++
		case AnomalyInvalidTemp:
			s.InvalidTemp++
		case AnomalyInvalidVelocity:
			s.InvalidVelocity++
		}
	}
}

// Errors returns the number of frames that failed to decode or validate
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.DecodeErrors + s.AnomalousFrames
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, checksumPercent, decodePercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
		decodePercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodePercent)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Frames:%8d\n", s.AnomalousFrames)
		result += fmt.Sprintf("Anomalous Values:%8d\n", s.AnomalousValues)
		if s.UnknownEnums > 0 {
			result += fmt.Sprintf("  Unknown Enums:    %5d\n", s.UnknownEnums)
		}
		if s.InvalidVoltage > 0 {
			result += fmt.Sprintf("  Battery/Voltage:  %5d\n", s.InvalidVoltage)
		}
		if s.InvalidTemp > 0 {
			result += fmt.Sprintf("  Invalid Temp:     %5d\n", s.InvalidTemp)
		}
		if s.InvalidVelocity > 0 {
			result += fmt.Sprintf("  Invalid Velocity: %5d\n", s.InvalidVelocity)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
