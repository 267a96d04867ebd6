// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "fmt"

// AnomalyType represents different types of sensor anomalies
type AnomalyType int

const (
	AnomalyUnknownEnum AnomalyType = iota
	AnomalyChargeAboveCapacity
	AnomalyInvalidVoltage
	AnomalyInvalidTemp
	AnomalyInvalidVelocity
	AnomalyChecksumError
	AnomalyDecodeError
)

// Plausibility limits
const (
	maxVoltageMV   = 20000
	minTempC       = -20
	maxTempC       = 80
	maxVelocityAbs = MaxVelocity
)

// ValidationError represents a snapshot validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateSnapshot checks decoded values for anomalies.
// Returns a slice of validation errors (empty if the snapshot is plausible)
func ValidateSnapshot(s *Snapshot) []ValidationError {
	errors := []ValidationError{}

	for _, w := range s.warnings {
		if e, ok := w.(*UnknownEnumValueError); ok {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnknownEnum,
				Message: e.Error(),
				Details: map[string]interface{}{"packet": e.Packet, "value": e.Value},
			})
		}
	}

	charge, okCharge := s.Get(PacketBatteryCharge)
	capacity, okCap := s.Get(PacketBatteryCapacity)
	if okCharge && okCap && capacity.Value > 0 && charge.Value > capacity.Value {
		errors = append(errors, ValidationError{
			Type:    AnomalyChargeAboveCapacity,
			Message: fmt.Sprintf("Battery charge %d mAh above capacity %d mAh", charge.Value, capacity.Value),
			Details: map[string]interface{}{"charge": charge.Value, "capacity": capacity.Value},
		})
	}

	if v, ok := s.Get(PacketVoltage); ok && v.Value > maxVoltageMV {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidVoltage,
			Message: fmt.Sprintf("Voltage %d mV above %d mV", v.Value, maxVoltageMV),
			Details: map[string]interface{}{"voltage": v.Value},
		})
	}

	if t, ok := s.Get(PacketTemperature); ok && (t.Value < minTempC || t.Value > maxTempC) {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidTemp,
			Message: fmt.Sprintf("Temperature %d°C outside %d..%d°C", t.Value, minTempC, maxTempC),
			Details: map[string]interface{}{"value": t.Value},
		})
	}

	for _, id := range []PacketID{PacketRequestedVelocity, PacketRequestedRightVel, PacketRequestedLeftVel} {
		if v, ok := s.Get(id); ok && (v.Value > maxVelocityAbs || v.Value < -maxVelocityAbs) {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidVelocity,
				Message: fmt.Sprintf("%s %d mm/s outside ±%d", FormatPacketID(id), v.Value, maxVelocityAbs),
				Details: map[string]interface{}{"packet": id, "value": v.Value},
			})
		}
	}

	return errors
}
