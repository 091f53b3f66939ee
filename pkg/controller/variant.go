// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package controller

import (
	"fmt"
	"strings"
)

// Variant selects which command families a controller implements
type Variant uint8

const (
	// VariantFull implements every command family and rejects unknown codes
	VariantFull Variant = iota
	// VariantReduced is the TTL-only illumination board. It implements the
	// illumination, DAC and system commands and acknowledges everything else.
	VariantReduced
)

// Default intensity factors
const (
	DefaultFullIntensityFactor    = 0.6
	DefaultReducedIntensityFactor = 1.0
)

func (v Variant) String() string {
	switch v {
	case VariantFull:
		return "full"
	case VariantReduced:
		return "reduced"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// ParseVariant parses "full" or "reduced" (also accepts "ttl")
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return VariantFull, nil
	case "reduced", "ttl", "ttl-only":
		return VariantReduced, nil
	default:
		return VariantFull, fmt.Errorf("unknown variant %q (expected full or reduced)", s)
	}
}

// DefaultIntensityFactor returns the boot-time intensity factor
func (v Variant) DefaultIntensityFactor() float64 {
	if v == VariantReduced {
		return DefaultReducedIntensityFactor
	}
	return DefaultFullIntensityFactor
}

// reducedImplements reports whether the reduced variant has a handler for cmd
func reducedImplements(cmd Command) bool {
	switch cmd.(type) {
	case SetIllumination, SwitchIllumination, SetIntensityFactor,
		SetDAC, SetDACGain,
		GetState, GetVersion, AckError, Initialize, Reset:
		return true
	}
	return false
}
