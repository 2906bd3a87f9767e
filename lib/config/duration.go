// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strconv"
	"time"
)

// Duration is a time.Duration that decodes from text in every supported
// file format and in environment variables. It accepts Go duration
// syntax ("1.5s", "200ms") or a bare number of seconds ("2").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	value := string(text)
	parsed, err := time.ParseDuration(value)
	if err == nil {
		*d = Duration(parsed)
		return nil
	}
	seconds, floatErr := strconv.ParseFloat(value, 64)
	if floatErr != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}
