// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mtime contains a millisecond representation of time. The purpose
// of this representation is the watermark contract, where we need extreme
// values outside the range of time.Time to express "before all input" and
// "after all input".
package mtime

import (
	"fmt"
	"math"
	"time"
)

const (
	// MinTimestamp is the minimum value for any timestamp. Often referred to
	// as "-infinity". It is the initial watermark of every timer service:
	// no event-time timer may fire before the first watermark arrives.
	MinTimestamp Time = math.MinInt64

	// MaxTimestamp is the maximum value for any timestamp. Often referred to
	// as "+infinity". A watermark carrying this value is reserved to mean
	// "end of input, flush everything"; it is never a legitimate data
	// watermark.
	MaxTimestamp Time = math.MaxInt64

	// ZeroTimestamp is the default zero value time. It corresponds to the unix epoch.
	ZeroTimestamp Time = 0
)

// Time is the number of milli-seconds since the Unix epoch. Watermarks and
// timer firing times share this representation.
type Time int64

// Now returns the current wall-clock time.
func Now() Time {
	return FromTime(time.Now())
}

// FromMilliseconds returns a timestamp from a raw milliseconds-since-epoch value.
func FromMilliseconds(unixMilliseconds int64) Time {
	return Time(unixMilliseconds)
}

// FromTime returns a milli-second precision timestamp from a time.Time.
func FromTime(t time.Time) Time {
	return Time(t.UnixNano() / 1e6)
}

// Milliseconds returns the number of milli-seconds since the Unix epoch.
func (t Time) Milliseconds() int64 {
	return int64(t)
}

// Add returns the time plus the duration.
func (t Time) Add(d time.Duration) Time {
	return Time(int64(t) + d.Nanoseconds()/1e6)
}

// IsEndOfInput reports whether the timestamp is the reserved end-of-input
// watermark value.
func (t Time) IsEndOfInput() bool {
	return t == MaxTimestamp
}

func (t Time) String() string {
	switch t {
	case MinTimestamp:
		return "-inf"
	case MaxTimestamp:
		return "+inf"
	default:
		return fmt.Sprintf("%v", t.Milliseconds())
	}
}

// Min returns the smallest (earliest) time.
func Min(a, b Time) Time {
	if int64(a) < int64(b) {
		return a
	}
	return b
}

// Max returns the largest (latest) time.
func Max(a, b Time) Time {
	if int64(a) < int64(b) {
		return b
	}
	return a
}
