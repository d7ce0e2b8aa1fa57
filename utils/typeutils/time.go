/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package typeutils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// BookmarkFormat is the layout bookmarks are persisted with
const BookmarkFormat = "2006-01-02T15:04:05.000000Z"

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Time struct {
	time.Time
}

// UnmarshalJSON accepts any of the supported timestamp layouts
func (ct *Time) UnmarshalJSON(b []byte) error {
	str := strings.Trim(string(b), "\"")
	parsed, err := ParseTimestamp(str)
	if err != nil {
		return err
	}

	*ct = Time{parsed}
	return nil
}

func (ct Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(ct.UTC().Format(BookmarkFormat))
}

// Compare compares the time instant ct with u. If ct is before u, it returns -1;
// if ct is after u, it returns +1; if they're the same, it returns 0.
func (ct Time) Compare(u Time) int {
	return ct.Time.Compare(u.Time)
}

// ParseTimestamp parses an ISO-8601 like string into UTC
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampFormats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp[%s]: unsupported format", value)
}

// integerPlaces counts the decimal digits of the integral part of value
func integerPlaces(value float64) int {
	value = math.Abs(math.Trunc(value))
	if value < 1 {
		return 1
	}

	places := 0
	for value >= 1 {
		value /= 10
		places++
	}
	return places
}

// scaleEpoch turns epoch seconds into millis; only a 10 digit value is treated as
// seconds so anything already in millis (13 digits) passes through unchanged
func scaleEpoch(value float64) int64 {
	if integerPlaces(value) == 10 {
		return int64(math.Round(value * 1000))
	}
	return int64(math.Round(value))
}

// NormalizeTimestamp converts ISO-8601 strings, epoch seconds and epoch millis
// into epoch millis. Applying it to its own output returns the same value.
func NormalizeTimestamp(value any) (int64, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UnixMilli(), nil
	case Time:
		return v.UnixMilli(), nil
	case int:
		return scaleEpoch(float64(v)), nil
	case int32:
		return scaleEpoch(float64(v)), nil
	case int64:
		return scaleEpoch(float64(v)), nil
	case float32:
		return scaleEpoch(float64(v)), nil
	case float64:
		return scaleEpoch(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid epoch value[%s]: %s", v, err)
		}
		return scaleEpoch(f), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return scaleEpoch(f), nil
		}
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return 0, err
		}
		return parsed.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// FormatBookmark renders epoch millis in the persisted bookmark layout
func FormatBookmark(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(BookmarkFormat)
}
