package normalization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Optional* types record whether a JSON key was present (Set) separately from
// its value. Blank strings decode as present-but-null so a client can clear a
// column by sending "".

type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if isNull(data) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// numbers are accepted and kept verbatim
		if !isNumberLiteral(data) {
			return err
		}
		s = string(data)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) { return json.Marshal(o.Value) }

func (o OptionalString) Or(def string) string {
	if o.Value == nil {
		return def
	}
	return *o.Value
}

type OptionalFloat64 struct {
	Set   bool
	Value *float64
}

func (o *OptionalFloat64) UnmarshalJSON(data []byte) error {
	o.Set = true
	s, ok, err := scalarText(data)
	if err != nil || !ok {
		o.Value = nil
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	o.Value = &f
	return nil
}

func (o OptionalFloat64) MarshalJSON() ([]byte, error) { return json.Marshal(o.Value) }

// OptionalID carries a row reference. Non-positive values mean "no id";
// fractional or out-of-range values are rejected.
type OptionalID struct {
	Set   bool
	Value *uint
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	s, ok, err := scalarText(data)
	if err != nil || !ok {
		o.Value = nil
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	if f <= 0 {
		o.Value = nil
		return nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if f >= math.MaxInt64 || f != math.Trunc(f) {
		return fmt.Errorf("invalid id %q", s)
	}
	v := uint(f)
	o.Value = &v
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) { return json.Marshal(o.Value) }

// Positive reports the id when one was supplied and is > 0.
func (o OptionalID) Positive() (uint, bool) {
	if o.Value == nil || *o.Value == 0 {
		return 0, false
	}
	return *o.Value, true
}

func (o OptionalID) Or(def uint) uint {
	if id, ok := o.Positive(); ok {
		return id
	}
	return def
}

func ID(v uint) OptionalID { return OptionalID{Set: true, Value: &v} }

type OptionalDecimal struct {
	Set   bool
	Value *decimal.Decimal
}

func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	s, ok, err := scalarText(data)
	if err != nil || !ok {
		o.Value = nil
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	o.Value = &d
	return nil
}

func (o OptionalDecimal) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value.String())
}

func (o OptionalDecimal) Or(def decimal.Decimal) decimal.Decimal {
	if o.Value == nil {
		return def
	}
	return *o.Value
}

func (o OptionalDecimal) Null() decimal.NullDecimal {
	if o.Value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *o.Value, Valid: true}
}

func Decimal(s string) OptionalDecimal {
	d := decimal.RequireFromString(s)
	return OptionalDecimal{Set: true, Value: &d}
}

type OptionalBool struct {
	Set   bool
	Value *bool
}

func (o *OptionalBool) UnmarshalJSON(data []byte) error {
	o.Set = true
	s, ok, err := scalarText(data)
	if err != nil || !ok {
		o.Value = nil
		return err
	}
	var b bool
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		b = true
	case "false", "0", "no", "off":
		b = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	o.Value = &b
	return nil
}

func (o OptionalBool) MarshalJSON() ([]byte, error) { return json.Marshal(o.Value) }

func (o OptionalBool) Or(def bool) bool {
	if o.Value == nil {
		return def
	}
	return *o.Value
}

// OptionalTime parses the date-like strings field apps send.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	s, ok, err := scalarText(data)
	if err != nil || !ok {
		o.Value = nil
		return err
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	o.Value = &t
	return nil
}

func (o OptionalTime) MarshalJSON() ([]byte, error) { return json.Marshal(o.Value) }

func (o OptionalTime) Or(def time.Time) time.Time {
	if o.Value == nil {
		return def
	}
	return *o.Value
}

// ParseTime accepts RFC3339, common SQL-ish layouts and unix milliseconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

type OptionalJSON struct {
	Set   bool
	Value json.RawMessage
}

func (o *OptionalJSON) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if isNull(data) {
		o.Value = nil
		return nil
	}
	cp := make(json.RawMessage, len(data))
	copy(cp, data)
	o.Value = cp
	return nil
}

func (o OptionalJSON) MarshalJSON() ([]byte, error) {
	if len(o.Value) == 0 {
		return []byte("null"), nil
	}
	return o.Value, nil
}

// scalarText unwraps a JSON number or string. ok is false for null and blank strings.
func scalarText(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return "", false, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	switch string(data) {
	case "true", "false":
		return string(data), true, nil
	}
	if !isNumberLiteral(data) {
		return "", false, fmt.Errorf("expected scalar, got %s", truncate(data, 32))
	}
	return string(data), true, nil
}

func isNull(data []byte) bool {
	return len(data) == 0 || string(data) == "null"
}

func isNumberLiteral(data []byte) bool {
	var n json.Number
	return json.Unmarshal(data, &n) == nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
