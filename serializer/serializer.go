// Package serializer converts store keys and values to and from strings for
// the command line tool, the HTTP API and snapshot files.
package serializer

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gozephyr/kvstore/errors"
)

// Serializer produces a round-trippable string form of T. FromString must
// return a value equal to the one passed to ToString, and fails with an
// error wrapping errors.ErrSerialization on malformed input.
type Serializer[T any] interface {
	ToString(value T) string
	FromString(s string) (T, error)
}

// String is the identity serializer
type String struct{}

func (String) ToString(value string) string { return value }

func (String) FromString(s string) (string, error) { return s, nil }

// Int serializes integers in base 10
type Int struct{}

func (Int) ToString(value int64) string { return strconv.FormatInt(value, 10) }

func (Int) FromString(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf("Int.FromString", s, errors.ErrSerialization, "%v", err)
	}
	return n, nil
}

// Float serializes floats with the shortest exact representation
type Float struct{}

func (Float) ToString(value float64) string { return strconv.FormatFloat(value, 'g', -1, 64) }

func (Float) FromString(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf("Float.FromString", s, errors.ErrSerialization, "%v", err)
	}
	return f, nil
}

// Bool serializes booleans as "true" and "false"
type Bool struct{}

func (Bool) ToString(value bool) string { return strconv.FormatBool(value) }

func (Bool) FromString(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrapf("Bool.FromString", s, errors.ErrSerialization, "%v", err)
	}
	return b, nil
}

// Duration serializes durations in time.Duration.String form
type Duration struct{}

func (Duration) ToString(value time.Duration) string { return value.String() }

func (Duration) FromString(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf("Duration.FromString", s, errors.ErrSerialization, "%v", err)
	}
	return d, nil
}

// Encoder is implemented by serializers whose encoding can fail. Their
// ToString panics on values Encode rejects.
type Encoder[T any] interface {
	Encode(value T) (string, error)
}

// Encode converts value with s, returning the encoding error of an Encoder
// instead of panicking
func Encode[T any](s Serializer[T], value T) (string, error) {
	if enc, ok := s.(Encoder[T]); ok {
		return enc.Encode(value)
	}
	return s.ToString(value), nil
}

// JSON serializes any JSON-encodable type
type JSON[T any] struct{}

// ToString panics if value cannot be encoded, e.g. a channel or a func
func (j JSON[T]) ToString(value T) string {
	s, err := j.Encode(value)
	if err != nil {
		panic(err)
	}
	return s
}

// Encode is ToString with the encoding error returned
func (JSON[T]) Encode(value T) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", errors.Wrapf("JSON.Encode", nil, errors.ErrSerialization, "%v", err)
	}
	return string(data), nil
}

func (JSON[T]) FromString(s string) (T, error) {
	var value T
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		var zero T
		return zero, errors.Wrapf("JSON.FromString", s, errors.ErrSerialization, "%v", err)
	}
	return value, nil
}
