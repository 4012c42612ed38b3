package serializer

import (
	"math"
	"testing"
	"time"

	"github.com/gozephyr/kvstore/errors"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, s Serializer[T], value T) {
	t.Helper()
	got, err := s.FromString(s.ToString(value))
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestRoundTrip(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		for _, v := range []string{"", "hello", "with spaces", "ünïcode"} {
			roundTrip[string](t, String{}, v)
		}
	})

	t.Run("Int", func(t *testing.T) {
		for _, v := range []int64{0, -1, 42, math.MaxInt64, math.MinInt64} {
			roundTrip[int64](t, Int{}, v)
		}
	})

	t.Run("Float", func(t *testing.T) {
		for _, v := range []float64{0, -1.5, math.Pi, 1e300} {
			roundTrip[float64](t, Float{}, v)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		roundTrip[bool](t, Bool{}, true)
		roundTrip[bool](t, Bool{}, false)
	})

	t.Run("Duration", func(t *testing.T) {
		roundTrip[time.Duration](t, Duration{}, 1500*time.Millisecond)
	})

	t.Run("JSON", func(t *testing.T) {
		type session struct {
			User  string   `json:"user"`
			Roles []string `json:"roles"`
		}
		roundTrip[session](t, JSON[session]{}, session{User: "ada", Roles: []string{"admin"}})
	})
}

func TestJSONUnencodable(t *testing.T) {
	_, err := JSON[chan int]{}.Encode(make(chan int))
	require.Error(t, err)
	require.True(t, errors.IsSerialization(err))

	require.Panics(t, func() { JSON[chan int]{}.ToString(make(chan int)) })

	_, err = Encode[chan int](JSON[chan int]{}, make(chan int))
	require.True(t, errors.IsSerialization(err))

	s, err := Encode[int64](Int{}, 42)
	require.NoError(t, err)
	require.Equal(t, "42", s)
}

func TestMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"Int", func() error { _, err := Int{}.FromString("twelve"); return err }},
		{"Float", func() error { _, err := Float{}.FromString("1.2.3"); return err }},
		{"Bool", func() error { _, err := Bool{}.FromString("maybe"); return err }},
		{"Duration", func() error { _, err := Duration{}.FromString("5 minutes"); return err }},
		{"JSON", func() error { _, err := JSON[map[string]int]{}.FromString("{bad"); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			require.True(t, errors.IsSerialization(err))
			require.True(t, errors.IsErrorType(err, errors.ErrorTypeCodec))
		})
	}
}
