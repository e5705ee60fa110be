package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	end := func(n int64) *int64 { return &n }

	valid := []struct {
		header string
		want   RangeSpec
	}{
		{"bytes=0-99", RangeSpec{Start: 0, End: end(99)}},
		{"bytes=5-", RangeSpec{Start: 5}},
		{"bytes=0-0", RangeSpec{Start: 0, End: end(0)}},
		{" bytes=10-20 ", RangeSpec{Start: 10, End: end(20)}},
		{"bytes= 10 - 20", RangeSpec{Start: 10, End: end(20)}},
		{"0-9", RangeSpec{Start: 0, End: end(9)}},
		{"bytes=20-10", RangeSpec{Start: 20, End: end(10)}},
		{"bytes=+1-2", RangeSpec{Start: 1, End: end(2)}},
		{"bytes=1-+2", RangeSpec{Start: 1, End: end(2)}},
	}
	for _, tc := range valid {
		t.Run(tc.header, func(t *testing.T) {
			got, err := ParseRange(tc.header)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	invalid := []string{
		"bytes=abc-10",
		"bytes=",
		"bytes=100",
		"bytes=-500",
		"bytes=1-2-3",
		"bytes=0-1,5-6",
		"bytes=+-2",
		"bytes=++1-2",
		"bytes=1-x",
		"bytes=1-+",
		"items=0-1",
		"bytes=99999999999999999999-",
	}
	for _, header := range invalid {
		t.Run("invalid "+header, func(t *testing.T) {
			_, err := ParseRange(header)
			assert.Error(t, err)
		})
	}
}

func TestRangeSpecResolve(t *testing.T) {
	end := func(n int64) *int64 { return &n }

	cases := []struct {
		name    string
		rs      RangeSpec
		size    int64
		want    ByteRange
		wantErr bool
	}{
		{"closed", RangeSpec{Start: 10, End: end(19)}, 100, ByteRange{10, 19}, false},
		{"open ended", RangeSpec{Start: 10}, 100, ByteRange{10, 99}, false},
		{"single byte", RangeSpec{Start: 99, End: end(99)}, 100, ByteRange{99, 99}, false},
		{"whole file", RangeSpec{Start: 0}, 100, ByteRange{0, 99}, false},
		{"end clamped", RangeSpec{Start: 90, End: end(500)}, 100, ByteRange{90, 99}, false},
		{"start at size", RangeSpec{Start: 100}, 100, ByteRange{}, true},
		{"start past size", RangeSpec{Start: 150, End: end(160)}, 100, ByteRange{}, true},
		{"inverted", RangeSpec{Start: 20, End: end(10)}, 100, ByteRange{}, true},
		{"empty file", RangeSpec{Start: 0}, 0, ByteRange{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.rs.Resolve(tc.size)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnsatisfiable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestByteRangeHeaders(t *testing.T) {
	br := ByteRange{Start: 100, End: 199}
	assert.Equal(t, int64(100), br.Length())
	assert.Equal(t, "bytes 100-199/1000", br.ContentRange(1000))

	one := ByteRange{Start: 7, End: 7}
	assert.Equal(t, int64(1), one.Length())
}
