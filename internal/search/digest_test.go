package search

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("0.0.0.1"), computed independently
const digestOfOne = "9b702ec5f27c2bdedc32b68ec12154f78d1242242d384570c515ac6527b36085"

// TestParseDigest covers valid input and every rejection path.
func TestParseDigest(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "lowercase hex", in: digestOfOne},
		{name: "uppercase hex", in: strings.ToUpper(digestOfOne)},
		{name: "all zero", in: strings.Repeat("00", 32)},
		{name: "empty", in: "", wantErr: true},
		{name: "odd length", in: digestOfOne[:63], wantErr: true},
		{name: "non-hex characters", in: "zz" + digestOfOne[2:], wantErr: true},
		{name: "too short", in: "abcd", wantErr: true},
		{name: "too long", in: digestOfOne + "00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDigest(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var inputErr *InputError
				require.True(t, errors.As(err, &inputErr), "want *InputError, got %T", err)
				assert.Equal(t, tt.in, inputErr.Input)
				assert.NotNil(t, inputErr.Unwrap())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(tt.in), d.String())
		})
	}
}

// TestParseDigestOddLengthUnwraps checks the hex decoder's error is reachable.
func TestParseDigestOddLengthUnwraps(t *testing.T) {
	_, err := ParseDigest("abc")
	assert.ErrorIs(t, err, hex.ErrLength)
}

// TestDigestOf checks hashing of the formatted address.
func TestDigestOf(t *testing.T) {
	want, err := ParseDigest(digestOfOne)
	require.NoError(t, err)
	assert.Equal(t, want, DigestOf(1))
	assert.NotEqual(t, want, DigestOf(2))
}
