package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/photon"
	"github.com/alan-christopher/bb84sim/bb84/rng"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestKey(t *testing.T) {
	old := MaxKeyBits
	MaxKeyBits = 4
	t.Cleanup(func() { MaxKeyBits = old })

	tcs := []struct {
		in   string
		eout string
	}{
		{"", "(empty)"},
		{"01", "01"},
		{"0110", "0110"},
		{"011011", "0110... (+2)"},
	}
	for _, tc := range tcs {
		assert.Equal(t, tc.eout, Key(tc.in), "Key(%q)", tc.in)
	}
}

func TestResult(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	z, x := photon.Rectilinear, photon.Diagonal
	src := rng.NewReplay(
		[]photon.Bit{1, 0},
		[]photon.Basis{z, z, x, x},
	)
	r, err := bb84.Run(bb84.Opts{Qubits: 2, Rand: src})
	require.NoError(t, err)

	var buf bytes.Buffer
	Result(&buf, r)
	out := buf.String()

	assert.Contains(t, out, r.RunID.String())
	assert.Contains(t, out, "Sifted:       2 bits")
	assert.Contains(t, out, "Sender key:   10\n")
	assert.Contains(t, out, "Receiver key: 10\n")
	assert.Contains(t, out, "Keys agree:   true\n")
	assert.Contains(t, out, "QBER:         0.0000 (threshold 0.1500)")
	assert.Contains(t, out, "Verdict:      secure-likely")
	assert.False(t, strings.Contains(out, "Seed:"), "injected runs have no seed")
}

func TestVerdict(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	assert.Equal(t, "secure-likely", Verdict(bb84.SecureLikely))
	assert.Equal(t, "eavesdropping-suspected", Verdict(bb84.EavesdroppingSuspected))
}
