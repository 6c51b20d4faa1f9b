package fingerprint

import (
	"math/big"
	"strings"
	"testing"

	"golang.org/x/crypto/sha3"
)

func TestTitle_Deterministic(t *testing.T) {
	titles := []string{
		"",
		"Will it rain?",
		"Will ETH close above $5k on 2026-12-31?",
		"émoji ✅ and unicode £",
	}
	for _, title := range titles {
		a := Title(title)
		b := Title(title)
		if a.Cmp(b) != 0 {
			t.Errorf("Title(%q) not deterministic: %s vs %s", title, a, b)
		}
	}
}

func TestTitle_ContentSensitive(t *testing.T) {
	if Title("Will it rain?").Cmp(Title("Will it snow?")) == 0 {
		t.Fatal("distinct titles produced the same fingerprint")
	}
}

func TestTitle_MatchesLowHalfOfKeccak(t *testing.T) {
	title := "Will it rain?"

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(title))
	digest := h.Sum(nil)
	want := new(big.Int).SetBytes(digest[16:32])

	if got := Title(title); got.Cmp(want) != 0 {
		t.Errorf("Title(%q) = %s, want low 16 digest bytes %s", title, got, want)
	}
}

func TestTitle_FitsIn128Bits(t *testing.T) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	for _, title := range []string{"", "a", "Will it rain?", strings.Repeat("x", 4096)} {
		fp := Title(title)
		if fp.Sign() < 0 || fp.Cmp(limit) >= 0 {
			t.Errorf("Title(%q) = %s out of uint128 range", title, fp)
		}
	}
}

func TestHex_FixedWidth(t *testing.T) {
	tests := []struct {
		name string
		fp   *big.Int
		want string
	}{
		{"zero", big.NewInt(0), "0x00000000000000000000000000000000"},
		{"small", big.NewInt(0xab), "0x000000000000000000000000000000ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hex(tt.fp); got != tt.want {
				t.Errorf("Hex() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := Hex(Title("Will it rain?")); len(got) != 2+2*Size {
		t.Errorf("Hex() length = %d, want %d", len(got), 2+2*Size)
	}
}
