package chain

import (
	"math/big"
	"testing"
	"time"
)

func TestBuildQuestions(t *testing.T) {
	t.Run("zips parallel arrays in order", func(t *testing.T) {
		ids := []*big.Int{big.NewInt(1), big.NewInt(2)}
		fps := []*big.Int{big.NewInt(100), big.NewInt(200)}
		exps := []*big.Int{big.NewInt(1735689600), big.NewInt(1767225600)}
		creators := []string{
			"0x1111111111111111111111111111111111111111",
			"0x2222222222222222222222222222222222222222",
		}
		totals := []*big.Int{big.NewInt(50), big.NewInt(0)}

		questions, err := buildQuestions(ids, fps, exps, creators, totals)
		if err != nil {
			t.Fatalf("buildQuestions: %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("got %d questions, want 2", len(questions))
		}

		q := questions[0]
		if q.Identity != "1" {
			t.Errorf("identity = %q, want %q", q.Identity, "1")
		}
		if q.Fingerprint.Cmp(big.NewInt(100)) != 0 {
			t.Errorf("fingerprint = %s, want 100", q.Fingerprint)
		}
		if want := time.Unix(1735689600, 0).UTC(); !q.ExpiresAt.Equal(want) {
			t.Errorf("expiresAt = %v, want %v", q.ExpiresAt, want)
		}
		if q.Creator != creators[0] {
			t.Errorf("creator = %q, want %q", q.Creator, creators[0])
		}
		if q.TotalStaked != 50 {
			t.Errorf("totalStaked = %d, want 50", q.TotalStaked)
		}
		if questions[1].Identity != "2" {
			t.Errorf("second identity = %q, want %q", questions[1].Identity, "2")
		}
	})

	t.Run("empty arrays yield empty snapshot", func(t *testing.T) {
		questions, err := buildQuestions(nil, nil, nil, nil, nil)
		if err != nil {
			t.Fatalf("buildQuestions: %v", err)
		}
		if len(questions) != 0 {
			t.Errorf("got %d questions, want 0", len(questions))
		}
	})

	t.Run("mismatched lengths rejected", func(t *testing.T) {
		_, err := buildQuestions(
			[]*big.Int{big.NewInt(1)},
			nil, nil, nil, nil,
		)
		if err == nil {
			t.Fatal("expected error for mismatched array lengths")
		}
	})

	t.Run("fingerprints are copied", func(t *testing.T) {
		fp := big.NewInt(7)
		questions, err := buildQuestions(
			[]*big.Int{big.NewInt(1)},
			[]*big.Int{fp},
			[]*big.Int{big.NewInt(0)},
			[]string{"0x0000000000000000000000000000000000000000"},
			[]*big.Int{big.NewInt(0)},
		)
		if err != nil {
			t.Fatalf("buildQuestions: %v", err)
		}
		fp.SetInt64(99)
		if questions[0].Fingerprint.Cmp(big.NewInt(7)) != 0 {
			t.Error("fingerprint aliases caller's big.Int")
		}
	})
}
