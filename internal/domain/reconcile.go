package domain

// ReconcileStatus discriminates the possible results of one reconciliation
// pass.
type ReconcileStatus string

const (
	// ReconcileNoPending means every local market is already verified; the
	// pass did no work and no writes.
	ReconcileNoPending ReconcileStatus = "no_pending"

	// ReconcileVerified means the pending market was matched to an on-chain
	// question and its identity rewritten to the chain-assigned one.
	ReconcileVerified ReconcileStatus = "verified"

	// ReconcileUnmatched means no on-chain question carries the market's
	// fingerprint yet; the market keeps (or is renumbered to) a speculative
	// identity one past the end of the snapshot.
	ReconcileUnmatched ReconcileStatus = "unmatched"
)

// ReconcileOutcome reports what a single reconciliation pass did.
type ReconcileOutcome struct {
	Status ReconcileStatus `json:"status"`

	// Identity is the chain-assigned identity for ReconcileVerified, the
	// suggested identity for ReconcileUnmatched, and empty for
	// ReconcileNoPending.
	Identity string `json:"id,omitempty"`

	// Written is true when the pass performed a local write. A verified
	// outcome always writes; an unmatched outcome writes only when the
	// suggested identity differs from the current one.
	Written bool `json:"written"`
}
