package dispatch

import "fibrodiario-backend/pkg/fcm"

// EvictionCandidates returns the tokens whose delivery failed for a
// permanent reason (the provider reports them as unregistered or invalid).
// Transient failures — timeouts, throttling, whole-chunk request errors —
// never produce candidates: those tokens may still be valid.
//
// Detection only: removal goes through the token store afterwards, keeping
// this O(batch size) and side-effect free.
func EvictionCandidates(outcomes []fcm.TokenOutcome) []string {
	var candidates []string
	for _, o := range outcomes {
		if !o.Success && fcm.IsPermanent(o.Reason) {
			candidates = append(candidates, o.Token)
		}
	}
	return candidates
}

// DeliveredTokens returns the tokens with confirmed delivery, used to
// refresh their last-active timestamps.
func DeliveredTokens(outcomes []fcm.TokenOutcome) []string {
	var delivered []string
	for _, o := range outcomes {
		if o.Success {
			delivered = append(delivered, o.Token)
		}
	}
	return delivered
}
