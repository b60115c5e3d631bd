// Package quota tracks per-credential monthly usage across process
// restarts.
//
// State lives in a single JSON file rewritten on every recorded use, so
// an abrupt termination loses at most the call in flight. Credentials
// carry a priority; Active returns the best credential with remaining
// quota and rotation to the next one happens automatically on
// exhaustion. Usage resets on each credential's billing-cycle day.
//
// # Basic Usage
//
//	tracker, err := quota.Open("state/quota.json", specs)
//	if err != nil {
//	    return err
//	}
//
//	label, err := tracker.Active()
//	if errors.Is(err, quota.ErrQuotaExhausted) {
//	    // every credential is spent; stop the run
//	}
//	...
//	if err := tracker.RecordUse(label, 1); err != nil {
//	    return err
//	}
package quota
