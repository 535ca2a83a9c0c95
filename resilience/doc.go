// Package resilience provides client-side admission control for calls to a
// single rate-limited upstream.
//
// Admission combines three limits that must all allow a call before it is
// sent:
//
//   - Daily quota: a rolling 24h call budget, restored in full once its reset
//     instant passes.
//
//   - Burst allowance: a small pool of immediately available permits.
//
//   - RPS ceiling: at most N admissions in any trailing one-second window.
//
// Callers block in Await until all three allow the call. Blocked callers
// re-check every PollInterval:
//
//	adm := resilience.NewAdmission(resilience.AdmissionConfig{
//	    DailyQuota:    500000,
//	    BurstCapacity: 10,
//	    RPSLimit:      15,
//	})
//
//	if err := adm.Await(ctx); err != nil {
//	    return err // ctx ended while waiting
//	}
//	resp, err := httpClient.Do(req)
//
// Timeout bounds the call that follows admission without masking the
// operation's own error.
package resilience
