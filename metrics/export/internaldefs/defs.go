package internaldefs

import (
	webAuth "github.com/MrEthical07/webAuth"
)

// Metric names a counter or histogram exported for one engine MetricID.
type Metric struct {
	ID   webAuth.MetricID
	Name string
	Help string
}

// Counters lists every exported counter in output order.
var Counters = []Metric{
	{ID: webAuth.MetricLoginSuccess, Name: "webauth_login_success_total", Help: "Successful logins."},
	{ID: webAuth.MetricLoginFailure, Name: "webauth_login_failure_total", Help: "Rejected logins."},
	{ID: webAuth.MetricLoginRateLimited, Name: "webauth_login_rate_limited_total", Help: "Logins refused by throttling."},
	{ID: webAuth.MetricRegisterSuccess, Name: "webauth_register_success_total", Help: "Completed registrations."},
	{ID: webAuth.MetricRegisterDuplicate, Name: "webauth_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: webAuth.MetricLogout, Name: "webauth_logout_total", Help: "Logouts."},
	{ID: webAuth.MetricSessionIssued, Name: "webauth_session_issued_total", Help: "Session tokens issued."},
	{ID: webAuth.MetricSessionInvalid, Name: "webauth_session_invalid_total", Help: "Session tokens rejected on decode."},
	{ID: webAuth.MetricSessionRevoked, Name: "webauth_session_revoked_total", Help: "Sessions added to the revocation list."},
	{ID: webAuth.MetricPermissionLookup, Name: "webauth_permission_lookup_total", Help: "Permission checks that hit the credential store."},
	{ID: webAuth.MetricAccessDenied, Name: "webauth_access_denied_total", Help: "Role or permission denials."},
	{ID: webAuth.MetricTOTPRequired, Name: "webauth_totp_required_total", Help: "Logins stopped for a missing TOTP code."},
	{ID: webAuth.MetricTOTPSuccess, Name: "webauth_totp_success_total", Help: "Accepted TOTP codes."},
	{ID: webAuth.MetricTOTPFailure, Name: "webauth_totp_failure_total", Help: "Rejected TOTP codes."},
	{ID: webAuth.MetricTOTPReplayDetected, Name: "webauth_totp_replay_detected_total", Help: "TOTP codes rejected as replays."},
	{ID: webAuth.MetricTOTPEnabled, Name: "webauth_totp_enabled_total", Help: "Two-factor enrollments confirmed."},
	{ID: webAuth.MetricTOTPDisabled, Name: "webauth_totp_disabled_total", Help: "Two-factor disables."},
	{ID: webAuth.MetricPasswordResetRequest, Name: "webauth_password_reset_request_total", Help: "Password reset tokens issued."},
	{ID: webAuth.MetricPasswordResetRateLimited, Name: "webauth_password_reset_rate_limited_total", Help: "Reset requests refused by throttling."},
	{ID: webAuth.MetricPasswordResetConfirmSuccess, Name: "webauth_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: webAuth.MetricPasswordResetConfirmFailure, Name: "webauth_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: webAuth.MetricPasswordRehash, Name: "webauth_password_rehash_total", Help: "Password hashes upgraded on login."},
}

// Histograms lists every exported histogram.
var Histograms = []Metric{
	{ID: webAuth.MetricDecodeLatency, Name: "webauth_session_decode_latency_seconds", Help: "Session token decode latency."},
}

// AuditDropped is the counter for audit events lost to a full dispatcher queue.
var AuditDropped = Metric{Name: "webauth_audit_dropped_total", Help: "Audit events dropped under backpressure."}

// BucketBounds are the histogram upper bounds in seconds, matching the engine's
// 0.1ms to 10ms latency buckets.
var BucketBounds = [8]string{"0.0001", "0.00025", "0.0005", "0.001", "0.0025", "0.005", "0.01", "+Inf"}

// BucketSuffixes name the bounds where '.' and '+' are not allowed.
var BucketSuffixes = [8]string{"0_0001", "0_00025", "0_0005", "0_001", "0_0025", "0_005", "0_01", "inf"}

// Cumulative converts raw per-bucket counts into cumulative counts. Missing
// trailing buckets count as zero.
func Cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
