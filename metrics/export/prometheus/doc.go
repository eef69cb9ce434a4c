// Package prometheus serves engine metrics in the Prometheus text exposition
// format without a client library or global registry: mount Handler on the
// scrape path.
//
// Counters are named webauth_*_total. The session decode latency histogram is
// webauth_session_decode_latency_seconds and appears only when latency
// histograms are enabled.
package prometheus
