package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	webAuth "github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/metrics/export/internaldefs"
)

// Source supplies the values to export. *webAuth.Engine implements it.
type Source interface {
	MetricsSnapshot() webAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics in the Prometheus text exposition format.
type Exporter struct {
	source Source
}

// New returns an Exporter reading from source.
func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition. It is empty when metrics are disabled
// and no audit events were dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, m := range internaldefs.Counters {
		writeCounter(&b, m, snapshot.Counters[m.ID])
	}
	for _, m := range internaldefs.Histograms {
		if raw, ok := snapshot.Histograms[m.ID]; ok {
			writeHistogram(&b, m, internaldefs.Cumulative(raw))
		}
	}
	writeCounter(&b, internaldefs.AuditDropped, dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, m internaldefs.Metric, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(m.Name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(m.Help))
	b.WriteString("\n# TYPE ")
	b.WriteString(m.Name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, m internaldefs.Metric, value uint64) {
	writeHeader(b, m, "counter")
	b.WriteString(m.Name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, m internaldefs.Metric, cumulative [8]uint64) {
	writeHeader(b, m, "histogram")
	for i, le := range internaldefs.BucketBounds {
		b.WriteString(m.Name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(m.Name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// The engine records bucket counts only.
	b.WriteString(m.Name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
