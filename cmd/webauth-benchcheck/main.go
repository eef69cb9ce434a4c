// Command webauth-benchcheck compares two `go test -bench` outputs and fails
// when a tracked benchmark regresses past the threshold.
//
//	go test -run '^$' -bench 'Decode|Decide' -count 5 . > new.txt
//	webauth-benchcheck -baseline old.txt -candidate new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// defaultTracked covers the request hot path: token decode and route guarding.
var defaultTracked = map[string][]string{
	"BenchmarkDecodeSession":               {"ns/op", "allocs/op"},
	"BenchmarkDecodeSessionWithRevocation": {"ns/op"},
	"BenchmarkDecideProtectedRoute":        {"ns/op", "allocs/op"},
	"BenchmarkDecideAnonymous":             {"ns/op"},
}

// samples maps benchmark name to unit to every recorded value.
type samples map[string]map[string][]float64

type row struct {
	Benchmark string
	Metric    string
	Baseline  float64
	Candidate float64
	Delta     float64
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
		bench         string
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.StringVar(&bench, "bench", "", "comma separated benchmarks to track on ns/op (default: decode and guard benchmarks)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	tracked := defaultTracked
	if bench != "" {
		tracked = map[string][]string{}
		for _, name := range strings.Split(bench, ",") {
			if name = strings.TrimSpace(name); name != "" {
				tracked[name] = []string{"ns/op"}
			}
		}
	}

	baseline, err := parseFile(baselinePath, tracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath, tracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, failures := compare(baseline, candidate, tracked, threshold)
	fmt.Println("benchmark metric baseline candidate delta")
	for _, r := range rows {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Metric, r.Baseline, r.Candidate, r.Delta*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

// compare reports the median delta per tracked metric, in sorted order, and a
// failure for every missing or regressed metric.
func compare(baseline, candidate samples, tracked map[string][]string, threshold float64) ([]row, []string) {
	var (
		rows     []row
		failures []string
	)

	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, metric := range tracked[name] {
			base := baseline[name][metric]
			cand := candidate[name][metric]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, metric))
				continue
			}

			baseMedian := median(base)
			candMedian := median(cand)
			if baseMedian <= 0 {
				// allocs/op of 0 is a valid baseline; any allocation is then a regression.
				if metric == "allocs/op" && baseMedian == 0 {
					if candMedian > 0 {
						failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.0f", name, metric, candMedian))
					}
					rows = append(rows, row{Benchmark: name, Metric: metric, Candidate: candMedian})
					continue
				}
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", name, metric))
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			rows = append(rows, row{Benchmark: name, Metric: metric, Baseline: baseMedian, Candidate: candMedian, Delta: delta})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseFile(path string, tracked map[string][]string) (samples, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parse(file, tracked)
}

func parse(r io.Reader, tracked map[string][]string) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if _, ok := out[name]; !ok {
			out[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// trimProcs strips the -GOMAXPROCS suffix go test appends to benchmark names.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
