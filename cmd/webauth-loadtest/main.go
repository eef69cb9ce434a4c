// Command webauth-loadtest measures session decode and route guard throughput
// against an engine with an in-memory credential store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/store/memory"
)

var guardPaths = []string{"/dashboard", "/dashboard/posts", "/admin", "/profile", "/login", "/"}

func main() {
	var (
		accounts    = flag.Int("accounts", 500, "number of accounts to register")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (decode + guard)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		revocation  = flag.Bool("revocation", true, "check the revocation list on every decode")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := webAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-secret-0123456789abcdef!")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Session.EnableRevocation = *revocation
	cfg.Session.RedisPrefix = "wa-loadtest"
	cfg.Metrics.Enabled = true

	engine, err := webAuth.New().
		WithConfig(cfg).
		WithCredentialStore(memory.New()).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens := make([]string, *accounts)
	fmt.Printf("registering %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range tokens {
		res, err := engine.Register(ctx, webAuth.RegisterRequest{
			Email:    fmt.Sprintf("user-%d@loadtest.local", i),
			Password: "loadtest-password",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = res.Token
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	decodeStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		_, err := engine.DecodeSession(ctx, tokens[r.IntN(len(tokens))])
		return err
	})
	guardStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		d := engine.Decide(ctx, guardPaths[r.IntN(len(guardPaths))], tokens[r.IntN(len(tokens))])
		if d.ClearCookie {
			return webAuth.ErrTokenInvalid
		}
		return nil
	})

	fmt.Println("---- results ----")
	fmt.Println("decode:", decodeStats)
	fmt.Println("guard: ", guardStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: issued=%d invalid=%d denied=%d decode_latency_buckets=%v\n",
		snap.Counters[webAuth.MetricSessionIssued],
		snap.Counters[webAuth.MetricSessionInvalid],
		snap.Counters[webAuth.MetricAccessDenied],
		snap.Histograms[webAuth.MetricDecodeLatency],
	)
}

// runPhase spreads ops calls of op over workers. Each worker keeps its own
// latency slice; they are merged once all workers finish.
func runPhase(ops, workers int, seed uint64, op func(r *rand.Rand) error) phaseStats {
	var (
		wg       sync.WaitGroup
		next     atomic.Int64
		failures atomic.Int64
		perW     = make([][]time.Duration, workers)
	)

	start := time.Now()
	for w := range workers {
		wg.Go(func() {
			r := rand.New(rand.NewPCG(seed, uint64(w)))
			local := make([]time.Duration, 0, ops/workers+1)
			for next.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					failures.Add(1)
				}
				local = append(local, time.Since(t0))
			}
			perW[w] = local
		})
	}
	wg.Wait()
	elapsed := time.Since(start)

	return newPhaseStats(elapsed, slices.Concat(perW...), failures.Load())
}

type phaseStats struct {
	elapsed       time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
}

func newPhaseStats(elapsed time.Duration, samples []time.Duration, failures int64) phaseStats {
	slices.Sort(samples)
	at := func(p int) time.Duration {
		if len(samples) == 0 {
			return 0
		}
		return samples[(len(samples)-1)*p/100]
	}
	return phaseStats{
		elapsed:  elapsed,
		ops:      len(samples),
		failures: failures,
		p50:      at(50),
		p95:      at(95),
		p99:      at(99),
	}
}

func (s phaseStats) String() string {
	var rate float64
	if s.elapsed > 0 {
		rate = float64(s.ops) / s.elapsed.Seconds()
	}
	return fmt.Sprintf("ops=%d failures=%d elapsed=%s ops/sec=%.0f p50=%s p95=%s p99=%s",
		s.ops, s.failures, s.elapsed.Round(time.Millisecond), rate,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}
