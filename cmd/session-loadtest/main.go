package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/transport"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "requests in the throughput phase")
		storms      = flag.Int("storms", 50, "rounds of concurrent 401 responses")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "credential key prefix")
		cache       = flag.Bool("cache", false, "enable the GET response cache")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *storms < 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0, storms >= 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api := newAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	var navigations atomic.Int64
	cfg := goSession.DefaultConfig()
	cfg.HTTP.BaseURL = srv.URL
	cfg.HTTP.CacheEnabled = *cache
	cfg.Storage.RedisPrefix = *prefix
	client, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithBaseTransport(&http.Transport{MaxIdleConnsPerHost: *concurrency}).
		WithNavigator(transport.NavigatorFunc(func(context.Context, string) { navigations.Add(1) })).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	issuer, err := jwt.NewIssuer(jwt.IssuerConfig{SigningMethod: jwt.MethodHS256, PrivateKey: []byte("loadtest")})
	if err != nil {
		fmt.Fprintf(os.Stderr, "issuer: %v\n", err)
		os.Exit(1)
	}
	if _, err := client.Bootstrap(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	login := func(round int) error {
		now := time.Now()
		credential, err := issuer.Encode(jwt.Claims{
			Subject:   fmt.Sprintf("user-%d", round),
			Role:      "student",
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Hour).Unix(),
		})
		if err != nil {
			return err
		}
		_, err = client.Store().Login(ctx, credential)
		return err
	}
	if err := login(0); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	requestStats := runRequestPhase(ctx, client, *ops, *concurrency)
	stormStats, terminations := runStormPhase(ctx, client, login, *storms, *concurrency)

	fmt.Println("---- results ----")
	printStats("request", requestStats)
	printStats("storm", stormStats)
	fmt.Printf("storms=%d terminations=%d navigations=%d deduplicated=%d\n",
		*storms,
		terminations,
		navigations.Load(),
		client.Metrics().Value(goSession.MetricTerminationDeduplicated),
	)
}

// newAPI answers /ok with 200 and /revoked with 401.
func newAPI() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	mux.HandleFunc("/revoked", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"token revoked"}`)
	})
	return mux
}

func send(ctx context.Context, client *goSession.Client, path string) error {
	req, err := client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func runRequestPhase(ctx context.Context, client *goSession.Client, ops, concurrency int) phaseStats {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				t0 := time.Now()
				err := send(ctx, client, "/ok")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runStormPhase logs in, then fires concurrency requests that all come back
// 401. Each round should end in exactly one termination.
func runStormPhase(ctx context.Context, client *goSession.Client, login func(int) error, storms, concurrency int) (phaseStats, uint64) {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, storms*concurrency)
		mu        sync.Mutex
	)
	before := client.Metrics().Value(goSession.MetricForcedLogout)

	start := time.Now()
	for round := 1; round <= storms; round++ {
		if err := login(round); err != nil {
			fmt.Fprintf(os.Stderr, "login: %v\n", err)
			os.Exit(1)
		}
		var g errgroup.Group
		for w := 0; w < concurrency; w++ {
			g.Go(func() error {
				t0 := time.Now()
				err := send(ctx, client, "/revoked")
				d := time.Since(t0)
				if err == nil {
					// A request sent after the termination carries no
					// credential and passes the 401 through.
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
	total := time.Since(start)
	return computeStats(total, latencies, failures), client.Metrics().Value(goSession.MetricForcedLogout) - before
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
