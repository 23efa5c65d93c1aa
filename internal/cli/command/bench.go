package command

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/rediswire/internal/cli/output"
	"github.com/yndnr/rediswire/internal/telemetry/logger"
	"github.com/yndnr/rediswire/pkg/client"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// BenchCommand returns the bench command.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:      "bench",
		Usage:     "Measure the latency and throughput of a command",
		ArgsUsage: "[COMMAND [ARG ...]] (default PING)",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "requests",
				Aliases: []string{"n"},
				Usage:   "Total number of requests",
				Value:   10000,
			},
			&cli.IntFlag{
				Name:    "clients",
				Aliases: []string{"c"},
				Usage:   "Number of parallel connections",
				Value:   10,
			},
			&cli.Float64Flag{
				Name:  "rps",
				Usage: "Limit the request rate across all clients (0 = unlimited)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not show progress",
			},
		},
		Action: benchAction,
	}
}

// benchResult summarizes one run. Latencies are in milliseconds.
type benchResult struct {
	Command    string  `json:"command" yaml:"command"`
	Clients    int     `json:"clients" yaml:"clients"`
	Requests   int64   `json:"requests" yaml:"requests"`
	Errors     int64   `json:"errors" yaml:"errors"`
	Seconds    float64 `json:"seconds" yaml:"seconds"`
	Throughput float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Min        float64 `json:"min_ms" yaml:"min_ms"`
	P50        float64 `json:"p50_ms" yaml:"p50_ms"`
	P95        float64 `json:"p95_ms" yaml:"p95_ms"`
	P99        float64 `json:"p99_ms" yaml:"p99_ms"`
	Max        float64 `json:"max_ms" yaml:"max_ms"`
}

func (r benchResult) Table() *output.Table {
	ms := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) + " ms" }
	t := output.NewTable("METRIC", "VALUE")
	t.AddRow("command", r.Command)
	t.AddRow("clients", strconv.Itoa(r.Clients))
	t.AddRow("requests", strconv.FormatInt(r.Requests, 10))
	t.AddRow("errors", strconv.FormatInt(r.Errors, 10))
	t.AddRow("duration", strconv.FormatFloat(r.Seconds, 'f', 3, 64)+" s")
	t.AddRow("throughput", strconv.FormatFloat(r.Throughput, 'f', 1, 64)+" req/s")
	t.AddRow("min", ms(r.Min))
	t.AddRow("p50", ms(r.P50))
	t.AddRow("p95", ms(r.P95))
	t.AddRow("p99", ms(r.P99))
	t.AddRow("max", ms(r.Max))
	return t
}

func benchAction(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	args := c.Args().Slice()
	if len(args) == 0 {
		args = []string{"PING"}
	}
	total, clients := int64(c.Int("requests")), c.Int("clients")
	if total <= 0 || clients <= 0 {
		return errors.New("requests and clients must be positive")
	}
	clients = int(min(int64(clients), total))

	conns := make([]*client.Client, 0, clients)
	defer func() {
		for _, cl := range conns {
			cl.Close()
		}
	}()
	for i := 0; i < clients; i++ {
		cl, err := env.NewClient()
		if err != nil {
			return err
		}
		conns = append(conns, cl)
	}

	var limiter *rate.Limiter
	if rps := c.Float64("rps"); rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), clients)
	}

	var bar *output.ProgressBar
	if !c.Bool("quiet") {
		bar = output.NewProgressBar(env.Err, "bench", "requests")
		bar.SetTotal(total)
	}

	cmd := make([]any, len(args))
	for i, a := range args {
		cmd[i] = a
	}

	var (
		next, failed atomic.Int64
		wg           sync.WaitGroup
		mu           sync.Mutex
		latencies    = make([]time.Duration, 0, total)
	)
	start := time.Now()
	for _, cl := range conns {
		cl := cl
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, total/int64(clients)+1)
			defer func() {
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}()

			for next.Add(1) <= total {
				if limiter != nil {
					if err := limiter.Wait(c.Context); err != nil {
						return
					}
				}
				t0 := time.Now()
				r, err := cl.Do(cmd...)
				local = append(local, time.Since(t0))
				if bar != nil {
					bar.Increment(1)
				}
				if err != nil {
					failed.Add(1)
					if errors.Is(err, transporter.ErrNotConnected) {
						env.Logger.Warn("bench client disconnected", "error", err)
						return
					}
					continue
				}
				if r.IsError() {
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	if bar != nil {
		bar.Finish()
	}

	result := summarize(latencies, elapsed)
	result.Command = strings.Join(logger.RedactCommand(args), " ")
	result.Clients = clients
	result.Errors = failed.Load()
	return env.Printer.Print(result)
}

// summarize computes throughput and latency percentiles.
func summarize(latencies []time.Duration, elapsed time.Duration) benchResult {
	r := benchResult{
		Requests: int64(len(latencies)),
		Seconds:  elapsed.Seconds(),
	}
	if len(latencies) == 0 {
		return r
	}
	if elapsed > 0 {
		r.Throughput = float64(len(latencies)) / elapsed.Seconds()
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	r.Min = ms(latencies[0])
	r.P50 = ms(percentile(latencies, 50))
	r.P95 = ms(percentile(latencies, 95))
	r.P99 = ms(percentile(latencies, 99))
	r.Max = ms(latencies[len(latencies)-1])
	return r
}

// percentile returns the nearest-rank percentile of sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return sorted[rank-1]
}
