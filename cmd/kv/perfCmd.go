package kv

import (
	"fmt"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/colorful-bubbles/idb-keyval/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for key-value servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfTTL        = uint64(0)
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ttl"
	perfTestCmd.Flags().Uint64(key, 0, util.WrapString("TTL in seconds for the set benchmark (0 = no expiration)"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfTTL = viper.GetUint64("ttl")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for key-value servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	runBenchmark("set", func(key string) error {
		return remote.Set(util.GetStore(), key, []byte("test"), perfTTL)
	})

	runBenchmark("get", func(key string) error {
		_, _, err := remote.Get(util.GetStore(), key)
		return err
	})

	runBenchmark("has", func(key string) error {
		_, err := remote.Has(util.GetStore(), key)
		return err
	})

	runBenchmark("del", func(key string) error {
		return remote.Del(util.GetStore(), key)
	})

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// runBenchmark drives one operation in parallel, recording per-request
// latency into a timer so the result includes percentiles, not just the
// mean ns/op of testing.Benchmark.
func runBenchmark(test string, op func(key string) error) {
	if shouldSkip(test) {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	timer := gometrics.NewTimer()

	// prepare keys, seeded so get/has/del hit existing entries
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i)
		if err := remote.Set(util.GetStore(), keys[i], []byte("test"), 0); err != nil {
			log.Printf("(%s) - error seeding key: %v\n", test, err)
		}
	}

	result := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := op(keys[counter%perfKeySpread]); err != nil {
					log.Printf("(%s) - error: %v\n", test, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})

	// cleanup
	for _, key := range keys {
		if err := remote.Del(util.GetStore(), key); err != nil {
			log.Printf("(%s) - error deleting key: %v\n", test, err)
		}
	}

	printResult(test, result, timer)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer gometrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}
