// Package main provides a performance benchmarking tool for the Spectrum CLI.
// It measures scan times across checkpoints of different sizes and command types,
// running each test multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - spectrum binary installed and available in PATH
// - Test checkpoints downloaded to the specified base directory
// - Checkpoints: tinyllama-1.1b, qwen2.5-0.5b, llama-3.2-1b, mistral-7b
//
// Usage: go run benchmark/main.go [model-base-dir]
//
//	model-base-dir: Directory containing test checkpoints
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Model       string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	ModelBase   string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	TestModels  []string
	ModelTypes  map[string]string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [model-base-dir]\n", os.Args[0])
		os.Exit(1)
	}
	modelBase := os.Args[1]

	config := BenchmarkConfig{
		ModelBase:   modelBase,
		Timeout:     15 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		TestModels:  []string{"tinyllama-1.1b", "qwen2.5-0.5b", "llama-3.2-1b", "mistral-7b"},
		ModelTypes: map[string]string{
			"tinyllama-1.1b": "self_attn.q_proj.weight,self_attn.k_proj.weight",
			"qwen2.5-0.5b":   "mlp.down_proj.weight",
			"llama-3.2-1b":   "self_attn.v_proj.weight",
			"mistral-7b":     "mlp.gate_proj.weight",
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the report cache using spectrum cache clear
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("spectrum", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that spectrum binary and test checkpoints exist
func checkPrerequisites(config BenchmarkConfig) error {
	// Check if spectrum is available
	if _, err := exec.LookPath("spectrum"); err != nil {
		return fmt.Errorf("spectrum binary not found in PATH")
	}

	// Check if checkpoints exist
	for _, model := range config.TestModels {
		modelPath := filepath.Join(config.ModelBase, model)
		if _, err := os.Stat(modelPath); os.IsNotExist(err) {
			return fmt.Errorf("checkpoint %s not found at %s", model, modelPath)
		}
	}

	return nil
}

// runBenchmarks executes all benchmark tests across configured checkpoints
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d models, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.TestModels), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, model := range config.TestModels {
		fmt.Printf("Benchmarking %s\n", model)

		modelPath := filepath.Join(config.ModelBase, model)

		// Full scan
		result := runBenchmarkSuite(config, model, modelPath, "scan", "full scan", "")
		results = append(results, result)

		// Filtered scan
		types, hasTypes := config.ModelTypes[model]
		if hasTypes {
			args := fmt.Sprintf("--types %s", types)
			desc := fmt.Sprintf("filtered scan (%s)", types)
			result = runBenchmarkSuite(config, model, modelPath, "scan", desc, args)
			results = append(results, result)
		}

		// Type listing
		result = runBenchmarkSuite(config, model, modelPath, "types", "type listing", "")
		results = append(results, result)
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, model, modelPath, command, description, extraArgs string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", description, model)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, modelPath, command, extraArgs, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Model:       model,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a spectrum command multiple times with specified cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, modelPath, command, extraArgs, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	// Prepare command arguments
	args := []string{command, modelPath,
		"--cache-backend", cacheBackend,
		"--workers", fmt.Sprintf("%d", config.Workers)}
	if extraArgs != "" {
		args = append(args, parseArgs(extraArgs)...)
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("spectrum", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

func parseArgs(argsStr string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, r := range argsStr {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ' ':
			if !inQuotes && current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			} else if inQuotes {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)

	if command == "types" {
		return strings.Contains(outputStr, "weight types")
	}
	return strings.Contains(outputStr, "matrices (")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/spectrum_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"model", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Model, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "scan", "Scan:")
	printCommandSummary(results, "types", "Type Listing:")

	fmt.Printf("Benchmark script completed successfully\n")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-14s: No-cache: %s, Cold: %s, Warm: %s\n", result.Model, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
