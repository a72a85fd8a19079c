// Copyright 2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crisis-vault/cv-api/common"
	"github.com/crisis-vault/cv-api/data"
	"github.com/crisis-vault/cv-api/portfolio"
	"github.com/rs/zerolog/log"

	"github.com/spf13/cobra"
)

var (
	simulateAllocations string
	simulateInvestment  float64
	simulateStartDate   string
	simulateEndDate     string
	simulateEvent       string
	simulateBenchmark   string
	simulateChartFile   string
	simulateShowTable   bool
)

func init() {
	simulateCmd.Flags().StringVarP(&simulateAllocations, "allocations", "a", "", "Comma separated fractional weights, one per ticker (default: equal weights)")
	simulateCmd.Flags().Float64VarP(&simulateInvestment, "investment", "i", 10_000, "Initial investment in dollars")
	simulateCmd.Flags().StringVar(&simulateStartDate, "start", "", "Start date (YYYY-MM-DD)")
	simulateCmd.Flags().StringVar(&simulateEndDate, "end", "", "End date (YYYY-MM-DD)")
	simulateCmd.Flags().StringVarP(&simulateEvent, "event", "e", "", "Preset historical event; see `cvapi events`")
	simulateCmd.Flags().StringVarP(&simulateBenchmark, "benchmark", "b", "", fmt.Sprintf("Compare against a benchmark ticker (e.g. %s)", data.BenchmarkTicker))
	simulateCmd.Flags().StringVar(&simulateChartFile, "chart", "", "Write a PNG chart of the portfolio trajectory to the given file")
	simulateCmd.Flags().BoolVar(&simulateShowTable, "table", false, "Print the full value series as a table")

	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:        "simulate [flags] TICKER...",
	Short:      "Backtest a portfolio allocation over a historical date range",
	Args:       cobra.MinimumNArgs(1),
	ArgAliases: []string{"Tickers"},
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()

		ctx := context.Background()
		tickers := append([]string{}, args...)
		common.ArrToUpper(tickers)

		begin, end := simulationRange()

		allocations, err := parseAllocations(tickers, simulateAllocations)
		if err != nil {
			log.Fatal().Err(err).Str("Allocations", simulateAllocations).Msg("could not parse allocations")
		}

		manager := data.NewManager(data.NewYahoo())
		prices, err := manager.Fetch(ctx, tickers, begin, end)
		if err != nil {
			log.Fatal().Err(err).Strs("Tickers", tickers).Msg("could not fetch price data")
		}

		series, err := portfolio.Simulate(prices, allocations, simulateInvestment)
		if err != nil {
			log.Fatal().Err(err).Msg("could not simulate portfolio")
		}

		metrics, err := portfolio.CalcMetrics(series)
		if err != nil {
			log.Fatal().Err(err).Msg("could not compute metrics")
		}

		if simulateShowTable {
			fmt.Println(series.Table())
		}

		values := series.Col(portfolio.ValueCol)
		fmt.Printf("Simulating: %s to %s\n", series.Start().Format("2006-01-02"), series.End().Format("2006-01-02"))
		fmt.Printf("Final Value        : $%.2f\n", values[len(values)-1])
		printMetrics("Portfolio", metrics)

		if simulateBenchmark != "" {
			benchmark := strings.ToUpper(simulateBenchmark)
			benchPrices, err := manager.Fetch(ctx, []string{benchmark}, begin, end)
			if err != nil {
				log.Fatal().Err(err).Str("Benchmark", benchmark).Msg("could not fetch benchmark data")
			}

			benchSeries, err := portfolio.Simulate(benchPrices, portfolio.AllocationSet{{Ticker: benchmark, Weight: 1}}, simulateInvestment)
			if err != nil {
				log.Fatal().Err(err).Msg("could not simulate benchmark")
			}

			benchMetrics, err := portfolio.CalcMetrics(benchSeries)
			if err != nil {
				log.Fatal().Err(err).Msg("could not compute benchmark metrics")
			}

			printMetrics(benchmark, benchMetrics)
		}

		if simulateChartFile != "" {
			title := fmt.Sprintf("Portfolio (%s)", strings.Join(tickers, ", "))
			png, err := portfolio.RenderChart(series, metrics, title)
			if err != nil {
				log.Fatal().Err(err).Msg("could not render chart")
			}
			if err := os.WriteFile(simulateChartFile, png, 0644); err != nil {
				log.Fatal().Err(err).Str("File", simulateChartFile).Msg("could not write chart")
			}
			fmt.Printf("Wrote chart to %s\n", simulateChartFile)
		}
	},
}

func simulationRange() (time.Time, time.Time) {
	if simulateEvent != "" {
		event, err := data.LookupEvent(simulateEvent)
		if err != nil {
			log.Fatal().Err(err).Str("Event", simulateEvent).Msg("unknown event; run `cvapi events` for the list")
		}
		return event.Begin, event.End
	}

	begin, err := time.Parse("2006-01-02", simulateStartDate)
	if err != nil {
		log.Fatal().Err(err).Str("Start", simulateStartDate).Msg("start date must be YYYY-MM-DD")
	}

	end, err := time.Parse("2006-01-02", simulateEndDate)
	if err != nil {
		log.Fatal().Err(err).Str("End", simulateEndDate).Msg("end date must be YYYY-MM-DD")
	}

	return begin, end
}

func parseAllocations(tickers []string, arg string) (portfolio.AllocationSet, error) {
	if arg == "" {
		return portfolio.EqualWeights(tickers), nil
	}

	parts := strings.Split(arg, ",")
	allocations := make(portfolio.AllocationSet, 0, len(parts))
	for idx, part := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("allocations must be numeric values separated by commas: %w", err)
		}
		if idx < len(tickers) {
			allocations = append(allocations, portfolio.Allocation{Ticker: tickers[idx], Weight: w})
		} else {
			allocations = append(allocations, portfolio.Allocation{Weight: w})
		}
	}

	if len(allocations) != len(tickers) {
		return nil, fmt.Errorf("%w: %d weights for %d tickers", portfolio.ErrInvalidAllocation, len(allocations), len(tickers))
	}

	return allocations, nil
}

func printMetrics(name string, metrics *portfolio.Metrics) {
	fmt.Printf("%s\n", name)
	fmt.Printf("  Total Return     : %.2f%%\n", metrics.TotalReturn*100)
	if metrics.Volatility.IsDefined() {
		fmt.Printf("  Volatility (Ann.): %.2f%%\n", float64(metrics.Volatility)*100)
	} else {
		fmt.Printf("  Volatility (Ann.): n/a\n")
	}
	if metrics.SharpeRatio.IsDefined() {
		fmt.Printf("  Sharpe Ratio     : %.2f\n", float64(metrics.SharpeRatio))
	} else {
		fmt.Printf("  Sharpe Ratio     : n/a\n")
	}
	fmt.Printf("  Max Drawdown     : %.2f%%\n", metrics.MaxDrawdown*100)
}
