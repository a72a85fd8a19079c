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

package portfolio

import (
	"errors"
	"fmt"
	"math"

	"github.com/crisis-vault/cv-api/dataframe"
)

const (
	// ValueCol is the column name of a simulated portfolio value series
	ValueCol = "PORTFOLIO"

	// BenchmarkCol is the column name of a simulated benchmark value series
	BenchmarkCol = "BENCHMARK"
)

// allocationSumTolerance is how far the weight sum may stray from 1
const allocationSumTolerance = 1e-3

var (
	ErrInvalidAllocation = errors.New("allocation weights must match tickers and sum to 1")
	ErrEmptyPriceData    = errors.New("price table has no rows or columns")
	ErrInsufficientData  = errors.New("at least 2 portfolio observations are required")
	ErrInvalidInvestment = errors.New("initial investment must be a positive amount")
)

// Allocation assigns a fractional weight to a single ticker
type Allocation struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// AllocationSet is the full set of portfolio weights, one per ticker.
// Weights are matched to price table columns by ticker, not by position.
type AllocationSet []Allocation

// EqualWeights builds an allocation set giving every ticker a 1/n weight
func EqualWeights(tickers []string) AllocationSet {
	allocations := make(AllocationSet, 0, len(tickers))
	w := 1.0 / float64(len(tickers))
	for _, ticker := range tickers {
		allocations = append(allocations, Allocation{Ticker: ticker, Weight: w})
	}
	return allocations
}

// Weights returns the allocation set as a ticker-keyed map
func (allocations AllocationSet) Weights() map[string]float64 {
	weights := make(map[string]float64, len(allocations))
	for _, a := range allocations {
		weights[a.Ticker] = a.Weight
	}
	return weights
}

// validate checks the allocation set against the price table columns
func (allocations AllocationSet) validate(prices *dataframe.DataFrame) error {
	if len(allocations) != prices.ColCount() {
		return fmt.Errorf("%w: %d weights for %d tickers", ErrInvalidAllocation,
			len(allocations), prices.ColCount())
	}

	sum := 0.0
	seen := make(map[string]bool, len(allocations))
	for _, a := range allocations {
		if a.Weight < 0 || a.Weight > 1 {
			return fmt.Errorf("%w: weight %.4f for %s outside [0, 1]", ErrInvalidAllocation, a.Weight, a.Ticker)
		}
		if seen[a.Ticker] {
			return fmt.Errorf("%w: duplicate ticker %s", ErrInvalidAllocation, a.Ticker)
		}
		seen[a.Ticker] = true
		if prices.ColIndex(a.Ticker) == -1 {
			return fmt.Errorf("%w: ticker %s not in price table", ErrInvalidAllocation, a.Ticker)
		}
		sum += a.Weight
	}

	if math.Abs(sum-1) > allocationSumTolerance {
		return fmt.Errorf("%w: weights sum to %.4f", ErrInvalidAllocation, sum)
	}

	return nil
}

// Simulate converts a price table into a dollar value trajectory for the
// weighted portfolio. Each price column is rebased to 1.0 at the first date,
// scaled by its allocation weight, summed across tickers and multiplied by
// the initial investment. The returned series covers exactly the input
// dates and its first value equals initialInvestment.
//
// Simulate is a pure function; re-running with a different investment amount
// recomputes the whole trajectory from the first date.
func Simulate(prices *dataframe.DataFrame, allocations AllocationSet, initialInvestment float64) (*dataframe.DataFrame, error) {
	if prices == nil || prices.Len() == 0 || prices.ColCount() == 0 {
		return nil, ErrEmptyPriceData
	}

	if initialInvestment <= 0 || math.IsNaN(initialInvestment) || math.IsInf(initialInvestment, 0) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidInvestment, initialInvestment)
	}

	if err := allocations.validate(prices); err != nil {
		return nil, err
	}

	normalized := prices.Normalize()
	growth := normalized.WeightedSum(ValueCol, allocations.Weights())
	return growth.MulScalar(initialInvestment), nil
}
