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
	"math"

	"github.com/crisis-vault/cv-api/dataframe"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the annualization convention for daily series
const tradingDaysPerYear = 252

// NullableFloat marshals NaN as JSON null instead of failing; used for
// statistics that are undefined on degenerate series
type NullableFloat float64

func (f NullableFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// IsDefined reports whether the statistic has a usable numeric value
func (f NullableFloat) IsDefined() bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// Metrics summarizes the return and risk of a simulated value series.
// Volatility and SharpeRatio are NaN when the period return series has zero
// variance; callers should test IsDefined before displaying them.
type Metrics struct {
	TotalReturn float64       `json:"totalReturn"`
	Volatility  NullableFloat `json:"volatility"`
	SharpeRatio NullableFloat `json:"sharpeRatio"`
	MaxDrawdown float64       `json:"maxDrawdown"`
}

// CalcMetrics computes summary statistics over the first column of the
// given value series:
//
//	total return = last / first - 1
//	volatility   = stddev(r) * sqrt(252)        (sample std dev of daily returns)
//	sharpe       = mean(r) / stddev(r) * sqrt(252)  (zero risk-free rate)
//	max drawdown = min over t of value[t] / runningMax[t] - 1
//
// Requires at least 2 observations; otherwise the daily return series would
// be empty and ErrInsufficientData is returned.
func CalcMetrics(series *dataframe.DataFrame) (*Metrics, error) {
	if series == nil || series.ColCount() == 0 || series.Len() < 2 {
		return nil, ErrInsufficientData
	}

	values := series.Vals[0]
	returns := periodReturns(values)

	stddev := stat.StdDev(returns, nil)
	mean := stat.Mean(returns, nil)
	annualize := math.Sqrt(tradingDaysPerYear)

	metrics := &Metrics{
		TotalReturn: values[len(values)-1]/values[0] - 1,
		Volatility:  NullableFloat(stddev * annualize),
		MaxDrawdown: maxDrawdown(values),
	}

	if stddev == 0 {
		// constant value series; sharpe and volatility are undefined
		metrics.Volatility = NullableFloat(math.NaN())
		metrics.SharpeRatio = NullableFloat(math.NaN())
	} else {
		metrics.SharpeRatio = NullableFloat(mean / stddev * annualize)
	}

	return metrics, nil
}

// periodReturns computes value[t] / value[t-1] - 1 for each consecutive
// pair; the result has length len(values)-1
func periodReturns(values []float64) []float64 {
	returns := make([]float64, 0, len(values)-1)
	for ii, jj := 0, 1; jj < len(values); ii, jj = ii+1, jj+1 {
		returns = append(returns, values[jj]/values[ii]-1)
	}
	return returns
}

// maxDrawdown returns the largest percentage decline from a running peak;
// always <= 0 and exactly 0 for a non-decreasing series
func maxDrawdown(values []float64) float64 {
	peak := values[0]
	minDD := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
		dd := v/peak - 1
		if dd < minDD {
			minDD = dd
		}
	}
	return minDD
}
