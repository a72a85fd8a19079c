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

package portfolio_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/goccy/go-json"

	"github.com/crisis-vault/cv-api/dataframe"
	"github.com/crisis-vault/cv-api/portfolio"
)

func valueSeries(vals []float64) *dataframe.DataFrame {
	df := priceTable([]string{portfolio.ValueCol}, [][]float64{vals})
	return df
}

var _ = Describe("CalcMetrics", func() {
	Context("with a series that rises then falls", func() {
		var metrics *portfolio.Metrics

		BeforeEach(func() {
			var err error
			metrics, err = portfolio.CalcMetrics(valueSeries([]float64{10_000, 11_000, 9_450}))
			Expect(err).To(BeNil())
		})

		It("computes total return from first to last value", func() {
			Expect(metrics.TotalReturn).To(BeNumerically("~", -.055, 1e-9))
		})

		It("annualizes the volatility of daily returns", func() {
			Expect(metrics.Volatility.IsDefined()).To(BeTrue())
			Expect(float64(metrics.Volatility)).To(BeNumerically("~", 2.7042, 1e-3))
		})

		It("computes the sharpe ratio with a zero risk-free rate", func() {
			Expect(metrics.SharpeRatio.IsDefined()).To(BeTrue())
			Expect(float64(metrics.SharpeRatio)).To(BeNumerically("~", -1.9061, 1e-3))
		})

		It("measures max drawdown from the running peak", func() {
			Expect(metrics.MaxDrawdown).To(BeNumerically("~", 9_450.0/11_000.0-1, 1e-9))
		})
	})

	Context("with a constant series", func() {
		var metrics *portfolio.Metrics

		BeforeEach(func() {
			var err error
			metrics, err = portfolio.CalcMetrics(valueSeries([]float64{5_000, 5_000, 5_000, 5_000}))
			Expect(err).To(BeNil())
		})

		It("has zero total return and drawdown", func() {
			Expect(metrics.TotalReturn).To(BeNumerically("==", 0))
			Expect(metrics.MaxDrawdown).To(BeNumerically("==", 0))
		})

		It("leaves volatility and sharpe undefined", func() {
			Expect(metrics.Volatility.IsDefined()).To(BeFalse())
			Expect(metrics.SharpeRatio.IsDefined()).To(BeFalse())
		})

		It("marshals undefined statistics as JSON null", func() {
			encoded, err := json.Marshal(metrics)
			Expect(err).To(BeNil())
			Expect(string(encoded)).To(ContainSubstring(`"volatility":null`))
			Expect(string(encoded)).To(ContainSubstring(`"sharpeRatio":null`))
			Expect(string(encoded)).To(ContainSubstring(`"totalReturn":0`))
		})
	})

	Context("with a monotonically rising series", func() {
		It("reports exactly zero drawdown", func() {
			metrics, err := portfolio.CalcMetrics(valueSeries([]float64{100, 101, 105, 110}))
			Expect(err).To(BeNil())
			Expect(metrics.MaxDrawdown).To(BeNumerically("==", 0))
			Expect(metrics.TotalReturn).To(BeNumerically("~", .1, 1e-9))
		})
	})

	Context("with a falling series", func() {
		It("never reports a positive drawdown", func() {
			metrics, err := portfolio.CalcMetrics(valueSeries([]float64{100, 80, 90, 60}))
			Expect(err).To(BeNil())
			Expect(metrics.MaxDrawdown).To(BeNumerically("<=", 0))
			Expect(metrics.MaxDrawdown).To(BeNumerically("~", -.4, 1e-9))
		})
	})

	Context("with too few observations", func() {
		It("errors on a single row", func() {
			_, err := portfolio.CalcMetrics(valueSeries([]float64{10_000}))
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
		})

		It("errors on a nil series", func() {
			_, err := portfolio.CalcMetrics(nil)
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
		})

		It("errors on a series with no columns", func() {
			_, err := portfolio.CalcMetrics(&dataframe.DataFrame{})
			Expect(err).To(MatchError(portfolio.ErrInsufficientData))
		})
	})
})
