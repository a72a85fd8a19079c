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

package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crisis-vault/cv-api/data"
	"github.com/crisis-vault/cv-api/dataframe"
	"github.com/crisis-vault/cv-api/handler"
	"github.com/crisis-vault/cv-api/portfolio"
	"github.com/crisis-vault/cv-api/router"
)

// fakeSource serves canned price tables keyed by the joined ticker list and
// records the last requested date range
type fakeSource struct {
	tables    map[string]*dataframe.DataFrame
	lastBegin time.Time
	lastEnd   time.Time
}

func (s *fakeSource) Fetch(_ context.Context, tickers []string, begin, end time.Time) (*dataframe.DataFrame, error) {
	s.lastBegin = begin
	s.lastEnd = end

	df, ok := s.tables[strings.Join(tickers, ",")]
	if !ok {
		return nil, fmt.Errorf("%w: %s", data.ErrNoDataAvailable, strings.Join(tickers, ","))
	}
	return df.Copy(), nil
}

func postJSON(app *fiber.App, path string, body any) (*http.Response, []byte) {
	encoded, err := json.Marshal(body)
	Expect(err).To(BeNil())

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	Expect(err).To(BeNil())

	raw, err := ioutil.ReadAll(resp.Body)
	Expect(err).To(BeNil())
	return resp, raw
}

func getPath(app *fiber.App, path string) (*http.Response, []byte) {
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	Expect(err).To(BeNil())

	raw, err := ioutil.ReadAll(resp.Body)
	Expect(err).To(BeNil())
	return resp, raw
}

var _ = Describe("Backtest API", func() {
	var (
		app    *fiber.App
		source *fakeSource
	)

	BeforeEach(func() {
		dates := []time.Time{
			time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC),
		}
		source = &fakeSource{
			tables: map[string]*dataframe.DataFrame{
				"AAPL,MSFT": {
					Dates:    dates,
					ColNames: []string{"AAPL", "MSFT"},
					Vals: [][]float64{
						{100, 110, 99},
						{50, 55, 45},
					},
				},
				"SPY": {
					Dates:    dates,
					ColNames: []string{"SPY"},
					Vals:     [][]float64{{400, 404, 408}},
				},
				"GLD": {
					Dates:    dates,
					ColNames: []string{"GLD"},
					Vals:     [][]float64{{170, 170, 170}},
				},
			},
		}

		app = fiber.New()
		router.SetupRoutes(app, source)
	})

	Describe("GET /v1/", func() {
		It("responds to ping", func() {
			resp, raw := getPath(app, "/v1/")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			ping := handler.PingResponse{}
			Expect(json.Unmarshal(raw, &ping)).To(Succeed())
			Expect(ping.Status).To(Equal("success"))
		})
	})

	Describe("GET /v1/events", func() {
		It("lists the preset events", func() {
			resp, raw := getPath(app, "/v1/events")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			events := []data.Event{}
			Expect(json.Unmarshal(raw, &events)).To(Succeed())
			Expect(len(events)).To(Equal(len(data.Events)))
		})
	})

	Describe("GET /v1/tickers", func() {
		It("lists the suggested tickers", func() {
			resp, raw := getPath(app, "/v1/tickers")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(string(raw)).To(ContainSubstring("SPY"))
		})
	})

	Describe("POST /v1/backtest", func() {
		It("simulates an explicit date range", func() {
			resp, raw := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers: []string{"AAPL", "MSFT"},
				Allocations: portfolio.AllocationSet{
					{Ticker: "AAPL", Weight: .5},
					{Ticker: "MSFT", Weight: .5},
				},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			result := handler.BacktestResponse{}
			Expect(json.Unmarshal(raw, &result)).To(Succeed())
			Expect(result.SimulationID).NotTo(BeEmpty())
			Expect(result.StartDate).To(Equal("2021-01-04"))
			Expect(result.EndDate).To(Equal("2021-01-06"))
			Expect(result.Portfolio.Values).To(HaveLen(3))
			Expect(result.Portfolio.Values[0]).To(BeNumerically("~", 10_000, 1e-6))
			Expect(result.Portfolio.Values[1]).To(BeNumerically("~", 11_000, 1e-6))
			Expect(result.Portfolio.Values[2]).To(BeNumerically("~", 9_450, 1e-6))
			Expect(result.FinalValue).To(BeNumerically("~", 9_450, 1e-6))
			Expect(result.ChangeFromInitial).To(BeNumerically("~", -.055, 1e-9))
			Expect(result.Portfolio.Metrics.TotalReturn).To(BeNumerically("~", -.055, 1e-9))
			Expect(result.Portfolio.Metrics.MaxDrawdown).To(BeNumerically("~", 9_450.0/11_000.0-1, 1e-9))
			Expect(result.Benchmark).To(BeNil())
		})

		It("defaults to equal weights", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})

		It("uses the date window of a preset event", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				Event:             "COVID-19 Crash (2020)",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(source.lastBegin).To(Equal(time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)))
			Expect(source.lastEnd).To(Equal(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)))
		})

		It("includes a benchmark comparison when requested", func() {
			resp, raw := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
				Benchmark:         "SPY",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			result := handler.BacktestResponse{}
			Expect(json.Unmarshal(raw, &result)).To(Succeed())
			Expect(result.Benchmark).NotTo(BeNil())
			Expect(result.Benchmark.Values[0]).To(BeNumerically("~", 10_000, 1e-6))
			Expect(result.Benchmark.Values[2]).To(BeNumerically("~", 10_200, 1e-6))
			Expect(result.Benchmark.Metrics.MaxDrawdown).To(BeNumerically("==", 0))
		})

		It("marshals undefined statistics as null", func() {
			resp, raw := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"GLD"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(string(raw)).To(ContainSubstring(`"volatility":null`))
			Expect(string(raw)).To(ContainSubstring(`"sharpeRatio":null`))
		})

		It("rejects weights that do not sum to 1", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers: []string{"AAPL", "MSFT"},
				Allocations: portfolio.AllocationSet{
					{Ticker: "AAPL", Weight: .5},
					{Ticker: "MSFT", Weight: .4},
				},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects a non-positive investment", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 0,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects a request without tickers", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects malformed dates", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				StartDate:         "01/04/2021",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects an unknown event", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				Event:             "Tulip Mania",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns not found when no data is available", func() {
			resp, _ := postJSON(app, "/v1/backtest", handler.BacktestRequest{
				Tickers:           []string{"FAKETICKER"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("POST /v1/backtest/chart", func() {
		It("renders the simulation as a PNG", func() {
			resp, raw := postJSON(app, "/v1/backtest/chart", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get(fiber.HeaderContentType)).To(Equal("image/png"))
			Expect(raw[:4]).To(Equal([]byte{0x89, 'P', 'N', 'G'}))
		})

		It("overlays the benchmark when requested", func() {
			resp, raw := postJSON(app, "/v1/backtest/chart", handler.BacktestRequest{
				Tickers:           []string{"AAPL", "MSFT"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
				Benchmark:         "SPY",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(len(raw)).To(BeNumerically(">", 0))
		})

		It("propagates simulation errors", func() {
			resp, _ := postJSON(app, "/v1/backtest/chart", handler.BacktestRequest{
				Tickers:           []string{"FAKETICKER"},
				InitialInvestment: 10_000,
				StartDate:         "2021-01-04",
				EndDate:           "2021-01-06",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})
})
