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

package handler

import (
	"context"
	"errors"
	"time"

	"github.com/crisis-vault/cv-api/data"
	"github.com/crisis-vault/cv-api/dataframe"
	"github.com/crisis-vault/cv-api/observability/opentelemetry"
	"github.com/crisis-vault/cv-api/portfolio"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

// BacktestRequest describes a simulation run. Dates may be given explicitly
// or through a preset event name; when allocations are omitted every ticker
// gets an equal weight.
type BacktestRequest struct {
	Tickers           []string                `json:"tickers"`
	Allocations       portfolio.AllocationSet `json:"allocations,omitempty"`
	InitialInvestment float64                 `json:"initialInvestment"`
	StartDate         string                  `json:"startDate,omitempty"`
	EndDate           string                  `json:"endDate,omitempty"`
	Event             string                  `json:"event,omitempty"`
	Benchmark         string                  `json:"benchmark,omitempty"`
}

// SeriesResult is a date-indexed dollar value trajectory plus its metrics
type SeriesResult struct {
	Dates   []string           `json:"dates"`
	Values  []float64          `json:"values"`
	Metrics *portfolio.Metrics `json:"metrics"`
}

// BacktestResponse is the full simulation result
type BacktestResponse struct {
	SimulationID      string        `json:"simulationId"`
	Event             string        `json:"event,omitempty"`
	StartDate         string        `json:"startDate"`
	EndDate           string        `json:"endDate"`
	Portfolio         *SeriesResult `json:"portfolio"`
	Benchmark         *SeriesResult `json:"benchmark,omitempty"`
	FinalValue        float64       `json:"finalValue"`
	ChangeFromInitial float64       `json:"changeFromInitial"`
}

type backtestRun struct {
	req       BacktestRequest
	begin     time.Time
	end       time.Time
	series    *dataframe.DataFrame
	metrics   *portfolio.Metrics
	benchmark *dataframe.DataFrame
	benchMet  *portfolio.Metrics
}

// RunBacktest returns a handler for POST /v1/backtest
func RunBacktest(source data.PriceSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := runBacktest(c, source)
		if err != nil {
			return err
		}

		values := run.series.Col(portfolio.ValueCol)
		resp := &BacktestResponse{
			SimulationID:      uuid.New().String(),
			Event:             run.req.Event,
			StartDate:         run.begin.Format("2006-01-02"),
			EndDate:           run.end.Format("2006-01-02"),
			Portfolio:         seriesResult(run.series, run.metrics),
			FinalValue:        values[len(values)-1],
			ChangeFromInitial: values[len(values)-1]/run.req.InitialInvestment - 1,
		}

		if run.benchmark != nil {
			resp.Benchmark = seriesResult(run.benchmark, run.benchMet)
		}

		return c.JSON(resp)
	}
}

// runBacktest parses the request body, fetches prices and computes the
// portfolio series + metrics; shared by the JSON and chart handlers
func runBacktest(c *fiber.Ctx, source data.PriceSource) (*backtestRun, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.runBacktest")
	defer span.End()
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	var req BacktestRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn().Err(err).Msg("could not parse backtest request body")
		return nil, fiber.ErrBadRequest
	}

	if len(req.Tickers) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "at least one ticker is required")
	}

	begin, end, err := requestedRange(&req)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if len(req.Allocations) == 0 {
		req.Allocations = portfolio.EqualWeights(req.Tickers)
	}

	prices, err := source.Fetch(ctx, req.Tickers, begin, end)
	if err != nil {
		return nil, mapDataErr(err)
	}

	series, err := portfolio.Simulate(prices, req.Allocations, req.InitialInvestment)
	if err != nil {
		return nil, mapSimErr(err)
	}

	metrics, err := portfolio.CalcMetrics(series)
	if err != nil {
		return nil, mapSimErr(err)
	}

	run := &backtestRun{
		req:     req,
		begin:   begin,
		end:     end,
		series:  series,
		metrics: metrics,
	}

	if req.Benchmark != "" {
		if err := addBenchmark(ctx, source, run); err != nil {
			return nil, err
		}
	}

	return run, nil
}

// addBenchmark simulates a 100% position in the benchmark ticker over the
// same window with the same initial investment
func addBenchmark(ctx context.Context, source data.PriceSource, run *backtestRun) error {
	prices, err := source.Fetch(ctx, []string{run.req.Benchmark}, run.begin, run.end)
	if err != nil {
		return mapDataErr(err)
	}

	allocations := portfolio.AllocationSet{{Ticker: prices.ColNames[0], Weight: 1}}
	series, err := portfolio.Simulate(prices, allocations, run.req.InitialInvestment)
	if err != nil {
		return mapSimErr(err)
	}
	series.ColNames[0] = portfolio.BenchmarkCol

	metrics, err := portfolio.CalcMetrics(series)
	if err != nil {
		return mapSimErr(err)
	}

	run.benchmark = series
	run.benchMet = metrics
	return nil
}

func requestedRange(req *BacktestRequest) (time.Time, time.Time, error) {
	if req.Event != "" {
		event, err := data.LookupEvent(req.Event)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return event.Begin, event.End, nil
	}

	begin, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("startDate must be formatted as YYYY-MM-DD")
	}

	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("endDate must be formatted as YYYY-MM-DD")
	}

	return begin, end, nil
}

func seriesResult(series *dataframe.DataFrame, metrics *portfolio.Metrics) *SeriesResult {
	dates := make([]string, 0, series.Len())
	for _, dt := range series.Dates {
		dates = append(dates, dt.Format("2006-01-02"))
	}
	return &SeriesResult{
		Dates:   dates,
		Values:  series.Vals[0],
		Metrics: metrics,
	}
}

func mapDataErr(err error) error {
	switch {
	case errors.Is(err, data.ErrNoDataAvailable):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, data.ErrNoTickers),
		errors.Is(err, data.ErrBeginAfterEnd),
		errors.Is(err, data.ErrUnknownEvent):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("could not fetch price data")
		return fiber.ErrBadGateway
	}
}

func mapSimErr(err error) error {
	switch {
	case errors.Is(err, portfolio.ErrInvalidAllocation),
		errors.Is(err, portfolio.ErrInvalidInvestment):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, portfolio.ErrEmptyPriceData),
		errors.Is(err, portfolio.ErrInsufficientData):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("could not run simulation")
		return fiber.ErrInternalServerError
	}
}
