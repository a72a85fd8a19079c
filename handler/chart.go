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
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/crisis-vault/cv-api/data"
	"github.com/crisis-vault/cv-api/dataframe"
	"github.com/crisis-vault/cv-api/portfolio"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// BacktestChart returns a handler for POST /v1/backtest/chart that renders
// the portfolio trajectory (and benchmark when requested) as a PNG
func BacktestChart(source data.PriceSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := runBacktest(c, source)
		if err != nil {
			return err
		}

		series := run.series
		if run.benchmark != nil {
			series = joinOnDates(run.series, run.benchmark)
		}

		title := fmt.Sprintf("Portfolio (%s)", strings.Join(run.req.Tickers, ", "))
		if run.req.Event != "" {
			title = fmt.Sprintf("%s - %s", title, run.req.Event)
		}

		png, err := portfolio.RenderChart(series, run.metrics, title)
		if err != nil {
			log.Error().Err(err).Msg("could not render backtest chart")
			return fiber.ErrInternalServerError
		}

		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}

// joinOnDates merges two single-column series into one frame over their
// common dates
func joinOnDates(a, b *dataframe.DataFrame) *dataframe.DataFrame {
	byDate := make(map[time.Time]float64, b.Len())
	for idx, dt := range b.Dates {
		byDate[dt] = b.Vals[0][idx]
	}

	vals := make([]float64, a.Len())
	for idx, dt := range a.Dates {
		if v, ok := byDate[dt]; ok {
			vals[idx] = v
		} else {
			vals[idx] = math.NaN()
		}
	}

	joined := &dataframe.DataFrame{
		Dates:    a.Dates,
		ColNames: []string{a.ColNames[0]},
		Vals:     [][]float64{a.Vals[0]},
	}
	joined.Insert(b.ColNames[0], vals)

	return joined.Drop(math.NaN())
}
