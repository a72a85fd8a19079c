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

package data

import (
	"context"
	"fmt"
	"io/ioutil"
	"math"
	"net/http"
	"time"

	"github.com/crisis-vault/cv-api/common"
	"github.com/crisis-vault/cv-api/dataframe"
	"github.com/crisis-vault/cv-api/observability/opentelemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type yahoo struct {
	client *http.Client
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

var yahooAPI = "https://query1.finance.yahoo.com"

// NewYahoo creates a new Yahoo Finance data provider. Quotes are the
// dividend- and split-adjusted daily close.
func NewYahoo() Provider {
	return &yahoo{
		client: http.DefaultClient,
	}
}

func (y *yahoo) DataType() string {
	return "security"
}

// GetAdjustedClose downloads the adjusted close series for symbol over the
// requested period
func (y *yahoo) GetAdjustedClose(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "yahoo.GetAdjustedClose")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit&includeAdjustedClose=true",
		yahooAPI, symbol, begin.Unix(), end.Unix())

	span.SetAttributes(
		attribute.String("Url", url),
		attribute.String("Symbol", symbol),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("User-Agent", "cv-api")

	resp, err := y.client.Do(req)
	if err != nil {
		span.RecordError(err)
		msg := "yahoo http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))
		subLog.Warn().Msg("yahoo does not recognize symbol")
		return nil, fmt.Errorf("%w: %s", ErrNoDataAvailable, symbol)
	}

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))
		msg := "yahoo returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg(msg)
		return nil, fmt.Errorf("%w: status code %d", ErrProviderResponse, resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		msg := "could not read yahoo body"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}

	chartResp := yahooChartResponse{}
	if err := json.Unmarshal(body, &chartResp); err != nil {
		span.RecordError(err)
		msg := "could not unmarshal json"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Bytes("Body", body).Msg(msg)
		return nil, fmt.Errorf("%w: %s", ErrProviderResponse, err.Error())
	}

	if chartResp.Chart.Error != nil {
		subLog.Warn().Str("Code", chartResp.Chart.Error.Code).Str("Description", chartResp.Chart.Error.Description).Msg("yahoo reported error")
		return nil, fmt.Errorf("%w: %s", ErrNoDataAvailable, symbol)
	}

	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Indicators.AdjClose) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDataAvailable, symbol)
	}

	result := chartResp.Chart.Result[0]
	quotes := result.Indicators.AdjClose[0].AdjClose
	if len(result.Timestamp) == 0 || len(quotes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDataAvailable, symbol)
	}

	tz := common.GetTimezone()
	dates := make([]time.Time, 0, len(result.Timestamp))
	vals := make([]float64, 0, len(quotes))
	for idx, ts := range result.Timestamp {
		if idx >= len(quotes) {
			break
		}
		// bars with a zero quote are holes in yahoo's data; carry them as
		// NaN so the manager can drop the row across all tickers
		quote := quotes[idx]
		if quote == 0 {
			quote = math.NaN()
		}
		year, month, day := time.Unix(ts, 0).In(tz).Date()
		dates = append(dates, time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
		vals = append(vals, quote)
	}

	df := &dataframe.DataFrame{
		Dates:    dates,
		ColNames: []string{symbol},
		Vals:     [][]float64{vals},
	}

	return df, nil
}
