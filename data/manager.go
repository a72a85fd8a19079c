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
	"math"
	"sort"
	"strings"
	"time"

	"github.com/crisis-vault/cv-api/common"
	"github.com/crisis-vault/cv-api/dataframe"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// Manager assembles multi-ticker price tables from a per-security Provider.
// Each ticker is downloaded concurrently; columns are joined on trading date
// and rows missing a quote for any ticker are dropped, so the resulting
// table always has a value in every cell. Assembled tables are cached.
type Manager struct {
	provider Provider
}

type quoteResult struct {
	Ticker string
	Data   *dataframe.DataFrame
	Err    error
}

// NewManager creates a new data manager backed by the given provider
func NewManager(provider Provider) *Manager {
	return &Manager{
		provider: provider,
	}
}

// Fetch implements PriceSource. Any ticker that cannot be resolved fails the
// whole request; tickers are never silently dropped.
func (m *Manager) Fetch(ctx context.Context, tickers []string, begin, end time.Time) (*dataframe.DataFrame, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}

	if begin.After(end) {
		return nil, ErrBeginAfterEnd
	}

	tickers = append([]string{}, tickers...)
	common.ArrToUpper(tickers)

	cacheKey := fetchCacheKey(tickers, begin, end)
	if cached, err := common.CacheGet(cacheKey); err == nil && len(cached) > 0 {
		df := &dataframe.DataFrame{}
		if err := json.Unmarshal(cached, df); err == nil {
			return df, nil
		}
		log.Warn().Str("CacheKey", cacheKey).Msg("could not decode cached price table")
	}

	ch := make(chan quoteResult)
	for _, ticker := range tickers {
		go m.downloadWorker(ctx, ch, ticker, begin, end)
	}

	columns := make(map[string]*dataframe.DataFrame, len(tickers))
	var firstErr error
	for range tickers {
		v := <-ch
		if v.Err != nil {
			log.Warn().Err(v.Err).Str("Ticker", v.Ticker).Msg("could not download ticker data")
			if firstErr == nil {
				firstErr = v.Err
			}
			continue
		}
		columns[v.Ticker] = v.Data
	}

	if firstErr != nil {
		return nil, firstErr
	}

	df := alignColumns(tickers, columns)
	df = df.Trim(begin, end)
	df = df.Drop(math.NaN())

	if df.Len() == 0 {
		return nil, fmt.Errorf("%w: %s %s to %s", ErrNoDataAvailable,
			strings.Join(tickers, ","), begin.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	if encoded, err := json.Marshal(df); err == nil {
		if err := common.CacheSet(cacheKey, encoded); err != nil {
			log.Warn().Err(err).Str("CacheKey", cacheKey).Msg("could not cache price table")
		}
	}

	return df, nil
}

func (m *Manager) downloadWorker(ctx context.Context, result chan<- quoteResult, symbol string, begin, end time.Time) {
	df, err := m.provider.GetAdjustedClose(ctx, symbol, begin, end)
	result <- quoteResult{
		Ticker: symbol,
		Data:   df,
		Err:    err,
	}
}

// alignColumns joins single-ticker frames into one table over the union of
// their trading dates; cells with no quote are NaN
func alignColumns(tickers []string, columns map[string]*dataframe.DataFrame) *dataframe.DataFrame {
	dateSet := make(map[time.Time]struct{})
	for _, col := range columns {
		for _, dt := range col.Dates {
			dateSet[dt] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for dt := range dateSet {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	byDate := make([]map[time.Time]float64, len(tickers))
	for idx, ticker := range tickers {
		col := columns[ticker]
		byDate[idx] = make(map[time.Time]float64, col.Len())
		for ii, dt := range col.Dates {
			byDate[idx][dt] = col.Vals[0][ii]
		}
	}

	df := &dataframe.DataFrame{
		ColNames: append([]string{}, tickers...),
		Vals:     make([][]float64, len(tickers)),
	}

	row := make([]float64, len(tickers))
	for _, dt := range dates {
		for idx := range tickers {
			if v, ok := byDate[idx][dt]; ok {
				row[idx] = v
			} else {
				row[idx] = math.NaN()
			}
		}
		df.InsertRow(dt, row...)
	}

	return df
}

func fetchCacheKey(tickers []string, begin, end time.Time) string {
	h := blake3.New()
	fmt.Fprintf(h, "%s|%d|%d", strings.Join(tickers, ","), begin.Unix(), end.Unix())
	return fmt.Sprintf("prices:%x", h.Sum(nil))
}
