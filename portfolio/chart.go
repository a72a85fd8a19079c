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
	"fmt"

	"github.com/crisis-vault/cv-api/dataframe"
	charts "github.com/vicanso/go-charts/v2"
)

// RenderChart draws a PNG line chart of the value series; every column in
// the dataframe becomes one line. A metrics subtitle is added when metrics
// is non-nil.
func RenderChart(series *dataframe.DataFrame, metrics *Metrics, title string) ([]byte, error) {
	if series == nil || series.Len() == 0 || series.ColCount() == 0 {
		return nil, ErrEmptyPriceData
	}

	xLabels := make([]string, 0, series.Len())
	dateFormat := "Jan 02"
	if series.Len() > 60 {
		dateFormat = "Jan '06"
	}
	for _, dt := range series.Dates {
		xLabels = append(xLabels, dt.Format(dateFormat))
	}

	fullTitle := title
	if metrics != nil {
		sharpe := "n/a"
		vol := "n/a"
		if metrics.SharpeRatio.IsDefined() {
			sharpe = fmt.Sprintf("%.2f", float64(metrics.SharpeRatio))
		}
		if metrics.Volatility.IsDefined() {
			vol = fmt.Sprintf("%.2f%%", float64(metrics.Volatility)*100)
		}
		fullTitle = fmt.Sprintf("%s\nReturn: %.2f%% | Sharpe: %s | Vol: %s | MaxDD: %.2f%%",
			title, metrics.TotalReturn*100, sharpe, vol, metrics.MaxDrawdown*100)
	}

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		series.Vals,
		charts.TitleTextOptionFunc(fullTitle),
		charts.LegendLabelsOptionFunc(series.ColNames),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("could not render chart: %w", err)
	}

	return p.Bytes()
}
