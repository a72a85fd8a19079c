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

package dataframe

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// ColIndex returns the index of the specified column; returns -1 if the
// column doesn't exist
func (df *DataFrame) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	return len(df.ColNames)
}

// Col returns the values of the named column; returns nil if the column
// doesn't exist
func (df *DataFrame) Col(colName string) []float64 {
	colIdx := df.ColIndex(colName)
	if colIdx == -1 {
		return nil
	}
	return df.Vals[colIdx]
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame) Copy() *DataFrame {
	df2 := &DataFrame{
		ColNames: make([]string, len(df.ColNames)),
		Dates:    make([]time.Time, len(df.Dates)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Dates, df.Dates)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// Drop removes rows that contain the value `val` in any column from the
// dataframe
func (df *DataFrame) Drop(val float64) *DataFrame {
	isNA := math.IsNaN(val)
	newVals := make([][]float64, len(df.Vals))
	newDates := make([]time.Time, 0, len(df.Dates))

	for idx, rowDate := range df.Dates {
		keep := true
		for _, col := range df.Vals {
			rowVal := col[idx]
			keep = keep && !(rowVal == val || (isNA && math.IsNaN(rowVal)))
			if !keep {
				break
			}
		}

		if keep {
			newDates = append(newDates, rowDate)
			for colIdx, col := range df.Vals {
				newVals[colIdx] = append(newVals[colIdx], col[idx])
			}
		}
	}

	df.Vals = newVals
	df.Dates = newDates
	return df
}

// End returns the last date in the dataframe
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}

	return df.Dates[len(df.Dates)-1]
}

// Insert a new column at the end of the dataframe
func (df *DataFrame) Insert(name string, col []float64) *DataFrame {
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return df
}

// InsertRow adds a new row to the dataframe. Date must be after the last date
// in the dataframe and vals must equal the number of columns. If either of
// these conditions are not met then panic
func (df *DataFrame) InsertRow(date time.Time, vals ...float64) *DataFrame {
	if len(df.Dates) != 0 {
		last := df.Dates[len(df.Dates)-1]
		if !last.Before(date) {
			log.Panic().Time("lastDate", last).Time("newDate", date).Msg("newDate must be after lastDate")
		}
	}

	if len(vals) != len(df.ColNames) {
		log.Panic().Int("NumValsPassed", len(vals)).Int("NumColumns", len(df.ColNames)).Msg("number of vals passed must equal number of columns")
	}

	df.Dates = append(df.Dates, date)
	for colIdx := range df.ColNames {
		df.Vals[colIdx] = append(df.Vals[colIdx], vals[colIdx])
	}

	return df
}

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// Start returns the first date in the dataframe
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}

	return df.Dates[0]
}

// Table prints an ASCII formatted table to stdout
func (df *DataFrame) Table() string {
	if len(df.Dates) == 0 {
		return "<NO DATA>" // nothing to do as there is no data available in the dataframe
	}

	// construct table header
	tableCols := append([]string{"Date"}, df.ColNames...)

	// initialize table
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	footer[1] = fmt.Sprintf("%d", df.Len())
	table.SetFooter(footer)
	table.SetBorder(false)

	for idx, rowDate := range df.Dates {
		row := make([]string, 0, len(df.Vals)+1)
		row = append(row, rowDate.Format("2006-01-02"))
		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[idx]))
		}

		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim the dataframe to the specified date range (inclusive)
func (df *DataFrame) Trim(begin, end time.Time) *DataFrame {
	df2 := &DataFrame{
		ColNames: df.ColNames,
		Dates:    df.Dates,
		Vals:     df.Vals,
	}

	// special case 0: requested range is invalid
	if end.Before(begin) {
		df2.Dates = []time.Time{}
		df2.Vals = make([][]float64, len(df.Vals))
		return df2
	}

	// special case 1: data frame is empty
	if df.Len() == 0 {
		return df2
	}

	// special case 2: end time is before data frame start
	// special case 3: start time is after data frame end
	if end.Before(df.Dates[0]) || begin.After(df.Dates[len(df.Dates)-1]) {
		df2.Dates = []time.Time{}
		df2.Vals = make([][]float64, len(df.Vals))
		return df2
	}

	// Use binary search to find the index corresponding to the start and end times
	beginIdx := sort.Search(len(df.Dates), func(i int) bool {
		return !df.Dates[i].Before(begin)
	})

	endIdx := sort.Search(len(df.Dates), func(i int) bool {
		return !df.Dates[i].Before(end)
	})

	if endIdx != len(df.Dates) && df.Dates[endIdx].Equal(end) {
		endIdx++
	}

	df2.Dates = df.Dates[beginIdx:endIdx]
	df2.Vals = make([][]float64, len(df.Vals))
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}
