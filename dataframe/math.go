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
	"gonum.org/v1/gonum/floats"
)

// MulScalar multiplies all columns in dataframe df by the scalar and returns
// a new dataframe
func (df *DataFrame) MulScalar(scalar float64) *DataFrame {
	df = df.Copy()

	for colIdx := range df.ColNames {
		floats.Scale(scalar, df.Vals[colIdx])
	}
	return df
}

// Normalize rebases every column so it starts at 1.0; each value is divided
// by the column's value on the first date. Returns a new dataframe.
// Rebasing makes cross-column weighting scale invariant: multiplying a
// column by a constant does not change the normalized column.
func (df *DataFrame) Normalize() *DataFrame {
	df = df.Copy()

	if df.Len() == 0 {
		return df
	}

	for colIdx := range df.ColNames {
		first := df.Vals[colIdx][0]
		floats.Scale(1/first, df.Vals[colIdx])
	}

	return df
}

// SumRows sums across columns for each row and returns a new single-column
// dataframe with the given column name
func (df *DataFrame) SumRows(colName string) *DataFrame {
	sum := make([]float64, df.Len())
	for _, col := range df.Vals {
		floats.Add(sum, col)
	}

	return &DataFrame{
		Dates:    df.Dates,
		ColNames: []string{colName},
		Vals:     [][]float64{sum},
	}
}

// WeightedSum scales each column by its weight (matched by column name) and
// sums across columns, returning a new single-column dataframe. Columns
// without a weight contribute nothing.
func (df *DataFrame) WeightedSum(colName string, weights map[string]float64) *DataFrame {
	scaled := df.Copy()
	for colIdx, col := range scaled.ColNames {
		floats.Scale(weights[col], scaled.Vals[colIdx])
	}

	return scaled.SumRows(colName)
}
