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
	"time"

	"github.com/crisis-vault/cv-api/dataframe"
)

// Provider retrieves adjusted close quotes for a single security. Providers
// return ErrNoDataAvailable when the symbol is unknown or the range contains
// no trading days.
type Provider interface {
	DataType() string
	GetAdjustedClose(ctx context.Context, symbol string, begin, end time.Time) (*dataframe.DataFrame, error)
}

// PriceSource assembles a ticker-keyed price table for a set of securities
// over a date range. Single- and multi-ticker requests yield tables with
// identical column semantics; every returned row has a value for every
// ticker. Implemented by Manager.
type PriceSource interface {
	Fetch(ctx context.Context, tickers []string, begin, end time.Time) (*dataframe.DataFrame, error)
}
