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
	"fmt"
	"time"
)

// Event is a preset historical crisis window that can be simulated without
// specifying explicit dates
type Event struct {
	Name  string    `json:"name"`
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// Events lists the preset crisis windows, ordered from most to least recent
var Events = []Event{
	{
		Name:  "COVID-19 Crash (2020)",
		Begin: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
	},
	{
		Name:  "2020 US Elections",
		Begin: time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
	},
	{
		Name:  "Global Financial Crisis (2008)",
		Begin: time.Date(2007, 10, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2009, 6, 1, 0, 0, 0, 0, time.UTC),
	},
}

// DefaultTickers are the securities suggested to users who have not picked
// their own basket
var DefaultTickers = []string{"SPY", "QQQ", "GLD", "AAPL", "MSFT", "TSLA"}

// BenchmarkTicker is the default benchmark used for comparison runs
const BenchmarkTicker = "SPY"

// LookupEvent finds a preset event by name
func LookupEvent(name string) (Event, error) {
	for _, event := range Events {
		if event.Name == name {
			return event, nil
		}
	}

	return Event{}, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
}
