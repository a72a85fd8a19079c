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

package common_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crisis-vault/cv-api/common"
)

var _ = Describe("ArrToUpper", func() {
	It("upper-cases all entries in place", func() {
		tickers := []string{"aapl", "Msft", "SPY"}
		common.ArrToUpper(tickers)
		Expect(tickers).To(Equal([]string{"AAPL", "MSFT", "SPY"}))
	})
})

var _ = Describe("GetTimezone", func() {
	It("returns the market reference timezone", func() {
		tz := common.GetTimezone()
		Expect(tz.String()).To(Equal("America/New_York"))
	})
})
