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

package data_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crisis-vault/cv-api/data"
)

var _ = Describe("Events", func() {
	It("orders every event begin before its end", func() {
		for _, event := range data.Events {
			Expect(event.Begin.Before(event.End)).To(BeTrue())
		}
	})

	It("looks up an event by name", func() {
		event, err := data.LookupEvent("COVID-19 Crash (2020)")
		Expect(err).To(BeNil())
		Expect(event.Begin.Year()).To(Equal(2020))
	})

	It("errors on an unknown event", func() {
		_, err := data.LookupEvent("Tulip Mania")
		Expect(err).To(MatchError(data.ErrUnknownEvent))
	})
})
