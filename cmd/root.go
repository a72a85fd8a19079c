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

package cmd

import (
	"fmt"
	"os"

	"github.com/crisis-vault/cv-api/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool
var Trace bool

func init() {
	// Logging configuration
	viper.BindEnv("log.level", "CV_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "CV_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "CV_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	rootCmd.PersistentFlags().Bool("log-pretty", false, "Print log messages in a human friendly format")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Cache configuration
	viper.BindEnv("cache.redis_url", "CV_REDIS_URL")
	rootCmd.PersistentFlags().Int("cache-local-size", 256, "Number of price tables to hold in the in-process cache")
	viper.BindPFlag("cache.local_size", rootCmd.PersistentFlags().Lookup("cache-local-size"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "cvapi",
	Version: common.CurrentVersion.String(),
	Short:   "Crisis Vault backtests portfolio allocations through historical market crises",
	Long: `Crisis Vault simulates how a hypothetical portfolio allocation would have
performed across a historical date range, including preset crisis windows,
and reports return and risk metrics plus a benchmark comparison.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
