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
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"

	"github.com/crisis-vault/cv-api/common"
	"github.com/crisis-vault/cv-api/data"
	"github.com/crisis-vault/cv-api/middleware"
	"github.com/crisis-vault/cv-api/observability/opentelemetry"
	"github.com/crisis-vault/cv-api/router"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cv-api server",
	Long:  `Run HTTP server that implements the Crisis Vault API`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create profile output file")
			}
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()
		common.SetupCache()
		log.Info().Msg("initialized logging")

		if viper.GetString("otlp.endpoint") != "" {
			shutdown, err := opentelemetry.Setup()
			if err != nil {
				log.Fatal().Err(err).Msg("could not setup opentelemetry")
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("could not shutdown trace exporter")
				}
			}()
		}

		manager := data.NewManager(data.NewYahoo())

		// Create new Fiber instance
		app := fiber.New()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("could not shutdown app")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD",
		}
		app.Use(cors.New(corsConfig))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Setup routes
		router.SetupRoutes(app, manager)

		// Start server
		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("could not start server")
		}
	},
}
