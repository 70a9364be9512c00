// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ttbt-io/masterprobe/report"
)

func newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports [run-id]",
		Short: "List stored runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(s, newLogger(s))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				r, err := store.Load(args[0])
				if err != nil {
					return err
				}
				report.RenderRun(cmd.OutOrStdout(), r)
				return nil
			}
			runs, err := store.List()
			if err != nil {
				return err
			}
			report.RenderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	return cmd
}
