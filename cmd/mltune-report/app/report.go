/*
Copyright 2023 The MLTune Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package app

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mltune/mltune-core/pkg/consts"
	"github.com/mltune/mltune-core/pkg/trial"
	"github.com/mltune/mltune-core/pkg/version"
)

// NewReportCommand summarizes the persisted trial results of an
// experiment root for one metric.
func NewReportCommand() *cobra.Command {
	var (
		experimentRoot string
		metric         string
		format         string
	)

	cmd := &cobra.Command{
		Use:     string(consts.MLTuneComponentReport),
		Short:   "Summarize trial results recorded under an experiment root",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := trial.NewStore(experimentRoot).Summarize(metric)
			if err != nil {
				return errors.Wrapf(err, "summarize %s under %s", metric, experimentRoot)
			}

			switch format {
			case "json":
				raw, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(raw))
			case "table":
				cmd.Printf("metric:  %s\n", summary.Metric)
				cmd.Printf("trials:  %d (%d failed)\n", summary.Count, summary.Failed)
				cmd.Printf("mean:    %g\n", summary.Mean)
				cmd.Printf("min/max: %g / %g\n", summary.Min, summary.Max)
				cmd.Printf("p50/p90: %g / %g\n", summary.P50, summary.P90)
			default:
				return fmt.Errorf("unknown format %q, want table or json", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&experimentRoot, "experiment-root", "./experiments",
		"directory where trial results were persisted")
	cmd.Flags().StringVar(&metric, "metric", "duration_seconds",
		"result metric to summarize")
	cmd.Flags().StringVar(&format, "format", "table",
		"output format, table or json")
	return cmd
}
