package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexatlas/lexatlas/internal/cluster"
	"github.com/lexatlas/lexatlas/internal/tabular"
)

// The pipeline commands run single stages directly against CSV files,
// bypassing the conversational loop.

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Check a CSV against the core linguistic schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			v := tabular.ValidateCoreSchema(string(data))
			if v.OK {
				fmt.Printf("OK (%d rows)\n", v.RowCount)
			} else {
				for _, e := range v.Errors {
					fmt.Printf("error: %s\n", e)
				}
			}
			for _, w := range v.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			if !v.OK {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "normalize <file.csv>",
		Short: "Repair CSV formatting, escaping, and coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			repaired, warnings := tabular.Repair(string(data))
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			return writeOutput(output, repaired)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newMatrixCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "matrix <file.csv>",
		Short: "Pivot long-format rows into a binary availability matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			matrix, summary, err := tabular.BuildMatrix(string(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "languages=%d concepts=%d avg_coverage=%.1f%%\n",
				summary.Languages, summary.Concepts, summary.AvgCoverage)
			return writeOutput(output, matrix)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newClusterCmd(configPath *string) *cobra.Command {
	var output, metric string
	var minClusterSize, minSamples int
	cmd := &cobra.Command{
		Use:   "cluster <matrix.csv>",
		Short: "Cluster languages in an availability matrix with HDBSCAN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flush, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer flush()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			table, err := tabular.ParseMatrix(string(data))
			if err != nil {
				return err
			}

			if minClusterSize == 0 {
				minClusterSize = cfg.Cluster.MinClusterSize
			}
			if minSamples == 0 {
				minSamples = cfg.Cluster.MinSamples
			}
			if metric == "" {
				metric = cfg.Cluster.Metric
			}
			labels, err := cluster.Run(table.Features(), cluster.Config{
				MinClusterSize: minClusterSize,
				MinSamples:     minSamples,
				Metric:         metric,
			})
			if err != nil {
				return err
			}
			clustered, err := table.WithClusterColumn(labels)
			if err != nil {
				return err
			}

			clusterSet := make(map[int]bool)
			noise := 0
			for _, label := range labels {
				if label < 0 {
					noise++
				} else {
					clusterSet[label] = true
				}
			}
			fmt.Fprintf(os.Stderr, "clusters=%d clustered=%d noise=%d\n",
				len(clusterSet), len(labels)-noise, noise)
			return writeOutput(output, clustered)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&minClusterSize, "min-cluster-size", 0, "minimum cluster size")
	cmd.Flags().IntVar(&minSamples, "min-samples", 0, "minimum samples for core distance")
	cmd.Flags().StringVar(&metric, "metric", "", "distance metric (jaccard, hamming)")
	return cmd
}

func newMapLayerCmd() *cobra.Command {
	var output, latCol, lonCol string
	cmd := &cobra.Command{
		Use:   "maplayer <file.csv>",
		Short: "Convert rows with coordinates into a GeoJSON layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			layer, count, err := tabular.BuildMapLayer(string(data), tabular.MapLayerOptions{
				LatColumn: latCol,
				LonColumn: lonCol,
			})
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(layer, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "points=%d\n", count)
			return writeOutput(output, string(encoded)+"\n")
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&latCol, "lat-col", "", "latitude column name")
	cmd.Flags().StringVar(&lonCol, "lon-col", "", "longitude column name")
	return cmd
}

func newExportCmd() *cobra.Command {
	var rawFile, matrixFile, clusteredFile, source, filename string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Resolve the best available snapshot into a download file",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := tabular.ExportInput{}
			var err error
			if input.Raw, err = readOptional(rawFile); err != nil {
				return err
			}
			if input.Matrix, err = readOptional(matrixFile); err != nil {
				return err
			}
			if input.Clustered, err = readOptional(clusteredFile); err != nil {
				return err
			}

			export := tabular.ResolveExport(source, filename, input)
			if export.Err != "" {
				return fmt.Errorf("%s", export.Err)
			}
			if err := os.WriteFile(export.Filename, []byte(export.CSV), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d rows)\n", export.Filename, export.RowCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawFile, "raw", "", "raw CSV snapshot file")
	cmd.Flags().StringVar(&matrixFile, "matrix", "", "binary matrix snapshot file")
	cmd.Flags().StringVar(&clusteredFile, "clustered", "", "clustered snapshot file")
	cmd.Flags().StringVar(&source, "source", "", "data source (raw_csv, binary_matrix, clustered)")
	cmd.Flags().StringVar(&filename, "filename", "", "output filename (default generated)")
	return cmd
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
