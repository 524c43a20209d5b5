package main

import (
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"

	"github.com/ambiyansyah-risyal/lapis"
)

// printMetrics writes every lapis metric family in the Prometheus text format.
func printMetrics(w io.Writer, mc *lapis.MetricsCollector) error {
	registry := mc.GetRegistry()
	if registry == nil {
		return nil
	}
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
