package main

import (
	"fmt"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [description...]",
		Short: "Compile, encode and decode descriptions, then print the collected metrics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.codec()
			for _, path := range args {
				g, err := a.compileFile(path)
				if err != nil {
					fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
					continue
				}
				data, err := c.Encode(g)
				if err != nil {
					fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
					continue
				}
				if _, err := c.Decode(data); err != nil {
					fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
				}
			}

			families, err := a.metrics.Gather()
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderMetrics(families))
			return nil
		},
	}
}

func renderMetrics(families []*dto.MetricFamily) string {
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value string
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = fmt.Sprintf("%g", m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				value = fmt.Sprintf("%g", m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				value = fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			lines = append(lines, fmt.Sprintf("%s%s %s", mf.GetName(), labels(m), value))
		}
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return dimStyle.Render("no metrics recorded") + "\n"
	}
	return section("Metrics", lines)
}

func labels(m *dto.Metric) string {
	if len(m.GetLabel()) == 0 {
		return ""
	}
	parts := make([]string, len(m.GetLabel()))
	for i, lp := range m.GetLabel() {
		parts[i] = fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
