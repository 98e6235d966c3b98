package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/crankbench/internal/baseline"
	"github.com/torosent/crankbench/internal/metrics"
	"github.com/torosent/crankbench/internal/siformat"
	"github.com/torosent/crankbench/internal/threshold"
)

// ThresholdSummary counts threshold outcomes for reports.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

// ThresholdResultJSON is the serializable form of a threshold.Result.
type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

func summarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, tr := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: tr.Threshold.Raw,
			Metric:    tr.Threshold.Metric,
			Aggregate: tr.Threshold.Aggregate,
			Operator:  tr.Threshold.Operator,
			Expected:  tr.Threshold.Value,
			Actual:    tr.Actual,
			Pass:      tr.Pass,
		}
		if tr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Stats            metrics.Stats
	History          []Sample
	HistoryJSON      string
	ThresholdSummary *ThresholdSummary
	Comparison       *baseline.Comparison
	Tolerance        float64
}

// HTMLReportInput gathers the optional parts of an HTML report.
type HTMLReportInput struct {
	History    []Sample
	Thresholds []threshold.Result
	Comparison *baseline.Comparison
	Tolerance  float64
}

// GenerateHTMLReport generates a standalone HTML report. A throughput chart
// is embedded when progress samples were collected.
func GenerateHTMLReport(w io.Writer, stats metrics.Stats, in HTMLReportInput) error {
	historyJSON, err := json.Marshal(in.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Stats:            stats,
		History:          in.History,
		HistoryJSON:      string(historyJSON),
		ThresholdSummary: summarizeThresholds(in.Thresholds),
		Comparison:       in.Comparison,
		Tolerance:        in.Tolerance,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"si":      siformat.Format,
		"seconds": seconds,
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"regressed": func(d baseline.Delta, tolerance float64) bool {
			return d.Regressed(tolerance)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Crankbench Report: {{.Stats.Workload}}</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #f4f6f8; color: #1f2933; margin: 0; padding: 24px; }
        .container { max-width: 1200px; margin: 0 auto; background: #fff; border-radius: 6px; box-shadow: 0 1px 4px rgba(0,0,0,0.08); }
        header { background: #243b53; color: #fff; padding: 24px 32px; border-radius: 6px 6px 0 0; }
        header .meta { opacity: 0.85; font-size: 0.9rem; }
        .content { padding: 32px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 16px; margin-bottom: 32px; }
        .card { background: #f0f4f8; border-left: 4px solid #486581; border-radius: 4px; padding: 16px; }
        .card.error { border-left-color: #d64545; }
        .card h3 { margin: 0 0 8px; font-size: 0.8rem; text-transform: uppercase; color: #627d98; }
        .card .value { font-size: 1.6rem; font-weight: bold; font-family: monospace; }
        h2 { border-bottom: 2px solid #d9e2ec; padding-bottom: 8px; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 32px; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #d9e2ec; font-family: monospace; }
        th { background: #f0f4f8; font-family: inherit; font-size: 0.85rem; text-transform: uppercase; color: #486581; }
        .pass { color: #2f8132; font-weight: bold; }
        .fail { color: #d64545; font-weight: bold; }
        .chart { width: 100%; height: 300px; margin-bottom: 32px; }
    </style>
    {{if .History}}
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
    {{end}}
</head>
<body>
<div class="container">
    <header>
        <h1>Crankbench Report</h1>
        <div class="meta">Workload: {{.Stats.Workload}} | Threads: {{.Stats.Threads}} | Seed: {{.Stats.Seed}}{{if .Stats.RunID}} | Run: {{.Stats.RunID}}{{end}}</div>
        <div class="meta">Generated: {{.GeneratedAt}}</div>
    </header>
    <div class="content">
        <div class="grid">
            <div class="card"><h3>Runs</h3><div class="value">{{.Stats.RunsExecuted}} / {{.Stats.RunsTarget}}</div></div>
            <div class="card"><h3>Throughput</h3><div class="value">{{si .Stats.Throughput}}/s</div></div>
            <div class="card"><h3>Duration</h3><div class="value">{{seconds .Stats.Duration}}s</div></div>
            <div class="card"><h3>Result Sum</h3><div class="value">{{.Stats.ResultSum}}</div></div>
            {{if .Stats.Error}}
            <div class="card error"><h3>Failure ({{.Stats.ErrorKind}})</h3><div>{{.Stats.Error}}</div></div>
            {{end}}
        </div>

        {{if .History}}
        <h2>Throughput Over Time</h2>
        <div id="rate-chart" class="chart"></div>
        {{end}}

        {{if .Stats.LatencyTiming}}
        <h2>Iteration Latency</h2>
        <table>
            <thead><tr><th>Min</th><th>Mean</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr></thead>
            <tbody><tr>
                <td>{{seconds .Stats.MinLatency}}s</td>
                <td>{{seconds .Stats.MeanLatency}}s</td>
                <td>{{seconds .Stats.P50Latency}}s</td>
                <td>{{seconds .Stats.P90Latency}}s</td>
                <td>{{seconds .Stats.P95Latency}}s</td>
                <td>{{seconds .Stats.P99Latency}}s</td>
                <td>{{seconds .Stats.MaxLatency}}s</td>
            </tr></tbody>
        </table>
        {{end}}

        {{if .ThresholdSummary}}
        <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
        <table>
            <thead><tr><th>Threshold</th><th>Expected</th><th>Actual</th><th>Status</th></tr></thead>
            <tbody>
            {{range .ThresholdSummary.Results}}
            <tr>
                <td>{{.Threshold}}</td>
                <td>{{.Operator}} {{formatFloat .Expected}}</td>
                <td>{{formatFloat .Actual}}</td>
                <td>{{if .Pass}}<span class="pass">PASS</span>{{else}}<span class="fail">FAIL</span>{{end}}</td>
            </tr>
            {{end}}
            </tbody>
        </table>
        {{end}}

        {{with .Comparison}}
        <h2>Baseline {{.Baseline.Name}}</h2>
        <table>
            <thead><tr><th>Metric</th><th>Baseline</th><th>Current</th><th>Change</th><th>Status</th></tr></thead>
            <tbody>
            {{range .Deltas}}
            <tr>
                <td>{{.Metric}}</td>
                <td>{{si .Baseline}}</td>
                <td>{{si .Current}}</td>
                <td>{{.Formatted}}</td>
                <td>{{if regressed . $.Tolerance}}<span class="fail">REGRESSED</span>{{else}}<span class="pass">OK</span>{{end}}</td>
            </tr>
            {{end}}
            </tbody>
        </table>
        {{end}}
    </div>
</div>
{{if .History}}
<script>
    const history = JSON.parse({{.HistoryJSON}});
    const el = document.getElementById('rate-chart');
    new uPlot({
        width: el.offsetWidth,
        height: 300,
        scales: { x: { time: false } },
        series: [
            { label: "Elapsed (s)" },
            { label: "Runs/s", stroke: "#486581", fill: "rgba(72, 101, 129, 0.1)", width: 2 }
        ],
        axes: [ { label: "Elapsed (seconds)" }, { label: "Runs/sec" } ]
    }, [history.map(s => s.elapsed_seconds), history.map(s => s.rate)], el);
</script>
{{end}}
</body>
</html>
`
