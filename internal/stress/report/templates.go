package report

// htmlTemplate is the page rendered by HTMLWriter.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Name}} - Stress Test Report</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f8fafc;
            --text-primary: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
            --accent-note: #3b82f6;
            --accent-warning: #f59e0b;
            --accent-error: #ef4444;
            --shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }

        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: var(--bg-secondary);
            color: var(--text-primary);
            line-height: 1.6;
        }

        .container { max-width: 1400px; margin: 0 auto; padding: 2rem; }

        .header, .section {
            background: var(--bg-primary);
            border-radius: 12px;
            padding: 1.5rem 2rem;
            margin-bottom: 2rem;
            box-shadow: var(--shadow);
        }

        .header h1 { font-size: 1.75rem; font-weight: 700; }
        .header .description { color: var(--text-secondary); }
        .header .meta { margin-top: 0.75rem; font-size: 0.875rem; color: var(--text-secondary); }

        .counts {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 1rem;
            margin-bottom: 2rem;
        }

        .count-card { background: var(--bg-primary); border-radius: 12px; padding: 1.25rem; box-shadow: var(--shadow); }
        .count-card .label { font-size: 0.75rem; text-transform: uppercase; color: var(--text-secondary); }
        .count-card .value { font-size: 1.75rem; font-weight: 700; }
        .count-card.note .value { color: var(--accent-note); }
        .count-card.warning .value { color: var(--accent-warning); }
        .count-card.error .value { color: var(--accent-error); }

        .section-title { font-size: 1.125rem; font-weight: 600; margin-bottom: 1rem; }

        table { width: 100%; border-collapse: collapse; font-size: 0.875rem; }
        th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid var(--border-color); }
        th { color: var(--text-secondary); font-weight: 600; }
        td.data { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; word-break: break-all; }

        .kind { font-weight: 600; }
        tr.note .kind { color: var(--accent-note); }
        tr.warning .kind { color: var(--accent-warning); }
        tr.error .kind { color: var(--accent-error); }

        .empty { color: var(--text-secondary); font-style: italic; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>{{.Name}}</h1>
        {{if .Description}}<div class="description">{{.Description}}</div>{{end}}
        <div class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} &middot; {{.Total}} reports</div>
    </div>

    <div class="counts">
        <div class="count-card note"><div class="label">Notes</div><div class="value">{{count .Counts "NOTE"}}</div></div>
        <div class="count-card warning"><div class="label">Warnings</div><div class="value">{{count .Counts "WARNING"}}</div></div>
        <div class="count-card error"><div class="label">Errors</div><div class="value">{{count .Counts "ERROR"}}</div></div>
    </div>

    {{with .Metrics}}
    <div class="section">
        <div class="section-title">Step Timings</div>
        <p>{{.Instances}} instances ({{.FailedInstances}} failed), {{.Cases}} cases ({{.FailedCases}} failed)</p>
        <table>
            <thead><tr><th>Step</th><th>Count</th><th>Failures</th><th>Min</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr></thead>
            <tbody>
            {{$failures := .StepFailures}}
            {{range $step, $s := .Steps}}
                <tr><td>{{$step}}</td><td>{{$s.Count}}</td><td>{{index $failures $step}}</td><td>{{formatDuration $s.Min}}</td><td>{{formatDuration $s.P50}}</td><td>{{formatDuration $s.P90}}</td><td>{{formatDuration $s.P95}}</td><td>{{formatDuration $s.P99}}</td><td>{{formatDuration $s.Max}}</td></tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}

    {{range .Phases}}
    <div class="section" id="phase-{{.Phase}}">
        <div class="section-title">{{.Phase}}</div>
        {{if .Reports}}
        <table>
            <thead><tr><th>Time</th><th>Instance</th><th>Type</th><th>Message</th><th>Data</th></tr></thead>
            <tbody>
            {{range .Reports}}
                <tr class="{{kindClass .Kind}}"><td>{{formatTime .Timestamp}}</td><td>{{instance .Instance}}</td><td class="kind">{{.Kind}}</td><td>{{.Message}}</td><td class="data">{{formatData .Data}}</td></tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <div class="empty">No reports.</div>
        {{end}}
    </div>
    {{end}}
</div>
</body>
</html>
`
