package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
)

// theme holds the design tokens for one color scheme. Tokens are trusted
// literals, typed template.CSS so functional values like rgba() survive
// html/template's CSS sanitizer.
type theme struct {
	Bg     template.CSS
	Card   template.CSS
	Border template.CSS
	Text   template.CSS
	Muted  template.CSS
	ChipBg template.CSS
	ChipTx template.CSS
	Track  template.CSS
	Brand  template.CSS
	OK     template.CSS
	Warn   template.CSS
}

var lightTheme = theme{
	Bg: "#ffffff", Card: "#ffffff", Border: "#e5e7eb",
	Text: "#0b1220", Muted: "#667085",
	ChipBg: "#f9fafb", ChipTx: "#1f2937", Track: "#f2f4f7",
	Brand: "#2f6feb", OK: "#22c55e", Warn: "#f59e0b",
}

var darkTheme = theme{
	Bg: "#15181b", Card: "#202427", Border: "rgba(255,255,255,0.06)",
	Text: "#e6eaf0", Muted: "#8f9ba7",
	ChipBg: "#151a1f", ChipTx: "#e6eaf0", Track: "#151a1f",
	Brand: "#2f6feb", OK: "#22c55e", Warn: "#fbbf24",
}

// page is the full template context.
type page struct {
	T     theme
	S     DayStats
	Chips []string

	BalanceStatus string
	BalanceColor  template.CSS
	RiskColor     template.CSS

	LoadPct int
	FragPct int
}

var pageTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="color-scheme" content="dark light">
  <style>
    html, body { margin:0; padding:0; background:{{.T.Bg}}; color:{{.T.Text}}; }
    body { font-family:-apple-system,system-ui,Segoe UI,Roboto,Arial; }
    .root { background:{{.T.Bg}}; color:{{.T.Text}}; padding:12px; }
    .chips { display:flex; gap:8px; flex-wrap:wrap; margin-bottom:12px; }
    .chip { background:{{.T.ChipBg}}; color:{{.T.ChipTx}}; border:1px solid {{.T.Border}};
            padding:6px 10px; border-radius:999px; font-weight:600; }
    .grid3 { display:grid; grid-template-columns:repeat(3,minmax(0,1fr)); gap:12px; }
    .grid2 { display:grid; grid-template-columns:1fr 1fr; gap:12px; margin-top:12px; }
    .card { background:{{.T.Card}}; border:1px solid {{.T.Border}}; border-radius:14px;
            padding:14px; overflow:hidden; position:relative; }
    .card h2 { font-size:12px; color:{{.T.Muted}}; text-transform:uppercase;
               letter-spacing:.04em; margin:0; font-weight:600; }
    .kv { margin-top:10px; font-size:14px; display:grid;
          grid-template-columns:auto 1fr; gap:8px 16px; align-items:center; }
    .metric { display:grid; align-items:center; grid-template-columns:auto min-content 1fr;
              column-gap:12px; margin:6px 0; font-size:14px; }
    .metric .label { color:{{.T.Muted}}; }
    .metric .value { font-weight:600; white-space:nowrap; }
    .bar { width:100%; height:8px; background:{{.T.Track}};
           border:1px solid rgba(0,0,0,0.1); border-radius:999px;
           overflow:hidden; box-sizing:border-box; }
    .bar > div { height:100%; }
    .muted { color:{{.T.Muted}}; font-size:12px; }
    .timemap { margin-top:10px; font-size:14px; display:grid;
               grid-template-columns:100px 1fr 140px; gap:10px 16px; align-items:center; }
    ul { margin:12px 0 0 18px; padding:0; line-height:1.55; }
  </style>
</head>
<body>
<div class="root" data-ready="true">
  <div class="chips">
    {{- range .Chips}}
    <div class="chip">{{.}}</div>
    {{- end}}
  </div>

  <div class="grid3">
    <div class="card">
      <h2>Totals</h2>
      <div class="kv">
        <div>Focus</div><div>{{if .S.FocusOn}}On{{else}}Off{{end}}</div>
        <div>Breaks</div><div>{{.S.BreaksMin}}m</div>
        <div>Exercise</div><div>{{.S.ExerciseMin}}m</div>
        <div>Free</div><div>{{.S.FreeMin}}m</div>
      </div>
    </div>

    <div class="card">
      <h2>Schedule Health</h2>
      <div class="metric">
        <div class="label">Load</div>
        <div class="value">{{.S.LoadMin}}m</div>
        <div class="bar"><div style="width:{{.LoadPct}}%;background:{{.T.OK}};"></div></div>
      </div>
      <div class="metric">
        <div class="label">Fragmentation</div>
        <div class="value">{{.S.Fragmentation}}</div>
        <div class="bar"><div style="width:{{.FragPct}}%;background:{{.T.OK}};"></div></div>
      </div>
      <div class="metric">
        <div class="label">Context switches</div>
        <div class="value">{{.S.ContextSwitches}}</div>
        <div></div>
      </div>
    </div>

    <div class="card">
      <h2>Balance &amp; Risk</h2>
      <div class="metric">
        <div class="label">Balance</div>
        <div class="value">{{.S.BalancePercent}}%</div>
        <div class="bar"><div style="width:{{.S.BalancePercent}}%;background:{{.T.OK}};"></div></div>
      </div>
      <div class="muted">Status: <b style="color:{{.BalanceColor}};">{{.BalanceStatus}}</b></div>
      <div class="metric">
        <div class="label">Risk</div>
        <div class="value">{{.S.RiskLabel}}</div>
        <div class="bar"><div style="width:{{.S.RiskPercent}}%;background:{{.RiskColor}};"></div></div>
      </div>
      <div class="muted">Level: <b style="color:{{.RiskColor}};">{{.S.RiskPercent}}%</b></div>
    </div>
  </div>

  <div class="grid2">
    <div class="card">
      <h2>Time Map</h2>
      <div class="timemap">
        {{- range .S.TimeMap}}
        <div class="label" style="color:{{$.T.Muted}};">{{.Label}}</div>
        <div>{{.Value}}</div>
        <div class="bar"><div style="width:{{.Percent}}%;background:{{$.T.Brand}};"></div></div>
        {{- end}}
      </div>
      <div class="muted" style="margin-top:12px;">
        First start: <b>{{.S.FirstStart}}</b> &nbsp;•&nbsp;
        Last end: <b>{{.S.LastEnd}}</b> &nbsp;•&nbsp;
        Longest focus: <b>{{.S.LongestFocus}}</b>
      </div>
    </div>

    <div class="card">
      <h2>Smart Moves</h2>
      <ul>
        {{- range .S.SmartMoves}}
        <li>{{.}}</li>
        {{- end}}
      </ul>
    </div>
  </div>
</div>
</body>
</html>
`))

// Render produces the dashboard HTML document for the given stats. The root
// element carries data-ready="true" so headless capture can await it.
func Render(st DayStats, dark bool) (string, error) {
	th := lightTheme
	if dark {
		th = darkTheme
	}

	p := page{
		T: th,
		S: st,
		Chips: []string{
			"● " + st.DateLabel,
			fmt.Sprintf("%d sessions", st.Sessions),
			fmt.Sprintf("Meetings: %d", st.Meetings),
			fmt.Sprintf("Defense: %d", st.Defense),
		},
		LoadPct: clampInt(st.LoadMin/6, 0, 100),
		FragPct: clampInt(st.Fragmentation*15, 0, 100),
	}

	switch {
	case st.BalancePercent >= 70:
		p.BalanceStatus, p.BalanceColor = "Good", th.OK
	case st.BalancePercent >= 40:
		p.BalanceStatus, p.BalanceColor = "Fair", th.Warn
	default:
		p.BalanceStatus, p.BalanceColor = "Poor", th.Warn
	}
	p.RiskColor = th.OK
	if st.RiskPercent > 30 {
		p.RiskColor = th.Warn
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("dashboard: rendering template: %w", err)
	}
	return buf.String(), nil
}
