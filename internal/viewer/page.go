package viewer

import "net/http"

// The index page renders the Mermaid chart client-side and listens on
// the event stream to reload after each rebuild.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Ansible Playbook Grapher</title>
  <style>
    body { margin: 0; font-family: sans-serif; }
    header { padding: 0.5rem 1rem; background: #1e293b; color: #f8fafc; }
    header a { color: #93c5fd; margin-right: 1rem; }
    #chart { padding: 1rem; overflow: auto; }
  </style>
</head>
<body>
<header>
  <strong>Ansible Playbook Grapher</strong>
  <nav>
    <a href="/graph.mmd">mermaid</a>
    <a href="/graph.dot">dot</a>
    <a href="/graph.json">json</a>
    <a href="/metrics">metrics</a>
  </nav>
</header>
<div id="chart">Loading…</div>
<script type="module">
  import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
  mermaid.initialize({ startOnLoad: false });

  async function draw() {
    const res = await fetch("/graph.mmd");
    const source = await res.text();
    const { svg } = await mermaid.render("playbook", source);
    document.getElementById("chart").innerHTML = svg;
  }

  new EventSource("/events").addEventListener("reload", draw);
  draw();
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
