package gateway

import (
	"html/template"
	"net/http"

	"github.com/basket/go-study/internal/persistence"
)

// chatHistoryLimit bounds the transcript shown on the index page.
const chatHistoryLimit = 20

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	AgentName string
	Tasks     []persistence.Task
	Chat      []persistence.ChatMessage
	Stats     persistence.Stats
}

// handleIndex renders the dashboard: task list, recent chat transcript,
// and completion stats.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	tasks, err := s.cfg.Store.ListTasks(ctx)
	if err != nil {
		http.Error(w, "failed to load tasks", http.StatusInternalServerError)
		return
	}
	chat, err := s.cfg.Store.ChatHistory(ctx, chatHistoryLimit)
	if err != nil {
		http.Error(w, "failed to load chat history", http.StatusInternalServerError)
		return
	}
	stats, err := s.cfg.Store.Stats(ctx)
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{
		AgentName: s.cfg.AgentName,
		Tasks:     tasks,
		Chat:      chat,
		Stats:     stats,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		s.cfg.Logger.Error("render index failed", "error", err)
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.AgentName}} — Study Planner</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.35rem 0.6rem; border-bottom: 1px solid #ddd; }
.done { color: #888; text-decoration: line-through; }
.chat { border: 1px solid #ddd; padding: 0.6rem; margin-top: 1rem; white-space: pre-wrap; }
.chat .user { color: #1a56a0; }
.chat .agent { color: #2b7a2b; }
.stats { margin-top: 1rem; color: #444; }
</style>
</head>
<body>
<h1>{{.AgentName}} — Study Planner</h1>

<div class="stats">
{{.Stats.Completed}}/{{.Stats.Total}} tasks complete ({{.Stats.PercentComplete}}%)
</div>

<h2>Tasks</h2>
{{if .Tasks}}
<table>
<tr><th>Subject</th><th>Description</th><th>Deadline</th><th>Category</th><th>Priority</th></tr>
{{range .Tasks}}
<tr{{if .Completed}} class="done"{{end}}>
<td>{{.Subject}}</td>
<td>{{.Description}}</td>
<td>{{if .Deadline}}{{.Deadline}}{{else}}N/A{{end}}</td>
<td>{{.Category}}</td>
<td>{{.Priority}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No tasks yet.</p>
{{end}}

<h2>Recent Chat</h2>
<div class="chat">
{{range .Chat}}<div class="{{.Sender}}"><strong>{{.Sender}}:</strong> {{.Message}}</div>
{{else}}<em>No messages yet.</em>{{end}}
</div>
</body>
</html>
`
