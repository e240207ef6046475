package http

import (
	"bytes"
	"html/template"
	"log"
	"net/http"

	"github.com/mind-engage/mindengage-ocr/internal/pipeline"
)

const pageTpl = `<!doctype html>
<html><head><meta charset="utf-8"><title>OCR</title>
<style>
body{font-family:system-ui,sans-serif;max-width:42rem;margin:2rem auto;padding:0 1rem}
.banner{padding:.5rem 1rem;border-radius:4px;background:#e8f5e9}
.banner.down{background:#fdecea}
.error{color:#b00020;margin:1rem 0}
pre{white-space:pre-wrap;background:#f5f5f5;padding:1rem}
</style></head>
<body>
<h1>Image to text</h1>
<p id="status" class="banner{{if not .Ready}} down{{end}}">{{.Banner}}</p>
{{if .Ready}}
<form method="post" action="{{.Action}}" enctype="multipart/form-data">
  <input type="file" name="image" accept="image/*">
  <button type="submit">Extract text</button>
</form>
{{end}}
{{if .Error}}<div id="error" class="error">{{.Error}}</div>{{end}}
{{if .HasText}}<h2>Extracted text</h2><pre id="extracted-text">{{.Text}}</pre>{{end}}
</body></html>`

var page = template.Must(template.New("page").Parse(pageTpl))

type pageData struct {
	Ready   bool
	Banner  string
	Action  string
	Error   string
	HasText bool
	Text    string
}

// GET /ui
func PageHandler(p *pipeline.Pipeline, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, env := p.Health()
		data := pageData{Ready: env.OK(), Action: action}
		if env.OK() {
			data.Banner = env.Text
		} else {
			data.Banner = env.Failure.Message
		}
		renderPage(w, env.Status(), data)
	}
}

// POST /ui (multipart: image=<file>)
func PageSubmitHandler(p *pipeline.Pipeline, action string, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limitBody(w, r, maxUpload)
		env := p.Run(r)

		_, health := p.Health()
		data := pageData{Ready: health.OK(), Action: action, Banner: pipeline.MsgRunning}
		if !health.OK() {
			data.Banner = health.Failure.Message
		}
		if env.OK() {
			data.HasText, data.Text = true, env.Text
		} else {
			data.Error = env.Failure.Message
		}
		renderPage(w, env.Status(), data)
	}
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		log.Printf("api: render page: %v", err)
		http.Error(w, pipeline.MsgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
