package web

import (
	"embed"
	"html/template"
)

//go:embed templates
var templateFiles embed.FS

// Templates is the compiled template set for all views.
var Templates = template.Must(template.New("").ParseFS(templateFiles, "templates/*.html"))
