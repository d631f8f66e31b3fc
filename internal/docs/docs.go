// Package docs serves the OpenAPI document and a Swagger UI page for it.
package docs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"gopkg.in/yaml.v3"
)

var (
	//go:embed openapi.yaml
	openAPIYAML []byte

	//go:embed swagger.html
	swaggerPage string
)

// Docs holds the rendered document in both encodings and the UI page.
type Docs struct {
	yaml []byte
	json []byte
	page []byte
}

// New renders the document with apiURL as its only server. specURL is the
// path the UI page loads the JSON document from.
func New(apiURL, specURL string) (*Docs, error) {
	return render(openAPIYAML, apiURL, specURL)
}

func render(raw []byte, apiURL, specURL string) (*Docs, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse openapi document: empty")
	}
	doc["servers"] = []interface{}{
		map[string]interface{}{"url": apiURL, "description": "API server"},
	}

	d := &Docs{}
	var err error
	if d.yaml, err = yaml.Marshal(doc); err != nil {
		return nil, err
	}
	if d.json, err = json.MarshalIndent(doc, "", "  "); err != nil {
		return nil, err
	}

	tmpl, err := template.New("swagger").Parse(swaggerPage)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	var title string
	if info, ok := doc["info"].(map[string]interface{}); ok {
		title, _ = info["title"].(string)
	}
	if err := tmpl.Execute(&buf, map[string]string{"Title": title, "SpecURL": specURL}); err != nil {
		return nil, err
	}
	d.page = buf.Bytes()
	return d, nil
}

func (d *Docs) ServeUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(d.page)
}

func (d *Docs) ServeYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(d.yaml)
}

func (d *Docs) ServeJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(d.json)
}
