package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// 页面模板名称
const (
	PageIndex     = "index"
	PageServices  = "services"
	PageFiles     = "files"
	PageTelemetry = "telemetry"
)

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	// svg 渲染器输出的文本已经转义过
	"svg": func(s string) template.HTML { return template.HTML(s) },
}

/**
 * Parse the embedded page templates
 * @returns {*template.Template} Template set with "header", "footer" and one template per page
 * @returns {error} Parse error
 * @example
 * tmpl, err := web.Templates()
 * router.SetHTMLTemplate(tmpl)
 */
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// Static 页面使用的脚本, 样式和图标
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
