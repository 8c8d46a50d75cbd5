package reporter

const (
	DefaultReportTemplateName = "report.html.tmpl"
	EmbeddedTemplatePath      = "templates/report.html.tmpl"
	EmbeddedCSSPath           = "assets/css/report.css"

	ReportHTMLFile = "report.html"
	ReportJSONFile = "report.json"

	// Images larger than this are linked instead of embedded
	MaxEmbeddedImageBytes = 4 << 20
)
