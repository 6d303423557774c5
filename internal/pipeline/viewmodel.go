package pipeline

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/brunocserra/extincor-pdf-function/internal/models"
)

// Template names recognized by the dispatcher. Anything else falls through
// to the generic passthrough shaping.
const (
	TemplatePreventiva = "Preventiva"
	TemplateOrcamento  = "Orcamento"

	// DefaultReportID is used when the payload carries no identifier at all.
	DefaultReportID = "Relatorio"
)

// ErrInvalidPayload marks a job body that is not parseable JSON. It aborts
// the job before any external call is made.
var ErrInvalidPayload = errors.New("payload is not valid JSON")

// Payload wraps the raw job JSON and hides the two shapes it arrives in:
// wrapped ({"data": {...}}) and flat. All field access goes through here so
// alias resolution happens in one place.
type Payload struct {
	root gjson.Result
	data gjson.Result
}

func ParsePayload(raw []byte) (Payload, error) {
	if !gjson.ValidBytes(raw) {
		return Payload{}, ErrInvalidPayload
	}
	root := gjson.ParseBytes(raw)
	data := root.Get("data")
	if !data.IsObject() {
		data = root
	}
	return Payload{root: root, data: data}, nil
}

// Get resolves a path against the unwrapped data object.
func (p Payload) Get(path string) gjson.Result {
	return p.data.Get(path)
}

// ReportID resolves the report identifier: explicit reportId first, then the
// header's report number, then a fixed fallback.
func (p Payload) ReportID() string {
	if v := p.data.Get("reportId"); v.String() != "" {
		return v.String()
	}
	if v := p.root.Get("reportId"); v.String() != "" {
		return v.String()
	}
	if v := p.data.Get("header.reportNumber"); v.String() != "" {
		return v.String()
	}
	return DefaultReportID
}

// HasReportID reports whether the payload carries an explicit identifier,
// as opposed to one synthesized by ReportID.
func (p Payload) HasReportID() bool {
	return p.data.Get("reportId").String() != "" ||
		p.root.Get("reportId").String() != "" ||
		p.data.Get("header.reportNumber").String() != ""
}

func (p Payload) TemplateName() string {
	if v := p.data.Get("templateName"); v.String() != "" {
		return v.String()
	}
	if v := p.root.Get("templateName"); v.String() != "" {
		return v.String()
	}
	return TemplatePreventiva
}

func (p Payload) LogoURL() string {
	if v := p.data.Get("logoUrl"); v.String() != "" {
		return v.String()
	}
	return p.root.Get("logoUrl").String()
}

// PhotoURLs returns the normalized photo source list. The logo is not part
// of it; it stays a remote URL in the HTML.
func (p Payload) PhotoURLs() []string {
	return NormalizeList(p.data.Get("fotos"))
}

// Dataverse extracts the routing block for the result message, filling the
// defaults the upstream Flow expects.
func (p Payload) Dataverse(reportID string) models.DataverseRef {
	dv := p.data.Get("dataverse")
	ref := models.DataverseRef{
		Table:      dv.Get("table").String(),
		RowID:      dv.Get("rowId").String(),
		FileColumn: dv.Get("fileColumn").String(),
		FileName:   dv.Get("fileName").String(),
	}
	if ref.Table == "" {
		ref.Table = "cra4d_pedidosnovos"
	}
	if ref.FileColumn == "" {
		ref.FileColumn = "cra4d_relatorio_pdf_relatorio"
	}
	if ref.FileName == "" {
		ref.FileName = reportID + ".pdf"
	}
	return ref
}

// ViewModel is the fully normalized, template-ready structure for one
// document. It owns all of its data; nothing is shared across jobs.
type ViewModel struct {
	ReportID string
	LogoURL  string

	// report shaping
	Cliente   map[string]interface{}
	Relatorio map[string]interface{}
	MaoObra   []string
	Material  []string

	// quote shaping
	Header   map[string]interface{}
	Totais   QuoteTotals
	Produtos []QuoteGroup

	// passthrough shaping for unrecognized templates
	Extra map[string]interface{}

	Fotos    []string
	TemFotos bool

	templateName string
}

// Options tune the view-model shaping.
type Options struct {
	ProductImageBaseURL string
}

// BuildViewModel selects the shaping strategy for the payload's template
// name and merges in the resolved photo filenames.
func BuildViewModel(p Payload, photoNames []string, opts Options) *ViewModel {
	vm := &ViewModel{
		ReportID:     p.ReportID(),
		LogoURL:      p.LogoURL(),
		Fotos:        photoNames,
		TemFotos:     len(photoNames) > 0,
		templateName: p.TemplateName(),
	}

	switch vm.templateName {
	case TemplateOrcamento:
		shapeQuote(vm, p, opts)
	case TemplatePreventiva:
		shapeReport(vm, p)
	default:
		shapePassthrough(vm, p)
	}
	return vm
}

// TemplateName reports which shaping was applied.
func (vm *ViewModel) TemplateName() string {
	return vm.templateName
}

func shapeReport(vm *ViewModel, p Payload) {
	vm.MaoObra = NormalizeList(firstPresent(p, "maoObra", "maoDeObra"))
	vm.Material = NormalizeList(firstPresent(p, "material", "materiais"))
	vm.Cliente = asMap(p.Get("cliente"))
	vm.Relatorio = asMap(p.Get("relatorio"))
}

func shapeQuote(vm *ViewModel, p Payload, opts Options) {
	header := p.Get("header")
	totals, factors := DeriveQuoteTotals(header)
	vm.Header = asMap(header)
	vm.Totais = totals
	vm.Produtos = BuildQuoteGroups(p.Get("produtos"), factors, opts.ProductImageBaseURL)
	vm.Cliente = asMap(p.Get("cliente"))
}

// shapePassthrough forwards the payload fields unchanged for templates the
// dispatcher does not recognize.
func shapePassthrough(vm *ViewModel, p Payload) {
	vm.Extra = asMap(p.data)
	vm.Cliente = asMap(p.Get("cliente"))
	vm.Relatorio = asMap(p.Get("relatorio"))
}

func firstPresent(p Payload, paths ...string) gjson.Result {
	for _, path := range paths {
		if v := p.Get(path); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func asMap(v gjson.Result) map[string]interface{} {
	if m, ok := v.Value().(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
