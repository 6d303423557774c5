package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func preventivaViewModel(t *testing.T) *ViewModel {
	t.Helper()
	p, err := ParsePayload([]byte(`{
		"reportId": "R1",
		"logoUrl": "https://cdn.example.com/logo.png",
		"data": {
			"cliente": {"nome": "ACME", "morada": "Rua A", "contacto": "912"},
			"relatorio": {"data": "2026-01-10", "tecnico": "JS", "observacoes": "ok"},
			"maoObra": "a;b",
			"material": ["x","y"]
		}
	}`))
	require.NoError(t, err)
	return BuildViewModel(p, []string{"img_01.jpg"}, Options{})
}

func TestRenderPreventiva(t *testing.T) {
	r := newTestRenderer(t)
	html, err := r.Render(preventivaViewModel(t))
	require.NoError(t, err)

	assert.Contains(t, html, "R1")
	assert.Contains(t, html, "<li>a</li>")
	assert.Contains(t, html, "<li>b</li>")
	assert.Contains(t, html, "<li>x</li>")
	assert.Contains(t, html, "ACME")
	assert.Contains(t, html, `src="img_01.jpg"`)
	assert.Contains(t, html, "https://cdn.example.com/logo.png")
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newTestRenderer(t)
	vm := preventivaViewModel(t)

	first, err := r.Render(vm)
	require.NoError(t, err)
	second, err := r.Render(vm)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderOmitsPhotoSectionWithoutPhotos(t *testing.T) {
	r := newTestRenderer(t)
	p, err := ParsePayload([]byte(`{"reportId":"R1","data":{"maoObra":"a","material":"m","cliente":{"nome":"N","morada":"M","contacto":"C"},"relatorio":{"data":"d","tecnico":"t","observacoes":"o"}}}`))
	require.NoError(t, err)

	html, err := r.Render(BuildViewModel(p, nil, Options{}))
	require.NoError(t, err)

	assert.NotContains(t, html, "Registo Fotográfico")
}

func TestRenderOrcamento(t *testing.T) {
	r := newTestRenderer(t)
	p, err := ParsePayload([]byte(`{
		"reportId": "Q1",
		"templateName": "Orcamento",
		"data": {
			"header": {"totalBruto": 100, "descontoFinanceiroPercent": 10, "taxaIva": 23},
			"produtos": [
				{"nome":"Secção A","itens":[{"nome":"item","qty":1,"preco":100,"total":100}]}
			],
			"cliente": {"nome": "ACME", "morada": "Rua A"}
		}
	}`))
	require.NoError(t, err)

	html, err := r.Render(BuildViewModel(p, nil, Options{}))
	require.NoError(t, err)

	assert.Contains(t, html, "Orçamento")
	assert.Contains(t, html, "Secção A")
	assert.Contains(t, html, "110,70")
	assert.Contains(t, html, "IVA (23%)")
	assert.NotContains(t, html, "Desconto Financeiro</td><td></td>", "empty discount row must not render")
}

func TestRenderUnknownTemplateUsesDefault(t *testing.T) {
	r := newTestRenderer(t)
	p, err := ParsePayload([]byte(`{"reportId":"R1","templateName":"Custom","campo":"valor"}`))
	require.NoError(t, err)

	html, err := r.Render(BuildViewModel(p, nil, Options{}))
	require.NoError(t, err)

	assert.Contains(t, html, "Documento R1")
	assert.Contains(t, html, "valor")
}
