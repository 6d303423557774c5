package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"delimited string", `"a;b;c"`, []string{"a", "b", "c"}},
		{"array with one delimited string", `["a;b;c"]`, []string{"a", "b", "c"}},
		{"array of strings", `["a","b","c"]`, []string{"a", "b", "c"}},
		{"array of objects", `[{"Value":"a"},{"Name":"b"},{"Label":"c"}]`, []string{"a", "b", "c"}},
		{"alias order prefers Value", `[{"Name":"wrong","Value":"right"}]`, []string{"right"}},
		{"short tag alias", `[{"t":"x"}]`, []string{"x"}},
		{"placeholder dropped", `[{"Value":"[object Object]"},{"Name":"x"}]`, []string{"x"}},
		{"whitespace trimmed", `" a ; b "`, []string{"a", "b"}},
		{"empty entries dropped", `"a;;b;"`, []string{"a", "b"}},
		{"duplicates preserved", `"a;a;b"`, []string{"a", "a", "b"}},
		{"delimited inside object", `[{"Value":"a;b"}]`, []string{"a", "b"}},
		{"null", `null`, []string{}},
		{"empty string", `""`, []string{}},
		{"empty array", `[]`, []string{}},
		{"object without aliases", `[{"foo":"bar"}]`, []string{}},
		{"number degrades to its text", `42`, []string{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeList(gjson.Parse(tt.input)))
		})
	}
}

func TestNormalizeListMissingField(t *testing.T) {
	doc := gjson.Parse(`{"other":1}`)
	assert.Equal(t, []string{}, NormalizeList(doc.Get("maoObra")))
}

func TestNormalizeListEquivalentShapes(t *testing.T) {
	want := []string{"a", "b", "c"}
	assert.Equal(t, want, NormalizeList(gjson.Parse(`"a;b;c"`)))
	assert.Equal(t, want, NormalizeList(gjson.Parse(`["a;b;c"]`)))
	assert.Equal(t, want, NormalizeList(gjson.Parse(`["a","b","c"]`)))
}
