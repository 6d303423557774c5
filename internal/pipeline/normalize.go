package pipeline

import (
	"strings"

	"github.com/tidwall/gjson"
)

// objectAliases is the ordered list of fields tried when a list entry arrives
// as an object instead of a plain string. Upstream forms emit several of
// these shapes depending on the control that produced the field.
var objectAliases = []string{"Value", "Result", "Name", "Label", "t"}

// placeholder left behind when the upstream runtime stringifies an object.
const objectPlaceholder = "[object Object]"

// NormalizeList flattens the list shapes seen in report payloads into an
// ordered slice of trimmed strings. Accepted inputs: a single delimited
// string ("a;b;c"), an array of strings (each possibly delimited), or an
// array of objects keyed by one of objectAliases. Empty entries and the
// stringified-object placeholder are dropped; duplicates pass through
// untouched. Anything unrecognizable degrades to an empty slice.
func NormalizeList(v gjson.Result) []string {
	out := []string{}
	switch {
	case !v.Exists() || v.Type == gjson.Null:
	case v.IsArray():
		for _, item := range v.Array() {
			if item.IsObject() {
				out = append(out, splitEntry(aliasValue(item))...)
				continue
			}
			out = append(out, splitEntry(item.String())...)
		}
	case v.IsObject():
		out = append(out, splitEntry(aliasValue(v))...)
	default:
		out = append(out, splitEntry(v.String())...)
	}
	return out
}

// aliasValue extracts the first populated alias field from an object entry.
func aliasValue(obj gjson.Result) string {
	for _, key := range objectAliases {
		if f := obj.Get(key); f.Exists() && f.String() != "" {
			return f.String()
		}
	}
	return ""
}

func splitEntry(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ";") {
		p = strings.TrimSpace(p)
		if p == "" || p == objectPlaceholder {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}
