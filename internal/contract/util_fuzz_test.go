package contract

import (
	"strings"
	"testing"
)

// FuzzModelSlug fuzzes slug derivation with random model names and paths.
func FuzzModelSlug(f *testing.F) {
	seeds := []string{
		"meta-llama/Llama-3.1-8B",
		"/models/tiny_llama/",
		"mistralai/Mistral-7B-v0.3",
		"",
		"a/b/c_d",
		"trailing///",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, name string) {
		slug := ModelSlug(name)
		if strings.ContainsAny(slug, "/\\_") {
			t.Errorf("slug %q still contains separator characters", slug)
		}
	})
}

// FuzzSplitTypes fuzzes the comma-separated type filter parser.
func FuzzSplitTypes(f *testing.F) {
	seeds := []string{
		"self_attn.q_proj.weight,mlp.down_proj.weight",
		" , , ",
		"",
		"single",
		"a,,b",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		for _, typ := range SplitTypes(raw) {
			if typ == "" {
				t.Error("parsed types should never contain empty entries")
			}
			if typ != strings.TrimSpace(typ) {
				t.Errorf("parsed type %q should be trimmed", typ)
			}
		}
	})
}
