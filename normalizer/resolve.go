package normalizer

import "github.com/example/subword/status"

// ResolveBuiltin maps a symbolic normalizer_spec name (§6: "nfkc",
// "nmt_nfkc", "nfkc_cf", "nmt_nfkc_cf", "identity") to a rule set. Only
// "identity" (no rewriting) is embedded: the full Unicode NFKC compatibility
// tables are out of this module's scope (§1 Non-goals — "not a full
// Unicode normalizer"). Callers that need one of the other named rule sets
// must supply an inline precompiled_charsmap blob instead (§6).
func ResolveBuiltin(name string) (map[string]string, error) {
	switch name {
	case "identity":
		return map[string]string{}, nil
	default:
		return nil, status.New(status.Unimplemented,
			"builtin normalizer rule set %q is not embedded; supply an inline precompiled_charsmap", name)
	}
}
