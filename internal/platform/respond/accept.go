package respond

import (
	"strings"

	"github.com/danielgtaylor/huma/v2/negotiation"
)

var (
	jsonTypes = []string{"application/json", ProblemJSON}
	cborTypes = []string{"application/cbor", ProblemCBOR}
)

// PrefersCBOR reports whether the Accept header ranks a CBOR type strictly
// above every JSON type. Ties, wildcards and absent headers fall back to JSON.
func PrefersCBOR(accept string) bool {
	accept = strings.ToLower(accept)
	best := negotiation.SelectQValueFast(accept, cborTypes)
	if best == "" {
		return false
	}
	for _, j := range jsonTypes {
		// SelectQValueFast resolves ties in favour of the first allowed entry.
		if negotiation.SelectQValueFast(accept, []string{j, best}) == j {
			return false
		}
	}
	return true
}
