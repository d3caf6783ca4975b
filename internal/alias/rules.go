// Package alias expands a part number into the ordered set of alias keys
// to try against the catalogs: vendor-specific lookups and known
// numbering-equivalence substitutions.
package alias

// Rule declares one substitution: wherever Trigger occurs in a seed key,
// one alias is produced per replacement value.
type Rule struct {
	Trigger      string
	Replacements []string
}

// DefaultRules encodes the known vendor numbering equivalences: the
// 24-port and 48-port siblings of a model are interchangeable for spare
// purposes, as are the three chassis-family codes K7/K8/K9.
var DefaultRules = []Rule{
	{Trigger: "24", Replacements: []string{"48"}},
	{Trigger: "48", Replacements: []string{"24"}},
	{Trigger: "K7", Replacements: []string{"K8", "K9"}},
	{Trigger: "K8", Replacements: []string{"K7", "K9"}},
	{Trigger: "K9", Replacements: []string{"K7", "K8"}},
}
