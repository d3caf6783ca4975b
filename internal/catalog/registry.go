// Package catalog defines the reference-table registry and the store
// interface the resolution engine reads through. Every table the engine
// touches is declared here at compile time; there is no runtime schema
// discovery.
package catalog

import (
	"github.com/rotisserie/eris"

	"github.com/dtk-group/quote-engine/internal/model"
)

// Kind identifies one reference table.
type Kind int

const (
	KindCodeBook Kind = iota
	KindPurchaseBuy
	KindPurchaseWant
	KindArchive
	KindChassis
	KindStatuses
	KindMainCategories
	KindSecondCategories
	KindCollisions
	KindAgreements
	KindAgreementExclusions
)

// Spec describes a reference table: its backing table name, the logical
// columns an ingested spreadsheet must provide, and whether rows carry a
// part number (and therefore a derived normalized key column).
type Spec struct {
	Name          string
	Table         string
	Columns       []string
	HasPartNumber bool
	Provenance    model.Provenance
}

// registry is the compile-time catalog registry. Order is irrelevant;
// search order lives in the match engine.
var registry = map[Kind]Spec{
	KindCodeBook: {
		Name:          "code-book",
		Table:         "code_book",
		Columns:       []string{"part_number", "purpose", "warehouse", "cost_price"},
		HasPartNumber: true,
		Provenance:    model.ProvenanceCodeBook,
	},
	KindPurchaseBuy: {
		Name:          "purchase-buy",
		Table:         "purchase_buy",
		Columns:       []string{"part_number", "client", "purpose"},
		HasPartNumber: true,
		Provenance:    model.ProvenancePurchaseBuy,
	},
	KindPurchaseWant: {
		Name:          "purchase-want",
		Table:         "purchase_want",
		Columns:       []string{"part_number", "client", "buy_customized", "purchase_amount", "shop", "assessed_value"},
		HasPartNumber: true,
		Provenance:    model.ProvenancePurchaseWant,
	},
	KindArchive: {
		Name:          "archive",
		Table:         "archive",
		Columns:       []string{"part_number", "spare_value", "spare_cost", "service_comment", "purpose", "amount", "request_number", "category"},
		HasPartNumber: true,
		Provenance:    model.ProvenanceArchive,
	},
	KindChassis: {
		Name:          "chassis",
		Table:         "chassis",
		Columns:       []string{"part_number", "power_unit", "fan_unit", "comment"},
		HasPartNumber: true,
		Provenance:    model.ProvenanceChassis,
	},
	KindStatuses: {
		Name:    "statuses",
		Table:   "statuses",
		Columns: []string{"request_number", "status"},
	},
	KindMainCategories: {
		Name:    "main-categories",
		Table:   "main_categories",
		Columns: []string{"category", "repair_cost", "labor_hours"},
	},
	KindSecondCategories: {
		Name:    "second-categories",
		Table:   "second_categories",
		Columns: []string{"letters", "category"},
	},
	KindCollisions: {
		Name:    "collisions",
		Table:   "collisions",
		Columns: []string{"description_content", "category"},
	},
	KindAgreements: {
		Name:    "agreements",
		Table:   "agreements",
		Columns: []string{"project_code"},
	},
	KindAgreementExclusions: {
		Name:    "agreement-exclusions",
		Table:   "agreement_exclusions",
		Columns: []string{"project_code"},
	},
}

// PrimaryKinds is the fixed cascade order for the primary catalog group.
var PrimaryKinds = []Kind{KindCodeBook, KindPurchaseBuy, KindPurchaseWant}

// Spec returns the registry entry for a kind.
func (k Kind) Spec() Spec { return registry[k] }

// String returns the kind's CLI-facing name.
func (k Kind) String() string { return registry[k].Name }

// Searchable reports whether the part-number search strategies apply.
func (k Kind) Searchable() bool {
	switch k {
	case KindCodeBook, KindPurchaseBuy, KindPurchaseWant, KindArchive:
		return true
	}
	return false
}

// Kinds lists every registered catalog kind, for ingestion tooling.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a CLI name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, spec := range registry {
		if spec.Name == name {
			return k, nil
		}
	}
	return 0, eris.Errorf("catalog: unknown kind %q", name)
}
