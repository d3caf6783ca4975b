package model

// MatchKind classifies how a catalog candidate matched the search key.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"    // normalized keys are equal
	MatchPartial  MatchKind = "partial"  // candidate contains the key
	MatchContains MatchKind = "contains" // key contains the candidate
)

// Provenance identifies the catalog that produced a match.
type Provenance string

const (
	ProvenanceCodeBook     Provenance = "code-book"
	ProvenancePurchaseBuy  Provenance = "purchase-buy"
	ProvenancePurchaseWant Provenance = "purchase-want"
	ProvenanceArchive      Provenance = "archive"
	ProvenanceChassis      Provenance = "chassis"
)

// Extra field keys carried by MatchResult.Fields. The output writer maps
// them to spreadsheet columns; the engine only guarantees the set and
// semantics, not the caller's column names.
const (
	FieldPurpose         = "purpose"          // appointment / destination project
	FieldWarehouse       = "warehouse"        // logical accounting location
	FieldPurchaseCost    = "purchase_cost"    // spare purchase cost
	FieldEngineerComment = "engineer_comment" // service engineer notes
	FieldRequestNumber   = "request_number"   // originating request code
)

// MatchResult is one catalog hit. At most one survives per catalog group
// (cascade-and-stop).
type MatchResult struct {
	Value          string            `json:"value"`
	Provenance     Provenance        `json:"provenance"`
	Kind           MatchKind         `json:"kind"`
	AliasKey       string            `json:"alias_key"`                  // key that produced the hit
	PartNumberNorm string            `json:"part_number_norm,omitempty"` // candidate's normalized key
	LowConfidence  bool              `json:"low_confidence"`             // alias or containment hit
	Fields         map[string]string `json:"fields,omitempty"`
}

// ChassisInfo is the annotation from the chassis catalog, merged into the
// result independently of the main cascade.
type ChassisInfo struct {
	PartNumber string `json:"part_number"`
	PowerUnit  string `json:"power_unit"`
	FanUnit    string `json:"fan_unit"`
	Comment    string `json:"comment"`
}

// String renders the chassis annotation for the output row.
func (c ChassisInfo) String() string {
	return "Chassis! PSU - " + c.PowerUnit + ", FAN - " + c.FanUnit + ", Comment - " + c.Comment
}

// CategoryRule holds the repair-complexity category and its base rates.
type CategoryRule struct {
	Category       string  `json:"category"`
	RepairBaseCost float64 `json:"repair_base_cost"`
	LaborBaseHours float64 `json:"labor_base_hours"`
}

// CategorySource records which fallback step produced the category.
type CategorySource string

const (
	CategoryByExact       CategorySource = "archive_exact"
	CategoryByFuzzy       CategorySource = "archive_fuzzy"
	CategoryByDescription CategorySource = "description"
	CategoryByPrefix      CategorySource = "prefix"
	CategoryByDefault     CategorySource = "default"
)

// DefaultCategory is the terminal fallback when no category rule matches.
var DefaultCategory = CategoryRule{
	Category:       "EMPTY",
	RepairBaseCost: 6001,
	LaborBaseHours: 4,
}

// CostBreakdown is the per-unit pricing derived from quantity and the
// category base rates. Recomputed on every call, never cached.
type CostBreakdown struct {
	UnitRepairCost int `json:"unit_repair_cost"`
	UnitLaborHours int `json:"unit_labor_hours"`
}

// ResolutionResult is the merged outcome for one input row.
type ResolutionResult struct {
	Query PartQuery `json:"query"`

	SpareValue string            `json:"spare_value,omitempty"`
	Provenance Provenance        `json:"provenance,omitempty"`
	MatchType  MatchKind         `json:"match_type,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`

	Annotation *VendorAnnotation `json:"annotation,omitempty"`
	Chassis    *ChassisInfo      `json:"chassis,omitempty"`

	ArchivedQuantity *float64 `json:"archived_quantity,omitempty"`

	Category       CategoryRule   `json:"category"`
	CategorySource CategorySource `json:"category_source"`

	Cost CostBreakdown `json:"cost"`

	LowConfidence bool `json:"low_confidence,omitempty"`
	Unresolved    bool `json:"unresolved,omitempty"` // pipeline errored; defaults applied
}

// nonEnrichable lists categories excluded from downstream marketplace
// enrichment (licenses, software, miscellaneous).
var nonEnrichable = map[string]bool{
	"LIC-1":  true,
	"SOFT-1": true,
	"MSCL":   true,
}

// Enrichable reports whether the resolved row qualifies for external
// price discovery by downstream consumers.
func (r *ResolutionResult) Enrichable() bool {
	return !nonEnrichable[r.Category.Category]
}
