// Package model defines the value types shared across the quote
// resolution pipeline.
package model

// PartQuery is one input row extracted from a quote request spreadsheet.
// It is read-only once constructed.
type PartQuery struct {
	PartNumber  string `json:"part_number"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// VendorAnnotation carries the manufacturer part number and model name
// returned by a vendor lookup, formatted for display in the output row.
type VendorAnnotation struct {
	PartNumber string `json:"part_number"`
	Model      string `json:"model"`
}

// String renders the annotation the way it appears in the MODEL/PN column.
func (a VendorAnnotation) String() string {
	if a.PartNumber == "" && a.Model == "" {
		return ""
	}
	if a.Model == "" {
		return a.PartNumber
	}
	if a.PartNumber == "" {
		return a.Model
	}
	return a.PartNumber + ", " + a.Model
}

// Expansion is the result of exception-key expansion for one query:
// the ordered alias keys to search with, plus an optional vendor
// annotation when an OEM lookup succeeded.
type Expansion struct {
	Keys       []string          `json:"keys"`
	Annotation *VendorAnnotation `json:"annotation,omitempty"`
}
