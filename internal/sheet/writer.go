package sheet

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dtk-group/quote-engine/internal/model"
)

// resultHeader is the output column order.
var resultHeader = []string{
	"Part Number",
	"Vendor",
	"Description",
	"Quantity",
	"Resolved Value",
	"Source",
	"Match Type",
	"Purpose",
	"Warehouse",
	"Purchase Cost",
	"Engineer Comment",
	"Request Number",
	"Archived Qty",
	"Chassis",
	"Model/PN",
	"Category",
	"Unit Repair Cost",
	"Unit Labor Hours",
	"Match Note",
}

// WriteResults renders resolved rows into a new workbook at path, one
// row per input query, in input order.
func WriteResults(path string, results []model.ResolutionResult) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Quote")
	if err != nil {
		return eris.Wrap(err, "sheet: add sheet")
	}

	hr := sh.AddRow()
	for _, h := range resultHeader {
		hr.AddCell().SetString(h)
	}

	for _, res := range results {
		row := sh.AddRow()
		for _, v := range resultCells(res) {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "sheet: save %s", path)
	}
	return nil
}

func resultCells(res model.ResolutionResult) []string {
	archived := ""
	if res.ArchivedQuantity != nil {
		archived = strconv.FormatFloat(*res.ArchivedQuantity, 'f', -1, 64)
	}
	chassis := ""
	if res.Chassis != nil {
		chassis = res.Chassis.String()
	}
	annotation := ""
	if res.Annotation != nil {
		annotation = res.Annotation.String()
	}
	note := ""
	switch {
	case res.Unresolved:
		note = "unresolved"
	case res.LowConfidence:
		note = "low confidence"
	}

	return []string{
		res.Query.PartNumber,
		res.Query.Vendor,
		res.Query.Description,
		strconv.Itoa(res.Query.Quantity),
		res.SpareValue,
		string(res.Provenance),
		string(res.MatchType),
		res.Fields[model.FieldPurpose],
		res.Fields[model.FieldWarehouse],
		res.Fields[model.FieldPurchaseCost],
		res.Fields[model.FieldEngineerComment],
		res.Fields[model.FieldRequestNumber],
		archived,
		chassis,
		annotation,
		res.Category.Category,
		strconv.Itoa(res.Cost.UnitRepairCost),
		strconv.Itoa(res.Cost.UnitLaborHours),
		note,
	}
}
