package delivery

import (
	"path/filepath"
	"strings"

	"github.com/spazos-ar/etl-ssn/internal/mapper"
	"github.com/spazos-ar/etl-ssn/internal/types"
)

// Group is the set of weekly records reported under one cycle.
type Group struct {
	Cycle   string
	Records []mapper.Record
}

// Payload wraps the group into a weekly delivery for company.
func (g Group) Payload(company string) Payload {
	return Payload{
		Company: company,
		Kind:    types.Weekly,
		Cycle:   g.Cycle,
		Records: g.Records,
	}
}

// GroupByCycle splits weekly records by their cycle tag. Groups appear in
// order of first occurrence and records keep their input order. The tag is
// cleared on every returned record.
func GroupByCycle(records []mapper.Record) []Group {
	groups := make(map[string][]mapper.Record)
	groupOrder := []string{}

	for _, rec := range records {
		cycle := rec.Cycle
		if _, seen := groups[cycle]; !seen {
			groupOrder = append(groupOrder, cycle)
		}
		rec.Cycle = ""
		groups[cycle] = append(groups[cycle], rec)
	}

	result := make([]Group, 0, len(groupOrder))
	for _, cycle := range groupOrder {
		result = append(result, Group{Cycle: cycle, Records: groups[cycle]})
	}
	return result
}

// EmitEmpty returns a header-only delivery, used to report a cycle with no
// activity.
func EmitEmpty(company, cycle string, kind types.DeliveryKind) Payload {
	return Payload{
		Company: company,
		Kind:    kind,
		Cycle:   cycle,
		Records: []mapper.Record{},
	}
}

// FileName returns the output file name of a delivery: Mes-<cycle>.json for
// monthly deliveries and Semana<WW>.json for weekly ones.
func FileName(kind types.DeliveryKind, cycle string) string {
	if kind == types.Monthly {
		return "Mes-" + strings.ReplaceAll(cycle, "_", "-") + ".json"
	}
	week := cycle
	if _, after, ok := strings.Cut(cycle, "-"); ok {
		week = after
	}
	return "Semana" + week + ".json"
}

// OutputPath joins dir and the delivery's file name.
func OutputPath(dir string, p Payload) string {
	return filepath.Join(dir, FileName(p.Kind, p.Cycle))
}
