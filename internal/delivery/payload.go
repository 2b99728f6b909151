// Package delivery assembles mapped records into the regulator's top-level
// delivery documents and reads them back for upload.
package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spazos-ar/etl-ssn/internal/mapper"
	"github.com/spazos-ar/etl-ssn/internal/types"
	"github.com/spazos-ar/etl-ssn/internal/validation"
)

// Payload is one delivery document.
type Payload struct {
	Company string
	Kind    types.DeliveryKind
	Cycle   string
	Records []mapper.Record
}

// WithCompany returns a copy of p reporting for company. An empty company
// leaves p unchanged.
func (p Payload) WithCompany(company string) Payload {
	if company != "" {
		p.Company = company
	}
	return p
}

// MarshalJSON writes the header keys followed by the record list, in the
// order the regulator documents them.
func (p Payload) MarshalJSON() ([]byte, error) {
	records := p.Records
	if records == nil {
		records = []mapper.Record{}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	fields := []struct {
		key   string
		value any
	}{
		{"CODIGOCOMPANIA", p.Company},
		{"TIPOENTREGA", p.Kind.Tag()},
		{"CRONOGRAMA", p.Cycle},
		{p.Kind.RecordsKey(), records},
	}
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		fmt.Fprintf(&buf, "%q:", f.key)
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a delivery document. The kind follows the record key
// present (STOCKS or OPERACIONES).
func (p *Payload) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	p.Company = scalar(doc["CODIGOCOMPANIA"])
	p.Cycle = scalar(doc["CRONOGRAMA"])

	key := types.Weekly.RecordsKey()
	p.Kind = types.Weekly
	if _, ok := doc[types.Monthly.RecordsKey()]; ok {
		key = types.Monthly.RecordsKey()
		p.Kind = types.Monthly
	}

	p.Records = []mapper.Record{}
	if raw, ok := doc[key]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p.Records); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// scalar renders a JSON string or number as text.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// LoadPayload reads and validates the delivery document at path.
func LoadPayload(path string, kind types.DeliveryKind) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := validation.ValidateDocument(data, kind); err != nil {
		return Payload{}, fmt.Errorf("%s: %w", path, err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	p.Kind = kind
	return p, nil
}
