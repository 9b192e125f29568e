package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
)

var (
	// ErrInvalidBatch is the only error that rejects a whole batch.
	ErrInvalidBatch = errors.New("invalid visit batch")
	// ErrAmbiguousBatchShape is returned when a body carries both "visits" and "visit".
	ErrAmbiguousBatchShape = fmt.Errorf("%w: both \"visits\" and \"visit\" supplied", ErrInvalidBatch)
)

// BatchShape tags which of the accepted request layouts a body uses.
type BatchShape string

const (
	// ShapeVisitsEnvelope is {"visits": [...]} or {"visits": "<json array>"}.
	ShapeVisitsEnvelope BatchShape = "visits_envelope"
	// ShapeFlattenedList is {"visit": [...]} with visit fields and children side by side.
	ShapeFlattenedList BatchShape = "flattened_list"
	// ShapeBareList is a top-level array of items.
	ShapeBareList BatchShape = "bare_list"
	// ShapeSingle is {"visit": {...}, "orders": [...], ...}.
	ShapeSingle BatchShape = "single"
)

// BatchInput is a request body resolved to exactly one shape.
type BatchInput struct {
	Shape BatchShape
	Raw   json.RawMessage
}

var childKeys = []string{"orders", "payments", "cooler_inspections", "survey"}

// ResolveBatchInput detects the body shape in fixed priority order.
func ResolveBatchInput(body []byte) (BatchInput, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return BatchInput{}, fmt.Errorf("%w: empty body", ErrInvalidBatch)
	}
	switch body[0] {
	case '[':
		return BatchInput{Shape: ShapeBareList, Raw: body}, nil
	case '{':
	default:
		return BatchInput{}, fmt.Errorf("%w: body must be a JSON object or array", ErrInvalidBatch)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return BatchInput{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	visits, hasVisits := obj["visits"]
	visit, hasVisit := obj["visit"]
	switch {
	case hasVisits && hasVisit:
		return BatchInput{}, ErrAmbiguousBatchShape
	case hasVisits:
		return BatchInput{Shape: ShapeVisitsEnvelope, Raw: visits}, nil
	case hasVisit:
		v := bytes.TrimSpace(visit)
		if len(v) > 0 && v[0] == '[' {
			return BatchInput{Shape: ShapeFlattenedList, Raw: v}, nil
		}
		if len(v) > 0 && v[0] == '{' {
			return BatchInput{Shape: ShapeSingle, Raw: body}, nil
		}
		return BatchInput{}, fmt.Errorf("%w: \"visit\" must be an object or array", ErrInvalidBatch)
	default:
		return BatchInput{}, fmt.Errorf("%w: expected \"visits\", \"visit\" or an array of items", ErrInvalidBatch)
	}
}

// ResolveBatchForm builds the batch from multipart form values. Values that
// are valid JSON are embedded as-is; anything else is kept as a string.
func ResolveBatchForm(values map[string]string) (BatchInput, error) {
	obj := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && json.Valid([]byte(v)) {
			obj[k] = json.RawMessage(v)
			continue
		}
		enc, err := json.Marshal(v)
		if err != nil {
			return BatchInput{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
		}
		obj[k] = enc
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return BatchInput{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return ResolveBatchInput(body)
}

// VisitItem is one canonical batch item. Err is set when the item could not
// be decoded; such an item fails on its own without affecting the batch.
type VisitItem struct {
	Index int
	Raw   json.RawMessage
	Input domainagg.UpsertVisitInput
	Err   error
}

// NormalizeVisitBatch materializes the canonical item list for in.
func NormalizeVisitBatch(in BatchInput) ([]VisitItem, error) {
	var raws []json.RawMessage
	switch in.Shape {
	case ShapeVisitsEnvelope:
		list, err := unwrapVisitsValue(in.Raw)
		if err != nil {
			return nil, err
		}
		raws = list
	case ShapeFlattenedList, ShapeBareList:
		if err := json.Unmarshal(in.Raw, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
		}
	case ShapeSingle:
		raws = []json.RawMessage{in.Raw}
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrInvalidBatch, in.Shape)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no visits supplied", ErrInvalidBatch)
	}

	items := make([]VisitItem, len(raws))
	for i, raw := range raws {
		items[i] = VisitItem{Index: i, Raw: raw}
		input, err := decodeVisitItem(raw)
		if err != nil {
			items[i].Err = domainagg.NewError(domainagg.CodeValidation, "visit.normalize", err.Error(), err)
			continue
		}
		items[i].Input = input
	}
	return items, nil
}

// unwrapVisitsValue accepts a JSON array or a string holding one.
func unwrapVisitsValue(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 || !json.Valid(raw) {
			return nil, fmt.Errorf("%w: \"visits\" is not valid JSON", ErrInvalidBatch)
		}
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: \"visits\" must be an array", ErrInvalidBatch)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return list, nil
}

type visitItemPayload struct {
	Visit             json.RawMessage                   `json:"visit"`
	Orders            []domainagg.OrderPatch            `json:"orders"`
	Payments          []domainagg.PaymentPatch          `json:"payments"`
	CoolerInspections []domainagg.CoolerInspectionPatch `json:"cooler_inspections"`
	Survey            domainagg.SurveyBlocks            `json:"survey"`
}

// decodeVisitItem reads either {"visit": {...}, children...} or a flattened
// object whose non-child keys are the visit fields.
func decodeVisitItem(raw json.RawMessage) (domainagg.UpsertVisitInput, error) {
	var out domainagg.UpsertVisitInput
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return out, fmt.Errorf("item must be a JSON object")
	}
	var payload visitItemPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return out, fmt.Errorf("decode item: %w", err)
	}

	visitRaw := bytes.TrimSpace(payload.Visit)
	if len(visitRaw) == 0 || string(visitRaw) == "null" {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return out, fmt.Errorf("decode item: %w", err)
		}
		for _, k := range childKeys {
			delete(fields, k)
		}
		flat, err := json.Marshal(fields)
		if err != nil {
			return out, fmt.Errorf("decode item: %w", err)
		}
		visitRaw = flat
	} else if visitRaw[0] != '{' {
		return out, fmt.Errorf("visit must be a JSON object")
	}

	if err := json.Unmarshal(visitRaw, &out.Visit); err != nil {
		return out, fmt.Errorf("decode visit: %w", err)
	}
	out.Orders = payload.Orders
	out.Payments = payload.Payments
	out.CoolerInspections = payload.CoolerInspections
	out.Survey = payload.Survey
	return out, nil
}
