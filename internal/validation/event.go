// Package validation turns raw POST /api/events bodies into well-typed
// event inputs, or rejects them with field-level violations.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/PratikDhanave/web-analytics-service/internal/apperrors"
	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

// eventPayload is the closed schema of an ingested event.
type eventPayload struct {
	SessionID        string              `json:"session_id" validate:"required"`
	EventType        string              `json:"event_type" validate:"required,oneof=page_view click"`
	PageURL          string              `json:"page_url" validate:"required"`
	Timestamp        json.RawMessage     `json:"timestamp"`
	ClickCoordinates *coordinatesPayload `json:"click_coordinates"`
}

type coordinatesPayload struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// Layouts accepted for string timestamps, tried in order. Zone-less
// layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseEvent decodes and validates one event payload. Any violation
// rejects the whole payload with an *apperrors.ValidationError.
func ParseEvent(body []byte) (models.EventInput, error) {
	var p eventPayload
	if v := decodeStrict(body, &p); v != nil {
		return models.EventInput{}, &apperrors.ValidationError{Violations: []apperrors.FieldViolation{*v}}
	}

	var violations []apperrors.FieldViolation
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.EventInput{}, err
		}
		for _, fe := range verrs {
			violations = append(violations, apperrors.FieldViolation{
				Field:   fieldPath(fe.Namespace()),
				Message: ruleMessage(fe),
			})
		}
	}

	ts, tsViolation := parseTimestamp(p.Timestamp)
	if tsViolation != nil {
		violations = append(violations, *tsViolation)
	}

	// The click_coordinates/event_type coupling is only enforced here.
	switch models.EventType(p.EventType) {
	case models.EventTypeClick:
		if p.ClickCoordinates == nil {
			violations = append(violations, apperrors.FieldViolation{
				Field:   "click_coordinates",
				Message: "is required when event_type is click",
			})
		}
	case models.EventTypePageView:
		if p.ClickCoordinates != nil {
			violations = append(violations, apperrors.FieldViolation{
				Field:   "click_coordinates",
				Message: "must be absent unless event_type is click",
			})
		}
	}

	if len(violations) > 0 {
		return models.EventInput{}, &apperrors.ValidationError{Violations: violations}
	}

	in := models.EventInput{
		SessionID: p.SessionID,
		EventType: models.EventType(p.EventType),
		PageURL:   p.PageURL,
		Timestamp: ts,
	}
	if p.ClickCoordinates != nil {
		in.ClickCoordinates = &models.ClickCoordinates{
			X: *p.ClickCoordinates.X,
			Y: *p.ClickCoordinates.Y,
		}
	}
	return in, nil
}

// decodeStrict decodes exactly one JSON object, rejecting unknown fields.
func decodeStrict(body []byte, dst any) *apperrors.FieldViolation {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeViolation(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &apperrors.FieldViolation{Message: "request body must contain a single JSON object"}
	}
	return nil
}

func decodeViolation(err error) *apperrors.FieldViolation {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.Is(err, io.EOF):
		return &apperrors.FieldViolation{Message: "request body is required"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &apperrors.FieldViolation{Message: "malformed JSON: " + err.Error()}
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return &apperrors.FieldViolation{Message: "request body must be a JSON object"}
		}
		return &apperrors.FieldViolation{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("expected %s, received %s", jsonKind(typeErr.Type), typeErr.Value),
		}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.TrimPrefix(err.Error(), "json: unknown field ")
		if unquoted, uerr := strconv.Unquote(name); uerr == nil {
			name = unquoted
		}
		return &apperrors.FieldViolation{Field: name, Message: "unrecognized field"}
	default:
		return &apperrors.FieldViolation{Message: err.Error()}
	}
}

func parseTimestamp(raw json.RawMessage) (*time.Time, *apperrors.FieldViolation) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	invalid := &apperrors.FieldViolation{Field: "timestamp", Message: "must be a valid date"}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid
		}
		s = strings.TrimSpace(s)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				if !encodableYear(t) {
					return nil, invalid
				}
				return &t, nil
			}
		}
		return nil, invalid
	}

	// Numbers are epoch milliseconds.
	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return nil, invalid
	}
	t := time.UnixMilli(int64(ms)).UTC()
	if !encodableYear(t) {
		return nil, invalid
	}
	return &t, nil
}

// maxEpochMillis is the widest range an ECMAScript Date accepts.
const maxEpochMillis = 8.64e15

// encodableYear reports whether t survives RFC 3339 JSON encoding.
func encodableYear(t time.Time) bool {
	return t.Year() >= 1 && t.Year() <= 9999
}

func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "value"
		}
		return "array"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	default:
		return t.Kind().String()
	}
}
