package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrParse wraps input that is not well-formed JSON.
	ErrParse = errors.New("document is not valid JSON")
	// ErrAppMismatch is returned for documents written by another application.
	ErrAppMismatch = errors.New("document was not created by " + AppName)
)

// ValidationError describes a structurally invalid document or catalog
// entry. Field is the JSON path of the offending value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid document: " + e.Reason
	}
	return fmt.Sprintf("invalid document: %s: %s", e.Field, e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a catalog entry (node type, edge type, label, tangible,
// reference) against its field rules.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return toValidationError(err)
	}
	if t, ok := v.(TangibleConfig); ok {
		return validateTangible(t)
	}
	if t, ok := v.(*TangibleConfig); ok {
		return validateTangible(*t)
	}
	return nil
}

func validateTangible(t TangibleConfig) error {
	if t.IsStateBound() && t.StateID == "" {
		return &ValidationError{Field: "stateId", Reason: "required for mode " + string(t.Mode)}
	}
	return nil
}

func toValidationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: trimNamespace(fe.Namespace()), Reason: reason}
	}
	return &ValidationError{Reason: err.Error()}
}

// trimNamespace drops the root struct name validator prefixes onto paths.
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// envelope is the minimum shape a document must have to be loadable.
// Pointers distinguish absent fields from zero values.
type envelope struct {
	Metadata *struct {
		Version   *string `json:"version" validate:"required"`
		AppName   *string `json:"appName" validate:"required"`
		CreatedAt *string `json:"createdAt" validate:"required"`
		UpdatedAt *string `json:"updatedAt" validate:"required"`
	} `json:"metadata" validate:"required"`
	NodeTypes *[]json.RawMessage `json:"nodeTypes" validate:"required"`
	EdgeTypes *[]json.RawMessage `json:"edgeTypes" validate:"required"`
	Timeline  *struct {
		States         json.RawMessage `json:"states" validate:"required"`
		CurrentStateID *string         `json:"currentStateId" validate:"required"`
		RootStateID    *string         `json:"rootStateId" validate:"required"`
	} `json:"timeline" validate:"required"`
}

// ParseDocument decodes and validates a serialized document. The
// envelope, metadata strings, catalog arrays and timeline identifiers are
// validated here; state graphs are left undecoded.
func ParseDocument(data []byte) (*ConstellationDocument, error) {
	if !json.Valid(data) {
		return nil, ErrParse
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, decodeError(err)
	}
	if err := validate.Struct(&env); err != nil {
		return nil, toValidationError(err)
	}
	if *env.Metadata.AppName != AppName {
		return nil, fmt.Errorf("%w (appName %q)", ErrAppMismatch, *env.Metadata.AppName)
	}
	var doc ConstellationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, decodeError(err)
	}
	doc.Normalize()
	return &doc, nil
}

func decodeError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return &ValidationError{Field: te.Field, Reason: "expected " + te.Type.String() + ", got " + te.Value}
	}
	return &ValidationError{Reason: err.Error()}
}

// MarshalDocument encodes a document for storage or export.
func MarshalDocument(doc *ConstellationDocument, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
