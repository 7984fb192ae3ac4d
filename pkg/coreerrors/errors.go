// Package coreerrors provides the coded error type shared by every core
// component, per the error kinds named in spec.md §7.
package coreerrors

import (
	"fmt"
	"net/http"
)

// Kind is one of the error kinds named in spec.md §7.
type Kind string

const (
	KindOntology      Kind = "ONTOLOGY"
	KindSchema        Kind = "SCHEMA"
	KindStore         Kind = "STORE"
	KindParameter     Kind = "PARAMETER"
	KindUnitConvert   Kind = "UNIT_CONVERSION"
	KindSerialization Kind = "SERIALIZATION"
	KindPermission    Kind = "PERMISSION"
	KindPersistence   Kind = "PERSISTENCE"
)

// Code is a specific, stable identifier within a Kind.
type Code string

const (
	CodeUnknownPrefix      Code = "ONTOLOGY_UNKNOWN_PREFIX"
	CodeUnknownClass       Code = "ONTOLOGY_UNKNOWN_CLASS"
	CodeCyclicOntology     Code = "ONTOLOGY_CYCLIC"
	CodeInvalidQName       Code = "ONTOLOGY_INVALID_QNAME"
	CodeFieldNotRepresent  Code = "SCHEMA_FIELD_NOT_REPRESENTABLE"
	CodeInverseMissingProp Code = "SCHEMA_INVERSE_MISSING_PROPERTY"
	CodeDuplicateOID       Code = "STORE_DUPLICATE_OID"
	CodeDeleteRefused      Code = "STORE_DELETE_REFUSED"
	CodeUnknownParameter   Code = "PARAMETER_UNKNOWN"
	CodeComputedParameter  Code = "PARAMETER_COMPUTED_READONLY"
	CodeCastFailed         Code = "PARAMETER_CAST_FAILED"
	CodeUnitIncompatible   Code = "UNIT_INCOMPATIBLE_DIMENSION"
	CodeUnknownClassTag    Code = "SERIALIZATION_UNKNOWN_CLASS_TAG"
	CodeMissingReferent    Code = "SERIALIZATION_MISSING_REFERENT"
	CodeReadFailed         Code = "PERSISTENCE_READ_FAILED"
	CodeWriteFailed        Code = "PERSISTENCE_WRITE_FAILED"
	CodeInvalidAssertion   Code = "PERMISSION_INVALID_ASSERTION"
)

// CoreError is the single structured error type every component returns.
type CoreError struct {
	Kind       Kind
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *CoreError) Unwrap() error { return e.Err }

// WithDetail attaches a diagnostic key/value and returns the receiver.
func (e *CoreError) WithDetail(key string, value interface{}) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newErr(kind Kind, code Code, message string, status int) *CoreError {
	return &CoreError{Kind: kind, Code: code, Message: message, HTTPStatus: status}
}

func wrapErr(kind Kind, code Code, message string, status int, err error) *CoreError {
	return &CoreError{Kind: kind, Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Ontology errors (§4.1)

func UnknownPrefix(prefix string) *CoreError {
	return newErr(KindOntology, CodeUnknownPrefix, "unknown namespace prefix", http.StatusUnprocessableEntity).
		WithDetail("prefix", prefix)
}

func UnknownClass(cname string) *CoreError {
	return newErr(KindOntology, CodeUnknownClass, "unknown base class", http.StatusUnprocessableEntity).
		WithDetail("class", cname)
}

func CyclicOntology(stalled []string) *CoreError {
	return newErr(KindOntology, CodeCyclicOntology, "class build order could not complete", http.StatusUnprocessableEntity).
		WithDetail("stalled_classes", stalled)
}

func InvalidQName(qname string) *CoreError {
	return newErr(KindOntology, CodeInvalidQName, "malformed qualified name", http.StatusBadRequest).
		WithDetail("qname", qname)
}

// Schema errors (§4.1)

func FieldNotRepresentable(field, cname string) *CoreError {
	return newErr(KindSchema, CodeFieldNotRepresent, "field type is not representable", http.StatusUnprocessableEntity).
		WithDetail("field", field).WithDetail("class", cname)
}

func InverseMissingProperty(propertyID string) *CoreError {
	return newErr(KindSchema, CodeInverseMissingProp, "inverse property refers to a missing property", http.StatusUnprocessableEntity).
		WithDetail("property_id", propertyID)
}

// Store errors (§4.2)

func DuplicateOID(oid string) *CoreError {
	return newErr(KindStore, CodeDuplicateOID, "object already exists", http.StatusConflict).
		WithDetail("oid", oid)
}

func DeleteRefused(oid, reason string) *CoreError {
	return newErr(KindStore, CodeDeleteRefused, "delete refused: "+reason, http.StatusConflict).
		WithDetail("oid", oid)
}

// Parameter errors (§4.3.2)

func UnknownParameter(pid string) *CoreError {
	return newErr(KindParameter, CodeUnknownParameter, "unknown parameter id", http.StatusNotFound).
		WithDetail("parameter_id", pid)
}

func ComputedParameter(pid string) *CoreError {
	return newErr(KindParameter, CodeComputedParameter, "parameter is computed and cannot be set directly", http.StatusConflict).
		WithDetail("parameter_id", pid)
}

func CastFailed(pid, raw string, err error) *CoreError {
	return wrapErr(KindParameter, CodeCastFailed, "failed to cast value to declared datatype", http.StatusBadRequest, err).
		WithDetail("parameter_id", pid).WithDetail("raw_value", raw)
}

// Unit conversion errors (§4.3.2, informational fallback to SI)

func UnitIncompatible(dimension, unit string, err error) *CoreError {
	return wrapErr(KindUnitConvert, CodeUnitIncompatible, "unit incompatible with dimension, falling back to SI", http.StatusUnprocessableEntity, err).
		WithDetail("dimension", dimension).WithDetail("unit", unit)
}

// Serialization errors (§4.4)

func UnknownClassTag(cname string) *CoreError {
	return newErr(KindSerialization, CodeUnknownClassTag, "unknown class tag during deserialize", http.StatusUnprocessableEntity).
		WithDetail("class", cname)
}

func MissingReferent(oid string) *CoreError {
	return newErr(KindSerialization, CodeMissingReferent, "missing referent during cascade", http.StatusUnprocessableEntity).
		WithDetail("oid", oid)
}

// Permission errors (§4.5) — informational, not raised; returned alongside
// a permission set rather than aborting the caller.

func InvalidAssertion(reason string, err error) *CoreError {
	return wrapErr(KindPermission, CodeInvalidAssertion, "session assertion missing or invalid: "+reason, http.StatusUnauthorized, err).
		WithDetail("reason", reason)
}

// Persistence errors (§4.6) — status codes, not hard failures, per §7 policy.

type PersistenceStatus string

const (
	PersistenceSuccess  PersistenceStatus = "success"
	PersistenceNotFound PersistenceStatus = "not found"
	PersistenceFail     PersistenceStatus = "fail"
)

func ReadFailed(path string, err error) *CoreError {
	return wrapErr(KindPersistence, CodeReadFailed, "snapshot read failed", http.StatusInternalServerError, err).
		WithDetail("path", path)
}

func WriteFailed(path string, err error) *CoreError {
	return wrapErr(KindPersistence, CodeWriteFailed, "snapshot write failed", http.StatusInternalServerError, err).
		WithDetail("path", path)
}
