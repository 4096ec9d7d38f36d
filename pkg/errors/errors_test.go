package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeNoDeliveryPartner, status: http.StatusServiceUnavailable, publicMsg: "no delivery partner available", retryable: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.publicMsg, meta.PublicMessage)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing foo", base.Message())
	assert.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "foo"})
	assert.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAsAndIsCodeFollowWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNoDeliveryPartner, "none"))
	got := As(err)
	require.NotNil(t, got)
	assert.Equal(t, CodeNoDeliveryPartner, got.Code())
	assert.True(t, IsCode(err, CodeNoDeliveryPartner))
	assert.False(t, IsCode(err, CodeConflict))
	assert.Nil(t, As(nil))
}

func TestIsCodeSeesInnerTypedErrors(t *testing.T) {
	inner := New(CodeNotFound, "product not found")
	outer := Wrap(CodeValidation, inner, "order line rejected")

	assert.Equal(t, CodeValidation, CodeOf(outer))
	assert.True(t, IsCode(outer, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", New(CodeNoDeliveryPartner, "all partners busy"))
	assert.ErrorIs(t, err, New(CodeNoDeliveryPartner, ""))
	assert.NotErrorIs(t, err, New(CodeConflict, ""))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeNoDeliveryPartner, "busy")))
	assert.True(t, IsRetryable(stdErrors.New("untyped")))
	assert.False(t, IsRetryable(New(CodeStateConflict, "already delivered")))
	assert.False(t, IsRetryable(nil))
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeNotFound, nil, "order not found")
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "NOT_FOUND: order not found", err.Error())
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "products_stock_qty_check", TableName: "products", Message: "check violation"}
	dump := Dump(Wrap(CodeDependency, pgErr, "decrement stock"))

	assert.Equal(t, CodeDependency, dump.Code)
	assert.Equal(t, "23514", dump.PGCode)
	assert.Equal(t, "products_stock_qty_check", dump.PGConstraint)
	assert.Equal(t, "products", dump.PGTable)
	assert.Len(t, dump.Chain, 2)
}

func TestDumpFieldsClassifyPostgresErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	fields := Dump(Wrap(CodeDependency, pgErr, "accept delivery")).Fields()

	assert.Equal(t, "40001", fields["pg_code"])
	assert.Equal(t, "transaction_rollback", fields["pg_class"])
	assert.NotContains(t, fields, "pg_table")

	plain := Dump(New(CodeConflict, "delivery request no longer available")).Fields()
	assert.NotContains(t, plain, "pg_code")
	assert.Equal(t, CodeConflict, plain["error_code"])
}
