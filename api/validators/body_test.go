package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
)

type line struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type placeOrder struct {
	Items   []line  `json:"items" validate:"required,min=1,dive"`
	Pincode *string `json:"pincode,omitempty" validate:"omitempty,pincode"`
	Status  string  `json:"status,omitempty" validate:"omitempty,order_status"`
	Payment string  `json:"payment_method,omitempty" validate:"omitempty,payment_method"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidOrder(t *testing.T) {
	var dest placeOrder
	err := DecodeJSONBody(postJSON(`{"items":[{"product_id":"6f1d3c1e-8e0b-4d3a-9c55-0f6f1e0c2a11","quantity":2}],"pincode":"560001","status":"confirmed","payment_method":"COD"}`), &dest)
	require.NoError(t, err)
	assert.Equal(t, 2, dest.Items[0].Quantity)
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	var dest placeOrder
	err := DecodeJSONBody(postJSON(`{"items":[{"product_id":"nope","quantity":0}],"pincode":"56-01"}`), &dest)

	details := detailsOf(t, err)
	assert.Equal(t, "must be a UUID", details["items[0].product_id"])
	assert.Equal(t, "is required", details["items[0].quantity"])
	assert.Equal(t, "must be 4 to 10 digits", details["pincode"])
}

func TestDecodeJSONBodyRejectsUnknownStatusAndPayment(t *testing.T) {
	var dest placeOrder
	err := DecodeJSONBody(postJSON(`{"items":[{"product_id":"6f1d3c1e-8e0b-4d3a-9c55-0f6f1e0c2a11","quantity":1}],"status":"teleported","payment_method":"barter"}`), &dest)

	details := detailsOf(t, err)
	assert.Equal(t, "is not a known order status", details["status"])
	assert.Equal(t, "is not a supported payment method", details["payment_method"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"trailing": `{"items":[]} {"items":[]}`,
		"unknown":  `{"items":[],"tip":5}`,
		"syntax":   `{"items":`,
		"type":     `{"items":"many"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest placeOrder
			err := DecodeJSONBody(postJSON(body), &dest)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	big := `{"items":[],"status":"` + strings.Repeat("a", int(MaxBodyBytes)) + `"}`
	var dest placeOrder
	err := DecodeJSONBody(postJSON(big), &dest)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "request body too large", typed.Message())
}
