package errors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/x402kit/x402/pkg/x402"
)

func TestWriteErrorSetsStatusAndBody(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, x402.CodeInsufficientPayment, "not enough", map[string]interface{}{"required": "0.10"})

	if rr.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Fatalf("got content-type %q", ct)
	}
	body := rr.Body.String()
	if body == "" {
		t.Fatal("expected a JSON body")
	}
}

func TestWriteSimpleErrorOmitsDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteSimpleError(rr, x402.CodeInvalidPaymentRequest, "bad request")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rr.Code)
	}
	if strings.Contains(rr.Body.String(), `"details"`) {
		t.Fatalf("expected no details field, got body %s", rr.Body.String())
	}
}
