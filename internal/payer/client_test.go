package payer

import (
	"net/http"
	"testing"
)

func TestValidateURL(t *testing.T) {
	c := &Client{allowLocal: false}

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https ok", "https://example.com/resource", false},
		{"http ok", "http://example.com/resource", false},
		{"ftp rejected", "ftp://example.com/resource", true},
		{"localhost rejected", "http://localhost:8080/resource", true},
		{"loopback ip rejected", "http://127.0.0.1/resource", true},
		{"private 10.x rejected", "http://10.0.0.5/resource", true},
		{"private 192.168.x rejected", "http://192.168.1.5/resource", true},
		{"private 172.16-31 rejected", "http://172.20.0.5/resource", true},
		{"172 outside private range ok", "http://172.64.0.5/resource", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.validateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL_AllowLocal(t *testing.T) {
	c := &Client{allowLocal: true}
	if err := c.validateURL("http://localhost:8080/resource"); err != nil {
		t.Errorf("expected localhost to be allowed, got %v", err)
	}
}

func TestPaymentRequired(t *testing.T) {
	c := &Client{}
	if !c.PaymentRequired(&http.Response{StatusCode: 402}) {
		t.Error("expected 402 to report payment required")
	}
	if c.PaymentRequired(&http.Response{StatusCode: 200}) {
		t.Error("expected 200 to not report payment required")
	}
}
