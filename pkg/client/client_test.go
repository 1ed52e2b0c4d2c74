package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundpool/fundpool/pkg/client"
)

var ctx = context.Background()

func TestOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/pool" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"owner":"owner","balance":"0","contributor_count":0,"minimum_usd_threshold":"5000000000000000000","cycle":1,"oracle_schema_version":4}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	overview, err := c.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if overview.Owner != "owner" || overview.Cycle != 1 {
		t.Errorf("unexpected overview: %+v", overview)
	}
}

func TestDeposit_sendsTokenAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/pool/deposits" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"contributor":"alice","amount":"100000000000000000","total":"100000000000000000"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok123"))
	res, err := c.Deposit(ctx, "0.1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != "100000000000000000" {
		t.Errorf("total = %s", res.Total)
	}
}

func TestDeposit_apiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"contribution below minimum USD threshold"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))
	_, err := c.Deposit(ctx, "0.000001")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestWithdraw_compactFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		if err := jsonDecode(r, &body); err != nil {
			t.Fatal(err)
		}
		if !body["compact"] {
			t.Error("compact flag not sent")
		}
		w.Write([]byte(`{"owner":"owner","payout":"5","cycle":2}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))
	res, err := c.Withdraw(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cycle != 2 {
		t.Errorf("cycle = %d", res.Cycle)
	}
}

func TestContribution_zeroForStranger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"identity":"stranger","amount":"0"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	amount, err := client.New(srv.URL).Contribution(ctx, "stranger")
	if err != nil {
		t.Fatal(err)
	}
	if amount != "0" {
		t.Errorf("amount = %q, want 0", amount)
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close() //nolint:errcheck
	return json.NewDecoder(r.Body).Decode(v)
}
