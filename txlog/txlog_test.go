package txlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
	"github.com/cyberkelysoatra/bazarkely-sub000/service"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseAddr:             server.URL,
		HTTPMaxRetries:       1,
		HTTPMinRetryDuration: time.Millisecond,
		HTTPMaxRetryDuration: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestRecordEntry(t *testing.T) {
	t.Parallel()

	var received entryRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/entries", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(entryResponse{ID: "tx-42"}))
	})

	id, err := client.RecordEntry(context.Background(), service.TransactionEntry{
		Kind:        service.TransactionKindLoanRepaid,
		LoanID:      "loan-1",
		MemberID:    "lender",
		Amount:      ledger.NewAmount(45000, "MGA"),
		Date:        time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		Description: "first payment",
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-42", id)
	assert.Equal(t, service.TransactionKindLoanRepaid, received.Kind)
	assert.Equal(t, int64(45000), received.Amount)
	assert.Equal(t, "MGA", received.Currency)
}

func TestRecordEntryServerError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.RecordEntry(context.Background(), service.TransactionEntry{Kind: service.TransactionKindLoanCreated})
	assert.Error(t, err)
}

func TestRecordEntryRejectsEmptyID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(entryResponse{}))
	})

	_, err := client.RecordEntry(context.Background(), service.TransactionEntry{Kind: service.TransactionKindLoanCreated})
	assert.Error(t, err)
}

func TestRecordEntryRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(entryResponse{ID: "tx-1"}))
	})

	id, err := client.RecordEntry(context.Background(), service.TransactionEntry{Kind: service.TransactionKindLoanCreated})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", id)
	assert.Equal(t, 2, attempts)
}
