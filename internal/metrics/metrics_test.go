package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordContractCall(t *testing.T) {
	before := testutil.ToFloat64(contractCalls.WithLabelValues("append", "true"))
	RecordContractCall("append", true)
	assert.Equal(t, before+1, testutil.ToFloat64(contractCalls.WithLabelValues("append", "true")))
}

func TestSetRecordCount(t *testing.T) {
	SetRecordCount(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(recordCount))
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), func(*http.Request) string { return "/teapot" })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/teapot", "418"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teapot?x=1", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/teapot", "418")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordValueTransfer(true)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "transfer_ledger_native_transfers_total"))
}
