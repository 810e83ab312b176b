package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arqnet/arq"
)

type discardOutput struct{}

func (discardOutput) WriteSegment(b []byte) (int, error) { return len(b), nil }

func TestStatusListsRegisteredSessions(t *testing.T) {
	s := NewServer(nil)
	cb := arq.NewControlBlock(42, discardOutput{})
	s.Register(SessionInfo{Conv: 42, Peer: "1.2.3.4:9000", CB: cb})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []statusEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.EqualValues(t, 42, entries[0].Conv)
	assert.Equal(t, "1.2.3.4:9000", entries[0].Peer)
}

func TestStatusOneReturnsNotFoundForUnknownConv(t *testing.T) {
	s := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/status/999", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOneReturnsSessionByConv(t *testing.T) {
	s := NewServer(nil)
	cb := arq.NewControlBlock(7, discardOutput{})
	s.Register(SessionInfo{Conv: 7, Peer: "peer", CB: cb})

	req := httptest.NewRequest(http.MethodGet, "/status/7", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var entry statusEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.EqualValues(t, 7, entry.Conv)
}

func TestUnregisterRemovesSession(t *testing.T) {
	s := NewServer(nil)
	cb := arq.NewControlBlock(1, discardOutput{})
	s.Register(SessionInfo{Conv: 1, CB: cb})
	s.Unregister(1)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var entries []statusEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}
