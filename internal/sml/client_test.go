package sml

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"smpd/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientPID(t *testing.T) domain.ParticipantIdentifier {
	t.Helper()
	pid, err := domain.NewParticipantIdentifier("iso6523-actorid-upis", "9915:sml-client")
	require.NoError(t, err)
	return pid
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientCreateServiceGroup(t *testing.T) {
	var got participantRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
	require.NoError(t, c.CreateServiceGroup(context.Background(), clientPID(t)))

	assert.Equal(t, "/manageparticipant/create", gotPath)
	assert.Equal(t, "SMP-TEST-001", got.SMPID)
	assert.Equal(t, "iso6523-actorid-upis::9915:sml-client", got.ParticipantID)
	assert.Empty(t, got.MigrationKey)
}

func TestClientUndoOperationsSwapEndpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
	ctx := context.Background()
	pid := clientPID(t)

	require.NoError(t, c.UndoCreateServiceGroup(ctx, pid))
	require.NoError(t, c.DeleteServiceGroup(ctx, pid))
	require.NoError(t, c.UndoDeleteServiceGroup(ctx, pid))

	assert.Equal(t, []string{
		"/manageparticipant/delete",
		"/manageparticipant/delete",
		"/manageparticipant/create",
	}, paths)
}

func TestClientFaultMapping(t *testing.T) {
	tests := []struct {
		status int
		fault  Fault
	}{
		{http.StatusBadRequest, FaultBadRequest},
		{http.StatusUnauthorized, FaultUnauthorized},
		{http.StatusForbidden, FaultUnauthorized},
		{http.StatusNotFound, FaultNotFound},
		{http.StatusInternalServerError, FaultInternalError},
		{http.StatusBadGateway, FaultInternalError},
	}
	for _, tt := range tests {
		t.Run(string(tt.fault)+"_"+http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "directory said no", tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
			err := c.DeleteServiceGroup(context.Background(), clientPID(t))
			require.Error(t, err)

			var fault *Error
			require.ErrorAs(t, err, &fault)
			assert.Equal(t, tt.fault, fault.Fault)
			assert.Equal(t, "delete", fault.Operation)
			assert.Contains(t, fault.Error(), "directory said no")
		})
	}
}

func TestClientTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "SMP-TEST-001", nil, testLogger())
	err := c.CreateServiceGroup(context.Background(), clientPID(t))

	var fault *Error
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultTransport, fault.Fault)
}

func TestClientPrepareToMigrate(t *testing.T) {
	t.Run("directory key wins", func(t *testing.T) {
		var sent participantRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/manageparticipant/prepare-migrate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			json.NewEncoder(w).Encode(prepareResponse{MigrationKey: "xY9#directory-key"})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
		key, err := c.PrepareToMigrate(context.Background(), clientPID(t), "SMP-TEST-001")
		require.NoError(t, err)

		assert.Equal(t, "xY9#directory-key", key)
		assert.True(t, IsValidMigrationKey(sent.MigrationKey), "client offered key %q", sent.MigrationKey)
	})

	t.Run("empty response falls back to offered key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(prepareResponse{})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
		key, err := c.PrepareToMigrate(context.Background(), clientPID(t), "SMP-TEST-001")
		require.NoError(t, err)
		assert.True(t, IsValidMigrationKey(key))
	})

	t.Run("failure returns no key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unknown participant", http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
		key, err := c.PrepareToMigrate(context.Background(), clientPID(t), "SMP-TEST-001")
		require.Error(t, err)
		assert.Empty(t, key)
	})
}

func TestClientMigrate(t *testing.T) {
	var sent participantRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manageparticipant/migrate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "SMP-TEST-001", srv.Client(), testLogger())
	require.NoError(t, c.Migrate(context.Background(), clientPID(t), "aB3#migrate", "SMP-TEST-001"))

	assert.Equal(t, "aB3#migrate", sent.MigrationKey)
	assert.Equal(t, "SMP-TEST-001", sent.SMPID)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newFault(FaultInternalError, "create", cause)
	assert.ErrorIs(t, err, cause)
}
