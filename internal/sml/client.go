package sml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"smpd/pkg/domain"
)

// Client is the HTTP implementation of RegistrationHook and MigrationClient
// against the directory's manage-participant endpoint. It is stateless and
// safe for concurrent use; timeouts belong to the injected http.Client.
type Client struct {
	baseURL string
	smpID   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a directory client. The SMP ID identifies this instance
// in every directory call.
func NewClient(baseURL, smpID string, httpc *http.Client, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, smpID: smpID, httpc: httpc, logger: logger}
}

type participantRequest struct {
	SMPID         string `json:"smp_id"`
	ParticipantID string `json:"participant_id"`
	MigrationKey  string `json:"migration_key,omitempty"`
}

type prepareResponse struct {
	MigrationKey string `json:"migration_key"`
}

func (c *Client) CreateServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error {
	c.logger.InfoContext(ctx, "registering participant in SML",
		"participant", participantID.URIEncoded(), "smp_id", c.smpID)
	return c.call(ctx, "create", "/manageparticipant/create", participantRequest{
		SMPID:         c.smpID,
		ParticipantID: participantID.URIEncoded(),
	}, nil)
}

// UndoCreateServiceGroup rolls back a registration after the local insert
// failed. On the wire it is a delete.
func (c *Client) UndoCreateServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error {
	c.logger.WarnContext(ctx, "local create failed, deleting participant from SML again",
		"participant", participantID.URIEncoded(), "smp_id", c.smpID)
	return c.call(ctx, "undo-create", "/manageparticipant/delete", participantRequest{
		SMPID:         c.smpID,
		ParticipantID: participantID.URIEncoded(),
	}, nil)
}

func (c *Client) DeleteServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error {
	c.logger.InfoContext(ctx, "deleting participant from SML",
		"participant", participantID.URIEncoded(), "smp_id", c.smpID)
	return c.call(ctx, "delete", "/manageparticipant/delete", participantRequest{
		SMPID:         c.smpID,
		ParticipantID: participantID.URIEncoded(),
	}, nil)
}

// UndoDeleteServiceGroup restores a registration after the local delete
// failed. On the wire it is a create.
func (c *Client) UndoDeleteServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error {
	c.logger.WarnContext(ctx, "local delete failed, re-registering participant in SML",
		"participant", participantID.URIEncoded(), "smp_id", c.smpID)
	return c.call(ctx, "undo-delete", "/manageparticipant/create", participantRequest{
		SMPID:         c.smpID,
		ParticipantID: participantID.URIEncoded(),
	}, nil)
}

// PrepareToMigrate generates a migration key, announces it to the directory
// and returns it. The directory may answer with its own key, which then wins.
func (c *Client) PrepareToMigrate(ctx context.Context, participantID domain.ParticipantIdentifier, smpID string) (string, error) {
	key := GenerateMigrationKey()
	var resp prepareResponse
	err := c.call(ctx, "prepare-to-migrate", "/manageparticipant/prepare-migrate", participantRequest{
		SMPID:         smpID,
		ParticipantID: participantID.URIEncoded(),
		MigrationKey:  key,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.MigrationKey != "" {
		key = resp.MigrationKey
	}
	c.logger.InfoContext(ctx, "prepared participant migration in SML",
		"participant", participantID.URIEncoded(), "smp_id", smpID)
	return key, nil
}

func (c *Client) Migrate(ctx context.Context, participantID domain.ParticipantIdentifier, migrationKey, smpID string) error {
	err := c.call(ctx, "migrate", "/manageparticipant/migrate", participantRequest{
		SMPID:         smpID,
		ParticipantID: participantID.URIEncoded(),
		MigrationKey:  migrationKey,
	}, nil)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "migrated participant to this SMP in SML",
		"participant", participantID.URIEncoded(), "smp_id", smpID)
	return nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload participantRequest, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return newFault(FaultTransport, operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return newFault(FaultTransport, operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return newFault(FaultTransport, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Keep a slice of the body for diagnostics.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			return newFault(FaultBadRequest, operation, cause)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return newFault(FaultUnauthorized, operation, cause)
		case resp.StatusCode == http.StatusNotFound:
			return newFault(FaultNotFound, operation, cause)
		default:
			return newFault(FaultInternalError, operation, cause)
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return newFault(FaultTransport, operation, err)
		}
	}
	return nil
}
