package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/netx"
	"github.com/dmitrijs2005/docgate/internal/server/models"
)

const commandPath = "/coauthoring/CommandService.ashx"

// ForceSaveResult echoes what the command service answered. Response is
// the decoded JSON body, or {"raw": body} when it is not JSON.
type ForceSaveResult struct {
	DocumentServerURL string `json:"document_server_url"`
	CommandURL        string `json:"command_url"`
	ResponseStatus    int    `json:"response_status"`
	Response          any    `json:"response"`
}

// ForceSave asks the document server to flush the open session for docKey.
// An empty docKey means the asset's current key. The command is sent
// outside the asset lock: the server may call back before it answers.
func (s *Service) ForceSave(ctx context.Context, scope models.AssetScope, docKey string) (*ForceSaveResult, error) {
	asset, err := s.assets.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	if docKey == "" {
		docKey = DocKey(asset)
	}

	log := s.logger.With("asset_id", asset.ID, "doc_key", docKey)

	payload := map[string]any{"c": "forcesave", "key": docKey}
	headers := map[string]string{}
	if s.tokens.Enabled() {
		token, err := s.tokens.SignPayload(payload)
		if err != nil {
			return nil, fmt.Errorf("sign command: %w", err)
		}
		headers[s.tokens.Header()] = "Bearer " + token
	}

	commandURL := s.documentServerURL() + commandPath
	resp, sendErr := netx.PostJSON(ctx, s.command, commandURL, payload, headers)

	now := s.now()
	err = s.locker.WithLock(ctx, assetLockKey(scope.AssetID), func(ctx context.Context) error {
		// Re-read so a save that landed meanwhile is not overwritten.
		current, err := s.assets.Get(ctx, scope)
		if err != nil {
			return err
		}
		patch := models.StatePatch{ForcesaveRequestedAt: &now, ForcesaveDocKey: &docKey}
		if sendErr != nil {
			msg := "forcesave failed: " + sendErr.Error()
			patch = models.StatePatch{Error: &msg}
		}
		current.Attributes.Gateway.Merge(patch)
		return s.assets.UpdateAttributes(ctx, current)
	})
	if err != nil {
		log.Error(ctx, "failed to record forcesave", "error", err)
		if sendErr == nil {
			s.metrics.ObserveForceSave(OutcomeFailed)
			return nil, err
		}
	}

	if sendErr != nil {
		log.Error(ctx, "forcesave failed", "error", sendErr)
		s.metrics.ObserveForceSave(OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamFetchFailed, sendErr)
	}

	log.Info(ctx, "forcesave requested", "response_status", resp.StatusCode)
	s.metrics.ObserveForceSave(OutcomeOK)
	return &ForceSaveResult{
		DocumentServerURL: s.documentServerURL(),
		CommandURL:        commandURL,
		ResponseStatus:    resp.StatusCode,
		Response:          decodeCommandResponse(resp.Body),
	}, nil
}

func decodeCommandResponse(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]any{"raw": string(body)}
	}
	return v
}
