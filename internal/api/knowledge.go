// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jeranaias/crewchat/internal/model"
)

// =============================================================================
// KNOWLEDGE BASES
// =============================================================================

// ListKnowledgeBases returns the knowledge bases of one agent.
func (c *Client) ListKnowledgeBases(ctx context.Context, agentName string) ([]model.KnowledgeBase, error) {
	var resp kbListResponse
	if err := c.getJSON(ctx, c.endpoint("api", "kb", "list", pathEscape(agentName)), &resp); err != nil {
		return nil, err
	}
	out := make([]model.KnowledgeBase, 0, len(resp.KnowledgeBases))
	for _, kb := range resp.KnowledgeBases {
		out = append(out, kb.toModel())
	}
	return out, nil
}

// CreateKnowledgeBase creates an empty knowledge base.
func (c *Client) CreateKnowledgeBase(ctx context.Context, name, description, agentName string) (model.KnowledgeBase, error) {
	var resp kbCreateResponse
	body := createKBRequest{Name: name, Description: description, AgentName: agentName}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("api", "kb", "create"), body, &resp); err != nil {
		return model.KnowledgeBase{}, err
	}
	if !resp.Success {
		return model.KnowledgeBase{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "knowledge base creation rejected"}
	}
	return resp.KnowledgeBase.toModel(), nil
}

// ListKBFiles returns the files of a knowledge base. File ids are the
// provider file ids, which is what DeleteKBFile expects.
func (c *Client) ListKBFiles(ctx context.Context, kbID int64) ([]model.KBFile, error) {
	var resp kbFilesResponse
	if err := c.getJSON(ctx, c.endpoint("api", "kb", strconv.FormatInt(kbID, 10), "files"), &resp); err != nil {
		return nil, err
	}
	out := make([]model.KBFile, 0, len(resp.Files))
	for _, f := range resp.Files {
		tags := f.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, model.KBFile{
			ID:         f.OpenAIFileID,
			Name:       f.FileName,
			Size:       f.FileSize,
			Type:       f.FileType,
			Tags:       tags,
			UploadedAt: parseTime(f.CreatedAt),
		})
	}
	return out, nil
}

// UploadKBFile uploads one file as multipart field "file".
func (c *Client) UploadKBFile(ctx context.Context, kbID int64, fileName string, content io.Reader, tags []string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to read upload", Cause: err}
	}
	if len(tags) > 0 {
		encoded, err := json.Marshal(tags)
		if err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to encode tags", Cause: err}
		}
		if err := mw.WriteField("tags", string(encoded)); err != nil {
			return &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
		}
	}
	if err := mw.Close(); err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}

	target := c.endpoint("api", "kb", strconv.FormatInt(kbID, 10), "upload")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ue uploadErrorResponse
		msg := fmt.Sprintf("Upload failed: %d", resp.StatusCode)
		if json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&ue) == nil && ue.Error != "" {
			msg = ue.Error
		}
		return &ClientError{Type: ErrTypeStatus, Message: msg, StatusCode: resp.StatusCode}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
	c.log.Info("KB_FILE_UPLOADED", "kb", kbID, "file", fileName)
	return nil
}

// DeleteKBFile removes a file from a knowledge base.
func (c *Client) DeleteKBFile(ctx context.Context, kbID int64, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete,
		c.endpoint("api", "kb", strconv.FormatInt(kbID, 10), "files", pathEscape(fileID)), nil, nil)
}
