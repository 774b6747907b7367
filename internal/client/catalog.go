package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/validation"
)

// Cache lifetimes per resource kind.
const (
	TTLRecords = 5 * time.Minute
	TTLEntity  = 10 * time.Minute
	TTLProgram = 30 * time.Minute
	TTLFilters = 60 * time.Minute
)

// Page selects a window of the paginated experts endpoint.
type Page struct {
	Offset int
	Limit  int
}

// Program fetches program metadata.
func (c *Client) Program(ctx context.Context, programID string) (domain.Program, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return domain.Program{}, configError(ErrMissingProgramID)
	}
	body, err := c.FetchCached(ctx, ProgramKey(programID), programPath(programID), TTLProgram, RequestOptions{})
	if err != nil {
		return domain.Program{}, err
	}
	var attrs map[string]any
	if err := json.Unmarshal(body, &attrs); err != nil {
		c.drop(ctx, ProgramKey(programID))
		return domain.Program{}, decodeError("program", err)
	}
	if nested, ok := attrs["data"].(map[string]any); ok {
		attrs = nested
	}
	program := domain.Program{
		ID:          domain.Stringify(attrs["id"]),
		Name:        domain.Stringify(attrs["name"]),
		Description: domain.Stringify(attrs["description"]),
		Attributes:  attrs,
	}
	if program.ID == "" {
		program.ID = programID
	}
	return program, nil
}

// Experts fetches one page of records for a program.
func (c *Client) Experts(ctx context.Context, programID string, filters domain.Filters, page Page) (domain.ListResponse, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return domain.ListResponse{}, configError(ErrMissingProgramID)
	}
	query := filters.Values()
	if page.Limit > 0 {
		query.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		query.Set("offset", strconv.Itoa(page.Offset))
	}
	key := ExpertsKey(programID, query)
	body, err := c.FetchCached(ctx, key, programPath(programID)+"/experts", TTLRecords, RequestOptions{Query: query})
	if err != nil {
		return domain.ListResponse{}, err
	}
	if err := validation.ValidateListResponse(body); err != nil {
		c.drop(ctx, key)
		return domain.ListResponse{}, decodeError("experts", err)
	}
	var resp domain.ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.drop(ctx, key)
		return domain.ListResponse{}, decodeError("experts", err)
	}
	return resp, nil
}

// Expert fetches a single record.
func (c *Client) Expert(ctx context.Context, programID, expertID string) (domain.Record, error) {
	programID = strings.TrimSpace(programID)
	expertID = strings.TrimSpace(expertID)
	if programID == "" {
		return nil, configError(ErrMissingProgramID)
	}
	if expertID == "" {
		return nil, configError(ErrMissingRecordID)
	}
	key := "expert:" + programID + ":" + expertID
	body, err := c.FetchCached(ctx, key, programPath(programID)+"/experts/"+url.PathEscape(expertID), TTLEntity, RequestOptions{})
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.drop(ctx, key)
		return nil, decodeError("expert", err)
	}
	if nested, ok := payload["data"].(map[string]any); ok {
		payload = nested
	}
	return domain.Record(payload), nil
}

// FilterDefinitions fetches the filters a program advertises.
func (c *Client) FilterDefinitions(ctx context.Context, programID string) ([]domain.FilterDefinition, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return nil, configError(ErrMissingProgramID)
	}
	key := "filters:" + programID
	body, err := c.FetchCached(ctx, key, programPath(programID)+"/filters", TTLFilters, RequestOptions{})
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateFilterDefinitions(body); err != nil {
		c.drop(ctx, key)
		return nil, decodeError("filters", err)
	}
	var payload struct {
		Data []domain.FilterDefinition `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.drop(ctx, key)
		return nil, decodeError("filters", err)
	}
	return payload.Data, nil
}

// InvalidateExperts drops every cached page of a program's records.
func (c *Client) InvalidateExperts(ctx context.Context, programID string) error {
	return c.Invalidate(ctx, "experts:"+strings.TrimSpace(programID)+":")
}

// ProgramKey is the cache key of program metadata.
func ProgramKey(programID string) string {
	return "program:" + programID
}

// ExpertsKey is the cache key of one page of records.
func ExpertsKey(programID string, query url.Values) string {
	return "experts:" + programID + ":" + query.Encode()
}

func programPath(programID string) string {
	return "/programs/" + url.PathEscape(programID)
}

func (c *Client) drop(ctx context.Context, key string) {
	if c.cache != nil {
		_ = c.cache.Delete(ctx, key)
	}
}
