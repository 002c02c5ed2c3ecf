// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"
)

// Validation errors for Item requests.
var (
	ErrNameRequired = errors.New("name is required")
)

// Item represents a single managed record.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ItemPatch lists the fields of an update. A nil field is left unchanged.
type ItemPatch struct {
	Name        *string
	Description *string
}

// IsEmpty reports whether the patch carries no fields.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

// Apply returns a copy of item with the supplied fields replaced.
// Timestamps are left to the caller.
func (p ItemPatch) Apply(item Item) Item {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	return item
}

// CreateItemRequest is the body of POST /api/items.
type CreateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Validate checks that a name was supplied. The name is not trimmed.
func (r *CreateItemRequest) Validate() error {
	if r.Name == nil || *r.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// NameValue returns the requested name or an empty string.
func (r *CreateItemRequest) NameValue() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

// DescriptionValue returns the requested description, defaulting to "".
func (r *CreateItemRequest) DescriptionValue() string {
	if r.Description == nil {
		return ""
	}
	return *r.Description
}

// UpdateItemRequest is the body of PUT /api/items/{id}.
// Both fields are optional; omitted fields keep their stored value.
type UpdateItemRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Patch converts the request into an ItemPatch.
func (r *UpdateItemRequest) Patch() ItemPatch {
	return ItemPatch{
		Name:        r.Name,
		Description: r.Description,
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// NewErrorResponse creates an ErrorResponse with the given message.
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Message: message}
}
