package common

import (
	"encoding/json"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Search operators understood by the backend.
const (
	OpIs       = "is"
	OpContains = "contains"
	OpBegins   = "begins"
	OpBetween  = "between"
)

const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Envelope actions
const (
	ActionGet       = "get"
	ActionGetRecord = "get-record"
	ActionSave      = "save"
	ActionDelete    = "delete"
)

// Option is one entry of a static or loaded option list.
type Option struct {
	ID   interface{} `json:"id"`
	Text string      `json:"text"`
}

type SearchCondition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Type     string      `json:"type,omitempty"`
}

type SortOption struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// QueryParams is the request the grid engine hands to its data source.
type QueryParams struct {
	Page        int               `json:"page"`
	Limit       int               `json:"limit"`
	Offset      int               `json:"offset"`
	Search      []SearchCondition `json:"search,omitempty"`
	SearchLogic string            `json:"searchLogic,omitempty"`
	Sort        []SortOption      `json:"sort,omitempty"`
	Join        []string          `json:"join,omitempty"`
	ShowDeleted bool              `json:"showDeleted,omitempty"`
}

// Key is a stable fingerprint of the parameters, used to coalesce identical reloads.
func (p QueryParams) Key() string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

type GridResponse struct {
	Status  string   `json:"status"`
	Total   int64    `json:"total"`
	Records []Record `json:"records"`
	Message string   `json:"message,omitempty"`
}

// ErrorResponse is the uniform failed-load shape: error status, zero total, no rows.
func ErrorResponse(message string) GridResponse {
	return GridResponse{
		Status:  StatusError,
		Total:   0,
		Records: []Record{},
		Message: message,
	}
}

func (r GridResponse) IsError() bool {
	return r.Status == StatusError
}

// SaveResult is what a page's save callback resolves to.
type SaveResult struct {
	Error   bool   `json:"error"`
	Record  Record `json:"record,omitempty"`
	Message string `json:"message,omitempty"`
}

type DeleteResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type RecordResponse struct {
	Status  string `json:"status"`
	Record  Record `json:"record,omitempty"`
	Message string `json:"message,omitempty"`
}

// Envelope wraps every POST body sent to a grid endpoint.
type Envelope struct {
	Request RequestBody `json:"request"`
}

type RequestBody struct {
	Action string      `json:"action"`
	Name   string      `json:"name,omitempty"`
	Recid  interface{} `json:"recid,omitempty"`
	Record Record      `json:"record,omitempty"`
	QueryParams
}
