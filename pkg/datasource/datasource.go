// Package datasource is the boundary between the grid engine and a backend. Whatever goes
// wrong behind it, the engine receives a resolved GridResponse.
package datasource

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
)

// DataSource is the page supplied function that fetches one page of rows.
type DataSource func(ctx context.Context, params common.QueryParams) (common.GridResponse, error)

// SafeSource never fails; failures come back as common.ErrorResponse.
type SafeSource func(ctx context.Context, params common.QueryParams) common.GridResponse

// Safe wraps ds so that transport errors, panics and backend reported errors are all
// converted to {status: error, total: 0, records: []}.
func Safe(ds DataSource) SafeSource {
	return func(ctx context.Context, params common.QueryParams) (resp common.GridResponse) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic in data source: %v\nStack trace:\n%s", err, string(debug.Stack()))
				resp = common.ErrorResponse(fmt.Sprintf("data source failed: %v", err))
			}
		}()

		if ds == nil {
			return common.ErrorResponse("no data source configured")
		}

		r, err := ds(ctx, params)
		if err != nil {
			logger.Error("Data source request failed: %v", err)
			return common.ErrorResponse(err.Error())
		}
		if r.IsError() {
			logger.Warn("Data source reported error: %s", r.Message)
			return common.ErrorResponse(r.Message)
		}
		if r.Status == "" {
			r.Status = common.StatusSuccess
		}
		if r.Records == nil {
			r.Records = []common.Record{}
		}
		return r
	}
}
