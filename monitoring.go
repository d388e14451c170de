package gostatement

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// QueryMetrics are execution metrics reported by the query history service.
// All fields are best effort and may be zero while a statement runs.
type QueryMetrics struct {
	TotalTimeMs       int64 `json:"total_time_ms"`
	CompilationTimeMs int64 `json:"compilation_time_ms"`
	ExecutionTimeMs   int64 `json:"execution_time_ms"`
	ResultFetchTimeMs int64 `json:"result_fetch_time_ms"`
	ReadBytes         int64 `json:"read_bytes"`
	ReadRows          int64 `json:"read_rows"`
	RowsProducedCount int64 `json:"rows_produced_count"`
	TaskTotalTimeMs   int64 `json:"task_total_time_ms"`
	SpillToDiskBytes  int64 `json:"spill_to_disk_bytes"`
}

type queryInfo struct {
	QueryID string        `json:"query_id"`
	Status  string        `json:"status"`
	Metrics *QueryMetrics `json:"metrics,omitempty"`
}

type queryHistoryResponse struct {
	Res []queryInfo `json:"res"`
}

var errMetricsNotFound = errors.New("statement not found in query history")

// getQueryMetrics fetches execution metrics of one statement. It is read
// only and never retried, since a missing poll cycle of metrics is harmless.
func (sr *statementRestful) getQueryMetrics(ctx context.Context, statementID string) (*QueryMetrics, error) {
	u := sr.baseURL.JoinPath(queryHistoryPath)
	params := url.Values{}
	params.Set("filter_by.statement_ids", statementID)
	params.Set("include_metrics", "true")
	u.RawQuery = params.Encode()

	var history queryHistoryResponse
	if err := sr.request(ctx, http.MethodGet, u.String(), nil, &history, statementID, 0); err != nil {
		return nil, err
	}
	for _, q := range history.Res {
		if q.QueryID == statementID && q.Metrics != nil {
			return q.Metrics, nil
		}
	}
	return nil, errMetricsNotFound
}
