package gostatement

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	minWaitTimeout = 5 * time.Second
	maxWaitTimeout = 50 * time.Second
	cancelTimeout  = 10 * time.Second
)

// ExecuteOptions tune one Execute call. Zero values fall back to Config.
type ExecuteOptions struct {
	// WarehouseID overrides Config.WarehouseID and the id in Config.HTTPPath.
	WarehouseID string
	Disposition Disposition
	Format      Format
	RowLimit    int64
	ByteLimit   int64
	// WaitTimeout is the server side wait on submit, clamped to 5s..50s.
	// A negative value submits asynchronously.
	WaitTimeout time.Duration
	Catalog     string
	Schema      string
	Parameters  []StatementParameter
	// OnProgress is called once per poll iteration while the statement is
	// not terminal, and once more after it reached a terminal state.
	OnProgress func(ProgressEvent)
	// IncludeMetrics enriches progress events with query history metrics.
	IncludeMetrics bool
	PollInterval   time.Duration
}

// ProgressEvent is passed to ExecuteOptions.OnProgress.
type ProgressEvent struct {
	StatementID string
	State       StatementState
	// Poll is the number of status fetches done so far.
	Poll   int
	Result *StatementResult
	// Metrics is set when IncludeMetrics was requested and the fetch worked.
	Metrics *QueryMetrics
	// MetricsUnavailable is set when metrics were requested but could not be
	// fetched this cycle; MetricsErr holds the reason.
	MetricsUnavailable bool
	MetricsErr         error
}

func formatWaitTimeout(d time.Duration) string {
	switch {
	case d < 0:
		return "0s"
	case d < minWaitTimeout:
		d = minWaitTimeout
	case d > maxWaitTimeout:
		d = maxWaitTimeout
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}

func (c *Client) newExecuteRequest(query string, opts *ExecuteOptions) (*executeStatementRequest, error) {
	warehouseID := opts.WarehouseID
	if warehouseID == "" {
		warehouseID = c.cfg.warehouseID()
	}
	if warehouseID == "" {
		return nil, &StatementError{
			Number:      ErrCodeEmptyWarehouse,
			Message:     errMsgEmptyWarehouse,
			MessageArgs: []interface{}{c.cfg.HTTPPath},
		}
	}
	waitTimeout := opts.WaitTimeout
	if waitTimeout == 0 {
		waitTimeout = c.cfg.WaitTimeout
	}
	req := &executeStatementRequest{
		Statement:     query,
		WarehouseID:   warehouseID,
		Catalog:       firstNonEmpty(opts.Catalog, c.cfg.Catalog),
		Schema:        firstNonEmpty(opts.Schema, c.cfg.Schema),
		Parameters:    opts.Parameters,
		RowLimit:      opts.RowLimit,
		ByteLimit:     opts.ByteLimit,
		Disposition:   opts.Disposition,
		Format:        opts.Format,
		WaitTimeout:   formatWaitTimeout(waitTimeout),
		OnWaitTimeout: onWaitTimeoutContinue,
	}
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Execute submits query and polls until the statement reaches a terminal
// state. A SUCCEEDED result is returned as is. When ctx ends first, a cancel
// request is sent for the statement and an ErrCodeAborted error returned.
func (c *Client) Execute(ctx context.Context, query string, opts *ExecuteOptions) (*StatementResult, error) {
	if opts == nil {
		opts = &ExecuteOptions{}
	}
	req, err := c.newExecuteRequest(query, opts)
	if err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, errAborted("", err)
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = c.cfg.PollInterval
	}

	result, err := c.rest.submitStatement(ctx, req)
	if err != nil {
		return nil, err
	}
	statementID := result.StatementID
	ctx = withStatementID(ctx, statementID)
	logger.WithContext(ctx).Debugf("statement submitted, state: %v", result.Status.State)

	canceler := &statementCanceler{rest: c.rest, statementID: statementID}
	abort := func(cause error) (*StatementResult, error) {
		canceler.cancel(ctx)
		return nil, errAborted(statementID, cause)
	}

	poll := 0
	for !result.Status.State.IsTerminal() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return abort(ctxErr)
		}
		c.reportProgress(ctx, opts, result, poll)

		timer := time.NewTimer(pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return abort(ctx.Err())
		}

		next, err := c.rest.getStatement(ctx, statementID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return abort(ctxErr)
			}
			return nil, err
		}
		poll++
		result = next
		logger.WithContext(ctx).Tracef("poll %v, state: %v", poll, result.Status.State)
	}
	c.reportProgress(ctx, opts, result, poll)
	return classifyTerminal(result)
}

func (c *Client) reportProgress(ctx context.Context, opts *ExecuteOptions, result *StatementResult, poll int) {
	if opts.OnProgress == nil {
		return
	}
	event := ProgressEvent{
		StatementID: result.StatementID,
		State:       result.Status.State,
		Poll:        poll,
		Result:      result,
	}
	if opts.IncludeMetrics {
		metrics, err := c.rest.getQueryMetrics(ctx, result.StatementID)
		if err != nil {
			logger.WithContext(ctx).Debugf("metrics unavailable: %v", err)
			event.MetricsUnavailable = true
			event.MetricsErr = err
		} else {
			event.Metrics = metrics
		}
	}
	opts.OnProgress(event)
}

func classifyTerminal(result *StatementResult) (*StatementResult, error) {
	switch result.Status.State {
	case StateSucceeded:
		return result, nil
	case StateCanceled:
		return nil, &StatementError{
			Number:      ErrCodeStatementCanceled,
			StatementID: result.StatementID,
			Message:     errMsgStatementCanceled,
		}
	}
	se := &StatementError{
		Number:      ErrCodeStatementFailed,
		StatementID: result.StatementID,
		Message:     errMsgStatementFailed,
	}
	if serviceErr := result.Status.Error; serviceErr != nil {
		se.ServerErrorCode = serviceErr.ErrorCode
		if serviceErr.Message != "" {
			se.Message = "%v"
			se.MessageArgs = []interface{}{serviceErr.Message}
		}
	}
	return nil, se
}

// statementCanceler sends at most one cancel request per statement. The
// request runs detached from the caller's context, which is already done.
type statementCanceler struct {
	rest        *statementRestful
	statementID string
	once        sync.Once
}

func (sc *statementCanceler) cancel(ctx context.Context) {
	sc.once.Do(func() {
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
		go func() {
			defer cancel()
			if err := sc.rest.cancelStatement(cancelCtx, sc.statementID); err != nil {
				logger.WithContext(cancelCtx).Warnf("failed to cancel statement: %v", err)
				return
			}
			logger.WithContext(cancelCtx).Debug("statement cancel requested")
		}()
	})
}
