package gostatement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	headerAuthorizationKey = "Authorization"
	headerContentTypeKey   = "Content-Type"
	headerAcceptKey        = "Accept"
	headerUserAgentKey     = "User-Agent"

	headerContentTypeApplicationJSON = "application/json"

	statementsPath        = "/api/2.0/sql/statements"
	queryHistoryPath      = "/api/2.0/sql/history/queries"
	onWaitTimeoutContinue = "CONTINUE"
)

// statementRestful is the transport to the statement execution service.
type statementRestful struct {
	baseURL       *url.URL
	client        clientInterface
	auth          Authenticator
	timeout       time.Duration
	maxRetryCount int
	waitAlgo      *waitAlgo
}

type executeStatementRequest struct {
	Statement     string               `json:"statement"`
	WarehouseID   string               `json:"warehouse_id"`
	Catalog       string               `json:"catalog,omitempty"`
	Schema        string               `json:"schema,omitempty"`
	Parameters    []StatementParameter `json:"parameters,omitempty"`
	RowLimit      int64                `json:"row_limit,omitempty"`
	ByteLimit     int64                `json:"byte_limit,omitempty"`
	Disposition   Disposition          `json:"disposition,omitempty"`
	Format        Format               `json:"format,omitempty"`
	WaitTimeout   string               `json:"wait_timeout,omitempty"`
	OnWaitTimeout string               `json:"on_wait_timeout,omitempty"`
}

// serviceErrorResponse is the body of non-success responses.
type serviceErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (sr *statementRestful) statementURL(elems ...string) string {
	return sr.baseURL.JoinPath(append([]string{statementsPath}, elems...)...).String()
}

// request sends one service call and decodes a successful JSON body into
// out. maxRetryCount < 0 uses the configured retry count.
func (sr *statementRestful) request(
	ctx context.Context,
	method string,
	fullURL string,
	body interface{},
	out interface{},
	statementID string,
	maxRetryCount int) error {
	headers := map[string]string{
		headerAcceptKey:    headerContentTypeApplicationJSON,
		headerUserAgentKey: userAgent,
	}
	var reqBody []byte
	if body != nil {
		var err error
		if reqBody, err = json.Marshal(body); err != nil {
			return err
		}
		headers[headerContentTypeKey] = headerContentTypeApplicationJSON
	}
	if maxRetryCount < 0 {
		maxRetryCount = sr.maxRetryCount
	}
	r := newRetryHTTP(ctx, sr.client, fullURL, headers, sr.timeout, maxRetryCount).
		withWaitAlgo(sr.waitAlgo).
		withDecorator(sr.auth.Authenticate).
		setBody(reqBody)
	if method == http.MethodPost {
		r = r.doPost()
	}
	logger.WithContext(ctx).Tracef("%v %v", method, fullURL)
	resp, err := r.execute()
	if err != nil {
		return classifyTransportError(ctx, statementID, err)
	}
	defer closeResponse(resp)
	if resp.StatusCode != http.StatusOK {
		return classifyHTTPStatus(statementID, resp)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err = dec.Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errAborted(statementID, ctxErr)
		}
		return errMalformed(statementID, err)
	}
	return nil
}

func classifyTransportError(ctx context.Context, statementID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errAborted(statementID, ctxErr)
	}
	var se *StatementError
	if errors.As(err, &se) {
		return err
	}
	return &StatementError{
		Number:      ErrCodeServiceUnavailable,
		StatementID: statementID,
		Message:     errMsgServiceUnavailable,
		MessageArgs: []interface{}{err},
		cause:       err,
	}
}

func classifyHTTPStatus(statementID string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var serviceErr serviceErrorResponse
	message := string(bytes.TrimSpace(b))
	if json.Unmarshal(b, &serviceErr) == nil && serviceErr.Message != "" {
		message = serviceErr.Message
	}
	logger.Debugf("HTTP: %v, statement: %v, body: %v", resp.StatusCode, statementID, message)
	se := &StatementError{
		StatementID:     statementID,
		ServerErrorCode: serviceErr.ErrorCode,
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		se.Number = ErrCodeAuthentication
		se.Message = errMsgAuthentication
		se.MessageArgs = []interface{}{resp.StatusCode, message}
	case resp.StatusCode == http.StatusTooManyRequests:
		se.Number = ErrCodeRateLimited
		se.Message = errMsgRateLimited
		se.RetryAfter = retryAfter(resp)
	case resp.StatusCode >= http.StatusInternalServerError:
		se.Number = ErrCodeServiceUnavailable
		se.Message = errMsgServiceUnavailable
		se.MessageArgs = []interface{}{fmt.Sprintf("HTTP %v: %v", resp.StatusCode, message)}
	default:
		se.Number = ErrCodeHTTPStatus
		se.Message = errMsgHTTPStatus
		se.MessageArgs = []interface{}{resp.StatusCode, http.StatusText(resp.StatusCode), message}
	}
	return se
}

func (sr *statementRestful) submitStatement(ctx context.Context, req *executeStatementRequest) (*StatementResult, error) {
	var result StatementResult
	if err := sr.request(ctx, http.MethodPost, sr.statementURL(), req, &result, "", -1); err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *statementRestful) getStatement(ctx context.Context, statementID string) (*StatementResult, error) {
	var result StatementResult
	if err := sr.request(ctx, http.MethodGet, sr.statementURL(statementID), nil, &result, statementID, -1); err != nil {
		return nil, err
	}
	return &result, nil
}

// cancelStatement is fire and forget. It is not retried.
func (sr *statementRestful) cancelStatement(ctx context.Context, statementID string) error {
	return sr.request(ctx, http.MethodPost, sr.statementURL(statementID, "cancel"), nil, nil, statementID, 0)
}

func (sr *statementRestful) getResultChunk(ctx context.Context, statementID string, chunkIndex int) (*ResultData, error) {
	var chunk ResultData
	fullURL := sr.statementURL(statementID, "result", "chunks", strconv.Itoa(chunkIndex))
	if err := sr.request(ctx, http.MethodGet, fullURL, nil, &chunk, statementID, -1); err != nil {
		return nil, err
	}
	return &chunk, nil
}
