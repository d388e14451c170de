package gostatement

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

type waitAlgo struct {
	mutex  *sync.Mutex // required for random.Int63n
	random *rand.Rand
	base   time.Duration // base wait time
	cap    time.Duration // maximum wait time
}

func newWaitAlgo(base, cap time.Duration) *waitAlgo {
	return &waitAlgo{
		mutex:  &sync.Mutex{},
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
		base:   base,
		cap:    cap,
	}
}

func (w *waitAlgo) randDuration(n time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(w.random.Int63n(int64(n)))
}

// decorrelated jitter backoff
func (w *waitAlgo) decorr(sleep time.Duration) time.Duration {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	t := 3*sleep - w.base
	switch {
	case t > 0:
		return durationMin(w.cap, w.randDuration(t)+w.base)
	case t < 0:
		return durationMin(w.cap, w.randDuration(-t)+3*sleep)
	}
	return w.base
}

func durationMin(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

var defaultWaitAlgo = newWaitAlgo(time.Second, 30*time.Second)

type clientInterface interface {
	Do(req *http.Request) (*http.Response, error)
}

// requestDecorator is applied to every attempt, e.g. to authenticate it.
type requestDecorator func(req *http.Request) error

type retryHTTP struct {
	ctx           context.Context
	client        clientInterface
	method        string
	fullURL       string
	headers       map[string]string
	body          []byte
	timeout       time.Duration
	maxRetryCount int
	decorate      requestDecorator
	waitAlgo      *waitAlgo
}

func newRetryHTTP(ctx context.Context,
	client clientInterface,
	fullURL string,
	headers map[string]string,
	timeout time.Duration,
	maxRetryCount int) *retryHTTP {
	return &retryHTTP{
		ctx:           ctx,
		client:        client,
		method:        http.MethodGet,
		fullURL:       fullURL,
		headers:       headers,
		timeout:       timeout,
		maxRetryCount: maxRetryCount,
		waitAlgo:      defaultWaitAlgo,
	}
}

func (r *retryHTTP) doPost() *retryHTTP {
	r.method = http.MethodPost
	return r
}

func (r *retryHTTP) setBody(body []byte) *retryHTTP {
	r.body = body
	return r
}

func (r *retryHTTP) withDecorator(decorate requestDecorator) *retryHTTP {
	r.decorate = decorate
	return r
}

func (r *retryHTTP) withWaitAlgo(w *waitAlgo) *retryHTTP {
	if w != nil {
		r.waitAlgo = w
	}
	return r
}

// isRetryableStatus reports the statuses worth another attempt. 4XX other
// than 429 are returned to the caller immediately.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return true
	}
	return false
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(res *http.Response) time.Duration {
	if res == nil {
		return 0
	}
	secs, err := strconv.Atoi(res.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// execute runs the request until it succeeds, fails permanently, runs out of
// retries or time, or the context ends. The last response is returned when
// retries are exhausted so the caller can classify its status.
func (r *retryHTTP) execute() (res *http.Response, err error) {
	totalTimeout := r.timeout
	retryCounter := 0
	sleepTime := time.Duration(0)

	for {
		if err = r.ctx.Err(); err != nil {
			return nil, err
		}
		req, reqErr := http.NewRequestWithContext(r.ctx, r.method, r.fullURL, bytes.NewReader(r.body))
		if reqErr != nil {
			return nil, reqErr
		}
		for k, v := range r.headers {
			req.Header.Set(k, v)
		}
		req.Header.Set(headerRequestID, uuid.NewString())
		if r.decorate != nil {
			if err = r.decorate(req); err != nil {
				return nil, err
			}
		}
		res, err = r.client.Do(req)
		if err == nil && !isRetryableStatus(res.StatusCode) {
			return res, nil
		}
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			closeResponse(res)
			return nil, ctxErr
		}
		if retryCounter >= r.maxRetryCount {
			logger.WithContext(r.ctx).Debugf("giving up on %v %v after %v retries", r.method, maskedURL(r.fullURL), retryCounter)
			return res, err
		}

		sleepTime = r.waitAlgo.decorr(sleepTime)
		if after := retryAfter(res); after > sleepTime {
			sleepTime = after
		}
		if err != nil {
			logger.WithContext(r.ctx).Debugf("failed http connection. err: %v. retrying...", err)
		} else {
			logger.WithContext(r.ctx).Debugf("failed http connection. HTTP Status: %v. retrying...", res.StatusCode)
		}
		if totalTimeout > 0 {
			totalTimeout -= sleepTime
			if totalTimeout <= 0 {
				if err != nil {
					return nil, err
				}
				return res, nil
			}
		}
		closeResponse(res)
		retryCounter++
		logger.WithContext(r.ctx).Debugf("sleeping %v. to timeout: %v. retrying", sleepTime, totalTimeout)

		await := time.NewTimer(sleepTime)
		select {
		case <-await.C:
		case <-r.ctx.Done():
			await.Stop()
			return nil, r.ctx.Err()
		}
	}
}

// closeResponse drains and closes a response that will not be read.
func closeResponse(res *http.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	if err := res.Body.Close(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debugf("closing response body: %v", err)
	}
}
