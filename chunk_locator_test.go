package gostatement

import (
	"context"
	"net/http"
	"testing"
)

func chunkURLs(urls []ChunkURL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.URL
	}
	return out
}

func TestResolveChunkURLsFetchesMissingIndices(t *testing.T) {
	fs := newFakeService(t)
	fs.chunks[1] = &ResultData{ChunkIndex: 1, ExternalLinks: []ExternalLink{link(1, "https://bucket/c1")}}
	fs.chunks[3] = &ResultData{ChunkIndex: 3, ExternalLinks: []ExternalLink{link(3, "https://bucket/c3")}}
	c := fs.client()

	result := succeeded("st-1", FormatJSONArray, 4, &ResultData{ExternalLinks: []ExternalLink{
		link(2, "https://bucket/c2"),
		link(0, "https://bucket/c0"),
	}})
	urls, err := c.ResolveChunkURLs(context.Background(), result)
	assertNilF(t, err)
	assertDeepEqualE(t, chunkURLs(urls), []string{"https://bucket/c0", "https://bucket/c1", "https://bucket/c2", "https://bucket/c3"})
	assertDeepEqualE(t, fs.fetchedChunks(), []int{1, 3}, "only missing chunks are looked up, in ascending order")
	assertEqualE(t, urls[0].Expiration, "2030-01-01T00:00:00Z")
}

func TestResolveChunkURLsKeepsFirstSource(t *testing.T) {
	fs := newFakeService(t)
	fs.chunks[1] = &ResultData{ChunkIndex: 1, ExternalLinks: []ExternalLink{
		link(1, "https://bucket/c1"),
		link(0, "https://bucket/c0-duplicate"),
	}}
	c := fs.client()

	result := succeeded("st-2", FormatCSV, 2, &ResultData{ExternalLinks: []ExternalLink{link(0, "https://bucket/c0")}})
	urls, err := c.ResolveChunkURLs(context.Background(), result)
	assertNilF(t, err)
	assertDeepEqualE(t, chunkURLs(urls), []string{"https://bucket/c0", "https://bucket/c1"})
}

func TestResolveChunkURLsSeveralLinksPerChunk(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client()

	result := succeeded("st-3", FormatCSV, 1, &ResultData{ExternalLinks: []ExternalLink{
		link(0, "https://bucket/c0-a"),
		link(0, "https://bucket/c0-b"),
	}})
	urls, err := c.ResolveChunkURLs(context.Background(), result)
	assertNilF(t, err)
	assertDeepEqualE(t, chunkURLs(urls), []string{"https://bucket/c0-a", "https://bucket/c0-b"})
	assertEqualE(t, fs.requestCount(), 0)
}

func TestResolveChunkURLsForwardsHeaders(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client()

	l := link(0, "https://bucket/c0")
	l.HTTPHeaders = map[string]string{"x-amz-server-side-encryption-customer-key": "k"}
	result := succeeded("st-4", FormatCSV, 1, &ResultData{ExternalLinks: []ExternalLink{l}})
	urls, err := c.ResolveChunkURLs(context.Background(), result)
	assertNilF(t, err)
	assertEqualF(t, len(urls), 1)
	assertEqualE(t, urls[0].HTTPHeaders["x-amz-server-side-encryption-customer-key"], "k")
}

func TestResolveChunkURLsZeroChunks(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client()

	urls, err := c.ResolveChunkURLs(context.Background(), succeeded("st-5", FormatJSONArray, 0, nil))
	assertNilF(t, err)
	assertEmptyE(t, urls)
	assertEqualE(t, fs.requestCount(), 0)
}

func TestResolveChunkURLsNotFound(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client()

	_, err := c.ResolveChunkURLs(context.Background(), succeeded("st-6", FormatJSONArray, 2, nil))
	se := assertStatementErrorF(t, err, ErrCodeHTTPStatus)
	assertEqualE(t, se.StatementID, "st-6")
	assertEqualE(t, se.ServerErrorCode, "NOT_FOUND")
	assertStringContainsE(t, se.Error(), "404")
	assertDeepEqualE(t, fs.fetchedChunks(), []int{0}, "resolution stops at the first failure")
}

func TestResolveChunkURLsAbortBeforeFetch(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ResolveChunkURLs(ctx, succeeded("st-7", FormatJSONArray, 3, nil))
	assertStatementErrorF(t, err, ErrCodeAborted)
	assertErrIsF(t, err, context.Canceled)
	assertEqualE(t, fs.requestCount(), 0)
}

func TestResolveChunkURLsAbortBetweenFetches(t *testing.T) {
	fs := newFakeService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs.chunks[0] = &ResultData{ExternalLinks: []ExternalLink{link(0, "https://bucket/c0")}}
	fs.chunks[1] = &ResultData{ExternalLinks: []ExternalLink{link(1, "https://bucket/c1")}}
	c := fs.client()
	c.rest.client = &cancelAfterClient{client: c.rest.client, cancel: cancel}

	_, err := c.ResolveChunkURLs(ctx, succeeded("st-8", FormatJSONArray, 2, nil))
	assertStatementErrorF(t, err, ErrCodeAborted)
	assertDeepEqualE(t, fs.fetchedChunks(), []int{0})
}

// cancelAfterClient cancels once the first response has been received.
type cancelAfterClient struct {
	client clientInterface
	cancel context.CancelFunc
}

func (c *cancelAfterClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	c.cancel()
	return resp, err
}

func TestResolveChunkURLsInvalidState(t *testing.T) {
	fs := newFakeService(t)
	c := fs.client()

	_, err := c.ResolveChunkURLs(context.Background(), statusResult("st-9", StateRunning))
	se := assertStatementErrorF(t, err, ErrCodeInvalidState)
	assertStringContainsE(t, se.Error(), "RUNNING")

	noManifest := statusResult("st-9", StateSucceeded)
	_, err = c.ResolveChunkURLs(context.Background(), noManifest)
	assertStatementErrorF(t, err, ErrCodeInvalidState)
	assertEqualE(t, fs.requestCount(), 0)
}
