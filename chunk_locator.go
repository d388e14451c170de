package gostatement

import (
	"context"
	"sort"
)

// ChunkURL is one remote location of a result chunk.
type ChunkURL struct {
	ChunkIndex  int
	URL         string
	Expiration  string
	HTTPHeaders map[string]string
}

// chunkURLIndex maps chunk indices to their URLs in discovery order.
type chunkURLIndex map[int][]ChunkURL

// add records the links of one source. Indices already populated by an
// earlier source are kept as they are: the first discovered source wins.
func (idx chunkURLIndex) add(statementID string, links []ExternalLink) {
	fromSource := make(map[int]bool)
	for _, link := range links {
		if _, known := idx[link.ChunkIndex]; known && !fromSource[link.ChunkIndex] {
			logger.Debugf("statement %v: ignoring duplicate link for chunk %v", statementID, link.ChunkIndex)
			continue
		}
		fromSource[link.ChunkIndex] = true
		idx[link.ChunkIndex] = append(idx[link.ChunkIndex], ChunkURL{
			ChunkIndex:  link.ChunkIndex,
			URL:         link.ExternalLink,
			Expiration:  link.Expiration,
			HTTPHeaders: link.HTTPHeaders,
		})
	}
}

// flatten orders URLs by chunk index, then by discovery order.
func (idx chunkURLIndex) flatten() []ChunkURL {
	indices := make([]int, 0, len(idx))
	for i := range idx {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	urls := make([]ChunkURL, 0, len(idx))
	for _, i := range indices {
		urls = append(urls, idx[i]...)
	}
	return urls
}

// ResolveChunkURLs returns every chunk URL of result ordered by chunk index.
// Links already in the payload are used as is; each missing chunk index in
// [0, TotalChunkCount) is looked up once, in ascending order.
func (c *Client) ResolveChunkURLs(ctx context.Context, result *StatementResult) ([]ChunkURL, error) {
	if err := checkFetchable(result); err != nil {
		return nil, err
	}
	return c.resolveChunkURLs(withStatementID(ctx, result.StatementID), result)
}

func (c *Client) resolveChunkURLs(ctx context.Context, result *StatementResult) ([]ChunkURL, error) {
	statementID := result.StatementID
	idx := make(chunkURLIndex)
	if result.Result != nil {
		idx.add(statementID, result.Result.ExternalLinks)
	}
	total := result.Manifest.TotalChunkCount
	for i := 0; i < total; i++ {
		if _, known := idx[i]; known {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errAborted(statementID, err)
		}
		logger.WithContext(ctx).Tracef("fetching metadata of chunk %v/%v", i, total)
		chunk, err := c.rest.getResultChunk(ctx, statementID, i)
		if err != nil {
			return nil, abortOr(ctx, statementID, err)
		}
		idx.add(statementID, chunk.ExternalLinks)
	}
	for i := range idx {
		if i < 0 || i >= total {
			logger.WithContext(ctx).Warnf("chunk index %v is outside the declared %v chunks", i, total)
		}
	}
	return idx.flatten(), nil
}
