package gostatement

// StatementState is the lifecycle state reported by the service.
type StatementState string

const (
	// StatePending denotes a statement waiting for a warehouse
	StatePending StatementState = "PENDING"
	// StateRunning denotes a statement in progress
	StateRunning StatementState = "RUNNING"
	// StateSucceeded denotes a statement whose result can be fetched
	StateSucceeded StatementState = "SUCCEEDED"
	// StateFailed denotes a statement the service failed to execute
	StateFailed StatementState = "FAILED"
	// StateCanceled denotes a statement canceled before completion
	StateCanceled StatementState = "CANCELED"
	// StateClosed denotes a statement whose result is no longer available
	StateClosed StatementState = "CLOSED"
)

// IsTerminal reports whether no further state transition can happen.
func (s StatementState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled, StateClosed:
		return true
	}
	return false
}

// Format is the result serialization format.
type Format string

const (
	// FormatJSONArray is a JSON array of row arrays of string cells
	FormatJSONArray Format = "JSON_ARRAY"
	// FormatCSV is comma separated text with a header line
	FormatCSV Format = "CSV"
	// FormatArrowStream is the Arrow IPC streaming format
	FormatArrowStream Format = "ARROW_STREAM"
)

// Disposition controls whether the result is returned inline or as
// presigned external links.
type Disposition string

const (
	// DispositionInline returns rows in the response body
	DispositionInline Disposition = "INLINE"
	// DispositionExternalLinks returns presigned chunk URLs
	DispositionExternalLinks Disposition = "EXTERNAL_LINKS"
)

// StatementResult is the service's view of a statement. Every poll replaces
// it wholesale.
type StatementResult struct {
	StatementID string          `json:"statement_id"`
	Status      StatementStatus `json:"status"`
	Manifest    *ResultManifest `json:"manifest,omitempty"`
	Result      *ResultData     `json:"result,omitempty"`
}

// StatementStatus is the state and optional error detail of a statement.
type StatementStatus struct {
	State StatementState `json:"state"`
	Error *ServiceError  `json:"error,omitempty"`
}

// ServiceError is the error detail reported for FAILED statements.
type ServiceError struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ResultManifest describes the shape of the full result.
type ResultManifest struct {
	Format          Format        `json:"format"`
	Schema          *ResultSchema `json:"schema,omitempty"`
	TotalChunkCount int           `json:"total_chunk_count"`
	TotalRowCount   int64         `json:"total_row_count,omitempty"`
	TotalByteCount  int64         `json:"total_byte_count,omitempty"`
	Truncated       bool          `json:"truncated,omitempty"`
	Chunks          []ChunkInfo   `json:"chunks,omitempty"`
}

// ResultSchema is the ordered column list of a result.
type ResultSchema struct {
	ColumnCount int          `json:"column_count,omitempty"`
	Columns     []ColumnInfo `json:"columns"`
}

// ColumnInfo describes one result column. TypeText carries the full
// declared type such as STRUCT<a: INT NOT NULL>.
type ColumnInfo struct {
	Name          string `json:"name"`
	Position      int    `json:"position"`
	TypeName      string `json:"type_name"`
	TypeText      string `json:"type_text"`
	TypePrecision int    `json:"type_precision,omitempty"`
	TypeScale     int    `json:"type_scale,omitempty"`
}

// ChunkInfo is the metadata of one chunk known up front.
type ChunkInfo struct {
	ChunkIndex int   `json:"chunk_index"`
	RowOffset  int64 `json:"row_offset"`
	RowCount   int64 `json:"row_count"`
	ByteCount  int64 `json:"byte_count,omitempty"`
}

// ResultData carries either inline rows or external links, never both.
// The chunk endpoint returns the same shape for a single chunk.
type ResultData struct {
	ChunkIndex     int            `json:"chunk_index"`
	RowOffset      int64          `json:"row_offset"`
	RowCount       int64          `json:"row_count"`
	ByteCount      int64          `json:"byte_count,omitempty"`
	DataArray      [][]any        `json:"data_array,omitempty"`
	ExternalLinks  []ExternalLink `json:"external_links,omitempty"`
	NextChunkIndex *int           `json:"next_chunk_index,omitempty"`
}

// ExternalLink is a presigned, time-limited URL for one chunk.
type ExternalLink struct {
	ChunkIndex   int               `json:"chunk_index"`
	RowOffset    int64             `json:"row_offset"`
	RowCount     int64             `json:"row_count"`
	ByteCount    int64             `json:"byte_count"`
	ExternalLink string            `json:"external_link"`
	Expiration   string            `json:"expiration,omitempty"`
	HTTPHeaders  map[string]string `json:"http_headers,omitempty"`
}

// StatementParameter is a named parameter bound with :name in the query.
// A nil Value binds NULL.
type StatementParameter struct {
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
	Type  string  `json:"type,omitempty"`
}

// isInline reports whether rows were delivered in the response body. An
// empty payload without links is not inline.
func (r *ResultData) isInline() bool {
	return r != nil && len(r.ExternalLinks) == 0 && r.DataArray != nil
}

// checkFetchable validates the preconditions shared by every fetch path.
func checkFetchable(result *StatementResult) error {
	if result.Status.State != StateSucceeded {
		return errNonSucceeded(result)
	}
	if result.Manifest == nil {
		return errNoManifest(result.StatementID)
	}
	return nil
}
