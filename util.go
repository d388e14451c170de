package gostatement

import (
	"context"
	"net/url"
)

type contextKey string

// maskedURL drops the query of presigned URLs before they are logged.
func maskedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// withStatementID attaches the statement id to ctx for log entries.
func withStatementID(ctx context.Context, statementID string) context.Context {
	if statementID == "" {
		return ctx
	}
	return context.WithValue(ctx, StatementIDKey, statementID)
}

func statementIDFromContext(ctx context.Context) string {
	statementID, _ := ctx.Value(StatementIDKey).(string)
	return statementID
}
