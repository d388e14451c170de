package gostatement

// StatementClientVersion is the version of the client library
const StatementClientVersion = "0.3.0"
