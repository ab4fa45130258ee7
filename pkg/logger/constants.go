package logger

// log level strings
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// log format strings
const (
	ConsoleFormat = "console"
	JSONFormat    = "json"
)

// custom fields
const (
	lineOfCode     = "loc"
	requestIDField = "request_id"
	pathField      = "path"
	actionField    = "action"
	reasonField    = "reason"
)
