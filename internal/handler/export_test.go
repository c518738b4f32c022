package handler

// Test accessors for unexported formatting helpers.
var (
	FormatLevel   = formatLevel
	FormatMessage = formatMessage
)
