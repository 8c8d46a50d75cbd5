package notifier

import "time"

// Discord formatting constants
const (
	SuccessEmbedColor      = 0x5CB85C
	FailureEmbedColor      = 0xD9534F
	InconclusiveEmbedColor = 0xF0AD4E
)

// Discord limits
const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxFieldValueLength  = 1024
	maxFields            = 25
	maxDiscordFileSize   = 8 * 1024 * 1024
	maxListedFailures    = 10
)

const (
	defaultRetryAttempts = 2
	defaultRetryDelay    = 2 * time.Second
)
