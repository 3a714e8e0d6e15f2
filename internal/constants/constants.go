package constants

import "time"

// Context keys set by the auth middleware.
const (
	ContextKeyUserID    = "user_id"
	ContextKeyRole      = "role"
	ContextKeyPrincipal = "principal"
)

// Session
const (
	SessionCookieName     = "task_session"
	SessionKeyAccessToken = "access_token"
	SessionMaxAge         = 86400 * 7
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	MinPasswordLength = 6
	MaxNameLength     = 100
	MaxEmailLength    = 255
	MaxTitleLength    = 255
)

const (
	DefaultTokenTTL     = time.Hour
	MaxUploadFiles      = 5
	MaxUploadSizeMB     = 10
	MaxAIGeneratedTasks = 20
)
