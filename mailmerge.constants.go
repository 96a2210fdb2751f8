package mailmerge

import (
	"time"

	"github.com/itsatony/go-mailmerge/internal"
)

// Tag syntax - persisted in user templates, must stay bit-exact
const (
	OpenDelim  = internal.StrOpenDelim
	CloseDelim = internal.StrCloseDelim
	Separator  = internal.StrSeparator
)

// Comparator operators usable in {{field|op|operand|then|else}}
const (
	OpContains   = internal.OpContains
	OpStartsWith = internal.OpStartsWith
	OpEndsWith   = internal.OpEndsWith
	OpEqual      = internal.OpEqual
	OpGreater    = internal.OpGreater
	OpGreaterEq  = internal.OpGreaterEq
	OpLess       = internal.OpLess
	OpLessEq     = internal.OpLessEq
)

// Engine defaults
const (
	// DefaultConcurrency is the number of rows resolved in parallel by Merge.
	DefaultConcurrency = 8
	// DefaultTimeLimit bounds a whole job run. Zero on the engine means no limit.
	DefaultTimeLimit   = 6 * time.Minute
)

// Body modes
const (
	ModePlain    Mode = "plain"
	ModeHTML     Mode = "html"
	ModeMarkdown Mode = "markdown"
)

// CSV option values accepted from users
const (
	SeparatorComma     = ","
	SeparatorSemicolon = ";"
	SeparatorPipe      = "|"
	SeparatorTab       = "tab"
	EnclosureDouble    = `"`
	EnclosureSingle    = "'"
)

// RecipientSeparator splits recipient lists before each entry is resolved.
const RecipientSeparator = ","

// Folder defaults
const (
	DefaultFolder = "Drafts"
)

// Severity names
const (
	SeverityNameError   = "error"
	SeverityNameWarning = "warning"
	SeverityNameInfo    = "info"
)

// Template string names used in validation issues
const (
	SourceSubject    = "subject"
	SourceBody       = "body"
	SourceTo         = "to"
	SourceCc         = "cc"
	SourceBcc        = "bcc"
	SourceReplyTo    = "reply_to"
	SourceFollowupTo = "followup_to"
	SourceIndexFmt   = "%s[%d]"
)

// IssueMsgUnknownField is reported for fields the header does not provide.
const IssueMsgUnknownField = "field not in header"

// Message header names
const (
	HeaderFrom              = "From"
	HeaderTo                = "To"
	HeaderCc                = "Cc"
	HeaderBcc               = "Bcc"
	HeaderReplyTo           = "Reply-To"
	HeaderMailReplyTo       = "Mail-Reply-To"
	HeaderMailFollowupTo    = "Mail-Followup-To"
	HeaderSubject           = "Subject"
	HeaderDate              = "Date"
	HeaderMessageID         = "Message-ID"
	HeaderUserAgent         = "User-Agent"
	HeaderOrganization      = "Organization"
	HeaderXPriority         = "X-Priority"
	HeaderDispositionNotify = "Disposition-Notification-To"
	HeaderMIMEVersion       = "MIME-Version"
	HeaderContentType       = "Content-Type"
	HeaderContentEncoding   = "Content-Transfer-Encoding"
)

// MIME constants
const (
	MIMEVersion          = "1.0"
	MIMETextPlain        = "text/plain; charset=UTF-8"
	MIMETextHTML         = "text/html; charset=UTF-8"
	MIMEMultipartAltFmt  = "multipart/alternative; boundary=%q"
	EncodingQuotedPrint  = "quoted-printable"
	MessageIDFmt         = "<%s@%s>"
	MessageIDHostDefault = "localhost"
	PriorityFmt          = "%d (%s)"
)

// Priority labels
const (
	PriorityLabelHighest = "Highest"
	PriorityLabelHigh    = "High"
	PriorityLabelLow     = "Low"
	PriorityLabelLowest  = "Lowest"
)

// Charset is used for encoded headers.
const Charset = "utf-8"

// DefaultUserAgent is sent when ComposeOptions leaves UserAgent empty.
const DefaultUserAgent = "go-mailmerge"

// Priority levels, mapped to X-Priority labels. Normal (3) emits no header.
const (
	PriorityHighest = 1
	PriorityHigh    = 2
	PriorityNormal  = 3
	PriorityLow     = 4
	PriorityLowest  = 5
)

// Sink constants
const (
	SinkDirPermissions  = 0755
	SinkFilePermissions = 0644
	SinkMessageSuffix   = ".eml"
	SinkMessageNameFmt  = "%06d-%s" + SinkMessageSuffix
	MemoryLocationFmt   = "memory:%s/%d"
)

// Filesystem storage constants
const (
	FilesystemDirPermissions  = 0755
	FilesystemFilePermissions = 0644
	FilesystemVersionPrefix   = "v"
	FilesystemVersionSuffix   = ".yaml"
)

// Storage ID prefixes
const (
	TemplateIDPrefix = "mmt_"
	BatchIDPrefix    = "batch_"
)

// StorageURISeparator separates driver and connection in "driver:connection".
const StorageURISeparator = ":"

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
)

// Postgres defaults
const (
	PostgresTablePrefix            = "mailmerge_"
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
)

// Template cache defaults
const (
	CacheDefaultTTL          = 5 * time.Minute
	CacheDefaultMaxEntries   = 1000
	CacheDefaultNegativeTTL  = 30 * time.Second
	CacheVersionKeySeparator = "\x00v"
)

// Job data formats, chosen by file extension when not set
const (
	DataFormatCSV  = "csv"
	DataFormatXLSX = "xlsx"
	DataExtXLSX    = ".xlsx"
)

// MetaKeyLocation is the hook metadata key holding where a message was saved.
const MetaKeyLocation = "location"

// Metadata keys for cuserr.WithMetadata
const (
	MetaKeyLine         = "line"
	MetaKeyColumn       = "column"
	MetaKeyOffset       = "offset"
	MetaKeyTemplateName = "template_name"
	MetaKeyVersion      = "version"
	MetaKeyField        = "field"
	MetaKeyValue        = "value"
	MetaKeyPath         = "path"
	MetaKeyReason       = "reason"
	MetaKeyRow          = "row"
	MetaKeyFolder       = "folder"
	MetaKeyDriverName   = "driver"
	MetaKeySheet        = "sheet"
	MetaKeyBatchID      = "batch_id"
	MetaKeyHookPoint    = "hook_point"
	MetaKeyConcurrency  = "concurrency"
	MetaKeyTimeLimit    = "time_limit"
	MetaKeyPriority     = "priority"
	MetaKeyMode         = "mode"
	MetaKeyFormat       = "format"
)

// Log messages
const (
	LogMsgEngineCreated  = "engine created"
	LogMsgMergeStart     = "merge started"
	LogMsgMergeEnd       = "merge complete"
	LogMsgRowResolved    = "row resolved"
	LogMsgRowFailed      = "row failed"
	LogMsgRowSkipped     = "row skipped, batch context done"
	LogMsgHookFailed     = "hook failed"
	LogMsgMessageSaved   = "message saved"
	LogMsgMessageFailed  = "message not saved"
	LogMsgFolderFallback = "unknown folder, falling back"
	LogMsgJobStart       = "job started"
	LogMsgJobEnd         = "job complete"
	LogMsgTableRead      = "table read"
	LogMsgTemplateLoaded = "template loaded from storage"
)

// Log fields
const (
	LogFieldBatchID     = "batch_id"
	LogFieldRows        = "rows"
	LogFieldRow         = "row"
	LogFieldSaved       = "saved"
	LogFieldFailed      = "failed"
	LogFieldFolder      = "folder"
	LogFieldDuration    = "duration"
	LogFieldPoint       = "hook_point"
	LogFieldTemplate    = "template_name"
	LogFieldColumns     = "columns"
	LogFieldFormat      = "format"
	LogFieldConcurrency = "concurrency"
	LogFieldTimeLimit   = "time_limit"
	LogFieldError       = "error"
	LogFieldIndex       = "index"
	LogFieldRecipients  = "recipients"
)
