package mailmerge

import (
	"strconv"

	"github.com/itsatony/go-cuserr"
)

// Error message constants
const (
	// Table errors
	ErrMsgTableEmpty       = "table has no header line"
	ErrMsgTableRead        = "failed to read table"
	ErrMsgSheetNotFound    = "worksheet not found"
	ErrMsgWorkbookNoSheets = "workbook has no worksheets"

	// Config errors
	ErrMsgConfigRead          = "failed to read job config"
	ErrMsgConfigParse         = "failed to parse job config"
	ErrMsgConfigNoTemplate    = "job config needs a template or template_ref"
	ErrMsgConfigBothTemplates = "job config sets both template and template_ref"
	ErrMsgConfigNoSender      = "job config needs a sender email"
	ErrMsgConfigNoData        = "job config needs a data file"
	ErrMsgInvalidMode         = "invalid body mode"
	ErrMsgInvalidPriority     = "priority must be between 1 and 5"
	ErrMsgInvalidConcurrency  = "concurrency must be positive"
	ErrMsgInvalidTimeLimit    = "time limit must not be negative"
	ErrMsgConfigDataFormat    = "unsupported data format"

	// Compose errors
	ErrMsgNoSender         = "sender email is required"
	ErrMsgInvalidSender    = "invalid sender address"
	ErrMsgInvalidRecipient = "invalid recipient address"
	ErrMsgHeaderLineBreak  = "header value contains a line break"
	ErrMsgRenderBody       = "failed to render message body"
	ErrMsgComposeFailed    = "failed to compose message"

	// Sink errors
	ErrMsgSinkNoRoot        = "directory sink needs a root path"
	ErrMsgSinkWrite         = "failed to write message"
	ErrMsgSinkInvalidFolder = "invalid folder name"

	// Job errors
	ErrMsgJobAllFailed      = "no message could be saved"
	ErrMsgJobNoTemplate     = "template not available"
	ErrMsgRowBeforeHook     = "row rejected by hook"
	ErrMsgSaveBeforeHook    = "save rejected by hook"
	ErrMsgBatchCancelled    = "batch cancelled before row started"
	ErrMsgEngineConcurrency = "engine concurrency must be positive"
	ErrMsgRunnerNoSink      = "runner needs a message sink"
)

// Error code constants for categorization
const (
	ErrCodeTable   = "MAILMERGE_TABLE"
	ErrCodeConfig  = "MAILMERGE_CONFIG"
	ErrCodeCompose = "MAILMERGE_COMPOSE"
	ErrCodeStorage = "MAILMERGE_STORAGE"
	ErrCodeJob     = "MAILMERGE_JOB"
	ErrCodeSink    = "MAILMERGE_SINK"
)

// NewTableError creates a table error. A nil cause yields a validation error.
func NewTableError(msg string, cause error) error {
	if cause != nil {
		return cuserr.WrapStdError(cause, ErrCodeTable, msg)
	}
	return cuserr.NewValidationError(ErrCodeTable, msg)
}

// NewSheetNotFoundError creates an error for a missing XLSX worksheet.
func NewSheetNotFoundError(sheet string) error {
	return cuserr.NewNotFoundError(MetaKeySheet, ErrMsgSheetNotFound).
		WithMetadata(MetaKeySheet, sheet)
}

// NewConfigError creates a job configuration error.
func NewConfigError(msg string, cause error) error {
	if cause != nil {
		return cuserr.WrapStdError(cause, ErrCodeConfig, msg)
	}
	return cuserr.NewValidationError(ErrCodeConfig, msg)
}

// NewConfigValueError creates a configuration error naming the offending field.
func NewConfigValueError(msg, field, value string) error {
	return cuserr.NewValidationError(ErrCodeConfig, msg).
		WithMetadata(MetaKeyField, field).
		WithMetadata(MetaKeyValue, value)
}

// NewComposeError creates a message composition error.
func NewComposeError(msg string, cause error) error {
	if cause != nil {
		return cuserr.WrapStdError(cause, ErrCodeCompose, msg)
	}
	return cuserr.NewValidationError(ErrCodeCompose, msg)
}

// NewRecipientError reports a recipient entry that is not an RFC 5322 address.
// The metadata names the header and carries the entry as resolved.
func NewRecipientError(header, entry string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeCompose, ErrMsgInvalidRecipient).
		WithMetadata(MetaKeyField, header).
		WithMetadata(MetaKeyValue, entry)
}

// NewHeaderValueError reports a header value that would break the header block.
func NewHeaderValueError(header string) error {
	return cuserr.NewValidationError(ErrCodeCompose, ErrMsgHeaderLineBreak).
		WithMetadata(MetaKeyField, header)
}

// NewSinkError creates a sink error for the given folder.
func NewSinkError(msg, folder string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeSink, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeSink, msg)
	}
	return err.WithMetadata(MetaKeyFolder, folder)
}

// NewRowError creates an error attached to a single row of a batch.
func NewRowError(msg string, row int, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeJob, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeJob, msg)
	}
	return err.WithMetadata(MetaKeyRow, strconv.Itoa(row))
}

// NewJobFailedError reports a batch in which no row succeeded.
func NewJobFailedError(batchID string, total int) error {
	return cuserr.NewValidationError(ErrCodeJob, ErrMsgJobAllFailed).
		WithMetadata(MetaKeyBatchID, batchID).
		WithMetadata(MetaKeyRow, strconv.Itoa(total))
}
