package main

// Command names
const (
	CmdNameMerge    = "merge"
	CmdNameRender   = "render"
	CmdNameValidate = "validate"
	CmdNameTemplate = "template"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Template subcommand names
const (
	SubCmdSave     = "save"
	SubCmdShow     = "show"
	SubCmdList     = "list"
	SubCmdDelete   = "delete"
	SubCmdVersions = "versions"
)

// Flag names - long form
const (
	FlagJob         = "job"
	FlagTemplate    = "template"
	FlagData        = "data"
	FlagOutput      = "output"
	FlagFormat      = "format"
	FlagStrictMode  = "strict"
	FlagHeader      = "header"
	FlagSeparator   = "separator"
	FlagEnclosure   = "enclosure"
	FlagSheet       = "sheet"
	FlagFolder      = "folder"
	FlagStore       = "store"
	FlagName        = "name"
	FlagVersion     = "version"
	FlagFile        = "file"
	FlagTag         = "tag"
	FlagCreatedBy   = "created-by"
	FlagPrefix      = "prefix"
	FlagAllVersions = "all-versions"
	FlagDryRun      = "dry-run"
	FlagVerbose     = "verbose"
	FlagQuiet       = "quiet"
)

// Flag names - short form
const (
	FlagJobShort       = "j"
	FlagTemplateShort  = "t"
	FlagDataShort      = "d"
	FlagOutputShort    = "o"
	FlagFormatShort    = "F"
	FlagSeparatorShort = "s"
	FlagEnclosureShort = "e"
	FlagNameShort      = "n"
	FlagFileShort      = "f"
	FlagVerboseShort   = "v"
	FlagQuietShort     = "q"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
	FlagDefaultStore  = "filesystem:templates"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand     = "unknown command"
	ErrMsgUnknownSubcommand  = "unknown template subcommand"
	ErrMsgMissingTemplate    = "template source required"
	ErrMsgMissingJob         = "job file required"
	ErrMsgMissingData        = "data file required"
	ErrMsgMissingName        = "template name required"
	ErrMsgMissingOutputDir   = "output directory required (set output_dir or pass --output)"
	ErrMsgBothStdin          = "template and data cannot both be read from stdin"
	ErrMsgInvalidFlags       = "invalid arguments"
	ErrMsgReadFileFailed     = "failed to read file"
	ErrMsgWriteOutputFailed  = "failed to write output"
	ErrMsgInvalidFormat      = "invalid output format"
	ErrMsgLoadJobFailed      = "failed to load job"
	ErrMsgLoadDataFailed     = "failed to load data"
	ErrMsgInvalidJob         = "invalid job"
	ErrMsgMergeFailed        = "merge failed"
	ErrMsgOpenStoreFailed    = "failed to open template store"
	ErrMsgStoreFailed        = "template store operation failed"
	ErrMsgParseTemplateFile  = "failed to parse template file"
	ErrMsgCreateSinkFailed   = "failed to create output directory"
	ErrMsgCreateLoggerFailed = "failed to create logger"
)

// Help text templates
const (
	HelpMainUsage = `go-mailmerge - Mail merge CLI

Usage:
    mailmerge <command> [options]

Commands:
    merge       Run a merge job and write one message per row
    render      Resolve a single template string against every data row
    validate    Check a template for malformed tags and unknown fields
    template    Manage stored merge templates
    version     Show version information
    help        Show help for a command

Use "mailmerge help <command>" for more information about a command.`

	HelpMergeUsage = `Run a merge job and write one message per row

Usage:
    mailmerge merge [options]

Options:
    -j, --job <file>          Job file (YAML)
    -d, --data <file>         Data file, overrides the job's data path
    -o, --output <dir>        Output directory, overrides the job's output_dir
    --folder <name>           Target folder, overrides the job's folder
    --store <driver:conn>     Template store for template_ref jobs
    --dry-run                 Resolve and compose without writing files
    -F, --format <format>     Report format: text, json (default: text)
    -v, --verbose             Log progress to stderr

Examples:
    mailmerge merge -j renewal.yaml
    mailmerge merge -j renewal.yaml -d march.csv -o out --folder Outbox
    mailmerge merge -j renewal.yaml --dry-run -F json`

	HelpRenderUsage = `Resolve a single template string against every data row

Usage:
    mailmerge render [options]

Options:
    -t, --template <file>     Template file (use "-" for stdin)
    -d, --data <file>         CSV or XLSX data file (use "-" for stdin CSV)
    -s, --separator <sep>     CSV separator: "," ";" "|" or tab (default: ",")
    -e, --enclosure <char>    CSV enclosure: '"' or "'" (default: '"')
    --sheet <name>            XLSX worksheet (default: first)
    -o, --output <file>       Output file (default: stdout)
    -F, --format <format>     Output format: text, json (default: text)

Examples:
    mailmerge render -t greeting.txt -d customers.csv
    echo 'Hi {{first}}' | mailmerge render -t - -d customers.csv -s ';'`

	HelpValidateUsage = `Check a template for malformed tags and unknown fields

Usage:
    mailmerge validate [options]

Options:
    -t, --template <file>     Template file (use "-" for stdin)
    -j, --job <file>          Validate every string of a job's template instead
    -d, --data <file>         Read known field names from a data file header
    --header <a,b,c>          Known field names
    --store <driver:conn>     Template store for template_ref jobs
    -F, --format <format>     Output format: text, json (default: text)
    --strict                  Treat warnings as errors

Examples:
    mailmerge validate -t body.txt --header first,email,plan
    mailmerge validate -j renewal.yaml --strict`

	HelpTemplateUsage = `Manage stored merge templates

Usage:
    mailmerge template <subcommand> [options]

Subcommands:
    save        Save a YAML merge template as a new version
    show        Print a stored template
    list        List stored templates
    delete      Delete every version of a template
    versions    List the versions of a template

Options:
    --store <driver:conn>     Template store (default: filesystem:templates)
    -n, --name <name>         Template name
    -f, --file <file>         Template file for save (YAML, use "-" for stdin)
    --tag <tag>               Tag for save, or tag filter for list (repeatable)
    --created-by <who>        Author for save, or author filter for list
    --version <n>             Version for show (default: latest)
    --prefix <prefix>         Name prefix filter for list
    --all-versions            List every version, not only the latest
    -F, --format <format>     Output format: text, json (default: text)

Examples:
    mailmerge template save -n renewal -f renewal.yaml --tag q3
    mailmerge template show -n renewal --version 2
    mailmerge template list --store postgres:postgres://localhost/mail --tag q3`

	HelpVersionUsage = `Show version information

Usage:
    mailmerge version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    mailmerge help [command]

Commands:
    merge       Show help for merge command
    render      Show help for render command
    validate    Show help for validate command
    template    Show help for template command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "go-mailmerge version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// Validation output format templates
const (
	ValidationTextSuccess      = "Template is valid"
	ValidationTextIssueHeader  = "Validation issues:"
	ValidationTextIssueFormat  = "  [%s] %s"
	ValidationTextErrorSummary = "%d error(s), %d warning(s)"
	ValidationTextFields       = "Fields: %s"
)

// Severity names for output
const (
	SeverityNameError   = "ERROR"
	SeverityNameWarning = "WARNING"
	SeverityNameInfo    = "INFO"
)

// Merge report format templates
const (
	ReportTextSummary = "Batch %s: %d row(s), %d saved, %d failed in %s"
	ReportTextFolder  = "Folder: %s"
	ReportTextSaved   = "  saved %s"
	ReportTextFailed  = "  row %d: %v"
	ReportTextDryRun  = "  [dry-run] %s -> %s"
)

// Template store output format templates
const (
	TemplateTextSaved   = "saved %s version %d (%s)"
	TemplateTextDeleted = "deleted %s"
	TemplateTextRow     = "%s\tv%d\t%s"
	TemplateTextVersion = "v%d"
)

// CLI metadata
const (
	CLIName        = "mailmerge"
	CLIDescription = "Mail merge CLI"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
	ListSeparator      = ","
)
