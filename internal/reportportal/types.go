package reportportal

import (
	"strconv"
	"time"
)

// ItemType is the kind of a remote test item
type ItemType string

const (
	ItemSuite       ItemType = "SUITE"
	ItemStep        ItemType = "STEP"
	ItemBeforeSuite ItemType = "BEFORE_SUITE"
	ItemBeforeTest  ItemType = "BEFORE_TEST"
	ItemAfterSuite  ItemType = "AFTER_SUITE"
	ItemAfterTest   ItemType = "AFTER_TEST"
)

// Status is the final status of a remote test item
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// LogLevel is the severity of a remote log entry
type LogLevel string

const (
	LevelTrace LogLevel = "TRACE"
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
	LevelFatal LogLevel = "FATAL"
)

// Launch modes
const (
	ModeDefault = "DEFAULT"
	ModeDebug   = "DEBUG"
)

// IssueNotIssue marks a skipped item as not requiring investigation
const IssueNotIssue = "NOT_ISSUE"

// Millis is a point in time encoded as epoch milliseconds on the wire
type Millis time.Time

func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(time.Time(m).UnixMilli(), 10))), nil
}

// Attribute is a key-optional, value-bearing tag on a launch or item
type Attribute struct {
	Key    string `json:"key,omitempty"`
	Value  string `json:"value"`
	System bool   `json:"system,omitempty"`
}

// Parameter is one name/value pair of a parameterized test item
type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Issue is attached to a finished item to pre-classify it
type Issue struct {
	IssueType string `json:"issueType"`
}

// StartLaunchRQ describes a launch to start
type StartLaunchRQ struct {
	UUID        string      `json:"uuid,omitempty"`
	Name        string      `json:"name"`
	StartTime   Millis      `json:"startTime"`
	Description string      `json:"description,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Mode        string      `json:"mode,omitempty"`
	Rerun       bool        `json:"rerun,omitempty"`
	RerunOf     string      `json:"rerunOf,omitempty"`
}

// FinishExecutionRQ closes a launch
type FinishExecutionRQ struct {
	EndTime Millis `json:"endTime"`
}

// StartTestItemRQ describes a test item to start. ParentID is empty for
// root items of the launch.
type StartTestItemRQ struct {
	UUID        string      `json:"uuid,omitempty"`
	LaunchUUID  string      `json:"launchUuid"`
	ParentID    string      `json:"-"`
	Name        string      `json:"name"`
	StartTime   Millis      `json:"startTime"`
	Type        ItemType    `json:"type"`
	Description string      `json:"description,omitempty"`
	CodeRef     string      `json:"codeRef,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
	// HasStats is nil when the server default (true) should apply
	HasStats   *bool  `json:"hasStats,omitempty"`
	TestCaseID string `json:"testCaseId,omitempty"`
}

// FinishTestItemRQ closes a test item
type FinishTestItemRQ struct {
	LaunchUUID string `json:"launchUuid"`
	EndTime    Millis `json:"endTime"`
	Status     Status `json:"status,omitempty"`
	Issue      *Issue `json:"issue,omitempty"`
}

// Attachment is a file sent along with a log entry
type Attachment struct {
	Name string
	Data []byte
	MIME string
}

// FileRef names the multipart file part a log entry refers to
type FileRef struct {
	Name string `json:"name"`
}

// SaveLogRQ is a single log entry. An empty ItemUUID logs against the launch.
type SaveLogRQ struct {
	LaunchUUID string   `json:"launchUuid"`
	ItemUUID   string   `json:"itemUuid,omitempty"`
	Time       Millis   `json:"time"`
	Message    string   `json:"message"`
	Level      LogLevel `json:"level"`
	File       *FileRef `json:"file,omitempty"`

	Attachment *Attachment `json:"-"`
}

type entryCreatedRS struct {
	ID string `json:"id"`
}
