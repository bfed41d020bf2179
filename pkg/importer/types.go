package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Export is a test management export: a forest of suites.
type Export struct {
	Suites []Suite `json:"suites"`
}

type Suite struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Preconditions string  `json:"preconditions"`
	Cases         []Case  `json:"cases"`
	Suites        []Suite `json:"suites"`
}

type Case struct {
	ID             int           `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Preconditions  string        `json:"preconditions"`
	Postconditions string        `json:"postconditions"`
	Priority       string        `json:"priority"`
	Severity       string        `json:"severity"`
	CustomFields   []CustomField `json:"custom_fields"`
	Steps          []Step        `json:"steps"`
}

type Step struct {
	Position       int    `json:"position"`
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
	Data           string `json:"data"`
}

type CustomField struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Decode reads an export document.
func Decode(r io.Reader) (*Export, error) {
	var exp Export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &exp, nil
}

type Options struct {
	DryRun    bool
	Overwrite bool
	Verbose   bool
	// Now stamps created/modified; defaults to time.Now.
	Now       func() time.Time
}

type Report struct {
	Suites           int
	Cases            int
	Readmes          int
	SkippedFiles     int
	FailedFiles      int
	WrittenFiles     []string
	ProcessingErrors map[string]error
	StartTime        time.Time
	EndTime          time.Time
}

func NewReport() *Report {
	return &Report{
		ProcessingErrors: make(map[string]error),
		StartTime:        time.Now(),
	}
}

func (r *Report) AddError(file string, err error) {
	r.ProcessingErrors[file] = err
	r.FailedFiles++
}

func (r *Report) Complete() {
	r.EndTime = time.Now()
}

func (r *Report) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
