package metsalto

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// IssueDateLayout is the date format embedded in issue codes.
const IssueDateLayout = "20060102"

var issueCodeRe = regexp.MustCompile(`^([A-Z][A-Z0-9]*)_(\d{8})$`)

// Issue identifies one newspaper issue archive and its output target.
type Issue struct {
	// Code is <NEWSPAPER>_<YYYYMMDD>, e.g. "CHP_19031228".
	Code      string    `json:"code"`
	Newspaper string    `json:"newspaper"`
	Date      time.Time `json:"date"`

	// ArchivePath is the tar or tar.gz file holding the issue.
	ArchivePath string `json:"archivePath"`

	// Prefix restricts the archive to members below this directory. It is
	// set when one archive holds many issues (a newspaper-year archive).
	Prefix string `json:"prefix,omitempty"`

	// Revision labels the processing run; embedded in output filenames.
	Revision string `json:"revision"`
}

// Validate returns an error if the issue contains invalid fields.
func (i *Issue) Validate() error {
	if i.Code == "" {
		return Errorf(EINVALID, "issue code required")
	}
	if i.ArchivePath == "" {
		return Errorf(EINVALID, "issue %s: archive path required", i.Code)
	}
	return nil
}

// OutputName returns the batch file name for the issue without extension:
// PP_<NEWSPAPER>_<DATE>_<REVISION>.
func (i *Issue) OutputName() string {
	if i.Revision == "" {
		return "PP_" + i.Code
	}
	return "PP_" + i.Code + "_" + i.Revision
}

// ParseIssueCode splits an issue code into newspaper and date.
func ParseIssueCode(code string) (newspaper string, date time.Time, err error) {
	m := issueCodeRe.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return "", time.Time{}, Errorf(EINVALID, "invalid issue code %q: expected NEWSPAPER_YYYYMMDD", code)
	}
	date, err = time.Parse(IssueDateLayout, m[2])
	if err != nil {
		return "", time.Time{}, Errorf(EINVALID, "invalid date in issue code %q", code)
	}
	return m[1], date, nil
}

// NewIssue builds an Issue from its code and archive location.
func NewIssue(code, archivePath, prefix, revision string) (*Issue, error) {
	newspaper, date, err := ParseIssueCode(code)
	if err != nil {
		return nil, err
	}
	return &Issue{
		Code:        code,
		Newspaper:   newspaper,
		Date:        date,
		ArchivePath: archivePath,
		Prefix:      prefix,
		Revision:    revision,
	}, nil
}

// YearArchive returns the newspaper-year archive name and the member prefix
// that hold the issue, following the NEWS_YEAR.tar.gz convention:
//
//	CHP_1903.tar.gz -> CHP/1903/CHP_19031228/MM_01/
func YearArchive(code string) (archive, prefix string, err error) {
	newspaper, date, err := ParseIssueCode(code)
	if err != nil {
		return "", "", err
	}
	year := date.Format("2006")
	archive = fmt.Sprintf("%s_%s.tar.gz", newspaper, year)
	prefix = fmt.Sprintf("%s/%s/%s/MM_01/", newspaper, year, code)
	return archive, prefix, nil
}
