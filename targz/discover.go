package targz

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fwojciec/metsalto"
)

var yearArchiveRe = regexp.MustCompile(`^([A-Z][A-Z0-9]*)_(\d{4})\.tar(?:\.gz)?$`)

// Filter restricts discovery. Empty fields match everything.
type Filter struct {
	// NewspaperYears are codes like "CHP_1903".
	NewspaperYears []string

	// Newspapers are codes like "CHP".
	Newspapers []string
}

func (f Filter) match(newspaper, year string) bool {
	if len(f.NewspaperYears) > 0 && !contains(f.NewspaperYears, newspaper+"_"+year) {
		return false
	}
	if len(f.Newspapers) > 0 && !contains(f.Newspapers, newspaper) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// Resolver turns issue selections into issues located in a set of input
// directories holding NEWS_YEAR.tar.gz archives.
type Resolver struct {
	Dirs     []string
	Revision string
}

// NewResolver returns a Resolver over dirs stamping issues with revision.
func NewResolver(dirs []string, revision string) *Resolver {
	return &Resolver{Dirs: dirs, Revision: revision}
}

// Issues locates explicit issue codes. Codes that are invalid or whose
// archive is missing are returned as problems; the rest are returned sorted
// by code without duplicates.
func (r *Resolver) Issues(codes []string) ([]*metsalto.Issue, []error) {
	var problems []error
	byCode := make(map[string]*metsalto.Issue)
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || byCode[code] != nil {
			continue
		}
		name, prefix, err := metsalto.YearArchive(code)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		archivePath, ok := r.find(name)
		if !ok {
			problems = append(problems, metsalto.Errorf(metsalto.EARCHIVE, "issue %s: %s not found in input directories", code, name))
			continue
		}
		issue, err := metsalto.NewIssue(code, archivePath, prefix, r.Revision)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		byCode[code] = issue
	}
	return sortedIssues(byCode), problems
}

// find returns the first input directory holding the named archive.
func (r *Resolver) find(name string) (string, bool) {
	for _, dir := range r.Dirs {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Discover scans every year archive in the input directories for issue
// descriptors. Unreadable archives are reported as problems and skipped.
// The first directory holding an issue wins.
func (r *Resolver) Discover(ctx context.Context, filter Filter) ([]*metsalto.Issue, []error, error) {
	var problems []error
	byCode := make(map[string]*metsalto.Issue)
	for _, dir := range r.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			problems = append(problems, metsalto.WrapError(metsalto.EARCHIVE, err, "reading input directory %s", dir))
			continue
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, problems, err
			}
			if e.IsDir() {
				continue
			}
			m := yearArchiveRe.FindStringSubmatch(e.Name())
			if m == nil || !filter.match(m[1], m[2]) {
				continue
			}
			archivePath := filepath.Join(dir, e.Name())
			issues, err := r.scan(archivePath, m[1])
			if err != nil {
				problems = append(problems, err)
			}
			for _, issue := range issues {
				if byCode[issue.Code] == nil {
					byCode[issue.Code] = issue
				}
			}
		}
	}
	return sortedIssues(byCode), problems, nil
}

// scan lists the issues of one year archive from its member names.
func (r *Resolver) scan(archivePath, newspaper string) ([]*metsalto.Issue, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EARCHIVE, err, "opening archive %s", archivePath)
	}
	defer f.Close()

	tr, closeFn, err := openTar(f)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EARCHIVE, err, "reading archive %s", archivePath)
	}
	defer closeFn()

	var issues []*metsalto.Issue
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return issues, nil
		}
		if err != nil {
			return issues, metsalto.WrapError(metsalto.EARCHIVE, err, "reading archive %s", archivePath)
		}
		name := memberName(hdr.Name)
		if !strings.EqualFold(path.Base(name), DescriptorName) {
			continue
		}
		// NEWS/YEAR/NEWS_DATE/MM_01/mets.xml
		parts := strings.Split(name, "/")
		if len(parts) < 4 {
			continue
		}
		code := parts[len(parts)-3]
		paper, _, err := metsalto.ParseIssueCode(code)
		if err != nil || paper != newspaper {
			continue
		}
		issue, err := metsalto.NewIssue(code, archivePath, path.Dir(name)+"/", r.Revision)
		if err != nil {
			continue
		}
		issues = append(issues, issue)
	}
}

func sortedIssues(byCode map[string]*metsalto.Issue) []*metsalto.Issue {
	issues := make([]*metsalto.Issue, 0, len(byCode))
	for _, issue := range byCode {
		issues = append(issues, issue)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Code < issues[j].Code })
	return issues
}
