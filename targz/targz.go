// Package targz reads newspaper issue archives: tar files, optionally
// gzip-compressed, decompressed in parallel with github.com/klauspost/pgzip.
package targz

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/fwojciec/metsalto"
	"github.com/klauspost/pgzip"
)

// Ensure Loader implements metsalto.ArchiveLoader.
var _ metsalto.ArchiveLoader = (*Loader)(nil)

// DescriptorName is the member name of the structural descriptor.
const DescriptorName = "mets.xml"

var pageNameRe = regexp.MustCompile(`(?:^|/)(\d+)\.xml$`)

var gzipMagic = []byte{0x1f, 0x8b}

// Loader reads one issue's documents from its archive.
type Loader struct {
	// MaxMemberSize caps the size of a single member. Zero means no limit.
	MaxMemberSize int64
}

// NewLoader returns a Loader with default settings.
func NewLoader() *Loader {
	return &Loader{MaxMemberSize: 256 << 20}
}

// Load reads the descriptor and page documents under issue.Prefix. A
// damaged stream returns the documents read so far with the error.
func (l *Loader) Load(ctx context.Context, issue *metsalto.Issue) (*metsalto.Archive, error) {
	f, err := os.Open(issue.ArchivePath)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EARCHIVE, err, "opening archive %s", issue.ArchivePath)
	}
	defer f.Close()

	tr, closeFn, err := openTar(f)
	if err != nil {
		return nil, metsalto.WrapError(metsalto.EARCHIVE, err, "reading archive %s", issue.ArchivePath)
	}
	defer closeFn()

	archive := &metsalto.Archive{}
	seen := make(map[int]bool)
	for {
		if err := ctx.Err(); err != nil {
			return archive, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			archive.SortPages()
			return archive, metsalto.WrapError(metsalto.EARCHIVE, err, "reading archive %s", issue.ArchivePath)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := memberName(hdr.Name)
		if !strings.HasPrefix(name, issue.Prefix) || !strings.HasSuffix(strings.ToLower(name), ".xml") {
			continue
		}

		isDescriptor := strings.EqualFold(path.Base(name), DescriptorName)
		seq, isPage := pageSequence(name)
		if !isDescriptor && !isPage {
			continue
		}
		if isDescriptor && archive.Descriptor != nil {
			continue
		}
		if isPage && seen[seq] {
			continue
		}

		data, err := l.readMember(tr, hdr)
		if err != nil {
			archive.SortPages()
			return archive, metsalto.WrapError(metsalto.EARCHIVE, err, "reading %s from %s", name, issue.ArchivePath)
		}
		if isDescriptor {
			archive.Descriptor = data
			archive.DescriptorName = name
			continue
		}
		seen[seq] = true
		archive.Pages = append(archive.Pages, metsalto.ArchivePage{Sequence: seq, Name: name, Data: data})
	}
	archive.SortPages()

	switch {
	case archive.Descriptor == nil && len(archive.Pages) == 0:
		return archive, metsalto.Errorf(metsalto.EARCHIVE, "no documents for %s under %q in %s", issue.Code, issue.Prefix, issue.ArchivePath)
	case archive.Descriptor == nil:
		return archive, metsalto.Errorf(metsalto.EARCHIVE, "no %s for %s in %s", DescriptorName, issue.Code, issue.ArchivePath)
	case len(archive.Pages) == 0:
		return archive, metsalto.Errorf(metsalto.EARCHIVE, "no page documents for %s in %s", issue.Code, issue.ArchivePath)
	}
	return archive, nil
}

func (l *Loader) readMember(r io.Reader, hdr *tar.Header) ([]byte, error) {
	if l.MaxMemberSize > 0 && hdr.Size > l.MaxMemberSize {
		return nil, errors.New("member exceeds size limit")
	}
	var buf bytes.Buffer
	if hdr.Size > 0 {
		buf.Grow(int(hdr.Size))
	}
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// openTar returns a tar reader over r, transparently decompressing gzip.
func openTar(r io.Reader) (*tar.Reader, func() error, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	if bytes.Equal(magic, gzipMagic) {
		zr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return tar.NewReader(zr), zr.Close, nil
	}
	return tar.NewReader(br), func() error { return nil }, nil
}

// memberName normalizes a tar member name.
func memberName(name string) string {
	return strings.TrimPrefix(path.Clean(strings.TrimPrefix(name, "./")), "/")
}

// pageSequence extracts the page number from names like ".../0003.xml".
func pageSequence(name string) (int, bool) {
	m := pageNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
