package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bookcast/ingest/internal/core"
)

// EPUB container structures. An EPUB is a zip archive whose
// META-INF/container.xml points at an OPF package; the package's spine
// lists the reading-order chapter documents.
type epubContainer struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	XMLName  xml.Name `xml:"package"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// EPUBExtractor yields plain text per chapter, in spine order.
type EPUBExtractor struct {
	archive  *zip.ReadCloser
	files    map[string]*zip.File
	chapters []string
}

func NewEPUBExtractor(epubPath string) (*EPUBExtractor, error) {
	archive, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}

	files := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		files[f.Name] = f
	}

	opfPath, err := containerRootFile(files)
	if err != nil {
		_ = archive.Close()
		return nil, err
	}

	chapters, err := spineChapters(files, opfPath)
	if err != nil {
		_ = archive.Close()
		return nil, err
	}

	return &EPUBExtractor{archive: archive, files: files, chapters: chapters}, nil
}

func containerRootFile(files map[string]*zip.File) (string, error) {
	f, okFound := files["META-INF/container.xml"]
	if !okFound {
		return "", fmt.Errorf("epub: container.xml not found")
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("epub: open container.xml: %w", err)
	}
	defer rc.Close()

	var container epubContainer
	if err := xml.NewDecoder(rc).Decode(&container); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w", err)
	}
	if len(container.RootFiles) == 0 {
		return "", fmt.Errorf("epub: no rootfile in container.xml")
	}
	return container.RootFiles[0].FullPath, nil
}

func spineChapters(files map[string]*zip.File, opfPath string) ([]string, error) {
	f, okFound := files[opfPath]
	if !okFound {
		return nil, fmt.Errorf("epub: OPF file not found: %s", opfPath)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open OPF: %w", err)
	}
	defer rc.Close()

	var pkg epubPackage
	if err := xml.NewDecoder(rc).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w", err)
	}

	manifest := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		if item.MediaType == "application/xhtml+xml" || item.MediaType == "text/html" {
			manifest[item.ID] = item.Href
		}
	}

	opfDir := path.Dir(opfPath)
	var chapters []string
	for _, ref := range pkg.Spine.ItemRefs {
		href, okRef := manifest[ref.IDRef]
		if !okRef {
			continue
		}
		full := href
		if opfDir != "." {
			full = path.Join(opfDir, href)
		}
		chapters = append(chapters, full)
	}

	if len(chapters) == 0 {
		return nil, fmt.Errorf("epub: no chapter documents in spine")
	}
	return chapters, nil
}

func (e *EPUBExtractor) UnitCount() int {
	return len(e.chapters)
}

// ExtractUnit returns the normalized plain text of the 1-based chapter n.
// A chapter that fails to read comes back as "" so its siblings still get
// processed.
func (e *EPUBExtractor) ExtractUnit(_ context.Context, n int) (string, error) {
	if n < 1 || n > len(e.chapters) {
		return "", fmt.Errorf("epub: chapter %d out of range", n)
	}

	f, okFound := e.files[e.chapters[n-1]]
	if !okFound {
		return "", nil
	}
	rc, err := f.Open()
	if err != nil {
		return "", nil
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", nil
	}

	text, err := htmlToText(strings.NewReader(string(raw)))
	if err != nil {
		return "", nil
	}
	return text, nil
}

func (e *EPUBExtractor) Close() error {
	return e.archive.Close()
}

var _ core.UnitExtractor = (*EPUBExtractor)(nil)
