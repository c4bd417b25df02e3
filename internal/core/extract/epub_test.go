package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf">
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover" href="cover.png" media-type="image/png"/>
  </manifest>
  <spine>
    <itemref idref="ch2"/>
    <itemref idref="ch1"/>
    <itemref idref="cover"/>
  </spine>
</package>`

func writeTestEPUB(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestEPUBExtractorReadsChaptersInSpineOrder(t *testing.T) {
	path := writeTestEPUB(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/ch1.xhtml":        "<html><body><p>First chapter.</p></body></html>",
		"OEBPS/ch2.xhtml":        "<html><body><p>Second chapter.</p></body></html>",
	})

	ex, err := NewEPUBExtractor(path)
	require.NoError(t, err)
	defer ex.Close()

	// The cover image is not an xhtml document, so only two chapters
	// survive; the spine puts ch2 before ch1.
	assert.Equal(t, 2, ex.UnitCount())

	first, err := ex.ExtractUnit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Second chapter.", first)

	second, err := ex.ExtractUnit(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "First chapter.", second)
}

func TestEPUBExtractorMissingChapterYieldsEmptyText(t *testing.T) {
	path := writeTestEPUB(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/ch1.xhtml":        "<html><body><p>Only chapter.</p></body></html>",
	})

	ex, err := NewEPUBExtractor(path)
	require.NoError(t, err)
	defer ex.Close()

	// ch2 is in the spine but missing from the archive.
	text, err := ex.ExtractUnit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestEPUBExtractorOutOfRange(t *testing.T) {
	path := writeTestEPUB(t, map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/ch1.xhtml":        "<html><body><p>x</p></body></html>",
	})

	ex, err := NewEPUBExtractor(path)
	require.NoError(t, err)
	defer ex.Close()

	_, err = ex.ExtractUnit(context.Background(), 0)
	require.Error(t, err)
	_, err = ex.ExtractUnit(context.Background(), 3)
	require.Error(t, err)
}

func TestEPUBExtractorRejectsMissingContainer(t *testing.T) {
	path := writeTestEPUB(t, map[string]string{
		"OEBPS/ch1.xhtml": "<html><body><p>x</p></body></html>",
	})

	_, err := NewEPUBExtractor(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container.xml")
}
