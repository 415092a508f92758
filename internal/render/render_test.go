package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

// buildPDF writes a minimal valid document with n text pages.
func buildPDF(t *testing.T, n int) string {
	t.Helper()
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(Cordotomia OD) Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 5+n)

	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 5+i)
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), n)
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)
	for i := 0; i < n; i++ {
		offsets[5+i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", 5+i)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(offsets))
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i < len(offsets); i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)

	path := filepath.Join(t.TempDir(), "rol.pdf")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// fakePdftoppm writes one image per page next to the prefix argument, the
// way pdftoppm names them.
type fakePdftoppm struct {
	pages   int
	tiff    bool
	corrupt map[int]bool // 1-based
	err     error
	args    []string
}

func (f *fakePdftoppm) Run(_ context.Context, _ string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.args = args
	if f.err != nil {
		return nil, []byte("Syntax Error: broken"), f.err
	}
	prefix := args[len(args)-1]
	width := len(fmt.Sprint(f.pages))
	for i := 1; i <= f.pages; i++ {
		ext := "png"
		if f.tiff {
			ext = "tif"
		}
		name := fmt.Sprintf("%s-%0*d.%s", prefix, width, i, ext)
		out, err := os.Create(name)
		if err != nil {
			return nil, nil, err
		}
		img := image.NewGray(image.Rect(0, 0, 10+i, 10))
		img.SetGray(0, 0, color.Gray{Y: uint8(i)})
		switch {
		case f.corrupt[i]:
			_, err = out.WriteString("not an image")
		case f.tiff:
			err = tiff.Encode(out, img, nil)
		default:
			err = png.Encode(out, img)
		}
		_ = out.Close()
		if err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestInspect(t *testing.T) {
	n, err := Inspect(buildPDF(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInspect_FatalInputs(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf"), 0o644))

	for _, path := range []string{filepath.Join(dir, "missing.pdf"), garbage} {
		_, err := Inspect(path)
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, common.ErrFatalInput), path)
	}
}

func TestRender(t *testing.T) {
	pdf := buildPDF(t, 12)
	run := &fakePdftoppm{pages: 12}
	r := NewRenderer(Config{DPI: 200, Grayscale: true}, run, nil)

	pages, cleanup, err := r.Render(context.Background(), pdf)
	require.NoError(t, err)
	require.Len(t, pages, 12)

	assert.Equal(t, []string{"-r", "200", "-gray", "-png", pdf}, run.args[:len(run.args)-1])

	// page-10 sorts after page-9 even with lexical globbing
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, 200, p.DPI)
		img, err := p.Image()
		require.NoError(t, err)
		assert.Equal(t, 10+i+1, img.Bounds().Dx())
	}

	dir := filepath.Dir(pages[0].Path())
	assert.DirExists(t, dir)
	cleanup()
	assert.NoDirExists(t, dir)
}

func TestRender_TIFFAndMaxPages(t *testing.T) {
	pdf := buildPDF(t, 4)
	run := &fakePdftoppm{pages: 4, tiff: true}
	r := NewRenderer(Config{ImageFormat: "tiff", MaxPages: 2}, run, nil)

	pages, cleanup, err := r.Render(context.Background(), pdf)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	require.Len(t, pages, 2)
	assert.Contains(t, run.args, "-tiff")
	assert.Contains(t, run.args, "-l")
	assert.Equal(t, "300", run.args[1])

	img, err := pages[1].Image()
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
}

func TestRender_UndecodablePageIsIsolated(t *testing.T) {
	pdf := buildPDF(t, 3)
	r := NewRenderer(Config{}, &fakePdftoppm{pages: 3, corrupt: map[int]bool{2: true}}, nil)

	pages, cleanup, err := r.Render(context.Background(), pdf)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	require.Len(t, pages, 3)

	_, err = pages[1].Image()
	assert.Error(t, err)
	_, err = pages[2].Image()
	assert.NoError(t, err)
}

func TestRender_Failures(t *testing.T) {
	pdf := buildPDF(t, 1)

	r := NewRenderer(Config{}, &fakePdftoppm{err: errors.New("exit status 1")}, nil)
	_, cleanup, err := r.Render(context.Background(), pdf)
	cleanup()
	assert.True(t, errors.Is(err, common.ErrFatalInput))

	r = NewRenderer(Config{}, &fakePdftoppm{err: fmt.Errorf("exec: %w", os.ErrNotExist)}, nil)
	_, _, err = r.Render(context.Background(), pdf)
	assert.True(t, errors.Is(err, common.ErrEngineMissing))

	r = NewRenderer(Config{}, &fakePdftoppm{pages: 0}, nil)
	_, _, err = r.Render(context.Background(), pdf)
	assert.True(t, errors.Is(err, common.ErrFatalInput))

	_, _, err = r.Render(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.True(t, errors.Is(err, common.ErrFatalInput))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r = NewRenderer(Config{}, &fakePdftoppm{err: context.Canceled}, nil)
	_, _, err = r.Render(ctx, pdf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 3))
	p := FromImage(4, 300, src)
	assert.Equal(t, 4, p.Index)
	assert.Empty(t, p.Path())

	img, err := p.Image()
	require.NoError(t, err)
	assert.Same(t, src, img.(*image.Gray))

	_, err = PageImage{Index: 1}.Image()
	assert.Error(t, err)
}
