package webserver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeFile adapts an in-memory buffer to multipart.File.
type fakeFile struct {
	*bytes.Reader
}

func (fakeFile) Close() error { return nil }

// brokenSeekFile reads fine but refuses to rewind.
type brokenSeekFile struct {
	fakeFile
}

func (brokenSeekFile) Seek(int64, int) (int64, error) {
	return 0, errors.New("seek not supported")
}

func binarySTL(triangles int) []byte {
	buf := make([]byte, 84+50*triangles)
	binary.LittleEndian.PutUint32(buf[80:84], uint32(triangles))

	return buf
}

func TestValidateFileUpload(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		content     []byte
		size        int64 // 0 = len(content)
		expectError bool
	}{
		{
			name:     "valid binary STL",
			filename: "model.stl",
			content:  binarySTL(12),
		},
		{
			name:     "valid ASCII STL",
			filename: "model.stl",
			content:  []byte("solid cube\nfacet normal 0 0 1\nouter loop\n"),
		},
		{
			name:     "ASCII STL with leading whitespace",
			filename: "model.stl",
			content:  []byte("\n  solid cube\n"),
		},
		{
			name:        "empty filename",
			filename:    "   ",
			content:     binarySTL(1),
			expectError: true,
		},
		{
			name:        "wrong extension",
			filename:    "model.obj",
			content:     binarySTL(1),
			expectError: true,
		},
		{
			name:        "path traversal",
			filename:    "../../etc/model.stl",
			content:     binarySTL(1),
			expectError: true,
		},
		{
			name:        "too small for binary STL",
			filename:    "model.stl",
			content:     []byte("not a mesh"),
			expectError: true,
		},
		{
			name:        "triangle count does not match size",
			filename:    "model.stl",
			content:     append(binarySTL(5), 0, 0, 0),
			expectError: true,
		},
		{
			name:        "file too large",
			filename:    "model.stl",
			content:     binarySTL(1),
			size:        MaxFileSize + 1,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.size
			if size == 0 {
				size = int64(len(tt.content))
			}

			header := &multipart.FileHeader{
				Filename: tt.filename,
				Size:     size,
			}

			err := ValidateFileUpload(fakeFile{bytes.NewReader(tt.content)}, header)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// A failed rewind must reject the upload instead of handing a truncated
// stream to the mesh loader.
func TestValidateFileUploadSeekFailure(t *testing.T) {
	content := binarySTL(2)
	header := &multipart.FileHeader{
		Filename: "model.stl",
		Size:     int64(len(content)),
	}

	err := ValidateFileUpload(brokenSeekFile{fakeFile{bytes.NewReader(content)}}, header)
	assert.ErrorContains(t, err, "rewind")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"model.stl", "model.stl"},
		{"../evil.stl", "evil.stl"},
		{"dir/model.stl", "dirmodel.stl"},
		{"mo*de?l.stl", "model.stl"},
		{"  ", "upload.stl"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeFilename(tt.input), "input %q", tt.input)
	}
}

func TestValidateNumericInput(t *testing.T) {
	assert.NoError(t, ValidateNumericInput(150, 10, 1000, "speed"))
	assert.Error(t, ValidateNumericInput(5, 10, 1000, "speed"))
	assert.Error(t, ValidateNumericInput(2000, 10, 1000, "speed"))
}

func TestValidateFloatInput(t *testing.T) {
	assert.NoError(t, ValidateFloatInput(0.4, 0.1, 100, "thickness"))
	assert.Error(t, ValidateFloatInput(0.01, 0.1, 100, "thickness"))
	assert.Error(t, ValidateFloatInput(200, 0.1, 100, "thickness"))
}
