package webserver

import (
	"encoding/binary"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize limits uploaded file size to 100MB
	MaxFileSize = 100 * 1024 * 1024
	// MaxFormSize limits form data to 10MB
	MaxFormSize = 10 * 1024 * 1024

	// binarySTLHeaderSize is the fixed 80-byte header plus the uint32
	// triangle count of a binary STL.
	binarySTLHeaderSize = 84
	// binarySTLTriangleSize is the on-disk size of one binary STL triangle.
	binarySTLTriangleSize = 50
)

// AllowedFileExtensions defines the allowed file extensions for uploads
var AllowedFileExtensions = map[string]bool{
	".stl": true,
}

// ValidateFileUpload validates uploaded files for security and checks that
// the content is plausibly an STL mesh.
func ValidateFileUpload(file multipart.File, header *multipart.FileHeader) error {
	if strings.TrimSpace(header.Filename) == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if header.Size > MaxFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", header.Size, MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !AllowedFileExtensions[ext] {
		return fmt.Errorf("invalid file type: %s (allowed: .stl)", ext)
	}

	// Check for path traversal in filename
	if strings.Contains(header.Filename, "..") || strings.Contains(header.Filename, "/") || strings.Contains(header.Filename, "\\") {
		return fmt.Errorf("invalid filename: contains path traversal characters")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && n == 0 {
		return fmt.Errorf("cannot read file content")
	}

	// Rewind so the mesh loader sees the whole stream, not a truncated one.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("cannot rewind file content: %w", err)
	}

	if err := sniffSTL(buffer[:n], header.Size); err != nil {
		return err
	}

	return nil
}

// sniffSTL checks that the first bytes look like an ASCII solid or that the
// binary triangle count matches the file size.
func sniffSTL(head []byte, size int64) error {
	if strings.HasPrefix(strings.TrimLeft(string(head), " \t\r\n"), "solid") {
		return nil
	}

	if size < binarySTLHeaderSize {
		return fmt.Errorf("file is too small to be an STL mesh")
	}

	if len(head) < binarySTLHeaderSize {
		// Can't see the triangle count; accept on extension alone.
		return nil
	}

	count := binary.LittleEndian.Uint32(head[80:84])
	expected := int64(binarySTLHeaderSize) + int64(count)*binarySTLTriangleSize

	if expected != size {
		return fmt.Errorf("file does not look like an STL mesh: triangle count %d does not match size %d", count, size)
	}

	return nil
}

// SanitizeFilename sanitizes filenames to prevent issues
func SanitizeFilename(filename string) string {
	// Remove any path separators and dangerous characters
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, ":", "")
	filename = strings.ReplaceAll(filename, "*", "")
	filename = strings.ReplaceAll(filename, "?", "")
	filename = strings.ReplaceAll(filename, "<", "")
	filename = strings.ReplaceAll(filename, ">", "")
	filename = strings.ReplaceAll(filename, "|", "")
	filename = strings.TrimSpace(filename)

	if filename == "" {
		filename = "upload.stl"
	}

	return filename
}

// ValidateNumericInput validates numeric input within bounds
func ValidateNumericInput(value, min, max int64, fieldName string) error {
	if value < min {
		return fmt.Errorf("%s must be at least %d", fieldName, min)
	}

	if value > max {
		return fmt.Errorf("%s must be at most %d", fieldName, max)
	}

	return nil
}

// ValidateFloatInput validates float input within bounds
func ValidateFloatInput(value, min, max float64, fieldName string) error {
	if value < min {
		return fmt.Errorf("%s must be at least %.2f", fieldName, min)
	}

	if value > max {
		return fmt.Errorf("%s must be at most %.2f", fieldName, max)
	}

	return nil
}
