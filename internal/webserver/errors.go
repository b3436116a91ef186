package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeUpload     ErrorType = "upload"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeMesh       ErrorType = "mesh"
	ErrorTypeRepair     ErrorType = "mesh_repair"
	ErrorTypeCSGEngine  ErrorType = "csg_engine"
	ErrorTypeSlicer     ErrorType = "slicer"
	ErrorTypeFileIO     ErrorType = "file_io"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Type        ErrorType `json:"type"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Details     string    `json:"details"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// CategorizeError analyzes an error and returns an appropriate ErrorResponse
func CategorizeError(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{
			Type:        ErrorTypeInternal,
			Code:        "unknown_error",
			Title:       "Processing failed",
			Description: "The optimization could not be completed.",
			Details:     "No error details available",
		}
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	// Repair errors before generic mesh errors: "watertight" implies both.
	if strings.Contains(errMsgLower, "watertight") || strings.Contains(errMsgLower, "repair") {
		return ErrorResponse{
			Type:        ErrorTypeRepair,
			Code:        "mesh_not_repairable",
			Title:       "Mesh could not be repaired",
			Description: "The model is not a closed surface and automatic repair did not succeed.",
			Details:     errMsg,
			Suggestions: []string{
				"Repair the model manually in a mesh editor (e.g. Meshmixer or Blender)",
				"Re-export the STL from your CAD tool with a finer tessellation",
			},
		}
	}

	// Upload validation before mesh errors: "invalid file type" mentions
	// the .stl extension and must not be mistaken for a mesh failure.
	if strings.Contains(errMsgLower, "invalid file type") || strings.Contains(errMsgLower, "filename") ||
		strings.Contains(errMsgLower, "file too large") || strings.Contains(errMsgLower, "form") ||
		strings.Contains(errMsgLower, "multipart") || strings.Contains(errMsgLower, "file retrieval") {
		return ErrorResponse{
			Type:        ErrorTypeUpload,
			Code:        "upload_error",
			Title:       "Upload failed",
			Description: "The uploaded file could not be accepted.",
			Details:     errMsg,
			Suggestions: []string{
				"Make sure a valid STL file is selected",
				"Check the file size limit and try again",
			},
		}
	}

	if strings.Contains(errMsgLower, "stl") || strings.Contains(errMsgLower, "triangles") ||
		strings.Contains(errMsgLower, "zero-extent") {
		return ErrorResponse{
			Type:        ErrorTypeMesh,
			Code:        "invalid_mesh",
			Title:       "Model could not be loaded",
			Description: "The uploaded file is not a usable STL mesh.",
			Details:     errMsg,
			Suggestions: []string{
				"Check that the file is a binary or ASCII STL",
				"Re-export the model from your CAD tool",
			},
		}
	}

	if strings.Contains(errMsgLower, "csg engine") {
		return ErrorResponse{
			Type:        ErrorTypeCSGEngine,
			Code:        "csg_engine_failed",
			Title:       "Hollowing failed",
			Description: "The geometry engine could not hollow the model.",
			Details:     errMsg,
			Suggestions: []string{
				"Check that OpenSCAD is installed and on the configured path",
				"Very large or broken models can exceed the engine's time budget",
			},
		}
	}

	if strings.Contains(errMsgLower, "slicer") || strings.Contains(errMsgLower, ";time:") {
		return ErrorResponse{
			Type:        ErrorTypeSlicer,
			Code:        "slicer_failed",
			Title:       "Time estimation failed",
			Description: "The slicing engine could not produce a print-time estimate.",
			Details:     errMsg,
			Suggestions: []string{
				"Check that CuraEngine and the machine definition file are configured",
				"Retry without time estimation",
			},
		}
	}

	if strings.Contains(errMsgLower, "thickness") || strings.Contains(errMsgLower, "speed") ||
		strings.Contains(errMsgLower, "mode") || strings.Contains(errMsgLower, "printer") {
		return ErrorResponse{
			Type:        ErrorTypeValidation,
			Code:        "invalid_parameters",
			Title:       "Invalid print settings",
			Description: "One of the submitted settings is out of range for this model.",
			Details:     errMsg,
			Suggestions: []string{
				"Wall thickness cannot exceed half of the model's smallest dimension",
				"Pick a printer from the dropdown and keep speed between 10 and 1000 mm/s",
			},
		}
	}

	if strings.Contains(errMsgLower, "file") {
		code := "file_read_error"
		title := "File could not be read"

		if strings.Contains(errMsgLower, "create") || strings.Contains(errMsgLower, "write") {
			code = "file_write_error"
			title = "File could not be written"
		}

		return ErrorResponse{
			Type:        ErrorTypeFileIO,
			Code:        code,
			Title:       title,
			Description: "A file operation failed while processing the model.",
			Details:     errMsg,
			Suggestions: []string{
				"Check free disk space on the server",
				"Retry the upload",
			},
		}
	}

	return ErrorResponse{
		Type:        ErrorTypeInternal,
		Code:        "processing_error",
		Title:       "Processing failed",
		Description: "The optimization could not be completed.",
		Details:     errMsg,
		Suggestions: []string{
			"Retry the request",
			"Check the submitted settings and the uploaded file",
		},
	}
}

// WriteErrorResponse writes a structured error response as JSON
func WriteErrorResponse(w http.ResponseWriter, err error, statusCode int) {
	errorResp := CategorizeError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if jsonErr := json.NewEncoder(w).Encode(errorResp); jsonErr != nil {
		// Fallback to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "Error: %v", err)
	}
}
