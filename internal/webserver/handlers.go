package webserver

import (
	"archive/zip"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"printfast/internal/config"
	"printfast/internal/optimizer"
	"printfast/internal/slicer"
)

//go:embed www/*
var wwwFiles embed.FS

// Server wires the HTTP surface to the optimization pipeline.
type Server struct {
	cfg config.Config
	opt *optimizer.Optimizer
}

func New(cfg config.Config) *Server {
	return &Server{
		cfg: cfg,
		opt: optimizer.New(cfg),
	}
}

// Routes returns the service mux. Compression is applied by the caller.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HomeHandler)
	mux.HandleFunc("/optimize", s.OptimizeHandler)
	mux.HandleFunc("/profile", s.ProfileHandler)
	mux.Handle("/www/", http.StripPrefix("/www/", StaticFileServer()))

	return mux
}

// TemplateData holds data for the index page template.
type TemplateData struct {
	Printers     []string
	DefaultSpeed int64
}

func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	templateContent, err := wwwFiles.ReadFile("www/index_template.html")
	if err != nil {
		slog.Error("Error reading index_template.html", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	tmpl, err := template.New("index").Parse(string(templateContent))
	if err != nil {
		slog.Error("Error parsing template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	data := TemplateData{
		Printers:     slicer.Printers(),
		DefaultSpeed: 150,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err = tmpl.Execute(w, data); err != nil {
		slog.Error("Error executing template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}
}

// OptimizeHandler accepts an STL upload plus print settings, runs the
// pipeline and responds with a ZIP bundle: hollowed STL, slicer profile
// and a report.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "OptimizeHandler")
	log.Info("Received optimize request", "remote_addr", r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := s.receiveRequest(w, r)
	if err != nil {
		log.Error("Failed to receive request", "error", err)
		WriteErrorResponse(w, err, http.StatusBadRequest)

		return
	}

	defer os.Remove(req.InputPath)

	result, err := s.opt.Run(r.Context(), req)
	if err != nil {
		log.Error("Optimization failed", "error", err)
		WriteErrorResponse(w, err, http.StatusInternalServerError)

		return
	}

	// The pipeline puts all result files in a per-job directory.
	defer os.RemoveAll(filepath.Dir(result.OutputMesh))

	bundlePath := strings.TrimSuffix(result.OutputMesh, ".stl") + ".zip"

	if err = writeBundle(bundlePath, result); err != nil {
		log.Error("Failed to bundle results", "error", err)
		WriteErrorResponse(w, err, http.StatusInternalServerError)

		return
	}

	if err = sendBundle(w, bundlePath); err != nil {
		log.Error("Failed to send response", "error", err)
		WriteErrorResponse(w, err, http.StatusInternalServerError)

		return
	}

	log.Info("Request processed", "bundle", filepath.Base(bundlePath))
}

// ProfileHandler serves the embedded printer definition for a printer name,
// so users can inspect what their profile is rendered from.
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	printerName := r.URL.Query().Get("printer")
	if printerName == "" {
		http.Error(w, "Missing printer parameter", http.StatusBadRequest)
		return
	}

	data, err := slicer.RawPrinterDefinition(printerName)
	if err != nil {
		http.Error(w, "Printer not found: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) receiveRequest(w http.ResponseWriter, r *http.Request) (optimizer.Request, error) {
	var req optimizer.Request

	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize)

	if err := r.ParseMultipartForm(MaxFormSize); err != nil {
		return req, fmt.Errorf("form parsing error: %w", err)
	}

	req.Mode = r.FormValue("mode")
	if req.Mode == "" {
		req.Mode = optimizer.ModeFast
	}

	speedS := r.FormValue("speed")
	if speedS == "" {
		speedS = "150"
	}

	speed, err := strconv.ParseInt(speedS, 10, 64)
	if err != nil {
		return req, fmt.Errorf("invalid speed value %v: %w", speedS, err)
	}

	if err = ValidateNumericInput(speed, 10, 1000, "speed"); err != nil {
		return req, err
	}

	req.MaxSpeed = speed

	thicknessS := r.FormValue("thickness")
	if thicknessS != "" {
		req.Thickness, err = strconv.ParseFloat(thicknessS, 64)
		if err != nil {
			return req, fmt.Errorf("invalid thickness value %v: %w", thicknessS, err)
		}

		if err = ValidateFloatInput(req.Thickness, 0.1, 100, "thickness"); err != nil {
			return req, err
		}
	}

	req.Printer = r.FormValue("printer")
	if req.Printer == "" {
		req.Printer = "anycubic-kobra-max"
	}

	req.EstimateTime = r.FormValue("estimate") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, fmt.Errorf("file retrieval error: %w", err)
	}
	defer file.Close()

	if err = ValidateFileUpload(file, header); err != nil {
		return req, err
	}

	req.SourceName = SanitizeFilename(header.Filename)

	timestamp := time.Now().Unix()
	fileName := fmt.Sprintf("%d_%s", timestamp, req.SourceName)
	inputPath := path.Join(s.cfg.Files.Uploads, fileName)

	dst, err := os.Create(inputPath)
	if err != nil {
		return req, fmt.Errorf("file creation failed: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		_ = os.Remove(inputPath)
		return req, fmt.Errorf("file saving error: %w", err)
	}

	req.InputPath = inputPath
	req.OutputDir = s.cfg.Files.Results

	return req, nil
}

// writeBundle zips the hollowed STL, the profile archive and the report
// into a single download.
func writeBundle(bundlePath string, result *optimizer.Result) error {
	f, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to create bundle file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for _, src := range []string{result.OutputMesh, result.ProfilePath} {
		if err = addFileToZip(zw, src); err != nil {
			return err
		}
	}

	report, err := zw.Create("report.txt")
	if err != nil {
		return fmt.Errorf("failed to create report entry: %w", err)
	}

	if _, err = report.Write([]byte(result.Report())); err != nil {
		return fmt.Errorf("failed to write report entry: %w", err)
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize bundle: %w", err)
	}

	return f.Close()
}

func addFileToZip(zw *zip.Writer, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s for bundling: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := zw.Create(filepath.Base(srcPath))
	if err != nil {
		return fmt.Errorf("failed to create bundle entry: %w", err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write bundle entry: %w", err)
	}

	return nil
}

func sendBundle(w http.ResponseWriter, bundlePath string) error {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(bundlePath)))
	w.Header().Set("Content-Type", "application/zip")

	file, err := os.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to open bundle %s: %w", bundlePath, err)
	}
	defer file.Close()

	if _, err = io.Copy(w, file); err != nil {
		return fmt.Errorf("failed writing response: %w", err)
	}

	return nil
}

func StaticFileServer() http.Handler {
	subFS, err := fs.Sub(wwwFiles, "www")
	if err != nil {
		slog.Error("Failed to create sub-filesystem", "error", err)
		return http.FileServer(http.FS(wwwFiles))
	}

	return http.FileServer(http.FS(subFS))
}
