package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	recruitrag "github.com/devMohamedYusri/Recruit-Rag"
	"github.com/devMohamedYusri/Recruit-Rag/store"
	"github.com/devMohamedYusri/Recruit-Rag/upload"
)

type handler struct {
	engine *recruitrag.Engine
}

func newHandler(e *recruitrag.Engine) *handler {
	return &handler{engine: e}
}

// POST /projects/{project_id}/upload
// Multipart upload; field "files" carries one or more documents or zips.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100MB in memory+spill
		writeError(w, http.StatusBadRequest, "expected multipart form with 'files'")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	files := make([]upload.File, 0, len(headers))
	var closers []interface{ Close() error }
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file: "+fh.Filename)
			return
		}
		closers = append(closers, f)
		files = append(files, upload.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Reader:      f,
		})
	}

	assets, err := h.engine.UploadFiles(r.Context(), projectID, files)
	if err != nil {
		h.writeEngineError(w, err, "upload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"stored":     len(assets),
		"assets":     assets,
	})
}

// POST /projects/{project_id}/process
func (h *handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req struct {
		AssetNames []string `json:"asset_names,omitempty"`
		DoReset    bool     `json:"do_reset,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	result, err := h.engine.ProcessResumes(ctx, recruitrag.IngestRequest{
		ProjectID:  r.PathValue("project_id"),
		AssetNames: req.AssetNames,
		Reset:      req.DoReset,
	})
	if err != nil {
		h.writeEngineError(w, err, "processing failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PUT /projects/{project_id}/job-description
func (h *handler) handleSaveJobDescription(w http.ResponseWriter, r *http.Request) {
	var jd store.JobDescription
	if err := json.NewDecoder(r.Body).Decode(&jd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if jd.Title == "" || jd.Description == "" {
		writeError(w, http.StatusBadRequest, "title and description are required")
		return
	}
	jd.ProjectID = r.PathValue("project_id")

	if err := h.engine.SaveJobDescription(r.Context(), jd); err != nil {
		h.writeEngineError(w, err, "saving job description failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// GET /projects/{project_id}/job-description
func (h *handler) handleGetJobDescription(w http.ResponseWriter, r *http.Request) {
	jd, err := h.engine.GetJobDescription(r.Context(), r.PathValue("project_id"))
	if err != nil {
		h.writeEngineError(w, err, "fetching job description failed")
		return
	}
	writeJSON(w, http.StatusOK, jd)
}

// POST /projects/{project_id}/screen
// With "stream": true the response is application/x-ndjson.
func (h *handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var body struct {
		FileIDs     []string `json:"file_ids,omitempty"`
		Smart       bool     `json:"smart,omitempty"`
		MinTopCount int      `json:"min_top_count,omitempty"`
		Anonymize   bool     `json:"anonymize,omitempty"`
		Stream      bool     `json:"stream,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	req := recruitrag.ScreenRequest{
		ProjectID:   r.PathValue("project_id"),
		FileIDs:     body.FileIDs,
		Smart:       body.Smart,
		MinTopCount: body.MinTopCount,
		Anonymize:   body.Anonymize,
	}

	if !body.Stream {
		results, err := h.engine.Screen(ctx, req)
		if err != nil {
			h.writeEngineError(w, err, "screening failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total":   len(results),
			"results": results,
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	err := h.engine.ScreenStream(ctx, req, func(v interface{}) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are gone; emit the failure as a final stream record.
		slog.Error("screen stream error", "project", req.ProjectID, "error", err)
		enc.Encode(map[string]string{"signal": "error", "error": err.Error()})
		flusher.Flush()
	}
}

// POST /projects/{project_id}/search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
		TopK int    `json:"top_k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	hits, err := h.engine.SearchVectors(r.Context(), r.PathValue("project_id"), req.Text, req.TopK)
	if err != nil {
		h.writeEngineError(w, err, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": hits})
}

// GET /projects/{project_id}/vector-info
func (h *handler) handleVectorInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.VectorInfo(r.Context(), r.PathValue("project_id"))
	if err != nil {
		h.writeEngineError(w, err, "vector info failed")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GET /projects
func (h *handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.engine.ListProjects(r.Context())
	if err != nil {
		h.writeEngineError(w, err, "listing projects failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// GET /projects/{project_id}
func (h *handler) handleProjectDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.engine.ProjectDetail(r.Context(), r.PathValue("project_id"))
	if err != nil {
		h.writeEngineError(w, err, "project detail failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DELETE /projects/{project_id}
func (h *handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteProject(r.Context(), r.PathValue("project_id")); err != nil {
		h.writeEngineError(w, err, "deleting project failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /projects/{project_id}/assets
func (h *handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.engine.ListAssets(r.Context(), r.PathValue("project_id"))
	if err != nil {
		h.writeEngineError(w, err, "listing assets failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": assets})
}

// DELETE /projects/{project_id}/assets/{name}
func (h *handler) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeleteAsset(r.Context(), r.PathValue("project_id"), r.PathValue("name"))
	if err != nil {
		h.writeEngineError(w, err, "deleting asset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /projects/{project_id}/resumes
func (h *handler) handleListResumes(w http.ResponseWriter, r *http.Request) {
	resumes, err := h.engine.ListResumes(r.Context(), r.PathValue("project_id"), nil)
	if err != nil {
		h.writeEngineError(w, err, "listing resumes failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resumes": resumes})
}

// GET /projects/{project_id}/resumes/{file_id}
func (h *handler) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, err := h.engine.GetResume(r.Context(), r.PathValue("project_id"), r.PathValue("file_id"))
	if err != nil {
		h.writeEngineError(w, err, "fetching resume failed")
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

// GET /projects/{project_id}/usage
func (h *handler) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.UsageSummary(r.Context(), r.PathValue("project_id"))
	if err != nil {
		h.writeEngineError(w, err, "usage summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /projects/{project_id}/usage/files
func (h *handler) handleUsageByFile(w http.ResponseWriter, r *http.Request) {
	usage, err := h.engine.UsageByFile(r.Context(), r.PathValue("project_id"))
	if err != nil {
		h.writeEngineError(w, err, "usage by file failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": usage})
}

// GET /projects/{project_id}/usage/logs?limit=&offset=
func (h *handler) handleUsageLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := queryInt(r, "offset", 0)

	logs, total, err := h.engine.UsageLogs(r.Context(), r.PathValue("project_id"), limit, offset)
	if err != nil {
		h.writeEngineError(w, err, "usage logs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"logs":   logs,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError maps engine sentinels onto HTTP status codes.
func (h *handler) writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, recruitrag.ErrProjectNotFound),
		errors.Is(err, recruitrag.ErrJobDescriptionNotFound),
		errors.Is(err, recruitrag.ErrResumeNotFound),
		errors.Is(err, recruitrag.ErrAssetNotFound),
		errors.Is(err, recruitrag.ErrNoChunks):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, recruitrag.ErrTooManyFiles),
		errors.Is(err, recruitrag.ErrUploadTooLarge),
		errors.Is(err, recruitrag.ErrBadArchive),
		errors.Is(err, recruitrag.ErrUnsupportedFile),
		errors.Is(err, recruitrag.ErrPromptInjection):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
