package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vlearn/apiserver/internal/services"
	"github.com/vlearn/apiserver/internal/storage"
	"github.com/vlearn/apiserver/internal/store"
	"github.com/vlearn/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxUploadBytes     = 64 << 20

	formFieldFile  = "file"
	formFieldImage = "image"
)

// UploadFile represents a file received in a multipart request.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CatalogHandler provides HTTP handlers for the three catalog kinds.
type CatalogHandler struct {
	catalogService *services.CatalogService
	userService    *services.UserService
	uploads        *storage.Storage
}

// NewCatalogHandler constructs a handler with the provided dependencies.
// uploads may be nil; file uploads are then rejected.
func NewCatalogHandler(
	catalogService *services.CatalogService,
	userService *services.UserService,
	uploads *storage.Storage,
) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		userService:    userService,
		uploads:        uploads,
	}
}

// CatalogRouter registers documentation, resource and project routes on the
// given router. Reads are public; creates need a user; deletes need an admin.
func CatalogRouter(
	r chi.Router,
	catalogService *services.CatalogService,
	userService *services.UserService,
	uploads *storage.Storage,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCatalogHandler(catalogService, userService, uploads)

	r.Route("/docs", func(r chi.Router) {
		r.Get("/", handler.ListDocumentationLinks)
		r.With(authMiddleware).Post("/", handler.CreateDocumentationLink)
		r.With(authMiddleware, handler.requireAdmin).Delete("/{linkID}", handler.DeleteDocumentationLink)
	})
	r.Route("/resources", func(r chi.Router) {
		r.Get("/", handler.ListResources)
		r.With(authMiddleware).Post("/", handler.CreateResource)
		r.With(authMiddleware, handler.requireAdmin).Delete("/{resourceID}", handler.DeleteResource)
	})
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", handler.ListProjects)
		r.With(authMiddleware).Post("/", handler.CreateProject)
		r.With(authMiddleware, handler.requireAdmin).Delete("/{projectID}", handler.DeleteProject)
	})
}

func (h *CatalogHandler) ListDocumentationLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.catalogService.ListDocumentationLinks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documentation links")
		return
	}
	if links == nil {
		links = []types.DocumentationLink{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *CatalogHandler) CreateDocumentationLink(w http.ResponseWriter, r *http.Request) {
	var req types.DocumentationLink
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	link, err := h.catalogService.AddDocumentationLink(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create documentation link")
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (h *CatalogHandler) DeleteDocumentationLink(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "linkID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalogService.DeleteDocumentationLink(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "documentation link not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete documentation link")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.catalogService.ListResources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list resources")
		return
	}
	if resources == nil {
		resources = []types.Resource{}
	}
	writeJSON(w, http.StatusOK, resources)
}

// CreateResource accepts either a JSON body or a multipart form with an
// optional file part. Uploaded bytes go to object storage and the row keeps
// the object key.
func (h *CatalogHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req types.Resource
	var upload *UploadFile

	if isMultipart(r) {
		form, file, err := parseMultipart(r, formFieldFile)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = types.Resource{
			Title:       form.Get("title"),
			Author:      form.Get("author"),
			Category:    form.Get("category"),
			Type:        form.Get("type"),
			Description: form.Get("description"),
			Content:     form.Get("content"),
		}
		upload = file
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if upload != nil && h.uploads == nil {
		writeError(w, http.StatusBadRequest, "file uploads are disabled")
		return
	}

	resource, err := h.catalogService.AddResource(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create resource")
		return
	}

	if upload != nil {
		key := storage.UploadKey("resource", resource.ID, upload.Filename)
		if err := h.uploads.Put(r.Context(), key, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store file")
			return
		}
		if err := h.catalogService.AttachResourceFile(r.Context(), resource.ID, key, upload.Filename); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to record file")
			return
		}
		resource.FilePath = key
		resource.OriginalFilename = upload.Filename
	}

	writeJSON(w, http.StatusCreated, resource)
}

func (h *CatalogHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "resourceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalogService.DeleteResource(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete resource")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.catalogService.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateProject accepts either a JSON body or a multipart form with an
// optional showcase image part.
func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req types.Project
	var upload *UploadFile

	if isMultipart(r) {
		form, file, err := parseMultipart(r, formFieldImage)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req = types.Project{
			Title:        form.Get("title"),
			Author:       form.Get("author"),
			Category:     form.Get("category"),
			Description:  form.Get("description"),
			Technologies: splitTechnologies(form.Get("technologies")),
			GithubURL:    form.Get("github_url"),
			DemoURL:      form.Get("demo_url"),
			ExternalLink: form.Get("external_link"),
			Status:       form.Get("status"),
			Challenges:   form.Get("challenges"),
			Learnings:    form.Get("learnings"),
			FuturePlans:  form.Get("future_plans"),
		}
		upload = file
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if upload != nil && h.uploads == nil {
		writeError(w, http.StatusBadRequest, "file uploads are disabled")
		return
	}

	project, err := h.catalogService.AddProject(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	if upload != nil {
		key := storage.UploadKey("project", project.ID, upload.Filename)
		if err := h.uploads.Put(r.Context(), key, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store image")
			return
		}
		if err := h.catalogService.AttachProjectImage(r.Context(), project.ID, key); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to record image")
			return
		}
		project.ImagePath = key
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *CatalogHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalogService.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}

// parseMultipart reads the form values and at most one file from the named
// part. The file return is nil when the part is absent.
func parseMultipart(r *http.Request, fileField string) (url.Values, *UploadFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, errors.New("invalid multipart form")
	}
	form := r.MultipartForm
	defer func() {
		_ = form.RemoveAll()
	}()

	values := url.Values(form.Value)

	files := form.File[fileField]
	if len(files) == 0 {
		return values, nil, nil
	}
	if len(files) > 1 {
		return nil, nil, fmt.Errorf("only one %s is allowed", fileField)
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, errors.New("failed to read upload")
	}

	data, err := readFileLimited(file, maxUploadBytes)
	_ = file.Close()
	if err != nil {
		return nil, nil, err
	}

	return values, &UploadFile{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func splitTechnologies(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Accept a JSON array or a comma-separated list.
	if strings.HasPrefix(raw, "[") {
		var techs []string
		if err := json.Unmarshal([]byte(raw), &techs); err == nil {
			return techs
		}
	}

	parts := strings.Split(raw, ",")
	techs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			techs = append(techs, trimmed)
		}
	}
	return techs
}
