package handlers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/http/response"
	"github.com/yungbote/fieldsales-backend/internal/platform/ctxutil"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
	"github.com/yungbote/fieldsales-backend/internal/services"
)

const defaultMaxMultipartMB = 32

type VisitHandler struct {
	log          *logger.Logger
	visits       services.VisitBatchService
	maxBodyBytes int64
}

func NewVisitHandler(log *logger.Logger, visits services.VisitBatchService, maxMultipartMB int) *VisitHandler {
	if maxMultipartMB <= 0 {
		maxMultipartMB = defaultMaxMultipartMB
	}
	return &VisitHandler{
		log:          log.With("handler", "VisitHandler"),
		visits:       visits,
		maxBodyBytes: int64(maxMultipartMB) << 20,
	}
}

// POST /api/visits/bulk-upsert
func (h *VisitHandler) BulkUpsert(c *gin.Context) {
	if h.visits == nil {
		response.RespondError(c, http.StatusInternalServerError, "visit_service_missing", nil)
		return
	}
	log := h.log.With(ctxutil.LogFields(c.Request.Context())...)

	var (
		in    services.BatchInput
		files map[int]services.ItemFiles
		err   error
	)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	if isMultipart(c.GetHeader("Content-Type")) {
		if err := c.Request.ParseMultipartForm(h.maxBodyBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
				return
			}
			response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
			return
		}
		form := c.Request.MultipartForm
		defer func() { _ = form.RemoveAll() }()

		in, err = services.ResolveBatchForm(formValues(form))
		files = h.groupFiles(log, form)
	} else {
		var body []byte
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return
		}
		in, err = services.ResolveBatchInput(body)
	}
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_batch", err)
		return
	}

	results, err := h.visits.Process(c.Request.Context(), in, files)
	if err != nil {
		if errors.Is(err, services.ErrInvalidBatch) {
			response.RespondError(c, http.StatusBadRequest, "invalid_batch", err)
			return
		}
		log.Error("Visit batch failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "visit_batch_failed", err)
		return
	}
	c.JSON(results.Status(), results.Response())
}

// GET /api/visits/:id
func (h *VisitHandler) GetVisit(c *gin.Context) {
	if h.visits == nil {
		response.RespondError(c, http.StatusInternalServerError, "visit_service_missing", nil)
		return
	}
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_visit_id", errors.New("visit id must be a positive integer"))
		return
	}
	view, err := h.visits.Get(c.Request.Context(), uint(id))
	if err != nil {
		switch domainagg.CodeOf(err) {
		case domainagg.CodeNotFound:
			response.RespondError(c, http.StatusNotFound, "visit_not_found", errors.New(domainagg.MessageOf(err)))
		case domainagg.CodeValidation:
			response.RespondError(c, http.StatusBadRequest, "invalid_visit_id", errors.New(domainagg.MessageOf(err)))
		default:
			h.log.Error("GetVisit failed", "error", err, "visit_id", id)
			response.RespondError(c, http.StatusInternalServerError, "load_visit_failed", err)
		}
		return
	}
	response.RespondOK(c, view)
}

func isMultipart(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "multipart/form-data"
}

// formValues keeps the first value of every field.
func formValues(form *multipart.Form) map[string]string {
	out := map[string]string{}
	if form == nil {
		return out
	}
	for k, v := range form.Value {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func (h *VisitHandler) groupFiles(log *logger.Logger, form *multipart.Form) map[int]services.ItemFiles {
	out := map[int]services.ItemFiles{}
	if form == nil {
		return out
	}
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		idx, slot, ok := services.ParseMediaFieldName(field)
		if !ok {
			log.Warn("Ignoring unknown file field", "field", field)
			continue
		}
		if out[idx] == nil {
			out[idx] = services.ItemFiles{}
		}
		for _, fh := range form.File[field] {
			fh := fh
			out[idx][slot] = append(out[idx][slot], services.MediaFile{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return out
}
