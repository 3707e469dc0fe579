package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"sdch/internal/assembler"
	"sdch/internal/ingest"
	"sdch/internal/loader"
	"sdch/internal/store"
)

func respondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// uploadHandler ingests a multipart file upload.
func (s *Server) uploadHandler(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "form field 'file' is required")
	}
	if s.maxBytes > 0 && fileHeader.Size > s.maxBytes {
		return respondWithError(c, http.StatusBadRequest, "file exceeds the size limit")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "failed to open uploaded file")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "failed to read uploaded file")
	}

	doc, err := s.ingest.Upload(c.Request().Context(), fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, loader.ErrUnsupportedFormat):
			return respondWithError(c, http.StatusBadRequest, "unsupported document format")
		case errors.Is(err, loader.ErrDecodeError):
			return respondWithError(c, http.StatusBadRequest, "file could not be decoded")
		case errors.Is(err, ingest.ErrOversize):
			return respondWithError(c, http.StatusBadRequest, "file exceeds the size limit")
		default:
			log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("upload_error")
			return respondWithError(c, http.StatusInternalServerError, "upload failed")
		}
	}
	return c.JSON(http.StatusOK, s.docResponse(doc))
}

func (s *Server) getDocumentHandler(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondWithError(c, http.StatusNotFound, "document not found")
	}
	doc, err := s.store.GetDocument(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return respondWithError(c, http.StatusNotFound, "document not found")
	}
	if err != nil {
		log.Error().Err(err).Str("doc_id", id.String()).Msg("get_document_error")
		return respondWithError(c, http.StatusInternalServerError, "failed to load document")
	}
	return c.JSON(http.StatusOK, s.docResponse(doc))
}

const listLimit = 100

func (s *Server) listDocumentsHandler(c echo.Context) error {
	docs, err := s.store.ListDocuments(c.Request().Context(), listLimit)
	if err != nil {
		log.Error().Err(err).Msg("list_documents_error")
		return respondWithError(c, http.StatusInternalServerError, "failed to list documents")
	}
	out := make([]documentResponse, len(docs))
	for i, d := range docs {
		out[i] = s.docResponse(d)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) deleteDocumentHandler(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondWithError(c, http.StatusNotFound, "document not found")
	}
	if err := s.ingest.Delete(c.Request().Context(), id); err != nil {
		log.Error().Err(err).Str("doc_id", id.String()).Msg("delete_document_error")
		return respondWithError(c, http.StatusInternalServerError, "failed to delete document")
	}
	return c.NoContent(http.StatusNoContent)
}

// queryHandler assembles a query-relevant context for one document.
func (s *Server) queryHandler(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, "invalid request body")
	}
	id, err := uuid.Parse(req.DocID)
	if err != nil {
		return respondWithError(c, http.StatusNotFound, "document not found")
	}

	res, err := s.assembler.Assemble(c.Request().Context(), id, req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, assembler.ErrEmptyQuery):
			return respondWithError(c, http.StatusUnprocessableEntity, "query must not be empty")
		case errors.Is(err, store.ErrNotFound):
			return respondWithError(c, http.StatusNotFound, "document not found")
		case errors.Is(err, assembler.ErrDocumentNotReady):
			return respondWithError(c, http.StatusConflict, "document is not ready")
		default:
			log.Error().Err(err).Str("doc_id", req.DocID).Msg("query_error")
			return respondWithError(c, http.StatusInternalServerError, "query failed")
		}
	}
	return c.JSON(http.StatusOK, queryResponseFrom(res))
}

// healthHandler reports liveness plus dependency checks.
func (s *Server) healthHandler(c echo.Context) error {
	ctx := c.Request().Context()
	checks := map[string]string{}
	status := "ok"

	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}
	if err := s.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		status = "degraded"
	} else {
		checks["cache"] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{"status": status, "checks": checks})
}
