package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"mime/multipart"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"docreview/internal/lifecycle"
	"docreview/internal/models"
	"docreview/internal/storage"
	"docreview/internal/validation"
)

// documentField is the multipart field carrying uploaded files.
const documentField = "document"

// SubmissionHandler handles submission endpoints.
type SubmissionHandler struct {
	engine *lifecycle.Engine
	files  storage.Store
}

// NewSubmissionHandler creates a new API submission handler.
func NewSubmissionHandler(engine *lifecycle.Engine, files storage.Store) *SubmissionHandler {
	return &SubmissionHandler{engine: engine, files: files}
}

// Create stores the uploaded documents and opens a new submission.
func (h *SubmissionHandler) Create(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "expected multipart form data")
	}

	title := ""
	if v := form.Value["title"]; len(v) > 0 {
		title = v[0]
	}
	if valid, msg := validation.ValidateTitle(title); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	uploads := form.File[documentField]
	if len(uploads) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "at least one document is required")
	}

	refs, err := h.saveAll(uploads)
	if err != nil {
		slog.Error("failed to store uploads", "user_id", user.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to store documents")
	}

	sub, err := h.engine.CreateSubmission(c.Context(), user.ID, title, refs)
	if err != nil {
		if rmErr := storage.RemoveAll(h.files, refs); rmErr != nil {
			slog.Warn("failed to remove uploads after rejected submission", "error", rmErr)
		}
		return lifecycleError(c, err)
	}

	return jsonCreated(c, sub)
}

func (h *SubmissionHandler) saveAll(uploads []*multipart.FileHeader) ([]models.AttachmentRef, error) {
	refs := make([]models.AttachmentRef, 0, len(uploads))
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			storage.RemoveAll(h.files, refs)
			return nil, err
		}
		ref, err := h.files.Save(fh.Filename, f)
		f.Close()
		if err != nil {
			storage.RemoveAll(h.files, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Mine returns the current user's submissions.
func (h *SubmissionHandler) Mine(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	subs, err := h.engine.ListForOwner(c.Context(), user.ID)
	if err != nil {
		return lifecycleError(c, err)
	}
	return jsonSuccess(c, subs)
}

// All returns every submission (staff only).
func (h *SubmissionHandler) All(c fiber.Ctx) error {
	subs, err := h.engine.ListAll(c.Context())
	if err != nil {
		return lifecycleError(c, err)
	}
	return jsonSuccess(c, subs)
}

// Get returns one submission with its review history.
func (h *SubmissionHandler) Get(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	sub, err := h.engine.GetByID(c.Context(), id, user)
	if err != nil {
		return lifecycleError(c, err)
	}
	return jsonSuccess(c, sub)
}

// Download streams one attachment of a submission the user may view.
func (h *SubmissionHandler) Download(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid submission id")
	}
	attachmentID, err := uuid.Parse(c.Params("attachmentID"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid attachment id")
	}

	sub, err := h.engine.GetByID(c.Context(), id, user)
	if err != nil {
		return lifecycleError(c, err)
	}

	var att *models.Attachment
	for i := range sub.Attachments {
		if sub.Attachments[i].ID == attachmentID {
			att = &sub.Attachments[i]
			break
		}
	}
	if att == nil {
		return jsonError(c, fiber.StatusNotFound, "attachment not found")
	}

	path, err := h.files.Path(att.Filename)
	if errors.Is(err, fs.ErrNotExist) {
		return jsonError(c, fiber.StatusNotFound, "attachment file not found")
	}
	if err != nil {
		slog.Error("failed to resolve attachment", "submission_id", sub.ID, "attachment_id", att.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to read attachment")
	}

	return c.Download(path, att.OriginalName)
}
