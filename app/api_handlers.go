package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JoshPattman/cvwizard/backend"
	"github.com/JoshPattman/cvwizard/wizard"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed on top of the file size for the rest of the form.
const multipartOverhead = 1 << 20

var errMissingFile = errors.New("no file was uploaded")

func (app *App) maxUploadBytes() int64 {
	if app.config.MaxUploadBytes > 0 {
		return app.config.MaxUploadBytes
	}
	return wizard.DefaultMaxUploadBytes
}

// statusFor maps wizard errors to HTTP statuses.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, wizard.ErrInvalidTransition), errors.Is(err, wizard.ErrNotEditable):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrReviewInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrUnsupportedType),
		errors.Is(err, wizard.ErrEmptyFile),
		errors.Is(err, errMissingFile),
		errors.Is(err, wizard.ErrUnknownSection),
		errors.Is(err, wizard.ErrIndexOutOfRange),
		errors.Is(err, wizard.ErrInvalidItem):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown to the user for err.
func userMessage(err error) string {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, wizard.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		return "The file is too large. Please upload a smaller file."
	case errors.Is(err, wizard.ErrUnsupportedType):
		return "Unsupported file type. Please upload a PDF, DOC or DOCX file."
	case errors.Is(err, wizard.ErrEmptyFile), errors.Is(err, errMissingFile):
		return "Please choose a CV file to upload."
	case errors.Is(err, wizard.ErrReviewInvalid):
		return "Some of the reviewed data is invalid. Please check it and try again."
	case statusFor(err) == http.StatusInternalServerError:
		return "Something went wrong. Please try again."
	default:
		return err.Error()
	}
}

func (app *App) writeError(ctx *gin.Context, err error) {
	status := statusFor(err)
	logger := app.loggerFor(ctx)
	if status >= 500 {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Info("Request rejected", "status", status, "error", err)
	}
	body := gin.H{"error": userMessage(err)}
	var fieldErrs backend.ValidationErrors
	if errors.As(err, &fieldErrs) {
		body["fields"] = fieldErrs
	}
	ctx.AbortWithStatusJSON(status, body)
}

func (app *App) session(ctx *gin.Context) (*wizard.Session, bool) {
	s, err := app.wizard.Get(ctx.Param("id"))
	if err != nil {
		app.writeError(ctx, err)
		return nil, false
	}
	return s, true
}

func (app *App) healthHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"sessions":  app.wizard.Len(),
	})
}

func (app *App) createSessionHandler(ctx *gin.Context) {
	s := app.wizard.Create()
	ctx.JSON(http.StatusCreated, s.View())
}

func (app *App) getSessionHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, s.View())
}

func (app *App) closeSessionHandler(ctx *gin.Context) {
	if err := app.wizard.Close(ctx.Param("id")); err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// upload reads the multipart "file" field and hands it to the session.
func (app *App) upload(ctx *gin.Context, s *wizard.Session) error {
	if step := s.Step(); step != wizard.StepUpload {
		return fmt.Errorf("%w: cannot upload in step %s", wizard.ErrInvalidTransition, step)
	}
	maxBytes := app.maxUploadBytes()
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes+multipartOverhead)
	fh, err := ctx.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: request exceeds %d bytes", wizard.ErrFileTooLarge, maxBytesErr.Limit)
		}
		return fmt.Errorf("%w: %v", errMissingFile, err)
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	reqCtx := backend.WithAuthorization(ctx.Request.Context(), ctx.GetHeader("Authorization"))
	return s.Upload(reqCtx, wizard.Incoming{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Body:     f,
	})
}

func (app *App) uploadHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	if err := app.upload(ctx, s); err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, s.View())
}

func (app *App) addItemHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	index, err := s.AddItem(wizard.Section(ctx.Param("section")))
	if err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"index": index, "session": s.View()})
}

func (app *App) updatePersonalHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	section := wizard.Section(ctx.Param("section"))
	if section != wizard.SectionPersonal {
		app.writeError(ctx, fmt.Errorf("%w: %s needs an item index", wizard.ErrUnknownSection, section))
		return
	}
	raw, err := ctx.GetRawData()
	if err != nil {
		app.writeError(ctx, fmt.Errorf("%w: %v", wizard.ErrInvalidItem, err))
		return
	}
	if err := s.UpdateItem(section, 0, raw); err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.View())
}

func (app *App) updateItemHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		app.writeError(ctx, fmt.Errorf("%w: %q", wizard.ErrIndexOutOfRange, ctx.Param("index")))
		return
	}
	raw, err := ctx.GetRawData()
	if err != nil {
		app.writeError(ctx, fmt.Errorf("%w: %v", wizard.ErrInvalidItem, err))
		return
	}
	if err := s.UpdateItem(wizard.Section(ctx.Param("section")), index, raw); err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.View())
}

func (app *App) removeItemHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		app.writeError(ctx, fmt.Errorf("%w: %q", wizard.ErrIndexOutOfRange, ctx.Param("index")))
		return
	}
	if err := s.RemoveItem(wizard.Section(ctx.Param("section")), index); err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.View())
}

func (app *App) applyHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	reqCtx := backend.WithAuthorization(ctx.Request.Context(), ctx.GetHeader("Authorization"))
	if err := s.Apply(reqCtx); err != nil {
		app.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, s.View())
}

func (app *App) resetHandler(ctx *gin.Context) {
	s, ok := app.session(ctx)
	if !ok {
		return
	}
	s.Reset()
	ctx.JSON(http.StatusOK, s.View())
}
