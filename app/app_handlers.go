package app

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/JoshPattman/cvwizard/backend"
	"github.com/JoshPattman/cvwizard/wizard"
	"github.com/gin-gonic/gin"
)

// Setup all of the handlers to their respective endpoints
func (app *App) setupHandlers(r *gin.Engine) {
	r.GET("/", app.handlePage(app.homePageHandler, app.homePageTemplates))
	r.POST("/wizard", app.startWizardHandler)
	r.GET("/wizard/:id", app.handlePage(app.wizardPageHandler, app.wizardPageTemplates))
	r.POST("/wizard/:id/upload", app.formActionHandler(app.formUpload))
	r.POST("/wizard/:id/apply", app.formActionHandler(app.formApply))
	r.POST("/wizard/:id/reset", app.formActionHandler(app.formReset))

	api := r.Group("/api/v1")
	api.GET("/health", app.healthHandler)

	sessions := api.Group("/wizard/sessions")
	sessions.POST("", app.createSessionHandler)
	sessions.GET("/:id", app.getSessionHandler)
	sessions.DELETE("/:id", app.closeSessionHandler)
	sessions.POST("/:id/upload", app.uploadHandler)
	sessions.POST("/:id/review/:section", app.addItemHandler)
	sessions.PUT("/:id/review/:section", app.updatePersonalHandler)
	sessions.PUT("/:id/review/:section/:index", app.updateItemHandler)
	sessions.DELETE("/:id/review/:section/:index", app.removeItemHandler)
	sessions.POST("/:id/apply", app.applyHandler)
	sessions.POST("/:id/reset", app.resetHandler)
}

// PageData is passed to every page template.
type PageData struct {
	Title   string
	Error   string
	Refresh bool
}

type WizardPageData struct {
	PageData
	Session     wizard.View
	Accept      string
	MaxUploadMB int64
}

func (app *App) homePageHandler(ctx *gin.Context, _ *slog.Logger) (any, error) {
	return PageData{Title: "Home", Error: ctx.Query("error")}, nil
}

func (app *App) homePageTemplates(*gin.Context, *slog.Logger) []string {
	return []string{"page", "home"}
}

func (app *App) startWizardHandler(ctx *gin.Context) {
	s := app.wizard.Create()
	ctx.Redirect(http.StatusSeeOther, "/wizard/"+s.ID())
}

func (app *App) wizardPageHandler(ctx *gin.Context, _ *slog.Logger) (any, error) {
	s, err := app.wizard.Get(ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	view := s.View()
	return WizardPageData{
		PageData: PageData{
			Title:   "Import your CV",
			Error:   ctx.Query("error"),
			Refresh: view.Step == wizard.StepParsing || view.Step == wizard.StepApplying,
		},
		Session:     view,
		Accept:      strings.Join(wizard.AllowedMimeTypes, ","),
		MaxUploadMB: app.maxUploadBytes() / (1024 * 1024),
	}, nil
}

func (app *App) wizardPageTemplates(ctx *gin.Context, _ *slog.Logger) []string {
	s, err := app.wizard.Get(ctx.Param("id"))
	if err != nil {
		return []string{"page", "home"}
	}
	return []string{"page", "wizard/" + string(s.Step())}
}

// formActionHandler runs a wizard action from an HTML form and redirects back to the wizard page.
func (app *App) formActionHandler(action func(*gin.Context, *wizard.Session) error) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.Param("id")
		s, err := app.wizard.Get(id)
		if err != nil {
			ctx.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape("Your session has expired. Please start again."))
			return
		}
		target := "/wizard/" + id
		if err := action(ctx, s); err != nil {
			app.loggerFor(ctx).Info("Wizard action rejected", "session_id", id, "error", err)
			target += "?error=" + url.QueryEscape(userMessage(err))
		}
		ctx.Redirect(http.StatusSeeOther, target)
	}
}

func (app *App) formUpload(ctx *gin.Context, s *wizard.Session) error {
	return app.upload(ctx, s)
}

func (app *App) formApply(ctx *gin.Context, s *wizard.Session) error {
	return s.Apply(backend.WithAuthorization(ctx.Request.Context(), ctx.GetHeader("Authorization")))
}

func (app *App) formReset(_ *gin.Context, s *wizard.Session) error {
	s.Reset()
	return nil
}
