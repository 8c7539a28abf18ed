package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// FieldError is one failed validation rule on a reviewed item.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by ValidateReview.
type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	parts := make([]string, len(ve))
	for i, fe := range ve {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid review data: " + strings.Join(parts, "; ")
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
		_ = validatorInst.RegisterValidation("date_or_present", func(fl validator.FieldLevel) bool {
			return isDateOrPresent(fl.Field().String())
		})
	})
	return validatorInst
}

var cvDateLayouts = []string{"2006-01-02", "2006-01", "2006", "01/2006", "Jan 2006", "January 2006"}

func isDateOrPresent(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "present") {
		return true
	}
	for _, layout := range cvDateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// ValidateReview checks every reviewed item before it is applied.
func ValidateReview(rd datamodels.ReviewData) error {
	var errs ValidationErrors
	check := func(prefix string, item any) {
		err := getValidator().Struct(item)
		if err == nil {
			return
		}
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			errs = append(errs, FieldError{Field: prefix, Message: err.Error()})
			return
		}
		for _, fe := range fieldErrs {
			errs = append(errs, FieldError{
				Field:   prefix + "." + fe.Field(),
				Message: ruleMessage(fe),
			})
		}
	}
	check("personalInfo", rd.PersonalInfo)
	for i, s := range rd.Skills {
		check(fmt.Sprintf("skills[%d]", i), s)
	}
	for i, e := range rd.Experience {
		check(fmt.Sprintf("experience[%d]", i), e)
	}
	for i, e := range rd.Education {
		check(fmt.Sprintf("education[%d]", i), e)
	}
	for i, l := range rd.Languages {
		check(fmt.Sprintf("languages[%d]", i), l)
	}
	for i, c := range rd.Certifications {
		check(fmt.Sprintf("certifications[%d]", i), c)
	}
	for i, p := range rd.Projects {
		check(fmt.Sprintf("projects[%d]", i), p)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid url"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "date_or_present":
		return "must be a date or Present"
	default:
		return "failed " + fe.Tag()
	}
}

// Applier writes reviewed CV data to the user's profile.
type Applier struct {
	client      *Client
	logger      *slog.Logger
	concurrency int
}

func NewApplier(client *Client, concurrency int, logger *slog.Logger) *Applier {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Applier{client: client, logger: logger, concurrency: concurrency}
}

// Apply writes the reviewed personal info, skills, experience, education and
// languages. Certifications and projects have no backend collection and are
// left to the caller. The first failure cancels the remaining writes.
func (a *Applier) Apply(ctx context.Context, req datamodels.ApplyRequest) error {
	rd := req.Reviewed
	logger := a.logger.With(
		"num_skills", len(rd.Skills),
		"num_experience", len(rd.Experience),
		"num_education", len(rd.Education),
		"num_languages", len(rd.Languages),
	)
	logger.Info("Applying reviewed cv to profile")
	tstart := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	if update := userUpdateFrom(rd.PersonalInfo); update != (UserUpdate{}) {
		g.Go(func() error {
			_, err := a.client.UpdateMe(gctx, update)
			return wrapApply("update profile", err)
		})
	}
	for _, s := range rd.Skills {
		g.Go(func() error {
			_, err := a.client.Skills().Create(gctx, Skill{Name: s.Name, Level: s.Level, Category: s.Category})
			return wrapApply("create skill "+s.Name, err)
		})
	}
	for _, e := range rd.Experience {
		g.Go(func() error {
			_, err := a.client.Experience().Create(gctx, Experience{
				Title:       e.Title,
				Company:     e.Company,
				Location:    e.Location,
				StartDate:   e.StartDate,
				EndDate:     e.EndDate,
				Current:     e.Current,
				Description: experienceDescription(e),
			})
			return wrapApply("create experience "+e.Title, err)
		})
	}
	for _, e := range rd.Education {
		g.Go(func() error {
			_, err := a.client.Education().Create(gctx, Education{
				School:       e.School,
				Degree:       e.Degree,
				FieldOfStudy: e.FieldOfStudy,
				StartDate:    e.StartDate,
				EndDate:      e.EndDate,
				Grade:        e.Grade,
			})
			return wrapApply("create education "+e.School, err)
		})
	}
	for _, l := range rd.Languages {
		g.Go(func() error {
			_, err := a.client.Languages().Create(gctx, Language{Name: l.Name, Proficiency: l.Proficiency})
			return wrapApply("create language "+l.Name, err)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Failed to apply cv", "error", err, "time_taken", time.Since(tstart))
		return err
	}
	logger.Info("Applied cv to profile", "time_taken", time.Since(tstart))
	return nil
}

func wrapApply(action string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", action, err)
}

func userUpdateFrom(p datamodels.ReviewPersonalInfo) UserUpdate {
	return UserUpdate{
		Name:     p.Name,
		Headline: p.Headline,
		Bio:      p.Bio,
		Location: p.Location,
		Phone:    p.Phone,
		Website:  p.Website,
		LinkedIn: p.LinkedIn,
	}
}

func experienceDescription(e datamodels.ReviewExperience) string {
	if len(e.Achievements) == 0 {
		return e.Description
	}
	var b strings.Builder
	b.WriteString(e.Description)
	for _, a := range e.Achievements {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(a)
	}
	return b.String()
}
