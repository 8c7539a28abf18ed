package wizard

import (
	"fmt"
	"time"

	"github.com/JoshPattman/cvwizard/datamodels"
)

// IDSource hands out synthetic ids of the form temp-<unix millis>-<n>.
// The counter keeps ids unique even within a single millisecond.
// It is not safe for concurrent use.
type IDSource struct {
	now func() time.Time
	n   int
}

func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

func (s *IDSource) Next() string {
	s.n++
	return fmt.Sprintf("temp-%d-%d", s.now().UnixMilli(), s.n)
}

// BuildReviewData reshapes a parsed CV into review form data, one item per
// parsed item, each with a fresh synthetic id. It never merges with existing
// review data.
func BuildReviewData(cv datamodels.ParsedCV, ids *IDSource) datamodels.ReviewData {
	rd := datamodels.ReviewData{
		PersonalInfo: datamodels.ReviewPersonalInfo{
			Name:     cv.PersonalInfo.Name,
			Email:    cv.PersonalInfo.Email,
			Phone:    cv.PersonalInfo.Phone,
			Location: cv.PersonalInfo.Location,
			Headline: cv.PersonalInfo.Title,
			Bio:      cv.PersonalInfo.Summary,
			LinkedIn: cv.PersonalInfo.LinkedIn,
			Website:  cv.PersonalInfo.Website,
		},
		Skills:         make([]datamodels.ReviewSkill, 0, len(cv.Skills)),
		Experience:     make([]datamodels.ReviewExperience, 0, len(cv.Experience)),
		Education:      make([]datamodels.ReviewEducation, 0, len(cv.Education)),
		Languages:      make([]datamodels.ReviewLanguage, 0, len(cv.Languages)),
		Certifications: make([]datamodels.ReviewCertification, 0, len(cv.Certifications)),
		Projects:       make([]datamodels.ReviewProject, 0, len(cv.Projects)),
	}
	for _, s := range cv.Skills {
		rd.Skills = append(rd.Skills, datamodels.ReviewSkill{
			ID:       ids.Next(),
			Name:     s.Name,
			Level:    s.Level,
			Category: s.Category,
		})
	}
	for _, e := range cv.Experience {
		rd.Experience = append(rd.Experience, datamodels.ReviewExperience{
			ID:           ids.Next(),
			Title:        e.Position,
			Company:      e.Company,
			Location:     e.Location,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Current:      e.Current,
			Description:  e.Description,
			Achievements: append([]string(nil), e.Achievements...),
		})
	}
	for _, e := range cv.Education {
		rd.Education = append(rd.Education, datamodels.ReviewEducation{
			ID:           ids.Next(),
			School:       e.Institution,
			Degree:       e.Degree,
			FieldOfStudy: e.Field,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Grade:        e.GPA,
		})
	}
	for _, l := range cv.Languages {
		rd.Languages = append(rd.Languages, datamodels.ReviewLanguage{
			ID:          ids.Next(),
			Name:        l.Language,
			Proficiency: l.Proficiency,
		})
	}
	for _, c := range cv.Certifications {
		rd.Certifications = append(rd.Certifications, datamodels.ReviewCertification{
			ID:                  ids.Next(),
			Name:                c.Name,
			IssuingOrganization: c.Issuer,
			IssueDate:           c.Date,
			ExpirationDate:      c.ExpiryDate,
			CredentialID:        c.CredentialID,
			CredentialURL:       c.URL,
		})
	}
	for _, p := range cv.Projects {
		rd.Projects = append(rd.Projects, datamodels.ReviewProject{
			ID:           ids.Next(),
			Name:         p.Name,
			Description:  p.Description,
			Technologies: append([]string(nil), p.Technologies...),
			URL:          p.URL,
			StartDate:    p.StartDate,
			EndDate:      p.EndDate,
		})
	}
	return rd
}
