package datamodels

// ReviewData is the editable, client-session copy of a parsed CV, reshaped
// into the fields the profile forms expect. Items carry synthetic ids since
// nothing has been saved to the backend yet.
type ReviewData struct {
	PersonalInfo   ReviewPersonalInfo    `json:"personalInfo"`
	Skills         []ReviewSkill         `json:"skills"`
	Experience     []ReviewExperience    `json:"experience"`
	Education      []ReviewEducation     `json:"education"`
	Languages      []ReviewLanguage      `json:"languages"`
	Certifications []ReviewCertification `json:"certifications"`
	Projects       []ReviewProject       `json:"projects"`
}

// Clone returns a deep copy of the review data.
func (rd ReviewData) Clone() ReviewData {
	out := rd
	out.Skills = append([]ReviewSkill(nil), rd.Skills...)
	out.Experience = make([]ReviewExperience, len(rd.Experience))
	for i, e := range rd.Experience {
		e.Achievements = append([]string(nil), e.Achievements...)
		out.Experience[i] = e
	}
	out.Education = append([]ReviewEducation(nil), rd.Education...)
	out.Languages = append([]ReviewLanguage(nil), rd.Languages...)
	out.Certifications = append([]ReviewCertification(nil), rd.Certifications...)
	out.Projects = make([]ReviewProject, len(rd.Projects))
	for i, p := range rd.Projects {
		p.Technologies = append([]string(nil), p.Technologies...)
		out.Projects[i] = p
	}
	return out
}

type ReviewPersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Headline string `json:"headline"`
	Bio      string `json:"bio"`
	LinkedIn string `json:"linkedin" validate:"omitempty,url"`
	Website  string `json:"website" validate:"omitempty,url"`
}

func (p *ReviewPersonalInfo) MapText(f func(string) string) {
	p.Name = f(p.Name)
	p.Email = f(p.Email)
	p.Phone = f(p.Phone)
	p.Location = f(p.Location)
	p.Headline = f(p.Headline)
	p.Bio = f(p.Bio)
	p.LinkedIn = f(p.LinkedIn)
	p.Website = f(p.Website)
}

type ReviewSkill struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required,max=100"`
	Level    string `json:"level"`
	Category string `json:"category"`
}

func (s *ReviewSkill) GetID() string   { return s.ID }
func (s *ReviewSkill) SetID(id string) { s.ID = id }
func (s *ReviewSkill) MapText(f func(string) string) {
	s.Name = f(s.Name)
	s.Level = f(s.Level)
	s.Category = f(s.Category)
}

type ReviewExperience struct {
	ID           string   `json:"id"`
	Title        string   `json:"title" validate:"required"`
	Company      string   `json:"company" validate:"required"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate" validate:"omitempty,date_or_present"`
	EndDate      string   `json:"endDate" validate:"omitempty,date_or_present"`
	Current      bool     `json:"current"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
}

func (e *ReviewExperience) GetID() string   { return e.ID }
func (e *ReviewExperience) SetID(id string) { e.ID = id }
func (e *ReviewExperience) MapText(f func(string) string) {
	e.Title = f(e.Title)
	e.Company = f(e.Company)
	e.Location = f(e.Location)
	e.StartDate = f(e.StartDate)
	e.EndDate = f(e.EndDate)
	e.Description = f(e.Description)
	for i := range e.Achievements {
		e.Achievements[i] = f(e.Achievements[i])
	}
}

type ReviewEducation struct {
	ID           string `json:"id"`
	School       string `json:"school" validate:"required"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	StartDate    string `json:"startDate" validate:"omitempty,date_or_present"`
	EndDate      string `json:"endDate" validate:"omitempty,date_or_present"`
	Grade        string `json:"grade"`
}

func (e *ReviewEducation) GetID() string   { return e.ID }
func (e *ReviewEducation) SetID(id string) { e.ID = id }
func (e *ReviewEducation) MapText(f func(string) string) {
	e.School = f(e.School)
	e.Degree = f(e.Degree)
	e.FieldOfStudy = f(e.FieldOfStudy)
	e.StartDate = f(e.StartDate)
	e.EndDate = f(e.EndDate)
	e.Grade = f(e.Grade)
}

type ReviewLanguage struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Proficiency string `json:"proficiency"`
}

func (l *ReviewLanguage) GetID() string   { return l.ID }
func (l *ReviewLanguage) SetID(id string) { l.ID = id }
func (l *ReviewLanguage) MapText(f func(string) string) {
	l.Name = f(l.Name)
	l.Proficiency = f(l.Proficiency)
}

type ReviewCertification struct {
	ID                  string `json:"id"`
	Name                string `json:"name" validate:"required"`
	IssuingOrganization string `json:"issuingOrganization"`
	IssueDate           string `json:"issueDate"`
	ExpirationDate      string `json:"expirationDate"`
	CredentialID        string `json:"credentialId"`
	CredentialURL       string `json:"credentialUrl" validate:"omitempty,url"`
}

func (c *ReviewCertification) GetID() string   { return c.ID }
func (c *ReviewCertification) SetID(id string) { c.ID = id }
func (c *ReviewCertification) MapText(f func(string) string) {
	c.Name = f(c.Name)
	c.IssuingOrganization = f(c.IssuingOrganization)
	c.IssueDate = f(c.IssueDate)
	c.ExpirationDate = f(c.ExpirationDate)
	c.CredentialID = f(c.CredentialID)
	c.CredentialURL = f(c.CredentialURL)
}

type ReviewProject struct {
	ID           string   `json:"id"`
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url" validate:"omitempty,url"`
	StartDate    string   `json:"startDate" validate:"omitempty,date_or_present"`
	EndDate      string   `json:"endDate" validate:"omitempty,date_or_present"`
}

func (p *ReviewProject) GetID() string   { return p.ID }
func (p *ReviewProject) SetID(id string) { p.ID = id }
func (p *ReviewProject) MapText(f func(string) string) {
	p.Name = f(p.Name)
	p.Description = f(p.Description)
	p.URL = f(p.URL)
	p.StartDate = f(p.StartDate)
	p.EndDate = f(p.EndDate)
	for i := range p.Technologies {
		p.Technologies[i] = f(p.Technologies[i])
	}
}

// ApplyRequest is handed to the completion callback when the user applies a
// reviewed CV. Original is the parsed CV exactly as the parser returned it;
// Reviewed holds the user's edits.
type ApplyRequest struct {
	Original ParsedCV
	Reviewed ReviewData
}
