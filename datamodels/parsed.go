package datamodels

// ParsedCV is the structured result of parsing an uploaded CV.
// It is produced by a parser and only consumed to build ReviewData.
type ParsedCV struct {
	PersonalInfo   ParsedPersonalInfo    `json:"personalInfo"`
	Skills         []ParsedSkill         `json:"skills"`
	Experience     []ParsedExperience    `json:"experience"`
	Education      []ParsedEducation     `json:"education"`
	Languages      []ParsedLanguage      `json:"languages"`
	Certifications []ParsedCertification `json:"certifications"`
	Projects       []ParsedProject       `json:"projects"`
}

type ParsedPersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	LinkedIn string `json:"linkedin"`
	Website  string `json:"website"`
}

type ParsedSkill struct {
	Name     string `json:"name"`
	Level    string `json:"level"`
	Category string `json:"category"`
}

type ParsedExperience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Current      bool     `json:"current"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
}

type ParsedEducation struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa"`
}

type ParsedLanguage struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

type ParsedCertification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer"`
	Date         string `json:"date"`
	ExpiryDate   string `json:"expiryDate"`
	CredentialID string `json:"credentialId"`
	URL          string `json:"url"`
}

type ParsedProject struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
}
