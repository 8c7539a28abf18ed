package parse

import (
	"context"

	"github.com/JoshPattman/cvwizard/datamodels"
)

// MockParser always returns the fixed John Doe dataset.
type MockParser struct{}

func (MockParser) Parse(context.Context, Upload) (datamodels.ParsedCV, error) {
	return MockCV(), nil
}

// MockCV returns a fresh copy of the fixed mock dataset.
func MockCV() datamodels.ParsedCV {
	return datamodels.ParsedCV{
		PersonalInfo: datamodels.ParsedPersonalInfo{
			Name:     "John Doe",
			Email:    "john.doe@example.com",
			Phone:    "+1 (555) 123-4567",
			Location: "San Francisco, CA",
			Title:    "Senior Software Engineer",
			Summary:  "Experienced software engineer with 8+ years building scalable web applications and distributed systems.",
			LinkedIn: "https://linkedin.com/in/johndoe",
			Website:  "https://johndoe.dev",
		},
		Skills: []datamodels.ParsedSkill{
			{Name: "Go", Level: "Expert", Category: "Programming Languages"},
			{Name: "TypeScript", Level: "Advanced", Category: "Programming Languages"},
			{Name: "React", Level: "Advanced", Category: "Frameworks"},
			{Name: "PostgreSQL", Level: "Advanced", Category: "Databases"},
			{Name: "Kubernetes", Level: "Intermediate", Category: "DevOps"},
		},
		Experience: []datamodels.ParsedExperience{
			{
				Company:     "Tech Corp",
				Position:    "Senior Software Engineer",
				Location:    "San Francisco, CA",
				StartDate:   "2020-01",
				EndDate:     "Present",
				Current:     true,
				Description: "Lead development of the core platform services.",
				Achievements: []string{
					"Reduced API latency by 40%",
					"Mentored a team of 5 engineers",
				},
			},
			{
				Company:     "StartupXYZ",
				Position:    "Software Engineer",
				Location:    "New York, NY",
				StartDate:   "2016-06",
				EndDate:     "2019-12",
				Description: "Built the customer-facing web application from scratch.",
			},
		},
		Education: []datamodels.ParsedEducation{
			{
				Institution: "University of California, Berkeley",
				Degree:      "Bachelor of Science",
				Field:       "Computer Science",
				StartDate:   "2012-09",
				EndDate:     "2016-05",
				GPA:         "3.8",
			},
		},
		Languages: []datamodels.ParsedLanguage{
			{Language: "English", Proficiency: "Native"},
			{Language: "Spanish", Proficiency: "Professional"},
		},
		Certifications: []datamodels.ParsedCertification{
			{
				Name:   "AWS Certified Solutions Architect",
				Issuer: "Amazon Web Services",
				Date:   "2022-03",
				URL:    "https://aws.amazon.com/certification/",
			},
		},
		Projects: []datamodels.ParsedProject{
			{
				Name:         "Open Source Job Board",
				Description:  "A self-hosted job board used by several local meetups.",
				Technologies: []string{"Go", "React", "PostgreSQL"},
				URL:          "https://github.com/johndoe/jobboard",
			},
		},
	}
}
