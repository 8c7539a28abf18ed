package wizard

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/JoshPattman/cvwizard/datamodels"
)

// Section names a review editor.
type Section string

const (
	SectionPersonal       Section = "personal"
	SectionSkills         Section = "skills"
	SectionExperience     Section = "experience"
	SectionEducation      Section = "education"
	SectionLanguages      Section = "languages"
	SectionCertifications Section = "certifications"
	SectionProjects       Section = "projects"
)

// ListSections are the sections edited as arrays.
var ListSections = []Section{
	SectionSkills,
	SectionExperience,
	SectionEducation,
	SectionLanguages,
	SectionCertifications,
	SectionProjects,
}

// RemoveAt returns a copy of items without the element at i, keeping the
// relative order of the rest.
func RemoveAt[T any](items []T, i int) ([]T, error) {
	if i < 0 || i >= len(items) {
		return items, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(items))
	}
	return slices.Delete(slices.Clone(items), i, i+1), nil
}

// ReplaceAt returns a copy of items with the element at i replaced.
func ReplaceAt[T any](items []T, i int, item T) ([]T, error) {
	if i < 0 || i >= len(items) {
		return items, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(items))
	}
	out := slices.Clone(items)
	out[i] = item
	return out, nil
}

type reviewItem[T any] interface {
	*T
	GetID() string
	SetID(string)
	MapText(func(string) string)
}

type editor interface {
	add(rd *datamodels.ReviewData, id string) int
	update(rd *datamodels.ReviewData, index int, raw []byte, clean func(string) string) error
	remove(rd *datamodels.ReviewData, index int) error
}

// listEditor implements add/update/remove for one array section of ReviewData.
type listEditor[T any, P reviewItem[T]] struct {
	field func(*datamodels.ReviewData) *[]T
}

func (e listEditor[T, P]) add(rd *datamodels.ReviewData, id string) int {
	var item T
	P(&item).SetID(id)
	items := e.field(rd)
	*items = append(*items, item)
	return len(*items) - 1
}

func (e listEditor[T, P]) update(rd *datamodels.ReviewData, index int, raw []byte, clean func(string) string) error {
	items := e.field(rd)
	if index < 0 || index >= len(*items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(*items))
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	P(&item).SetID(P(&(*items)[index]).GetID())
	P(&item).MapText(clean)
	updated, err := ReplaceAt(*items, index, item)
	if err != nil {
		return err
	}
	*items = updated
	return nil
}

func (e listEditor[T, P]) remove(rd *datamodels.ReviewData, index int) error {
	items := e.field(rd)
	updated, err := RemoveAt(*items, index)
	if err != nil {
		return err
	}
	*items = updated
	return nil
}

var editors = map[Section]editor{
	SectionSkills: listEditor[datamodels.ReviewSkill, *datamodels.ReviewSkill]{
		field: func(rd *datamodels.ReviewData) *[]datamodels.ReviewSkill { return &rd.Skills },
	},
	SectionExperience: listEditor[datamodels.ReviewExperience, *datamodels.ReviewExperience]{
		field: func(rd *datamodels.ReviewData) *[]datamodels.ReviewExperience { return &rd.Experience },
	},
	SectionEducation: listEditor[datamodels.ReviewEducation, *datamodels.ReviewEducation]{
		field: func(rd *datamodels.ReviewData) *[]datamodels.ReviewEducation { return &rd.Education },
	},
	SectionLanguages: listEditor[datamodels.ReviewLanguage, *datamodels.ReviewLanguage]{
		field: func(rd *datamodels.ReviewData) *[]datamodels.ReviewLanguage { return &rd.Languages },
	},
	SectionCertifications: listEditor[datamodels.ReviewCertification, *datamodels.ReviewCertification]{
		field: func(rd *datamodels.ReviewData) *[]datamodels.ReviewCertification { return &rd.Certifications },
	},
	SectionProjects: listEditor[datamodels.ReviewProject, *datamodels.ReviewProject]{
		field: func(rd *datamodels.ReviewData) *[]datamodels.ReviewProject { return &rd.Projects },
	},
}

func editorFor(section Section) (editor, error) {
	e, ok := editors[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	return e, nil
}

func updatePersonal(rd *datamodels.ReviewData, raw []byte, clean func(string) string) error {
	var info datamodels.ReviewPersonalInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	info.MapText(clean)
	rd.PersonalInfo = info
	return nil
}
