package models

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// FieldDescriptor describes one typed column of an entity type.
type FieldDescriptor struct {
	Name string
	Type string
}

// EntitySchema is a static descriptor for one entity type. Column names,
// tag columns and relations are declared explicitly by the persistence
// layer rather than discovered by reflection over model structs.
type EntitySchema struct {
	Type EntityType

	// Table is the backing SQL table.
	Table string

	// Tag is the bracketed variable tag produced by variable extraction
	// for entities of this type (e.g. "PROF" for Professors).
	Tag string

	// Aliases are the lowercase variable names answer templates may use to
	// refer to this type (e.g. "prof" in "[prof..first_name]").
	Aliases []string

	// TagColumns are the columns compared against free-text identifiers
	// during fuzzy matching. A type with no tag columns can never match.
	TagColumns []string

	Fields []FieldDescriptor

	// Relations maps a target entity type to the column of THIS type whose
	// value identifies a record of the target type (e.g. Courses relates to
	// Professors through the "instructor" column).
	Relations map[EntityType]string
}

// ColumnNames returns the schema's column names in declaration order.
func (s EntitySchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// SchemaSet holds the schema descriptors for every known entity type.
type SchemaSet map[EntityType]EntitySchema

// ByTag returns the schema whose extraction tag matches (case-insensitive).
func (ss SchemaSet) ByTag(tag string) (EntitySchema, bool) {
	for _, s := range ss {
		if strings.EqualFold(s.Tag, tag) {
			return s, true
		}
	}
	return EntitySchema{}, false
}

// ByAlias resolves a template variable name to a schema. Plural forms are
// reduced to singular before comparison, so "profs" and "prof" both resolve
// to Professors.
func (ss SchemaSet) ByAlias(alias string) (EntitySchema, bool) {
	needle := inflection.Singular(strings.ToLower(strings.TrimSpace(alias)))
	for _, s := range ss {
		if strings.ToLower(s.Tag) == needle {
			return s, true
		}
		if inflection.Singular(strings.ToLower(string(s.Type))) == needle {
			return s, true
		}
		for _, a := range s.Aliases {
			if a == needle {
				return s, true
			}
		}
	}
	return EntitySchema{}, false
}

// DefaultSchemas returns the campus entity descriptors backing the live
// database. Tests substitute reduced sets.
func DefaultSchemas() SchemaSet {
	return SchemaSet{
		EntityCourses: {
			Type:       EntityCourses,
			Table:      "courses",
			Tag:        "COURSE",
			Aliases:    []string{"course", "class"},
			TagColumns: []string{"course_name"},
			Fields: []FieldDescriptor{
				{Name: "id", Type: "uuid"},
				{Name: "dept", Type: "text"},
				{Name: "course_num", Type: "text"},
				{Name: "course_name", Type: "text"},
				{Name: "units", Type: "text"},
				{Name: "prereqs", Type: "text"},
				{Name: "terms_offered", Type: "text"},
				{Name: "instructor", Type: "text"},
			},
			Relations: map[EntityType]string{
				EntityProfessors: "instructor",
			},
		},
		EntityProfessors: {
			Type:       EntityProfessors,
			Table:      "professors",
			Tag:        "PROF",
			Aliases:    []string{"prof", "professor", "instructor", "teacher"},
			TagColumns: []string{"first_name", "last_name"},
			Fields: []FieldDescriptor{
				{Name: "id", Type: "uuid"},
				{Name: "first_name", Type: "text"},
				{Name: "last_name", Type: "text"},
				{Name: "phone_number", Type: "text"},
				{Name: "email", Type: "text"},
				{Name: "office", Type: "text"},
				{Name: "research_interests", Type: "text"},
			},
		},
		EntityClubs: {
			Type:       EntityClubs,
			Table:      "clubs",
			Tag:        "CLUB",
			Aliases:    []string{"club"},
			TagColumns: []string{"club_name"},
			Fields: []FieldDescriptor{
				{Name: "id", Type: "uuid"},
				{Name: "club_name", Type: "text"},
				{Name: "types", Type: "text"},
				{Name: "contact_email", Type: "text"},
				{Name: "advisor", Type: "text"},
				{Name: "affiliation", Type: "text"},
			},
			Relations: map[EntityType]string{
				EntityProfessors: "advisor",
			},
		},
		EntitySections: {
			Type:       EntitySections,
			Table:      "sections",
			Tag:        "SECTION",
			Aliases:    []string{"section"},
			TagColumns: []string{"section_name"},
			Fields: []FieldDescriptor{
				{Name: "id", Type: "uuid"},
				{Name: "section_name", Type: "text"},
				{Name: "instructor", Type: "text"},
				{Name: "days", Type: "text"},
				{Name: "start_time", Type: "text"},
				{Name: "end_time", Type: "text"},
				{Name: "location", Type: "text"},
			},
			Relations: map[EntityType]string{
				EntityProfessors: "instructor",
				EntityLocations:  "location",
			},
		},
		EntityLocations: {
			Type:       EntityLocations,
			Table:      "locations",
			Tag:        "LOC",
			Aliases:    []string{"location", "building"},
			TagColumns: []string{"building_name"},
			Fields: []FieldDescriptor{
				{Name: "id", Type: "uuid"},
				{Name: "building_name", Type: "text"},
				{Name: "building_number", Type: "text"},
				{Name: "room_number", Type: "text"},
				{Name: "latitude", Type: "text"},
				{Name: "longitude", Type: "text"},
			},
		},
		// Audio samples are never fuzzy-matched; the empty tag-column list
		// means lookups against them always miss.
		EntityAudioSampleMetaData: {
			Type:       EntityAudioSampleMetaData,
			Table:      "audio_sample_metadata",
			Tag:        "AUDIO",
			Aliases:    []string{"audio"},
			TagColumns: nil,
			Fields: []FieldDescriptor{
				{Name: "id", Type: "uuid"},
				{Name: "is_wake_word", Type: "bool"},
				{Name: "first_name", Type: "text"},
				{Name: "last_name", Type: "text"},
				{Name: "gender", Type: "text"},
				{Name: "noise_level", Type: "text"},
				{Name: "location", Type: "text"},
				{Name: "tone", Type: "text"},
				{Name: "timestamp", Type: "bigint"},
				{Name: "username", Type: "text"},
				{Name: "filename", Type: "text"},
			},
		},
	}
}
