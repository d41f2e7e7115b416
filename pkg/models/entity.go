package models

import "fmt"

// EntityType identifies one stored record collection.
type EntityType string

const (
	EntityCourses             EntityType = "Courses"
	EntityProfessors          EntityType = "Professors"
	EntityClubs               EntityType = "Clubs"
	EntitySections            EntityType = "Sections"
	EntityLocations           EntityType = "Locations"
	EntityAudioSampleMetaData EntityType = "AudioSampleMetaData"
)

// EntityRecord is a flat property mapping for one stored row. Records are
// read-only from the question-answering pipeline's perspective; the
// persistence layer owns their lifecycle.
type EntityRecord map[string]any

// Property returns the stringified value of the named column. The second
// return is false when the column is absent or NULL.
func (r EntityRecord) Property(name string) (string, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}
