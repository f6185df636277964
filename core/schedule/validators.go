package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mafunzo/core"
)

var (
	schedKeyTag  = "schedkey"
	schedKeyText = `must be "all" or a group id`

	schedNoMixTag  = "schednomix"
	schedNoMixText = `an "all" entry cannot be combined with per-group entries`

	schedDupTag  = "scheddup"
	schedDupText = "duplicate schedule key"
)

func init() {
	// register validators
	core.Validate.RegisterStructValidation(mapInputStructValidation, MapInput{})
	core.RegisterCustomTranslation(schedKeyTag, schedKeyText)
	core.RegisterCustomTranslation(schedNoMixTag, schedNoMixText)
	core.RegisterCustomTranslation(schedDupTag, schedDupText)
}

// EntryInput is a single schedule line as edited by an administrator.
type EntryInput struct {
	Key       string    `json:"key" validate:"required"`
	ReleaseAt time.Time `json:"release_at" validate:"required"`
}

// MapInput is a full schedule-map edit for one content item.
type MapInput struct {
	Entries []EntryInput `json:"entries" validate:"omitempty,dive"`
}

func (mi *MapInput) Validate() error {
	for i := range mi.Entries {
		mi.Entries[i].Key = core.CleanString(mi.Entries[i].Key, true /* lower */)
	}
	if err := core.Validate.Struct(mi); err != nil {
		return core.NewValidationError(err, core.TranslateValidationErrors(err)...)
	}
	return nil
}

// Map converts a validated edit into a schedule Map.
func (mi *MapInput) Map() Map {
	m := make(Map, len(mi.Entries))
	for _, entry := range mi.Entries {
		m[entry.Key] = entry.ReleaseAt.UTC()
	}
	return m
}

// mapInputStructValidation enforces the schedule-map invariants at the
// point schedules are edited: valid keys, no duplicates, and no mixing
// of an "all" entry with per-group entries.
func mapInputStructValidation(sl validator.StructLevel) {
	mi, ok := sl.Current().Interface().(MapInput)
	if !ok {
		return
	}

	var hasAll, hasGroup bool
	seen := make(map[string]struct{}, len(mi.Entries))
	for _, entry := range mi.Entries {
		if _, dup := seen[entry.Key]; dup {
			sl.ReportError(entry.Key, "entries", "Entries", schedDupTag, "")
			continue
		}
		seen[entry.Key] = struct{}{}

		_, all, err := ParseKey(entry.Key)
		if err != nil {
			sl.ReportError(entry.Key, "entries", "Entries", schedKeyTag, "")
			continue
		}
		if all {
			hasAll = true
		} else {
			hasGroup = true
		}
	}

	if hasAll && hasGroup {
		sl.ReportError(mi.Entries, "entries", "Entries", schedNoMixTag, "")
	}
}
