package schedule

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// KeyAll is the sentinel schedule key releasing an item to every group
// at once. A schedule map must not mix an "all" entry with per-group
// entries; that invariant is enforced at edit time (MapInput), while
// evaluation tolerates either shape defensively.
const KeyAll = "all"

// Map is a content item's release schedule: group-id-or-"all" -> release time.
// An empty map means no restriction at all.
type Map map[string]time.Time

// Schedulable is any content item carrying a release schedule
// (a resource, a test).
type Schedulable interface {
	ScheduleMap() Map
}

// GroupKey returns the schedule key for a group id.
func GroupKey(groupID int) string { return strconv.Itoa(groupID) }

// ParseKey resolves a schedule key to a group id, or all=true for the
// "all" sentinel.
func ParseKey(key string) (groupID int, all bool, err error) {
	if key == KeyAll {
		return 0, true, nil
	}
	groupID, err = strconv.Atoi(key)
	if err != nil || groupID <= 0 {
		return 0, false, errors.Errorf("invalid schedule key %q", key)
	}
	return groupID, false, nil
}

// IsScheduled reports whether the item has any release schedule.
func IsScheduled(item Schedulable) bool { return len(item.ScheduleMap()) > 0 }

// IsScheduledForAllGroups reports whether the item carries an "all" entry.
func IsScheduledForAllGroups(item Schedulable) bool {
	_, ok := item.ScheduleMap()[KeyAll]
	return ok
}

// persisted datetime layouts, most specific first
var layouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"}

// ParseMap deserializes a persisted schedule (key -> datetime string).
func ParseMap(raw map[string]string) (Map, error) {
	m := make(Map, len(raw))
	for key, val := range raw {
		if _, _, err := ParseKey(key); err != nil {
			return nil, err
		}
		var t time.Time
		var err error
		for _, layout := range layouts {
			if t, err = time.Parse(layout, val); err == nil {
				break
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parsing schedule time %q", val)
		}
		m[key] = t.UTC()
	}
	return m, nil
}

// Resource is a plain schedulable content item. Its body lives with the
// host's content store; the core only gates its visibility.
type Resource struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Schedule  Map       `json:"schedule"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

var _ Schedulable = (*Resource)(nil)

func (r Resource) ScheduleMap() Map { return r.Schedule }
