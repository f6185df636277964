package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/mafunzo/core"
	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
)

var NowFunc = time.Now // mockable

// VerdictFunc lets a host veto or annotate an availability verdict
// after the scheduler computes it. Hooks run in registration order.
type VerdictFunc func(item Schedulable, usr user.User, ok bool, msg string) (bool, string)

// Scheduler decides whether a content item is currently visible to a
// user, given the item's release schedule and the user's group
// memberships. Evaluation is on demand with a caller-supplied "now";
// there is no background polling.
type Scheduler struct {
	groups group.Repository
	conf   *core.Config
	log    core.Logger
	hooks  []VerdictFunc
}

func NewScheduler(groups group.Repository, conf *core.Config, log core.Logger, hooks ...VerdictFunc) *Scheduler {
	return &Scheduler{
		groups: groups,
		conf:   conf,
		log:    log,
		hooks:  hooks,
	}
}

// IsAvailable reports whether the item is visible to usr at "now".
// Admins always pass. An entry affects usr if its key is "all" or a
// group usr belongs to; the item is unavailable while any affecting
// entry is still in the future. A release passes the instant it is
// reached: now >= release means available. When several affecting
// entries are still pending, the earliest one supplies the message.
func (s *Scheduler) IsAvailable(item Schedulable, usr user.User, now time.Time) (bool, string) {
	if usr.IsAdmin() {
		return s.applyHooks(item, usr, true, "")
	}

	if !IsScheduled(item) {
		// absence of a schedule is absence of a restriction
		return s.applyHooks(item, usr, true, "")
	}
	sched := item.ScheduleMap()

	usrGroups, err := s.groups.GroupsOf(usr.ID)
	if err != nil {
		s.log.Error("schedule: resolving groups failed", err, usr)
		return s.applyHooks(item, usr, false, "This item is not yet available")
	}

	var blockKey string
	var blockAt time.Time
	for key, at := range sched {
		if !at.After(now) { // now >= at: released
			continue
		}
		gid, all, err := ParseKey(key)
		if err != nil {
			s.log.Warn("schedule: skipping malformed key", err)
			continue
		}
		if !all && !usrGroups.Has(gid) {
			continue
		}
		// earliest pending release wins the message
		if blockKey == "" || at.Before(blockAt) {
			blockKey, blockAt = key, at
		}
	}

	if blockKey == "" {
		return s.applyHooks(item, usr, true, "")
	}
	return s.applyHooks(item, usr, false, s.blockedMessage(blockKey, blockAt))
}

func (s *Scheduler) blockedMessage(key string, at time.Time) string {
	when := fmt.Sprintf("on %s at %s", at.Format(s.conf.DateFormat), at.Format(s.conf.TimeFormat))
	if key == KeyAll {
		return fmt.Sprintf("This item will be available %s", when)
	}
	gid, _, _ := ParseKey(key)
	if grp, err := s.groups.GetGroupByID(gid); err == nil {
		return fmt.Sprintf("This item will be available to group %q %s", grp.Title, when)
	}
	return fmt.Sprintf("This item will be available to your group %s", when)
}

// ViewEntry is one schedule line prepared for presentation.
type ViewEntry struct {
	Key       string       `json:"key"`
	Group     *group.Group `json:"group"` // nil for "all"
	ReleaseAt time.Time    `json:"release_at"`
	Passed    bool         `json:"passed"`
	Date      string       `json:"date"`
	Time      string       `json:"time"`
}

// View returns the item's schedule sorted ascending by release time,
// so the nearest pending release appears first.
func (s *Scheduler) View(item Schedulable) []ViewEntry {
	now := NowFunc()
	sched := item.ScheduleMap()

	entries := make([]ViewEntry, 0, len(sched))
	for key, at := range sched {
		entry := ViewEntry{
			Key:       key,
			ReleaseAt: at,
			Passed:    !at.After(now),
			Date:      at.Format(s.conf.DateFormat),
			Time:      at.Format(s.conf.TimeFormat),
		}
		if gid, all, err := ParseKey(key); err == nil && !all {
			if grp, err := s.groups.GetGroupByID(gid); err == nil {
				entry.Group = &grp
			} else if err != group.ErrNotFound {
				s.log.Warn("schedule: resolving group failed", err)
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ReleaseAt.Equal(entries[j].ReleaseAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].ReleaseAt.Before(entries[j].ReleaseAt)
	})
	return entries
}

func (s *Scheduler) applyHooks(item Schedulable, usr user.User, ok bool, msg string) (bool, string) {
	for _, hook := range s.hooks {
		ok, msg = hook(item, usr, ok, msg)
	}
	return ok, msg
}
