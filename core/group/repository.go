package group

// Repository is the read-only membership query surface supplied by the
// host's storage layer. The rules core never mutates membership; the
// host must call access.Resolver invalidation hooks on any edge change.
type Repository interface {
	GetGroupByID(id int) (Group, error)
	QueryAllGroups() ([]Group, error)
	// GroupsOf returns the ids of all groups the user belongs to,
	// regardless of role.
	GroupsOf(userID int) (IDSet, error)
	// MembersOf returns the ids of all users in the group holding the
	// given role (a role prefix, e.g. user.RoleTrainee).
	MembersOf(groupID int, role string) (IDSet, error)
	// UngroupedTrainees returns the ids of all trainees with no group
	// membership at all.
	UngroupedTrainees() (IDSet, error)
}
