package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mafunzo/core/group"
	"github.com/trezcool/mafunzo/core/user"
)

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

type groupRow struct {
	ID        int         `db:"id"`
	Title     string      `db:"title"`
	Color     null.String `db:"color"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row groupRow) toGroup() group.Group {
	return group.Group{
		ID:        row.ID,
		Title:     row.Title,
		Color:     row.Color.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo *groupRepository) GetGroupByID(id int) (group.Group, error) {
	var row groupRow
	err := repo.db.Get(&row, `SELECT id, title, color, created_at, updated_at FROM "group" WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return group.Group{}, group.ErrNotFound
	}
	if err != nil {
		return group.Group{}, errors.Wrap(err, "getting group")
	}
	return row.toGroup(), nil
}

func (repo *groupRepository) QueryAllGroups() ([]group.Group, error) {
	var rows []groupRow
	if err := repo.db.Select(&rows, `SELECT id, title, color, created_at, updated_at FROM "group" ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.toGroup())
	}
	return groups, nil
}

func (repo *groupRepository) GroupsOf(userID int) (group.IDSet, error) {
	var ids []int
	if err := repo.db.Select(&ids, `SELECT group_id FROM group_member WHERE user_id = $1`, userID); err != nil {
		return nil, errors.Wrap(err, "querying user groups")
	}
	return group.NewIDSet(ids...), nil
}

func (repo *groupRepository) MembersOf(groupID int, role string) (group.IDSet, error) {
	var ids []int
	err := repo.db.Select(&ids, `SELECT user_id FROM group_member WHERE group_id = $1 AND role LIKE $2 || '%'`, groupID, role)
	if err != nil {
		return nil, errors.Wrap(err, "querying group members")
	}
	return group.NewIDSet(ids...), nil
}

func (repo *groupRepository) UngroupedTrainees() (group.IDSet, error) {
	var ids []int
	err := repo.db.Select(&ids, `
		SELECT u.id FROM "user" u
		WHERE EXISTS (SELECT 1 FROM unnest(u.roles) r WHERE r LIKE $1 || '%')
		  AND NOT EXISTS (SELECT 1 FROM group_member gm WHERE gm.user_id = u.id)`,
		user.RoleTrainee)
	if err != nil {
		return nil, errors.Wrap(err, "querying ungrouped trainees")
	}
	return group.NewIDSet(ids...), nil
}
