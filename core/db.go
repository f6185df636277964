package core

// DBOrdering is a repository query ordering directive. SQL-backed
// repositories render it as an ORDER BY term; the in-memory store
// interprets the field name directly.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
