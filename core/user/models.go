package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Group Manager
	RoleGroupManager = "manager:"

	// Trainee
	RoleTrainee = "trainee:"
)

var (
	AdminRoles        = []string{RoleAdmin, RoleAdminOwner}
	GroupManagerRoles = []string{RoleGroupManager}
	TraineeRoles      = []string{RoleTrainee}
	AllRoles          = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Group Managers: 20 - 11
		RoleGroupManager: 11,

		// Trainees: 10 - 1
		RoleTrainee: 1,
	}

	Roles = []Role{
		{Name: "Trainee", Value: RoleTrainee},
		{Name: "Group Manager", Value: RoleGroupManager},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, GroupManagerRoles...)
	all = append(all, TraineeRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a platform principal. The rules core never creates or
// destroys users; the host application owns their lifecycle.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user bypasses all scheduling and
// access-resolution gates.
func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsGroupManager() bool {
	return u.RoleStartsWith(RoleGroupManager)
}

func (u *User) IsTrainee() bool {
	return u.RoleStartsWith(RoleTrainee)
}
