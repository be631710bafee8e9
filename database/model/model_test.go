package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAdminOverRoleCombinations(t *testing.T) {
	all := []RoleName{RoleAdmin, RoleAgent, "Librarian"}
	// every subset of up to three attached roles
	for mask := 0; mask < 1<<len(all); mask++ {
		u := &User{}
		want := false
		for i, r := range all {
			if mask&(1<<i) != 0 {
				u.Roles = append(u.Roles, Role{Id: i + 1, Name: r})
				want = want || r == RoleAdmin
			}
		}
		assert.Equal(t, want, u.IsAdmin(), "roles %v", u.RoleNames())
	}
}

func TestIsAdminNilUser(t *testing.T) {
	var u *User
	assert.False(t, u.IsAdmin())
}

func TestParseRoleName(t *testing.T) {
	tests := []struct {
		in   string
		want RoleName
		ok   bool
	}{
		{"Admin", RoleAdmin, true},
		{" admin ", RoleAdmin, true},
		{"AGENT", RoleAgent, true},
		{"root", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRoleName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
