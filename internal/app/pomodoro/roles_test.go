package pomodoro

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleForLadder(t *testing.T) {
	f := newFixture()
	row := baseRow()
	row.OwnerID = strPtr("owner")
	row.ManagerRoleID = strPtr("role-mgr")
	tm := f.timer(row)

	cases := []struct {
		name string
		m    MemberContext
		want TimerRole
	}{
		{"admin de guild", MemberContext{UserID: "owner", IsGuildAdmin: true}, RoleAdmin},
		{"owner", MemberContext{UserID: "owner"}, RoleOwner},
		{"manage_channels", MemberContext{UserID: "x", ManageChannels: true}, RoleManager},
		{"rol manager", MemberContext{UserID: "x", RoleIDs: []string{"other", "role-mgr"}}, RoleManager},
		{"resto", MemberContext{UserID: "x", RoleIDs: []string{"other"}}, RoleOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tm.RoleFor(tc.m))
		})
	}
}

func TestRoleForUnownedTimer(t *testing.T) {
	f := newFixture()
	tm := f.timer(baseRow())
	require.False(t, tm.Owned())
	require.Equal(t, RoleOther, tm.RoleFor(MemberContext{UserID: "anyone"}))
}
