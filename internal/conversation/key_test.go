package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirect_IsSymmetric(t *testing.T) {
	req := require.New(t)
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"user1", "user2"},
		{"Zed", "amy"},
		{"same", "same"},
		{"", "x"},
	}
	for _, p := range pairs {
		req.Equal(Direct(p[0], p[1]), Direct(p[1], p[0]))
		req.Equal(Direct(p[0], p[1]).String(), Direct(p[1], p[0]).String())
	}
	req.Equal("alice_bob", Direct("bob", "alice").String())
}

func TestResolve(t *testing.T) {
	req := require.New(t)

	k := Resolve("alice", "bob")
	req.Equal(KindDirect, k.Kind())
	req.Equal("bob", k.Peer("alice"))
	req.Equal("alice", k.Peer("bob"))
	req.Equal("bob", k.Recipient("alice"))

	g := Resolve("alice", "group:42")
	req.True(g.IsGroup())
	req.Equal("42", g.GroupID())
	req.Equal("group:42", g.String())
	req.Equal("group:42", g.Recipient("alice"))
	req.Empty(g.Peer("alice"))
}

func TestKeys_DoNotCollide(t *testing.T) {
	req := require.New(t)

	// both render as "a_b_c" but are distinct conversations
	left := Direct("a_b", "c")
	right := Direct("a", "b_c")
	req.Equal(left.String(), right.String())
	req.NotEqual(left, right)

	rooms := map[Key]int{left: 1, right: 2}
	req.Len(rooms, 2)

	// a group never equals a direct key with the same rendering
	req.NotEqual(Group("7"), Direct("group:7", ""))
}

func TestZeroKey(t *testing.T) {
	var k Key
	require.True(t, k.IsZero())
	require.Empty(t, k.String())
}
