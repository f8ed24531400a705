// Package access implements the static authorization gate. The policy is
// built once at startup and never mutated afterwards.
package access

// Identity names the sender of an inbound message.
type Identity struct {
	UserID int64
	ChatID int64
}

// Policy holds the authorized user and chat id sets.
type Policy struct {
	users map[int64]struct{}
	chats map[int64]struct{}
}

// NewPolicy builds a policy from the configured allow-lists.
func NewPolicy(users, chats []int64) *Policy {
	p := &Policy{
		users: make(map[int64]struct{}, len(users)),
		chats: make(map[int64]struct{}, len(chats)),
	}
	for _, id := range users {
		p.users[id] = struct{}{}
	}
	for _, id := range chats {
		p.chats[id] = struct{}{}
	}
	return p
}

// Authorize reports whether the identity's user id is in the authorized-user
// set or its chat id is in the authorized-chat set. An empty policy admits
// nobody.
func (p *Policy) Authorize(id Identity) bool {
	if _, ok := p.users[id.UserID]; ok {
		return true
	}
	if _, ok := p.chats[id.ChatID]; ok {
		return true
	}
	return false
}

// Empty reports whether both allow-lists are empty. Useful for warning at
// startup that the bot will reject everyone.
func (p *Policy) Empty() bool {
	return len(p.users) == 0 && len(p.chats) == 0
}
