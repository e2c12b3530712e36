package server

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// Credentials holds bcrypt hashes of the member and admin passwords. The
// plaintext only lives in configuration.
type Credentials struct {
	members map[string][]byte
	admin   []byte
}

func NewCredentials(roster luckydraw.Roster, adminPassword string, cost int) (*Credentials, error) {
	c := &Credentials{members: make(map[string][]byte, len(roster))}
	for _, m := range roster {
		hash, err := bcrypt.GenerateFromPassword([]byte(m.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hashing password for %q: %w", m.Name, err)
		}
		c.members[m.Name] = hash
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	c.admin = hash
	return c, nil
}

// Member reports whether password belongs to member. Names are exact.
func (c *Credentials) Member(name, password string) bool {
	hash, ok := c.members[name]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func (c *Credentials) Admin(password string) bool {
	return bcrypt.CompareHashAndPassword(c.admin, []byte(password)) == nil
}
