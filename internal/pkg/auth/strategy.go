package auth

import (
	"time"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

// Strategy issues and parses bearer tokens carrying the acting staff member.
type Strategy interface {
	IssueToken(actor model.Actor) (string, error)
	ParseToken(token string) (model.Actor, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
