// Package policy holds the authorization rules of the ledger: who may grant
// coins to whom and how much, which role an email address signs up with,
// and which roles may run administrative operations.
package policy

import (
	"strings"

	"ifcoins/internal/models"
)

// Limits are the maximum single-grant amounts per issuer role.
type Limits struct {
	Teacher int64
	Admin   int64
}

// DefaultLimits caps teacher grants at 50 coins and admin grants at 1000.
var DefaultLimits = Limits{Teacher: 50, Admin: 1000}

func (l Limits) forRole(r models.Role) int64 {
	switch r {
	case models.RoleTeacher:
		return l.Teacher
	case models.RoleAdmin:
		return l.Admin
	}
	return 0
}

// Policy evaluates grant and access rules. The zero value is not usable; use New.
type Policy struct {
	limits           Limits
	domain           string
	studentSubdomain string
	admins           map[string]struct{}
}

// Option configures a Policy.
type Option func(*Policy)

// WithLimits overrides the per-role grant limits.
func WithLimits(l Limits) Option {
	return func(p *Policy) { p.limits = l }
}

// WithDomain sets the institution domain and the subdomain that identifies students.
func WithDomain(domain, studentSubdomain string) Option {
	return func(p *Policy) {
		p.domain = normalize(domain)
		p.studentSubdomain = normalize(studentSubdomain)
	}
}

// WithAdmins sets the email addresses that sign up as admins.
func WithAdmins(emails ...string) Option {
	return func(p *Policy) {
		p.admins = make(map[string]struct{}, len(emails))
		for _, e := range emails {
			if e = normalize(e); e != "" {
				p.admins[e] = struct{}{}
			}
		}
	}
}

// New returns a Policy with the institution defaults, modified by opts.
func New(opts ...Option) *Policy {
	p := &Policy{
		limits:           DefaultLimits,
		domain:           "ifpr.edu.br",
		studentSubdomain: "estudantes",
		admins:           map[string]struct{}{"paulocauan39@gmail.com": {}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Limit returns the maximum single grant for the role, 0 for roles that cannot grant.
func (p *Policy) Limit(r models.Role) int64 {
	return p.limits.forRole(r)
}

// AuthorizeGrant decides whether issuer may grant amount coins to recipient.
// Role checks run first, so a student issuer is rejected with ErrInvalidRoles
// whatever the amount.
func (p *Policy) AuthorizeGrant(issuer, recipient models.Account, amount int64) error {
	if !issuer.Role.IsStaff() || recipient.Role != models.RoleStudent {
		return models.ErrInvalidRoles
	}
	if amount < 1 || amount > p.limits.forRole(issuer.Role) {
		return models.ErrAmountOutOfRange
	}
	return nil
}

// RoleForEmail infers the role an address signs up with.
func (p *Policy) RoleForEmail(email string) (models.Role, error) {
	email = normalize(email)
	if _, ok := p.admins[email]; ok {
		return models.RoleAdmin, nil
	}

	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return models.RoleUnknown, models.ErrInvalidDomain
	}
	host := email[at+1:]

	switch host {
	case p.studentSubdomain + "." + p.domain:
		return models.RoleStudent, nil
	case p.domain:
		return models.RoleTeacher, nil
	}
	return models.RoleUnknown, models.ErrInvalidDomain
}

// RequireAdmin allows only admin sessions.
func RequireAdmin(s models.Session) error {
	if s.Role != models.RoleAdmin {
		return models.ErrForbidden
	}
	return nil
}

// RequireStaff allows teacher and admin sessions.
func RequireStaff(s models.Session) error {
	if !s.Role.IsStaff() {
		return models.ErrForbidden
	}
	return nil
}

// RequireStudent allows only student sessions.
func RequireStudent(s models.Session) error {
	if s.Role != models.RoleStudent {
		return models.ErrForbidden
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
