package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/internal/models"
)

func TestAuthorizeGrant(t *testing.T) {
	p := New()

	student := models.Account{ID: "s", Role: models.RoleStudent}
	otherStudent := models.Account{ID: "s2", Role: models.RoleStudent}
	teacher := models.Account{ID: "t", Role: models.RoleTeacher}
	admin := models.Account{ID: "a", Role: models.RoleAdmin}

	tests := []struct {
		name      string
		issuer    models.Account
		recipient models.Account
		amount    int64
		want      error
	}{
		{name: "teacher minimum", issuer: teacher, recipient: student, amount: 1},
		{name: "teacher maximum", issuer: teacher, recipient: student, amount: 50},
		{name: "teacher over limit", issuer: teacher, recipient: student, amount: 51, want: models.ErrAmountOutOfRange},
		{name: "admin maximum", issuer: admin, recipient: student, amount: 1000},
		{name: "admin over limit", issuer: admin, recipient: student, amount: 1001, want: models.ErrAmountOutOfRange},
		{name: "zero amount", issuer: teacher, recipient: student, amount: 0, want: models.ErrAmountOutOfRange},
		{name: "negative amount", issuer: admin, recipient: student, amount: -5, want: models.ErrAmountOutOfRange},
		{name: "student issuer", issuer: otherStudent, recipient: student, amount: 10, want: models.ErrInvalidRoles},
		{name: "student issuer invalid amount", issuer: otherStudent, recipient: student, amount: 0, want: models.ErrInvalidRoles},
		{name: "teacher to teacher", issuer: admin, recipient: teacher, amount: 10, want: models.ErrInvalidRoles},
		{name: "admin to admin", issuer: admin, recipient: admin, amount: 10, want: models.ErrInvalidRoles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.AuthorizeGrant(tt.issuer, tt.recipient, tt.amount)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizeGrantCustomLimits(t *testing.T) {
	p := New(WithLimits(Limits{Teacher: 10, Admin: 20}))
	teacher := models.Account{Role: models.RoleTeacher}
	student := models.Account{Role: models.RoleStudent}

	assert.NoError(t, p.AuthorizeGrant(teacher, student, 10))
	assert.ErrorIs(t, p.AuthorizeGrant(teacher, student, 11), models.ErrAmountOutOfRange)
	assert.Equal(t, int64(20), p.Limit(models.RoleAdmin))
	assert.Zero(t, p.Limit(models.RoleStudent))
}

func TestRoleForEmail(t *testing.T) {
	p := New()

	tests := []struct {
		email   string
		want    models.Role
		wantErr bool
	}{
		{email: "ana@estudantes.ifpr.edu.br", want: models.RoleStudent},
		{email: "  ANA@Estudantes.IFPR.edu.br ", want: models.RoleStudent},
		{email: "prof@ifpr.edu.br", want: models.RoleTeacher},
		{email: "PauloCauan39@gmail.com", want: models.RoleAdmin},
		{email: "someone@gmail.com", wantErr: true},
		{email: "x@other.estudantes.ifpr.edu.br", wantErr: true},
		{email: "x@ifpr.edu.br.evil.com", wantErr: true},
		{email: "@ifpr.edu.br", wantErr: true},
		{email: "no-at-sign", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, err := p.RoleForEmail(tt.email)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidDomain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleForEmailCustomDomain(t *testing.T) {
	p := New(WithDomain("school.org", "pupils"), WithAdmins("root@school.org"))

	role, err := p.RoleForEmail("kid@pupils.school.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)

	role, err = p.RoleForEmail("root@school.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, err = p.RoleForEmail("paulocauan39@gmail.com")
	assert.ErrorIs(t, err, models.ErrInvalidDomain)
}

func TestRequireRole(t *testing.T) {
	student := models.Session{UserID: "s", Role: models.RoleStudent}
	teacher := models.Session{UserID: "t", Role: models.RoleTeacher}
	admin := models.Session{UserID: "a", Role: models.RoleAdmin}

	assert.NoError(t, RequireAdmin(admin))
	assert.ErrorIs(t, RequireAdmin(teacher), models.ErrForbidden)
	assert.NoError(t, RequireStaff(teacher))
	assert.NoError(t, RequireStaff(admin))
	assert.ErrorIs(t, RequireStaff(student), models.ErrForbidden)
	assert.NoError(t, RequireStudent(student))
	assert.ErrorIs(t, RequireStudent(admin), models.ErrForbidden)
}
