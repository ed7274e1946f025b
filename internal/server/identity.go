package server

import (
	"net/http"
	"strings"

	"github.com/lcardona/depositrack/internal/domain"
)

// The session capability lives outside this service; a trusted gateway
// forwards the authenticated viewer in these headers.
const (
	headerUserID        = "X-User-Id"
	headerUserEmail     = "X-User-Email"
	headerUserName      = "X-User-Name"
	headerUserRole      = "X-User-Role"
	headerAccountStatus = "X-Account-Status"
)

// identityFromRequest reconstructs the viewer identity from the forwarded
// headers. Role and account status default to the least privileged values.
func identityFromRequest(r *http.Request) (domain.Identity, bool) {
	id := strings.TrimSpace(r.Header.Get(headerUserID))
	email := strings.TrimSpace(r.Header.Get(headerUserEmail))
	if id == "" || email == "" {
		return domain.Identity{}, false
	}

	role := domain.RoleMember
	if strings.EqualFold(r.Header.Get(headerUserRole), string(domain.RoleAdmin)) {
		role = domain.RoleAdmin
	}

	status := domain.AccountStatus(strings.ToLower(strings.TrimSpace(r.Header.Get(headerAccountStatus))))
	if status == "" {
		status = domain.AccountActive
	}

	return domain.Identity{
		ID:            id,
		Email:         email,
		Name:          strings.TrimSpace(r.Header.Get(headerUserName)),
		Role:          role,
		AccountStatus: status,
	}, true
}
