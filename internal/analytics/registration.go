package analytics

import (
	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// RegistrationMetrics counts distinct registered profiles, overall and per
// role. Counts come from the profile snapshot alone, so accounts that never
// opened a session are still represented.
type RegistrationMetrics struct {
	Total  int            `json:"total"`
	ByRole map[string]int `json:"by_role"`
}

// Registration counts distinct profiles by role. Duplicate ids in the
// snapshot are collapsed rather than double-counted.
func Registration(profiles []domain.UserProfile) RegistrationMetrics {
	m := RegistrationMetrics{ByRole: make(map[string]int)}
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		m.Total++
		role := p.Role
		if role == "" {
			role = domain.RoleUnknown
		}
		m.ByRole[role]++
	}
	return m
}
