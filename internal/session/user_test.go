package session

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("User normalization", func() {
	ginkgo.Describe("NormalizeUser", func() {
		ginkgo.It("should read camelCase profile fields", func() {
			u := NormalizeUser(map[string]any{
				"id":        float64(7),
				"username":  "jdoe",
				"email":     "jdoe@winston.edu",
				"firstName": "Jane",
				"lastName":  "Doe",
				"phone":     "555-0101",
				"userRole":  "team_member",
			})

			gomega.Expect(u.ID).To(gomega.Equal(int64(7)))
			gomega.Expect(u.FirstName).To(gomega.Equal("Jane"))
			gomega.Expect(u.LastName).To(gomega.Equal("Doe"))
			gomega.Expect(u.Role).To(gomega.Equal(RoleTeamMember))
		})

		ginkgo.It("should read snake_case variants of the same fields", func() {
			u := NormalizeUser(map[string]any{
				"id":         float64(7),
				"first_name": "Jane",
				"last_name":  "Doe",
				"user_role":  "admin",
			})

			gomega.Expect(u.FirstName).To(gomega.Equal("Jane"))
			gomega.Expect(u.LastName).To(gomega.Equal("Doe"))
			gomega.Expect(u.Role).To(gomega.Equal(RoleAdmin))
		})

		ginkgo.It("should mirror the role into both role fields", func() {
			u := NormalizeUser(map[string]any{"id": float64(1), "userRole": "admin"})

			gomega.Expect(u.Role).To(gomega.Equal(u.UserRole))
			gomega.Expect(u.Role).To(gomega.Equal(RoleAdmin))
		})

		ginkgo.It("should accept a populated role object", func() {
			u := NormalizeUser(map[string]any{
				"id":   float64(1),
				"role": map[string]any{"name": "Administrator", "type": "admin"},
			})

			gomega.Expect(u.Role).To(gomega.Equal(RoleAdmin))
		})

		ginkgo.It("should grant every capability to admins regardless of flags", func() {
			u := NormalizeUser(map[string]any{
				"id":               float64(1),
				"userRole":         "admin",
				"can_access_leads": false,
			})

			gomega.Expect(u.CanAccessLeads).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessStudents).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessUsers).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessDashboard).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessTimesheets).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessAgencies).To(gomega.BeTrue())
		})

		ginkgo.It("should read capability flags under both naming conventions", func() {
			u := NormalizeUser(map[string]any{
				"id":                  float64(2),
				"userRole":            "team_member",
				"canAccessLeads":      true,
				"can_access_students": true,
			})

			gomega.Expect(u.CanAccessLeads).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessStudents).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessUsers).To(gomega.BeFalse())
		})

		ginkgo.It("should derive activity from the blocked flag", func() {
			blocked := NormalizeUser(map[string]any{"id": float64(3), "blocked": true})
			active := NormalizeUser(map[string]any{"id": float64(3), "blocked": false})
			unspecified := NormalizeUser(map[string]any{"id": float64(3)})

			gomega.Expect(blocked.IsActive).To(gomega.BeFalse())
			gomega.Expect(active.IsActive).To(gomega.BeTrue())
			gomega.Expect(unspecified.IsActive).To(gomega.BeTrue())
		})

		ginkgo.It("should parse string ids", func() {
			u := NormalizeUser(map[string]any{"id": "42"})
			gomega.Expect(u.ID).To(gomega.Equal(int64(42)))
		})
	})

	ginkgo.Describe("FallbackUser", func() {
		admins := []string{"admin@winston.edu"}

		ginkgo.It("should grant everything to a configured admin identifier", func() {
			u := FallbackUser("admin@winston.edu", 1, admins)

			gomega.Expect(u.Role).To(gomega.Equal(RoleAdmin))
			gomega.Expect(u.UserRole).To(gomega.Equal(RoleAdmin))
			gomega.Expect(u.CanAccessLeads).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessStudents).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessUsers).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessDashboard).To(gomega.BeTrue())
		})

		ginkgo.It("should match admin identifiers case-insensitively", func() {
			u := FallbackUser("Admin@Winston.EDU", 1, admins)
			gomega.Expect(u.Role).To(gomega.Equal(RoleAdmin))
		})

		ginkgo.It("should give everyone else the conservative default set", func() {
			u := FallbackUser("teacher@winston.edu", 2, admins)

			gomega.Expect(u.Role).To(gomega.Equal(RoleTeamMember))
			gomega.Expect(u.CanAccessDashboard).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessTimesheets).To(gomega.BeTrue())
			gomega.Expect(u.CanAccessLeads).To(gomega.BeFalse())
			gomega.Expect(u.CanAccessStudents).To(gomega.BeFalse())
			gomega.Expect(u.CanAccessUsers).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("Can", func() {
		ginkgo.It("should answer per capability flag", func() {
			u := &User{CanAccessLeads: true}

			gomega.Expect(u.Can(CapabilityLeads)).To(gomega.BeTrue())
			gomega.Expect(u.Can(CapabilityUsers)).To(gomega.BeFalse())
			gomega.Expect(u.Can(Capability("unknown"))).To(gomega.BeFalse())
		})
	})
})
