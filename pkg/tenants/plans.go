package tenants

import "github.com/ledgerline/ledgerline/pkg/auth"

// Feature names gated by plan tier.
const (
	FeatureUsageReports    = "usage_reports"
	FeatureCustomRoles     = "custom_roles"
	FeatureSSO             = "sso"
	FeaturePrioritySupport = "priority_support"
)

// DefaultFeatures returns the feature set a plan tier grants when the
// tenant row carries no explicit override
func DefaultFeatures(plan auth.PlanTier) []string {
	switch plan {
	case auth.PlanStandard:
		return []string{FeatureUsageReports}
	case auth.PlanBusiness:
		return []string{FeatureUsageReports, FeatureCustomRoles}
	case auth.PlanEnterprise:
		return []string{FeatureUsageReports, FeatureCustomRoles, FeatureSSO, FeaturePrioritySupport}
	default:
		return []string{}
	}
}

// DefaultLimits returns the resource limits for a plan tier
func DefaultLimits(plan auth.PlanTier) auth.TenantLimits {
	switch plan {
	case auth.PlanStandard:
		return auth.TenantLimits{
			MaxUsers:        25,
			MaxProjects:     25,
			MaxStorageBytes: 50 << 30,
		}
	case auth.PlanBusiness:
		return auth.TenantLimits{
			MaxUsers:        100,
			MaxProjects:     100,
			MaxStorageBytes: 500 << 30,
		}
	case auth.PlanEnterprise:
		return auth.TenantLimits{
			MaxUsers:        1000,
			MaxProjects:     1000,
			MaxStorageBytes: 4 << 40,
		}
	default:
		return auth.TenantLimits{
			MaxUsers:        5,
			MaxProjects:     3,
			MaxStorageBytes: 1 << 30,
		}
	}
}
