// Package tenants provides persistence and caching for organizations
// (tenants), their plan entitlements, and principal memberships.
//
// The store is the source of truth. The cache layers an in-process LRU in
// front of Redis for the tenant records read on every authenticated request;
// writes go straight through to PostgreSQL and invalidate both layers.
package tenants
