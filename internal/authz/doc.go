// Package authz holds the authorization core: the role-integrity validator,
// the account-activation predicate, the hierarchical access scoper, and one
// policy type per resource kind. Everything here is a pure computation over
// already-loaded rows; services fetch the relations and translate denials
// into typed errors. Policies never panic or error for an expected denial,
// they return false.
package authz
