// Package policy loads the declarative theming policy: the table of
// component kinds and their asset folder names, the semantic preview
// keys each component contributes, the component kinds that must be
// reapplied when an applied theme updates on disk, and the platform
// default package name.
//
// The policy is data, not code. It is expressed in CUE and validated
// against an embedded schema; deployments may override the embedded
// default with a policy file. Keeping the reappliable list and the
// folder table in the policy document means changing either is a
// configuration change, not a rebuild.
package policy
