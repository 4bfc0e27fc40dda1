package agent

import (
	"crypto/sha1"
	"encoding/hex"
)

// AccountInfo is the response shape of LookupUser.
type AccountInfo struct {
	Exists   bool   `json:"exists"`
	Status   string `json:"status"`
	Plan     string `json:"plan,omitempty"`
	Verified bool   `json:"verified"`
}

// ResetResult is the response shape of ResetPassword.
type ResetResult struct {
	OK     bool   `json:"ok"`
	Token  string `json:"token,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type accountRecord struct {
	verified bool
	plan     string
	status   string
}

// AccountService is a deterministic, offline mock of an account backend,
// seeded with a few users. Suitable for demos and tests only.
type AccountService struct {
	users map[string]accountRecord
}

// NewAccountService creates the mock service with its default seed users.
func NewAccountService() *AccountService {
	return &AccountService{users: map[string]accountRecord{
		"ana@example.com":    {verified: true, plan: "annual", status: "active"},
		"bob@example.com":    {verified: false, plan: "monthly", status: "pending_email_verification"},
		"carlos@demo.io":     {verified: true, plan: "free", status: "active"},
	}}
}

// SetUser creates or updates a user. Intended for tests and demos.
func (s *AccountService) SetUser(email string, verified bool, plan, status string) {
	if plan == "" {
		plan = "free"
	}
	if status == "" {
		status = "active"
	}
	s.users[email] = accountRecord{verified: verified, plan: plan, status: status}
}

// LookupUser returns the mock account status for an email.
func (s *AccountService) LookupUser(email string) AccountInfo {
	rec, ok := s.users[email]
	if !ok {
		return AccountInfo{Exists: false, Status: "not_found"}
	}
	return AccountInfo{Exists: true, Status: rec.status, Plan: rec.plan, Verified: rec.verified}
}

// ResetPassword attempts a password reset. It succeeds only for existing,
// verified users and returns a deterministic token derived from the email.
func (s *AccountService) ResetPassword(email string) ResetResult {
	info := s.LookupUser(email)
	if !info.Exists {
		return ResetResult{OK: false, Reason: "not_found"}
	}
	if !info.Verified {
		return ResetResult{OK: false, Reason: "email_unverified"}
	}
	return ResetResult{OK: true, Token: tokenFor(email)}
}

// tokenFor derives a short deterministic reset token from an email.
func tokenFor(email string) string {
	sum := sha1.Sum([]byte(email))
	return "reset_" + hex.EncodeToString(sum[:])[:10]
}
