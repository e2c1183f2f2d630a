package model

import "testing"

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleTeacher, RoleStudent} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []Role{"", "superuser", "Admin"} {
		if Role(r).Valid() {
			t.Errorf("%q should not be valid", r)
		}
	}
}

func TestRolePredicates(t *testing.T) {
	if !RoleAdmin.CanManageDirectory() || RoleTeacher.CanManageDirectory() || RoleStudent.CanManageDirectory() {
		t.Error("only admins manage the directory")
	}
	if !RoleTeacher.CanIssueSessions() || RoleAdmin.CanIssueSessions() || RoleStudent.CanIssueSessions() {
		t.Error("only teachers issue sessions")
	}
	if !RoleStudent.CanScan() || RoleAdmin.CanScan() || RoleTeacher.CanScan() {
		t.Error("only students scan")
	}
}

func TestEnrolledIn(t *testing.T) {
	u := &User{Courses: []string{"CS101", "MA201"}}
	if !u.EnrolledIn("CS101") {
		t.Error("expected enrollment in CS101")
	}
	if u.EnrolledIn("PH301") {
		t.Error("unexpected enrollment in PH301")
	}
	empty := &User{}
	if empty.EnrolledIn("CS101") {
		t.Error("empty course set should not match")
	}
}
