package core

import "github.com/sirupsen/logrus"

// RequireSelf allows the principal to act only on resources owned by its own
// academic id. action names the attempted operation in the failure details.
// There is no role hierarchy and no administrative bypass.
func RequireSelf(p Principal, ownerID, action string) error {
	if p.AcademicID != "" && p.AcademicID == ownerID {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"registro_academico": p.AcademicID,
		"target":             ownerID,
		"action":             action,
	}).Warn("ownership check failed")
	return InsufficientPermissions(action)
}
