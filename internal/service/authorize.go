// Package service holds the application use cases. Services validate input,
// enforce authorization and delegate persistence to the repositories.
package service

import "poetportal/internal/models"

// RequireOwnership fails with FORBIDDEN unless requesterID owns the resource.
// Admins get no exemption here.
func RequireOwnership(requesterID, ownerID uint) error {
	if requesterID == 0 || requesterID != ownerID {
		return models.NewForbiddenError("You can only modify your own content")
	}
	return nil
}

// RequireAdmin fails with FORBIDDEN unless user is a current admin.
func RequireAdmin(user *models.User) error {
	if user == nil || !user.IsAdmin {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}
