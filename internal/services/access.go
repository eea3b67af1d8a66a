package services

import "github.com/docuvault/document-service/internal/models"

// AccessGateway centralizes the authorization rules: strict per-owner
// isolation, and download/share additionally require a clean scan verdict.
// Checks are pure functions of (user, document), independent of any request
// object.
type AccessGateway struct{}

func (AccessGateway) CanView(userID string, d models.Document) bool {
	return d.UserID == userID
}

func (AccessGateway) CanDownload(userID string, d models.Document) bool {
	return d.UserID == userID && d.Status.IsDownloadable()
}

func (AccessGateway) CanShare(userID string, d models.Document) bool {
	return d.UserID == userID && d.Status.IsShareable()
}

func (AccessGateway) CanDelete(userID string, d models.Document) bool {
	return d.UserID == userID
}
