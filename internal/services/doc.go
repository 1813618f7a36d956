// Package services defines the error taxonomy shared by shortcast's
// external-service clients and the workflow manager.
package services
