// Package publish uploads artifacts to the publish target and controls
// their scheduling and visibility.
package publish
