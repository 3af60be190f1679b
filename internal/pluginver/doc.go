// Package pluginver implements plugin API version matching and the tag
// ordering rules used by registry versioning schemes.
package pluginver
