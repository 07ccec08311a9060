// Package models defines the persisted entities of spotctl.
//
// [PlayRecord] is one cached entry of the user's recently played list.
// Entities implement [Model]; repositories implement [Repository].
package models
